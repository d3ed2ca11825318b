package config

import "errors"

// ErrUnknownDuplicatePolicy is returned for a policy value outside the two
// supported bounds
var ErrUnknownDuplicatePolicy = errors.New("unknown duplicate policy")

// DuplicatePolicy selects how the tree builder treats a resource that is
// reachable through more than one causal path
type DuplicatePolicy string

const (
	// UpperBound creates a separate node per causal path; fingerprinting
	// attempts are attributed only to the first-seen node for a resource
	UpperBound DuplicatePolicy = "upper_bound"

	// LowerBound reuses the existing node, flags it repeated and records no
	// new parent edge. This deliberately loses precise parentage.
	LowerBound DuplicatePolicy = "lower_bound"
)

// DomainConfig holds all configurable reconstruction rules and constraints
type DomainConfig struct {
	// Duplicate handling
	DuplicatePolicy DuplicatePolicy

	// Attribution
	// Key in an FP attribution table meaning "attempt with no determinable
	// caller"; such attempts belong to whichever root is currently active
	AnonymousCallerKey string

	// Call-stack parsing
	// URL prefixes of the instrumentation extension's own frames; these are
	// discarded when flattening initiator call stacks
	IgnoredFramePrefixes []string

	// Traversal limits
	// Redirect/iframe chains beyond 3000 levels have been observed, so
	// traversals use explicit stacks; this caps the initial stack capacity
	InitialTraversalStack int

	// Reporting
	ProgressInterval int
}

// DefaultDomainConfig returns the default reconstruction configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DuplicatePolicy:       UpperBound,
		AnonymousCallerKey:    "<anonymous>",
		IgnoredFramePrefixes:  []string{"chrome-extension"},
		InitialTraversalStack: 64,
		ProgressInterval:      10,
	}
}

// LoadDomainConfig returns the configuration for the chosen duplicate policy
func LoadDomainConfig(policy DuplicatePolicy) *DomainConfig {
	cfg := DefaultDomainConfig()
	if policy == LowerBound {
		cfg.DuplicatePolicy = LowerBound
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	switch c.DuplicatePolicy {
	case UpperBound, LowerBound:
	default:
		return ErrUnknownDuplicatePolicy
	}
	return nil
}
