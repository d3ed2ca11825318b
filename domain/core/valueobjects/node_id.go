package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// NodeID is a value object representing a unique request-node identifier.
// Node identity is the arena key; "found in tree" is always decided by
// resource-string equality, never by NodeID.
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	if !isValidUUID(id) {
		return NodeID{}, errors.New("node ID must be a valid UUID")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
