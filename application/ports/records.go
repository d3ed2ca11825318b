package ports

import (
	"blocklens/domain/core/valueobjects"
)

// Initiator types as they appear in logged network events
const (
	InitiatorOther     = "other"
	InitiatorPreflight = "preflight"
)

// CallFrame is one entry of a script call stack captured with a network event
type CallFrame struct {
	URL string `json:"url"`
}

// CallStack is the (possibly nested) script call stack that issued a request.
// Parent points at the stack of the asynchronous ancestor, outermost last.
type CallStack struct {
	CallFrames []CallFrame `json:"callFrames"`
	Parent     *CallStack  `json:"parent,omitempty"`
}

// Initiator describes what caused a network request: a browser-internal
// trigger ("other"), a direct initiator URL, a script call stack, or a CORS
// preflight. URL is a pointer because a present-but-empty url key still
// routes the request through initiator-URL attachment, unlike an absent one.
type Initiator struct {
	Type  string     `json:"type"`
	URL   *string    `json:"url,omitempty"`
	Stack *CallStack `json:"stack,omitempty"`
}

// NetworkEvent is one logged request record. Time is a pointer because some
// log formats omit it; an absent time sorts after every present one.
type NetworkEvent struct {
	RequestedFor      string    `json:"requested_for" validate:"required"`
	RequestedResource string    `json:"requested_resource" validate:"required"`
	Time              *int64    `json:"time,omitempty"`
	Initiator         Initiator `json:"initiator"`
}

// PageTraffic holds the ordered network events logged during one page visit
type PageTraffic struct {
	Page   string         `json:"page"`
	Events []NetworkEvent `json:"events"`
}

// PageAttribution maps each resource URL observed on a page to its
// fingerprinting attempt counts. The anonymous sentinel key collects attempts
// whose caller script could not be identified.
type PageAttribution map[string]valueobjects.AttemptCounts

// DatasetAttribution maps a page key (traffic file name) to its attribution
type DatasetAttribution map[string]PageAttribution
