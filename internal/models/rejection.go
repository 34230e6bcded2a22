package models

import "fmt"

// RejectionKind: машиночитаемая причина отказа.
type RejectionKind string

const (
	RejectCapacity            RejectionKind = "capacity"
	RejectDuplicate           RejectionKind = "duplicate"
	RejectNearDuplicate       RejectionKind = "near_duplicate"
	RejectOutOfBounds         RejectionKind = "out_of_bounds"
	RejectZeroSize            RejectionKind = "zero_size"
	RejectInsufficientBalance RejectionKind = "insufficient_balance"
	RejectEmptyBalance        RejectionKind = "empty_balance"
	RejectInvalidPrice        RejectionKind = "invalid_price"
	RejectExpired             RejectionKind = "expired"
	RejectResetCooldown       RejectionKind = "reset_cooldown"
	RejectNoActivity          RejectionKind = "no_activity"
	RejectUnsupported         RejectionKind = "unsupported"
	RejectNotFound            RejectionKind = "not_found"
)

// Rejection is a recoverable, user-facing business outcome.
// Nothing is persisted when one is returned.
type Rejection struct {
	Kind    RejectionKind `json:"kind"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Footer  string        `json:"footer,omitempty"`
}

func Reject(kind RejectionKind, title, format string, args ...any) *Rejection {
	return &Rejection{
		Kind:    kind,
		Title:   title,
		Message: fmt.Sprintf(format, args...),
	}
}

func (r *Rejection) WithFooter(footer string) *Rejection {
	r.Footer = footer
	return r
}

func (r *Rejection) String() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Title, r.Message)
}
