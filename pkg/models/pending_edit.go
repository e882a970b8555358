package models

import (
	"encoding/json"
	"time"
)

const (
	PendingEditStatusPending  = "pending"
	PendingEditStatusApproved = "approved"
	PendingEditStatusDenied   = "denied"
)

const (
	ModerationActionApprove    = "approve"
	ModerationActionDeny       = "deny"
	ModerationActionUpdateData = "update_data"
)

// PendingEdit is a proposed change awaiting moderation. EntityID is nil for a
// creation proposal until approval backfills it.
type PendingEdit struct {
	ID           int64           `json:"id" db:"id"`
	EntityType   EntityKind      `json:"entityType" db:"entity_type"`
	EntityID     *int64          `json:"entityId,omitempty" db:"entity_id"`
	ProposedData json.RawMessage `json:"proposedData" db:"proposed_data"`
	Status       string          `json:"status" db:"status"`
	Notes        string          `json:"notes,omitempty" db:"notes"`
	SubmitterID  string          `json:"submitterId" db:"submitter_id"`
	ModeratorID  *string         `json:"moderatorId,omitempty" db:"moderator_id"`
	DeniedReason *string         `json:"deniedReason,omitempty" db:"denied_reason"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsTerminal reports whether the edit has already been moderated.
func (p *PendingEdit) IsTerminal() bool {
	return p.Status == PendingEditStatusApproved || p.Status == PendingEditStatusDenied
}

// SubmitPendingEditRequest is the public proposal submission body. EntityID is
// a string on the wire, null for new-item suggestions.
type SubmitPendingEditRequest struct {
	EntityType          string          `json:"entityType" validate:"required,oneof=politician party promise bill"`
	EntityID            *string         `json:"entityId" validate:"omitempty,number"`
	SuggestedData       json.RawMessage `json:"suggestedData" validate:"required"`
	IsNewItemSuggestion bool            `json:"isNewItemSuggestion"`
	Notes               string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ProcessPendingEditRequest drives the moderation decision endpoint. The id is
// a string on the wire but must parse as a number.
type ProcessPendingEditRequest struct {
	PendingEditID        string          `json:"pendingEditId" validate:"required,number"`
	Action               string          `json:"action" validate:"required,oneof=approve deny update_data"`
	Reason               string          `json:"reason,omitempty"`
	UpdatedSuggestedData json.RawMessage `json:"updatedSuggestedData,omitempty"`
}

type ProcessPendingEditResponse struct {
	Message     string       `json:"message"`
	PendingEdit *PendingEdit `json:"pendingEdit,omitempty"`
	Entity      any          `json:"entity,omitempty"`
}

type PendingEditListResponse struct {
	Items      []PendingEdit `json:"items"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
}

// PendingEditFilter narrows List queries.
type PendingEditFilter struct {
	Status     string
	EntityType string
	Page       int
	PageSize   int
}
