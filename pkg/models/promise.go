package models

import "time"

const (
	PromiseStatusMade       = "made"
	PromiseStatusInProgress = "in_progress"
	PromiseStatusKept       = "kept"
	PromiseStatusBroken     = "broken"
)

type Promise struct {
	ID           int64      `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description,omitempty" db:"description"`
	Category     string     `json:"category,omitempty" db:"category"`
	Status       string     `json:"status" db:"status"`
	PromisedDate *time.Time `json:"promisedDate,omitempty" db:"promised_date"`
	PoliticianID *int64     `json:"politicianId,omitempty" db:"politician_id"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

type PromiseDetail struct {
	Promise
	PoliticianName *string     `json:"politicianName,omitempty"`
	Tags           []Tag       `json:"tags"`
	SourceURLs     []SourceURL `json:"sourceUrls"`
}

type PromiseForm struct {
	Title        string          `json:"title" validate:"required"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category,omitempty"`
	Status       string          `json:"status,omitempty" validate:"omitempty,oneof=made in_progress kept broken"`
	PromisedDate string          `json:"promisedDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PoliticianID *int64          `json:"politicianId,omitempty"`
	Tags         string          `json:"tags,omitempty"`
	SourceURLs   []SourceURLForm `json:"sourceUrls,omitempty" validate:"dive"`
}

type PromiseListResponse struct {
	Items      []PromiseDetail `json:"items"`
	TotalCount int             `json:"totalCount"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
}
