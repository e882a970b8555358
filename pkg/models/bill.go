package models

import "time"

const (
	BillStatusIntroduced  = "introduced"
	BillStatusInCommittee = "in_committee"
	BillStatusPassed      = "passed"
	BillStatusRejected    = "rejected"
)

type Bill struct {
	ID             int64      `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	BillNumber     string     `json:"billNumber,omitempty" db:"bill_number"`
	Summary        string     `json:"summary,omitempty" db:"summary"`
	Status         string     `json:"status" db:"status"`
	IntroducedDate *time.Time `json:"introducedDate,omitempty" db:"introduced_date"`
	FullTextURL    *string    `json:"fullTextUrl,omitempty" db:"full_text_url"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

type BillDetail struct {
	Bill
	Tags       []Tag       `json:"tags"`
	SourceURLs []SourceURL `json:"sourceUrls"`
}

type BillForm struct {
	Title          string          `json:"title" validate:"required"`
	BillNumber     string          `json:"billNumber,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Status         string          `json:"status,omitempty" validate:"omitempty,oneof=introduced in_committee passed rejected"`
	IntroducedDate string          `json:"introducedDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	FullTextURL    string          `json:"fullTextUrl,omitempty" validate:"omitempty,url"`
	Tags           string          `json:"tags,omitempty"`
	SourceURLs     []SourceURLForm `json:"sourceUrls,omitempty" validate:"dive"`
}

type BillListResponse struct {
	Items      []BillDetail `json:"items"`
	TotalCount int          `json:"totalCount"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
}
