package models

import "time"

type Party struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Abbreviation string     `json:"abbreviation,omitempty" db:"abbreviation"`
	Description  string     `json:"description,omitempty" db:"description"`
	LogoURL      *string    `json:"logoUrl,omitempty" db:"logo_url"`
	WebsiteURL   *string    `json:"websiteUrl,omitempty" db:"website_url"`
	FoundingDate *time.Time `json:"foundingDate,omitempty" db:"founding_date"`
	Ideology     string     `json:"ideology,omitempty" db:"ideology"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

type ElectionHistoryEntry struct {
	ID            int64  `json:"id" db:"id"`
	PartyID       int64  `json:"-" db:"party_id"`
	ElectionYear  *int   `json:"electionYear,omitempty" db:"election_year"`
	SeatsWon      *int   `json:"seatsWon,omitempty" db:"seats_won"`
	VotePercent   string `json:"votePercent,omitempty" db:"vote_percent"`
	ElectionNotes string `json:"electionNotes,omitempty" db:"election_notes"`
}

type Controversy struct {
	ID          int64  `json:"id" db:"id"`
	PartyID     int64  `json:"-" db:"party_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description,omitempty" db:"description"`
	Year        *int   `json:"year,omitempty" db:"year"`
}

type ControversyDetail struct {
	Controversy
	SourceURLs []SourceURL `json:"sourceUrls"`
}

type PartyDetail struct {
	Party
	MemberCount     int                    `json:"memberCount"`
	Tags            []Tag                  `json:"tags"`
	ElectionHistory []ElectionHistoryEntry `json:"electionHistory"`
	Controversies   []ControversyDetail    `json:"controversies"`
}

type PartyForm struct {
	Name            string                     `json:"name" validate:"required"`
	Abbreviation    string                     `json:"abbreviation,omitempty"`
	Description     string                     `json:"description,omitempty"`
	LogoURL         string                     `json:"logoUrl,omitempty" validate:"omitempty,url"`
	WebsiteURL      string                     `json:"websiteUrl,omitempty" validate:"omitempty,url"`
	FoundingDate    string                     `json:"foundingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Ideology        string                     `json:"ideology,omitempty"`
	Tags            string                     `json:"tags,omitempty"`
	ElectionHistory []ElectionHistoryEntryForm `json:"electionHistory,omitempty" validate:"dive"`
	Controversies   []ControversyForm          `json:"controversies,omitempty" validate:"dive"`
}

type ElectionHistoryEntryForm struct {
	ElectionYear  *int   `json:"electionYear,omitempty"`
	SeatsWon      *int   `json:"seatsWon,omitempty"`
	VotePercent   string `json:"votePercent,omitempty"`
	ElectionNotes string `json:"electionNotes,omitempty"`
}

type ControversyForm struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Year        *int            `json:"year,omitempty"`
	SourceURLs  []SourceURLForm `json:"sourceUrls,omitempty" validate:"dive"`
}

type PartyListResponse struct {
	Items      []PartyDetail `json:"items"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
}
