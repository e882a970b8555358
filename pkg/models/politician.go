package models

import "time"

// Politician is the canonical main-table row.
// Field order matches schema: id, first_name, last_name, bio, image_url, ...
type Politician struct {
	ID              int64      `json:"id" db:"id"`
	FirstName       string     `json:"firstName" db:"first_name"`
	LastName        string     `json:"lastName" db:"last_name"`
	Bio             string     `json:"bio,omitempty" db:"bio"`
	ImageURL        *string    `json:"imageUrl,omitempty" db:"image_url"`
	WebsiteURL      *string    `json:"websiteUrl,omitempty" db:"website_url"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Constituency    string     `json:"constituency,omitempty" db:"constituency"`
	CurrentPosition string     `json:"currentPosition,omitempty" db:"current_position"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// PartyMembership records a politician's affiliation over time. Affiliation is
// not a column on the politician row; the active membership is the one with
// is_active=true.
type PartyMembership struct {
	ID           int64      `json:"id" db:"id"`
	PoliticianID int64      `json:"politicianId" db:"politician_id"`
	PartyID      int64      `json:"partyId" db:"party_id"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	StartedAt    time.Time  `json:"startedAt" db:"started_at"`
	EndedAt      *time.Time `json:"endedAt,omitempty" db:"ended_at"`
}

// CareerEntry is an owned child row; the whole collection is replaced on every
// parent update.
type CareerEntry struct {
	ID           int64  `json:"id" db:"id"`
	PoliticianID int64  `json:"-" db:"politician_id"`
	Title        string `json:"title" db:"title"`
	Organization string `json:"organization,omitempty" db:"organization"`
	StartYear    *int   `json:"startYear,omitempty" db:"start_year"`
	EndYear      *int   `json:"endYear,omitempty" db:"end_year"`
	Description  string `json:"description,omitempty" db:"description"`
}

type AssetDeclaration struct {
	ID           int64  `json:"id" db:"id"`
	PoliticianID int64  `json:"-" db:"politician_id"`
	Year         *int   `json:"year,omitempty" db:"year"`
	Description  string `json:"description" db:"description"`
	Value        string `json:"value,omitempty" db:"value"`
	Currency     string `json:"currency,omitempty" db:"currency"`
}

// AssetDeclarationDetail carries the declaration with its nested source urls.
type AssetDeclarationDetail struct {
	AssetDeclaration
	SourceURLs []SourceURL `json:"sourceUrls"`
}

type CriminalRecord struct {
	ID           int64  `json:"id" db:"id"`
	PoliticianID int64  `json:"-" db:"politician_id"`
	CaseNumber   string `json:"caseNumber,omitempty" db:"case_number"`
	Court        string `json:"court,omitempty" db:"court"`
	Summary      string `json:"summary" db:"summary"`
	Status       string `json:"status,omitempty" db:"status"`
	Year         *int   `json:"year,omitempty" db:"year"`
}

type SocialMediaLink struct {
	ID           int64  `json:"id" db:"id"`
	PoliticianID int64  `json:"-" db:"politician_id"`
	Platform     string `json:"platform" db:"platform"`
	URL          string `json:"url" db:"url"`
}

// SourceURL is a nested child shared by several collections; the parent column
// differs per table.
type SourceURL struct {
	ID       int64  `json:"id" db:"id"`
	ParentID int64  `json:"-" db:"parent_id"`
	URL      string `json:"url" db:"url"`
	Title    string `json:"title,omitempty" db:"title"`
}

// PoliticianDetail is the materialized read shape returned after every write.
type PoliticianDetail struct {
	Politician
	PartyID           *int64                   `json:"partyId,omitempty"`
	PartyName         *string                  `json:"partyName,omitempty"`
	Tags              []Tag                    `json:"tags"`
	CareerEntries     []CareerEntry            `json:"careerEntries"`
	AssetDeclarations []AssetDeclarationDetail `json:"assetDeclarations"`
	CriminalRecords   []CriminalRecord         `json:"criminalRecords"`
	SocialMediaLinks  []SocialMediaLink        `json:"socialMediaLinks"`
}

// PoliticianForm is the camelCase wire shape shared by direct admin edits and
// approved proposals.
type PoliticianForm struct {
	FirstName         string                 `json:"firstName" validate:"required"`
	LastName          string                 `json:"lastName" validate:"required"`
	Bio               string                 `json:"bio,omitempty"`
	ImageURL          string                 `json:"imageUrl,omitempty" validate:"omitempty,url"`
	WebsiteURL        string                 `json:"websiteUrl,omitempty" validate:"omitempty,url"`
	DateOfBirth       string                 `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Constituency      string                 `json:"constituency,omitempty"`
	CurrentPosition   string                 `json:"currentPosition,omitempty"`
	PartyID           *int64                 `json:"partyId,omitempty"`
	Tags              string                 `json:"tags,omitempty"`
	CareerEntries     []CareerEntryForm      `json:"careerEntries,omitempty" validate:"dive"`
	AssetDeclarations []AssetDeclarationForm `json:"assetDeclarations,omitempty" validate:"dive"`
	CriminalRecords   []CriminalRecordForm   `json:"criminalRecords,omitempty" validate:"dive"`
	SocialMediaLinks  []SocialMediaLinkForm  `json:"socialMediaLinks,omitempty" validate:"dive"`
}

type CareerEntryForm struct {
	Title        string `json:"title"`
	Organization string `json:"organization,omitempty"`
	StartYear    *int   `json:"startYear,omitempty"`
	EndYear      *int   `json:"endYear,omitempty"`
	Description  string `json:"description,omitempty"`
}

type AssetDeclarationForm struct {
	Year        *int            `json:"year,omitempty"`
	Description string          `json:"description"`
	Value       string          `json:"value,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	SourceURLs  []SourceURLForm `json:"sourceUrls,omitempty" validate:"dive"`
}

type CriminalRecordForm struct {
	CaseNumber string `json:"caseNumber,omitempty"`
	Court      string `json:"court,omitempty"`
	Summary    string `json:"summary"`
	Status     string `json:"status,omitempty"`
	Year       *int   `json:"year,omitempty"`
}

type SocialMediaLinkForm struct {
	Platform string `json:"platform"`
	URL      string `json:"url" validate:"omitempty,url"`
}

type SourceURLForm struct {
	URL   string `json:"url" validate:"omitempty,url"`
	Title string `json:"title,omitempty"`
}

// PoliticianListResponse is the paginated list envelope.
type PoliticianListResponse struct {
	Items      []PoliticianDetail `json:"items"`
	TotalCount int                `json:"totalCount"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
}
