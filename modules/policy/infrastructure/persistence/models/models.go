package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Policy struct {
	ID               string
	TenantID         string
	Slug             string
	Title            string
	PolicyType       string
	Category         string
	Status           string
	CurrentVersion   int
	DraftContent     pgtype.Text
	DraftUpdatedAt   pgtype.Timestamptz
	DraftUpdatedByID pgtype.UUID
	OwnerID          string
	EffectiveDate    pgtype.Timestamptz
	ReviewDate       pgtype.Timestamptz
	RetiredAt        pgtype.Timestamptz
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PolicyVersion struct {
	ID            string
	PolicyID      string
	TenantID      string
	Version       int
	Content       string
	PlainText     string
	Summary       string
	ChangeNotes   string
	VersionLabel  string
	IsLatest      bool
	PublishedAt   time.Time
	PublishedByID string
	EffectiveDate pgtype.Timestamptz
}

type PolicyVersionTranslation struct {
	ID              string
	PolicyVersionID string
	TenantID        string
	LanguageCode    string
	Title           string
	Content         string
	PlainText       string
	TranslatedBy    string
	AIModel         string
	ReviewStatus    string
	IsStale         bool
	ReviewedAt      pgtype.Timestamptz
	ReviewedByID    pgtype.UUID
	ReviewNotes     string
	CreatedByID     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PolicyCaseLink struct {
	ID         string
	TenantID   string
	PolicyID   string
	CaseID     string
	Note       string
	LinkedByID string
	CreatedAt  time.Time
}
