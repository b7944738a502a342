package policy

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusPublished       Status = "PUBLISHED"
	StatusRetired         Status = "RETIRED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusPublished, StatusRetired:
		return true
	}
	return false
}

var (
	ErrPolicyNotFound   = errors.New("policy not found")
	ErrVersionNotFound  = errors.New("policy version not found")
	ErrCaseLinkNotFound = errors.New("policy case link not found")
	ErrDuplicateSlug    = errors.New("policy slug already exists")
	ErrDuplicateLink    = errors.New("policy case link already exists")
	ErrDuplicateVersion = errors.New("policy version number or latest flag already taken")
)

// Policy is the mutable head record. Published content lives in Version.
type Policy struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Slug             string
	Title            string
	PolicyType       string
	Category         string
	Status           Status
	CurrentVersion   int
	DraftContent     *string
	DraftUpdatedAt   *time.Time
	DraftUpdatedByID *uuid.UUID
	OwnerID          uuid.UUID
	EffectiveDate    *time.Time
	ReviewDate       *time.Time
	RetiredAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasDraft reports whether there is non-blank unpublished content.
func (p *Policy) HasDraft() bool {
	return p.DraftContent != nil && strings.TrimSpace(*p.DraftContent) != ""
}

func (p *Policy) SetDraft(content string, actorID uuid.UUID, at time.Time) {
	p.DraftContent = &content
	p.DraftUpdatedAt = &at
	p.DraftUpdatedByID = &actorID
}

func (p *Policy) ClearDraft() {
	p.DraftContent = nil
	p.DraftUpdatedAt = nil
	p.DraftUpdatedByID = nil
}

// FieldChange is one (field, old, new) entry of a draft update.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// DraftUpdate carries the fields a caller explicitly provided. Nil means untouched.
type DraftUpdate struct {
	Title         *string
	PolicyType    *string
	Category      *string
	Content       *string
	OwnerID       *uuid.UUID
	EffectiveDate *time.Time
	ReviewDate    *time.Time
}

// Apply mutates p with every provided field that differs from the current value
// and returns the changes in a fixed field order. Slug regeneration is the caller's job.
func (p *Policy) Apply(u DraftUpdate, actorID uuid.UUID, at time.Time) []FieldChange {
	var changes []FieldChange
	if u.Title != nil && *u.Title != p.Title {
		changes = append(changes, FieldChange{Field: "title", Old: p.Title, New: *u.Title})
		p.Title = *u.Title
	}
	if u.PolicyType != nil && *u.PolicyType != p.PolicyType {
		changes = append(changes, FieldChange{Field: "policyType", Old: p.PolicyType, New: *u.PolicyType})
		p.PolicyType = *u.PolicyType
	}
	if u.Category != nil && *u.Category != p.Category {
		changes = append(changes, FieldChange{Field: "category", Old: p.Category, New: *u.Category})
		p.Category = *u.Category
	}
	if u.OwnerID != nil && *u.OwnerID != p.OwnerID {
		changes = append(changes, FieldChange{Field: "ownerId", Old: p.OwnerID, New: *u.OwnerID})
		p.OwnerID = *u.OwnerID
	}
	if u.EffectiveDate != nil && !sameTime(p.EffectiveDate, u.EffectiveDate) {
		changes = append(changes, FieldChange{Field: "effectiveDate", Old: timeValue(p.EffectiveDate), New: *u.EffectiveDate})
		d := *u.EffectiveDate
		p.EffectiveDate = &d
	}
	if u.ReviewDate != nil && !sameTime(p.ReviewDate, u.ReviewDate) {
		changes = append(changes, FieldChange{Field: "reviewDate", Old: timeValue(p.ReviewDate), New: *u.ReviewDate})
		d := *u.ReviewDate
		p.ReviewDate = &d
	}
	if u.Content != nil && (p.DraftContent == nil || *p.DraftContent != *u.Content) {
		var old any
		if p.DraftContent != nil {
			old = *p.DraftContent
		}
		changes = append(changes, FieldChange{Field: "draftContent", Old: old, New: *u.Content})
		p.SetDraft(*u.Content, actorID, at)
	}
	return changes
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Version is an immutable published snapshot. Only IsLatest ever flips, and only to false.
type Version struct {
	ID            uuid.UUID
	PolicyID      uuid.UUID
	TenantID      uuid.UUID
	Version       int
	Content       string
	PlainText     string
	Summary       string
	ChangeNotes   string
	VersionLabel  string
	IsLatest      bool
	PublishedAt   time.Time
	PublishedByID uuid.UUID
	EffectiveDate *time.Time
}

type CaseLink struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	PolicyID   uuid.UUID
	CaseID     uuid.UUID
	Note       string
	LinkedByID uuid.UUID
	CreatedAt  time.Time
}
