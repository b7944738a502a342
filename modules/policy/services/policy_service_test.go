package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence"
	"github.com/iota-uz/compliance-sdk/modules/policy/services"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

func TestPolicyService_Create(t *testing.T) {
	e := newEnv(t)
	p := e.createPolicy(t, "  Acceptable Use Policy ", nil)

	assert.Equal(t, policy.StatusDraft, p.Status)
	assert.Equal(t, 0, p.CurrentVersion)
	assert.Equal(t, "acceptable-use-policy", p.Slug)
	assert.Equal(t, "Acceptable Use Policy", p.Title)
	assert.Equal(t, e.actorID, p.OwnerID)
	assert.Nil(t, p.DraftContent)
	assert.Equal(t, []eventbus.Kind{events.KindCreated}, e.recorder.kinds())

	_, err := e.policySvc.Create(e.ctx(), e.tenantID, e.actorID, services.CreatePolicyParams{Title: "   "})
	require.ErrorIs(t, err, serrors.ErrPreconditionFailed)
}

func TestPolicyService_SlugCollisions(t *testing.T) {
	e := newEnv(t)
	first := e.createPolicy(t, "Data Retention", nil)
	second := e.createPolicy(t, "Data  retention!", nil)
	third := e.createPolicy(t, "data-retention", nil)

	assert.Equal(t, "data-retention", first.Slug)
	assert.Equal(t, "data-retention-1", second.Slug)
	assert.Equal(t, "data-retention-2", third.Slug)

	other := newEnv(t)
	p, err := other.policySvc.Create(other.ctx(), other.tenantID, other.actorID, services.CreatePolicyParams{Title: "Data Retention"})
	require.NoError(t, err)
	assert.Equal(t, "data-retention", p.Slug, "slugs are unique per tenant only")

	symbols := e.createPolicy(t, "!!!", nil)
	assert.Equal(t, "policy", symbols.Slug)
}

type takenSlugs struct {
	*persistence.InmemPolicyRepository
}

func (takenSlugs) SlugExists(context.Context, uuid.UUID, string, uuid.UUID) (bool, error) {
	return true, nil
}

func TestPolicyService_SlugExhausted(t *testing.T) {
	e := newEnv(t, withPolicyRepo(takenSlugs{persistence.NewInmemPolicyRepository()}))
	_, err := e.policySvc.Create(e.ctx(), e.tenantID, e.actorID, services.CreatePolicyParams{Title: "Crowded"})
	require.ErrorIs(t, err, serrors.ErrExhausted)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":          "hello-world",
		"  --Leading--":        "leading",
		"Ünïcode & Symbols!!":  "n-code-symbols",
		"ISO 27001: A.5.1":     "iso-27001-a-5-1",
		"already-slugged-text": "already-slugged-text",
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, services.Slugify(in), in)
	}
}

func TestPolicyService_UpdateDraft(t *testing.T) {
	e := newEnv(t)
	p := e.createPolicy(t, "Access Control", nil)
	e.recorder.reset()

	updated, err := e.policySvc.UpdateDraft(e.ctx(), e.tenantID, p.ID, e.actorID, policy.DraftUpdate{
		Title:   ptr("Access Control Standard"),
		Content: ptr("<p>Rules</p>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "access-control-standard", updated.Slug)
	require.NotNil(t, updated.DraftContent)
	assert.Equal(t, "<p>Rules</p>", *updated.DraftContent)
	assert.Equal(t, "POLICY", updated.PolicyType, "fields not provided stay untouched")

	require.Equal(t, []eventbus.Kind{events.KindUpdated}, e.recorder.kinds())
	changes := e.recorder.events[0].(events.Updated).Changes
	require.Len(t, changes, 3)
	assert.Equal(t, policy.FieldChange{Field: "title", Old: "Access Control", New: "Access Control Standard"}, changes[0])
	assert.Equal(t, policy.FieldChange{Field: "draftContent", Old: nil, New: "<p>Rules</p>"}, changes[1])
	assert.Equal(t, policy.FieldChange{Field: "slug", Old: "access-control", New: "access-control-standard"}, changes[2])

	e.recorder.reset()
	_, err = e.policySvc.UpdateDraft(e.ctx(), e.tenantID, p.ID, e.actorID, policy.DraftUpdate{Content: ptr("<p>Rules</p>")})
	require.NoError(t, err)
	assert.Empty(t, e.recorder.kinds(), "no-op update emits nothing")

	_, err = e.policySvc.UpdateDraft(e.ctx(), e.tenantID, uuid.New(), e.actorID, policy.DraftUpdate{})
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestPolicyService_UpdateDraftRejectedWhilePending(t *testing.T) {
	e := newEnv(t)
	e.defaultTemplate(t, "legal")
	p := e.createPolicy(t, "Vendor Risk", ptr("<p>v1</p>"))
	_, err := e.approvalSvc.SubmitForApproval(e.ctx(), e.tenantID, p.ID, e.actorID, services.SubmitParams{})
	require.NoError(t, err)

	_, err = e.policySvc.UpdateDraft(e.ctx(), e.tenantID, p.ID, e.actorID, policy.DraftUpdate{Content: ptr("<p>v2</p>")})
	require.ErrorIs(t, err, serrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "PENDING_APPROVAL")

	stored, err := e.policies.GetByID(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>v1</p>", *stored.DraftContent)
}

func TestPolicyService_CopyOnEdit(t *testing.T) {
	e := newEnv(t)
	p, v := e.publishedPolicy(t, "Backup Policy", "<p>Daily backups</p>")
	require.Nil(t, p.DraftContent)

	updated, err := e.policySvc.UpdateDraft(e.ctx(), e.tenantID, p.ID, e.actorID, policy.DraftUpdate{Category: ptr("IT")})
	require.NoError(t, err)
	require.NotNil(t, updated.DraftContent)
	assert.Equal(t, v.Content, *updated.DraftContent)
	assert.Equal(t, "IT", updated.Category)
	assert.Equal(t, policy.StatusPublished, updated.Status)
}

func TestPolicyService_PublishRequiresDraft(t *testing.T) {
	e := newEnv(t)
	p := e.createPolicy(t, "Empty", nil)
	_, err := e.policySvc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{})
	require.ErrorIs(t, err, serrors.ErrPreconditionFailed)

	blank := e.createPolicy(t, "Blank", ptr("   "))
	_, err = e.policySvc.Publish(e.ctx(), e.tenantID, blank.ID, e.actorID, services.PublishParams{})
	require.ErrorIs(t, err, serrors.ErrPreconditionFailed)
}

func TestPolicyService_PublishVersions(t *testing.T) {
	e := newEnv(t)
	p := e.createPolicy(t, "Incident Response", ptr("<h1>IR</h1><p>Call &amp; escalate</p>"))
	e.recorder.reset()

	v1, err := e.policySvc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{VersionLabel: "2026.1", Summary: "first"})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.True(t, v1.IsLatest)
	assert.Equal(t, "IR Call & escalate", v1.PlainText)
	assert.Equal(t, "2026.1", v1.VersionLabel)
	assert.Equal(t, []eventbus.Kind{events.KindPublished, events.KindStatusChanged}, e.recorder.kinds())

	head, err := e.policySvc.GetByID(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.StatusPublished, head.Status)
	assert.Equal(t, 1, head.CurrentVersion)
	assert.Nil(t, head.DraftContent)
	assert.Nil(t, head.DraftUpdatedAt)

	_, err = e.policySvc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{})
	require.ErrorIs(t, err, serrors.ErrPreconditionFailed, "draft was cleared by the first publish")

	_, err = e.policySvc.UpdateDraft(e.ctx(), e.tenantID, p.ID, e.actorID, policy.DraftUpdate{Content: ptr("<p>v2</p>")})
	require.NoError(t, err)
	e.recorder.reset()
	v2, err := e.policySvc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, []eventbus.Kind{events.KindPublished}, e.recorder.kinds(), "no status change from PUBLISHED")

	versions, err := e.policySvc.ListVersions(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	latest := 0
	for _, v := range versions {
		if v.IsLatest {
			latest++
			assert.Equal(t, v2.ID, v.ID)
		}
	}
	assert.Equal(t, 1, latest)

	old, err := e.policySvc.GetVersion(e.ctx(), e.tenantID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.Content, old.Content, "published versions never change")
	assert.False(t, old.IsLatest)

	got, err := e.policySvc.GetLatestVersion(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, got.ID)
}

type failingVersions struct {
	*persistence.InmemVersionRepository
}

func (failingVersions) Create(context.Context, *policy.Version) error {
	return errors.New("disk full")
}

func TestPolicyService_PublishFailureLeavesHead(t *testing.T) {
	e := newEnv(t)
	p := e.createPolicy(t, "Atomic", ptr("<p>x</p>"))
	svc := services.NewPolicyService(e.policies, failingVersions{e.versions}, persistence.NewInmemCaseLinkRepository(), nopTx{}, e.bus, nil)
	e.recorder.reset()

	_, err := svc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{})
	require.Error(t, err)

	head, err := e.policies.GetByID(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.StatusDraft, head.Status)
	assert.Equal(t, 0, head.CurrentVersion)
	assert.NotNil(t, head.DraftContent)
	assert.Empty(t, e.recorder.kinds())
}

type nopTx struct{}

func (nopTx) InTx(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	return fn(ctx)
}

func TestPolicyService_Retire(t *testing.T) {
	e := newEnv(t)
	p, _ := e.publishedPolicy(t, "Legacy", "<p>old</p>")
	e.recorder.reset()

	retired, err := e.policySvc.Retire(e.ctx(), e.tenantID, p.ID, e.actorID)
	require.NoError(t, err)
	assert.Equal(t, policy.StatusRetired, retired.Status)
	require.NotNil(t, retired.RetiredAt)
	assert.Equal(t, []eventbus.Kind{events.KindRetired, events.KindStatusChanged}, e.recorder.kinds())

	e.recorder.reset()
	_, err = e.policySvc.Retire(e.ctx(), e.tenantID, p.ID, e.actorID)
	require.ErrorIs(t, err, serrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "RETIRED")
	assert.Empty(t, e.recorder.kinds(), "a rejected retire emits nothing")

	_, err = e.policySvc.UpdateDraft(e.ctx(), e.tenantID, p.ID, e.actorID, policy.DraftUpdate{Content: ptr("<p>new</p>")})
	require.NoError(t, err)
	_, err = e.policySvc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{})
	require.ErrorIs(t, err, serrors.ErrInvalidState, "retired is terminal")
}

func TestPolicyService_PublishLosingRaceIsConflict(t *testing.T) {
	e := newEnv(t)
	p := e.createPolicy(t, "Incident Response", ptr("<p>call the on-call</p>"))
	require.NoError(t, e.versions.Create(e.ctx(), &policy.Version{
		ID:            uuid.New(),
		PolicyID:      p.ID,
		TenantID:      e.tenantID,
		Version:       1,
		Content:       "<p>published by another request</p>",
		IsLatest:      true,
		PublishedByID: uuid.New(),
	}))
	e.recorder.reset()

	_, err := e.policySvc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{})
	require.ErrorIs(t, err, serrors.ErrConflict)
	var svcErr *serrors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, services.CodeVersionConflict, svcErr.Code)
	assert.Empty(t, e.recorder.kinds())

	head, err := e.policySvc.GetByID(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, head.CurrentVersion)
	assert.Equal(t, policy.StatusDraft, head.Status)
}

func TestPolicyService_List(t *testing.T) {
	e := newEnv(t)
	e.createPolicy(t, "Password Policy", nil)
	e.publishedPolicy(t, "Encryption Standard", "<p>AES</p>")
	e.createPolicy(t, "Password Rotation", nil)

	all, total, err := e.policySvc.List(e.ctx(), e.tenantID, policy.FindParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	drafts, total, err := e.policySvc.List(e.ctx(), e.tenantID, policy.FindParams{Status: policy.StatusDraft, Query: "password"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, drafts, 2)

	page, total, err := e.policySvc.List(e.ctx(), e.tenantID, policy.FindParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 1)
}

func TestPolicyService_CaseLinks(t *testing.T) {
	e := newEnv(t)
	p := e.createPolicy(t, "Whistleblowing", nil)
	caseID := uuid.New()
	e.recorder.reset()

	link, err := e.policySvc.LinkCase(e.ctx(), e.tenantID, p.ID, caseID, e.actorID, "root cause")
	require.NoError(t, err)
	assert.Equal(t, caseID, link.CaseID)

	_, err = e.policySvc.LinkCase(e.ctx(), e.tenantID, p.ID, caseID, e.actorID, "again")
	require.ErrorIs(t, err, serrors.ErrConflict)

	links, err := e.policySvc.ListCases(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)

	require.NoError(t, e.policySvc.UnlinkCase(e.ctx(), e.tenantID, p.ID, caseID, e.actorID))
	require.ErrorIs(t, e.policySvc.UnlinkCase(e.ctx(), e.tenantID, p.ID, caseID, e.actorID), serrors.ErrNotFound)
	assert.Equal(t, []eventbus.Kind{events.KindCaseLinked, events.KindCaseUnlinked}, e.recorder.kinds())

	_, err = e.policySvc.LinkCase(e.ctx(), e.tenantID, uuid.New(), caseID, e.actorID, "")
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestExtractPlainText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"<p>Rules</p>", "Rules"},
		{"<h1>Title</h1>\n<p>Line&nbsp;one&amp;two</p>", "Title Line one&two"},
		{"&lt;b&gt; is &quot;bold&quot; &#39;ok&#39;", `<b> is "bold" 'ok'`},
		{"  plain\t\ttext  ", "plain text"},
		{"<h1>A &amp; B</h1><p>  x  y </p>", "A & B x y"},
		{"<p>a</p><p>b</p>", "a b"},
		{"<p>Keep</p><script>alert(1)</script><style>p{}</style>", "Keep"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, services.ExtractPlainText(tc.in), tc.in)
	}
}
