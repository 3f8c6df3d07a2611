package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valid8/internal/kyc"
	"valid8/internal/onboarding/models"
	"valid8/internal/onboarding/store"
	id "valid8/pkg/domain"
	dErrors "valid8/pkg/domain-errors"
	"valid8/pkg/requestcontext"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	svc := New(store.New())
	ctx := requestcontext.WithUserID(context.Background(), id.NewUserID())
	return svc, ctx
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestProgress(t *testing.T) {
	t.Run("fresh wizard starts at step one with nothing done", func(t *testing.T) {
		svc, ctx := newTestService(t)
		view, err := svc.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, view.CurrentStep)
		assert.Equal(t, 0, view.CompletionPercent)
		assert.False(t, view.Submitted)
	})

	t.Run("requires an authenticated user in context", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Progress(context.Background())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingContext))
	})

	t.Run("completion percent tracks merged flags", func(t *testing.T) {
		svc, ctx := newTestService(t)
		view, err := svc.SetProgress(ctx, models.ProgressPatch{
			Identity:  boolPtr(true),
			Education: boolPtr(true),
		}, intPtr(4))
		require.NoError(t, err)
		assert.Equal(t, 40, view.CompletionPercent)
		assert.Equal(t, 4, view.CurrentStep)

		// Out-of-order flags are allowed.
		view, err = svc.SetProgress(ctx, models.ProgressPatch{Review: boolPtr(true)}, nil)
		require.NoError(t, err)
		assert.Equal(t, 60, view.CompletionPercent)
	})

	t.Run("rejects an out-of-range step", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.SetProgress(ctx, models.ProgressPatch{}, intPtr(9))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestIdentityFlow(t *testing.T) {
	t.Run("live provider walks provider-select to verify-intro", func(t *testing.T) {
		svc, ctx := newTestService(t)

		view, err := svc.SelectProvider(ctx, models.ProviderPersona)
		require.NoError(t, err)
		assert.Equal(t, models.SubStepSelectID, view.SubStep)

		view, err = svc.SelectIDType(ctx, models.IDTypeUSPassport)
		require.NoError(t, err)
		assert.Equal(t, models.SubStepVerifyIntro, view.SubStep)
		assert.Nil(t, view.Scan, "no scan before a verification path completes")

		view, err = svc.BeginVerification(ctx, ModeVerification)
		require.NoError(t, err)
		assert.Equal(t, models.SubStepVerification, view.SubStep)
	})

	t.Run("non-live provider completes immediately with the fallback scan", func(t *testing.T) {
		svc, ctx := newTestService(t)

		_, err := svc.SelectProvider(ctx, models.ProviderAu10tix)
		require.NoError(t, err)
		view, err := svc.SelectIDType(ctx, models.IDTypeDriversLicense)
		require.NoError(t, err)

		assert.Equal(t, models.SubStepReview, view.SubStep)
		require.NotNil(t, view.Scan)
		assert.Equal(t, models.MockScan, *view.Scan)

		progress, err := svc.Progress(ctx)
		require.NoError(t, err)
		assert.True(t, progress.Progress.Identity)
		assert.Equal(t, 2, progress.CurrentStep)
	})

	t.Run("id type before provider is rejected", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.SelectIDType(ctx, models.IDTypeRealID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("cancel clears inquiry identifiers so retry starts fresh", func(t *testing.T) {
		svc, ctx := newTestService(t)

		_, err := svc.SelectProvider(ctx, models.ProviderPersona)
		require.NoError(t, err)
		_, err = svc.SelectIDType(ctx, models.IDTypeUSPassport)
		require.NoError(t, err)
		_, err = svc.BeginVerification(ctx, ModeVerification)
		require.NoError(t, err)
		require.NoError(t, svc.AttachInquiry(ctx, "inq_123", "ptok_456"))

		view, err := svc.Identity(ctx)
		require.NoError(t, err)
		assert.Equal(t, "inq_123", view.InquiryID)

		view, err = svc.CancelVerification(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SubStepVerifyIntro, view.SubStep)
		assert.Empty(t, view.InquiryID)

		state, err := svc.State(ctx)
		require.NoError(t, err)
		assert.Empty(t, state.Identity.SessionToken)
	})

	t.Run("cancel without an active verification is rejected", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.CancelVerification(ctx)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("completion applies per-field fallback and advances", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.SelectProvider(ctx, models.ProviderPersona)
		require.NoError(t, err)

		view, err := svc.CompleteIdentity(ctx, models.IDScanResult{
			FullName:  "Jordan Smith",
			Birthdate: "03/02/1985",
		})
		require.NoError(t, err)
		require.NotNil(t, view.Scan)
		assert.Equal(t, "Jordan Smith", view.Scan.FullName)
		assert.Equal(t, "Male", view.Scan.Gender, "missing gender falls back")
		assert.Equal(t, "X12345678", view.Scan.IDNumber)

		progress, err := svc.Progress(ctx)
		require.NoError(t, err)
		assert.True(t, progress.Progress.Identity)
		assert.Equal(t, 2, progress.CurrentStep)
	})
}

func TestVerificationAttemptLifecycle(t *testing.T) {
	begin := func(t *testing.T, svc *Service, ctx context.Context) {
		t.Helper()
		_, err := svc.SelectProvider(ctx, models.ProviderPersona)
		require.NoError(t, err)
		_, err = svc.SelectIDType(ctx, models.IDTypeUSPassport)
		require.NoError(t, err)
		_, err = svc.BeginVerification(ctx, ModeVerification)
		require.NoError(t, err)
	}

	t.Run("begin, attach and complete drive the attempt to completed", func(t *testing.T) {
		svc, ctx := newTestService(t)
		begin(t, svc, ctx)

		view, err := svc.Identity(ctx)
		require.NoError(t, err)
		assert.Equal(t, kyc.StateLoadingToken, view.AttemptState)

		require.NoError(t, svc.AttachInquiry(ctx, "inq_123", "ptok_456"))
		view, err = svc.Identity(ctx)
		require.NoError(t, err)
		assert.Equal(t, kyc.StateActive, view.AttemptState)

		view, err = svc.CompleteIdentity(ctx, models.IDScanResult{FullName: "Jordan Smith"})
		require.NoError(t, err)
		assert.Equal(t, kyc.StateCompleted, view.AttemptState)

		outcome := <-svc.attempt(requestcontext.UserID(ctx)).Done()
		assert.Equal(t, kyc.StateCompleted, outcome.State)
		assert.Equal(t, "Jordan Smith", outcome.Fields.FullName)
	})

	t.Run("cancel tears the attempt down and begin starts a fresh one", func(t *testing.T) {
		svc, ctx := newTestService(t)
		begin(t, svc, ctx)
		require.NoError(t, svc.AttachInquiry(ctx, "inq_123", "ptok_456"))
		first := svc.attempt(requestcontext.UserID(ctx))

		view, err := svc.CancelVerification(ctx)
		require.NoError(t, err)
		assert.Empty(t, view.AttemptState, "cancelled attempts are discarded")
		assert.Equal(t, kyc.StateCancelled, first.State())

		view, err = svc.BeginVerification(ctx, ModeVerification)
		require.NoError(t, err)
		assert.Equal(t, kyc.StateLoadingToken, view.AttemptState)
		assert.NotSame(t, first, svc.attempt(requestcontext.UserID(ctx)))
	})

	t.Run("failure keeps the attempt and begin re-arms it", func(t *testing.T) {
		svc, ctx := newTestService(t)
		begin(t, svc, ctx)
		require.NoError(t, svc.AttachInquiry(ctx, "inq_123", "ptok_456"))
		first := svc.attempt(requestcontext.UserID(ctx))

		view, err := svc.FailVerification(ctx, "camera unavailable")
		require.NoError(t, err)
		assert.Equal(t, models.SubStepVerifyIntro, view.SubStep)
		assert.Equal(t, kyc.StateFailed, view.AttemptState)
		assert.Equal(t, "inq_123", view.InquiryID, "failure keeps the credential for retry")

		view, err = svc.BeginVerification(ctx, ModeVerification)
		require.NoError(t, err)
		assert.Equal(t, kyc.StateInitializing, view.AttemptState, "retry re-arms the failed attempt")
		assert.Same(t, first, svc.attempt(requestcontext.UserID(ctx)))

		require.NoError(t, svc.AttachInquiry(ctx, "inq_789", "ptok_789"))
		view, err = svc.CompleteIdentity(ctx, models.IDScanResult{})
		require.NoError(t, err)
		assert.Equal(t, kyc.StateCompleted, view.AttemptState)
	})

	t.Run("failure report without an active verification is rejected", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.FailVerification(ctx, "camera unavailable")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("teardown releases the attempt with the wizard session", func(t *testing.T) {
		svc, ctx := newTestService(t)
		begin(t, svc, ctx)

		svc.Teardown(ctx)
		assert.Nil(t, svc.attempt(requestcontext.UserID(ctx)))
	})
}

func TestPersonalInfoStep(t *testing.T) {
	t.Run("skip commits the fixed fallback record", func(t *testing.T) {
		svc, ctx := newTestService(t)
		view, err := svc.SavePersonalInfo(ctx, PersonalInfoRequest{Skip: true})
		require.NoError(t, err)
		assert.True(t, view.Progress.PersonalInfo)
		assert.Equal(t, 3, view.CurrentStep)

		state, err := svc.State(ctx)
		require.NoError(t, err)
		require.NotNil(t, state.PersonalInfo)
		require.Len(t, state.PersonalInfo.Addresses, 1)
		assert.Equal(t, "123 Main Street", state.PersonalInfo.Addresses[0].Street)
		assert.Equal(t, "Los Angeles", state.PersonalInfo.Addresses[0].City)
		assert.Equal(t, "+1 (555) 555-5555", state.PersonalInfo.Phone)
	})

	t.Run("explicit save commits exactly one address", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.SavePersonalInfo(ctx, PersonalInfoRequest{
			Email:   "jordan@example.com",
			Phone:   "+1 (555) 010-0100",
			Aliases: []string{"JS"},
			Address: models.Address{Street: "9 Elm St", City: "Portland", State: "OR", Zip: "97201", StartDate: "Feb 2019", EndDate: "Present"},
		})
		require.NoError(t, err)

		state, err := svc.State(ctx)
		require.NoError(t, err)
		require.Len(t, state.PersonalInfo.Addresses, 1)
		assert.Equal(t, "Portland", state.PersonalInfo.Addresses[0].City)
		assert.Equal(t, []string{"JS"}, state.PersonalInfo.Aliases)
	})

	t.Run("rejects a save without an address", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.SavePersonalInfo(ctx, PersonalInfoRequest{Email: "x@example.com"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestEducationStep(t *testing.T) {
	t.Run("no_degree skips details and records an empty-detail entry", func(t *testing.T) {
		svc, ctx := newTestService(t)
		view, err := svc.SaveEducation(ctx, EducationRequest{Level: "no_degree"})
		require.NoError(t, err)
		assert.True(t, view.Progress.Education)
		assert.Equal(t, 4, view.CurrentStep)

		state, err := svc.State(ctx)
		require.NoError(t, err)
		require.Len(t, state.Education, 1)
		assert.Equal(t, "No degree", state.Education[0].Level)
		assert.Empty(t, state.Education[0].Institution)
		assert.Empty(t, state.Education[0].FieldOfStudy)
		assert.Empty(t, state.Education[0].GraduationYear)
	})

	t.Run("degree level with empty details gets the fixed defaults", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.SaveEducation(ctx, EducationRequest{Level: "bachelor"})
		require.NoError(t, err)

		state, err := svc.State(ctx)
		require.NoError(t, err)
		require.Len(t, state.Education, 1)
		assert.Equal(t, "UCLA", state.Education[0].Institution)
		assert.Equal(t, "Computer Science", state.Education[0].FieldOfStudy)
		assert.Equal(t, "2012", state.Education[0].GraduationYear)
	})

	t.Run("rejects an unknown level", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.SaveEducation(ctx, EducationRequest{Level: "bootcamp"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestEmploymentStep(t *testing.T) {
	t.Run("drafts support add and remove before commit", func(t *testing.T) {
		svc, ctx := newTestService(t)

		view, err := svc.AddEmploymentDraft(ctx, EmploymentDraftRequest{Employer: "BIX Technology", Title: "Senior Software Engineer", StartDate: "Mar 2020", Current: true})
		require.NoError(t, err)
		view, err = svc.AddEmploymentDraft(ctx, EmploymentDraftRequest{Employer: "Acme", Title: "Engineer"})
		require.NoError(t, err)
		require.Len(t, view.Drafts, 2)

		view, err = svc.RemoveEmploymentDraft(ctx, 1)
		require.NoError(t, err)
		require.Len(t, view.Drafts, 1)
		assert.Equal(t, "BIX Technology", view.Drafts[0].Employer)
		assert.Empty(t, view.Committed)
	})

	t.Run("save commits drafts in order and clears the draft list", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.AddEmploymentDraft(ctx, EmploymentDraftRequest{Employer: "First"})
		require.NoError(t, err)
		_, err = svc.AddEmploymentDraft(ctx, EmploymentDraftRequest{Employer: "Second"})
		require.NoError(t, err)

		progress, err := svc.SaveEmployment(ctx, SaveEmploymentRequest{})
		require.NoError(t, err)
		assert.True(t, progress.Progress.Employment)
		assert.Equal(t, 5, progress.CurrentStep)

		view, err := svc.Employment(ctx)
		require.NoError(t, err)
		assert.Empty(t, view.Drafts)
		require.Len(t, view.Committed, 2)
		assert.Equal(t, "First", view.Committed[0].Employer)
		assert.Equal(t, "Second", view.Committed[1].Employer)
	})

	t.Run("save with zero drafts still completes the step", func(t *testing.T) {
		svc, ctx := newTestService(t)
		progress, err := svc.SaveEmployment(ctx, SaveEmploymentRequest{})
		require.NoError(t, err)
		assert.True(t, progress.Progress.Employment)

		view, err := svc.Employment(ctx)
		require.NoError(t, err)
		assert.Empty(t, view.Committed)
	})

	t.Run("removing an out-of-range draft is rejected", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.RemoveEmploymentDraft(ctx, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("draft requires an employer", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.AddEmploymentDraft(ctx, EmploymentDraftRequest{Title: "Ghost"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestReviewStep(t *testing.T) {
	t.Run("submit is terminal and idempotent", func(t *testing.T) {
		svc, ctx := newTestService(t)

		view, err := svc.Submit(ctx)
		require.NoError(t, err)
		assert.True(t, view.Progress.Review)
		assert.True(t, view.Submitted)

		again, err := svc.Submit(ctx)
		require.NoError(t, err)
		assert.True(t, again.Submitted)
	})

	t.Run("steps reject writes after submission", func(t *testing.T) {
		svc, ctx := newTestService(t)
		_, err := svc.Submit(ctx)
		require.NoError(t, err)

		_, err = svc.SaveEducation(ctx, EducationRequest{Level: "no_degree"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		_, err = svc.SaveEmployment(ctx, SaveEmploymentRequest{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		_, err = svc.SelectProvider(ctx, models.ProviderPersona)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestFullWizardRun walks the whole flow: persona provider, us_passport,
// mock completion, skipped personal info, no-degree education, empty
// employment save, then submit. All five flags end true at 100 percent.
func TestFullWizardRun(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.SelectProvider(ctx, models.ProviderPersona)
	require.NoError(t, err)
	_, err = svc.SelectIDType(ctx, models.IDTypeUSPassport)
	require.NoError(t, err)
	// Vendor SDK unavailable: complete with the fallback scan.
	_, err = svc.CompleteIdentity(ctx, models.IDScanResult{})
	require.NoError(t, err)

	_, err = svc.SavePersonalInfo(ctx, PersonalInfoRequest{Skip: true})
	require.NoError(t, err)

	_, err = svc.SaveEducation(ctx, EducationRequest{Level: "no_degree"})
	require.NoError(t, err)

	_, err = svc.SaveEmployment(ctx, SaveEmploymentRequest{})
	require.NoError(t, err)

	view, err := svc.Submit(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.Progress{
		Identity:     true,
		PersonalInfo: true,
		Education:    true,
		Employment:   true,
		Review:       true,
	}, view.Progress)
	assert.Equal(t, 100, view.CompletionPercent)
}

func TestIDScanAndLiveness(t *testing.T) {
	svc, ctx := newTestService(t)

	scan, err := svc.IDScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MockScan, scan)

	state, err := svc.State(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.IDScan)
	assert.Equal(t, models.MockScan, *state.IDScan)

	passed, err := svc.Liveness(ctx)
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestTeardown(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.SaveEducation(ctx, EducationRequest{Level: "no_degree"})
	require.NoError(t, err)

	svc.Teardown(ctx)

	state, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Education, "teardown discards the wizard session")
}
