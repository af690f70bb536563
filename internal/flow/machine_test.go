package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

type fakeGateway struct {
	mu         sync.Mutex
	account    Account
	fetchErr   error
	createErr  error
	patchErr   error
	markErr    error
	creates    []domain.DownsellVariant
	patches    []domain.CancellationPatch
	patchIDs   []string
	marked     []string
	recordID   string
	resolvedTo string
}

func (f *fakeGateway) FetchCurrentUserAndSubscription(ctx context.Context) (Account, error) {
	return f.account, f.fetchErr
}

func (f *fakeGateway) CreateCancellationRecord(ctx context.Context, userID, subscriptionID string, variant domain.DownsellVariant) (CreatedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, variant)
	if f.createErr != nil {
		return CreatedRecord{}, f.createErr
	}
	sub := subscriptionID
	if f.resolvedTo != "" {
		sub = f.resolvedTo
	}
	return CreatedRecord{ID: f.recordID, SubscriptionID: sub}, nil
}

func (f *fakeGateway) PatchCancellationRecord(ctx context.Context, id string, patch domain.CancellationPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patchIDs = append(f.patchIDs, id)
	f.patches = append(f.patches, patch)
	return f.patchErr
}

func (f *fakeGateway) MarkSubscriptionPendingCancellation(ctx context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, subscriptionID)
	return f.markErr
}

func (f *fakeGateway) lastPatch(t *testing.T) domain.CancellationPatch {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.patches)
	return f.patches[len(f.patches)-1]
}

// user-2 hashes to variant A, user-1 to B.
func newTestMachine(userID string, opts ...Option) (*Machine, *fakeGateway) {
	gw := &fakeGateway{recordID: "rec-1"}
	return NewMachine(Session{UserID: userID, SubscriptionID: "sub-1"}, gw, opts...), gw
}

func toCongrats(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.FoundJob())
}

func answerCongrats(m *Machine) {
	m.SetFoundJobWithMigrateMate(true)
	m.SetJobSearchAnswer(QuestionRolesApplied, BucketFew)
	m.SetJobSearchAnswer(QuestionCompaniesEmailed, BucketNone)
	m.SetJobSearchAnswer(QuestionCompaniesInterviewed, BucketSome)
}

func TestMachine_FoundJobBranch(t *testing.T) {
	ctx := context.Background()
	m, gw := newTestMachine("user-1")
	// found-job branch persists only after a record exists
	m.session.CancellationRecordID = "rec-0"

	toCongrats(t, m)
	assert.Equal(t, StepCongrats, m.Step())
	assert.True(t, m.Snapshot().HasFoundJob)

	assert.ErrorIs(t, m.CongratsContinue(ctx), ErrStepIncomplete)
	assert.Equal(t, StepCongrats, m.Step())

	answerCongrats(m)
	require.NoError(t, m.CongratsContinue(ctx))
	assert.Equal(t, StepFeedback, m.Step())
	p := gw.lastPatch(t)
	assert.Equal(t, "1-5", *p.RolesApplied)
	assert.Equal(t, "0", *p.CompaniesEmailed)
	assert.Equal(t, "3-5", *p.CompaniesInterviewed)
	assert.True(t, *p.FoundJobWithMigrateMate)

	m.SetFeedback("too short")
	assert.ErrorIs(t, m.FeedbackContinue(ctx), ErrStepIncomplete)
	m.SetFeedback(strings.Repeat("great ", 5))
	require.NoError(t, m.FeedbackContinue(ctx))
	assert.Equal(t, StepVisa, m.Step())
	assert.Equal(t, strings.Repeat("great ", 5), *gw.lastPatch(t).Feedback)

	m.SetHasImmigrationLawyer(false)
	m.SetVisaType("   ")
	assert.False(t, m.CanAdvance())
	m.SetVisaType("H-1B")
	require.NoError(t, m.VisaComplete(ctx))
	assert.Equal(t, StepCompleted, m.Step())
	p = gw.lastPatch(t)
	assert.False(t, *p.HasImmigrationLawyer)
	assert.Equal(t, "H-1B", *p.VisaType)
	assert.Equal(t, []string{"sub-1"}, gw.marked)
	assert.Equal(t, "Completed", m.Progress().Label())

	assert.Equal(t, StepVisa, m.Back())
	assert.Equal(t, "H-1B", m.Snapshot().VisaType, "back keeps answers")
}

func TestMachine_StillLookingVariantA(t *testing.T) {
	m, gw := newTestMachine("user-2")
	out, err := m.StillLooking(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Close)
	assert.Equal(t, StepInitial, m.Step())
	assert.Equal(t, domain.VariantA, m.Snapshot().DownsellVariant)
	assert.Equal(t, []domain.DownsellVariant{domain.VariantA}, gw.creates)
}

func TestMachine_StillLookingVariantBThroughReason(t *testing.T) {
	ctx := context.Background()
	m, gw := newTestMachine("user-1")
	gw.resolvedTo = "sub-resolved"

	out, err := m.StillLooking(ctx)
	require.NoError(t, err)
	assert.False(t, out.Close)
	assert.Equal(t, StepDownsell, m.Step())
	assert.Equal(t, "rec-1", m.Session().CancellationRecordID)
	assert.Equal(t, "sub-resolved", m.Session().SubscriptionID)

	require.NoError(t, m.DeclineDownsell(ctx))
	assert.Equal(t, StepSurvey, m.Step())
	assert.False(t, *m.Snapshot().AcceptedDownsell)
	assert.False(t, *gw.lastPatch(t).AcceptedDownsell)

	assert.ErrorIs(t, m.SurveyContinue(ctx), ErrStepIncomplete)
	m.SetSurveyAnswer(QuestionRolesApplied, BucketMany)
	m.SetSurveyAnswer(QuestionCompaniesEmailed, BucketSome)
	m.SetSurveyAnswer(QuestionCompaniesInterviewed, BucketNone)
	require.NoError(t, m.SurveyContinue(ctx))
	assert.Equal(t, StepReasonSelection, m.Step())
	p := gw.lastPatch(t)
	assert.Equal(t, "20+", *p.RolesApplied)
	assert.Equal(t, "6-20", *p.CompaniesEmailed)
	assert.Equal(t, "0", *p.CompaniesInterviewed)
	assert.Nil(t, p.FoundJobWithMigrateMate)

	assert.ErrorIs(t, m.ReasonComplete(ctx), ErrStepIncomplete)
	require.NoError(t, m.SetReason(domain.ReasonTooExpensive))
	m.SetFollowUpText("12")
	require.NoError(t, m.ReasonComplete(ctx))
	assert.Equal(t, StepCompleted, m.Step())
	p = gw.lastPatch(t)
	assert.Equal(t, domain.ReasonTooExpensive, *p.Reason)
	assert.Equal(t, "12", *p.Feedback)
	assert.Equal(t, []string{"sub-resolved"}, gw.marked)

	assert.Equal(t, StepReasonSelection, m.Back())
	assert.Equal(t, StepSurvey, m.Back())
	assert.Equal(t, StepDownsell, m.Back())
	assert.Equal(t, StepInitial, m.Back())

	// the record is created only once per session
	_, err = m.StillLooking(ctx)
	require.NoError(t, err)
	assert.Len(t, gw.creates, 1)
}

func TestMachine_AcceptDownsellFromEveryOffer(t *testing.T) {
	ctx := context.Background()
	for _, from := range []Step{StepDownsell, StepSurvey, StepReasonSelection} {
		t.Run(string(from), func(t *testing.T) {
			m, gw := newTestMachine("user-1", WithState(State{Step: from}))
			m.session.CancellationRecordID = "rec-1"

			require.NoError(t, m.AcceptDownsell(ctx))
			assert.Equal(t, StepDownsellCompleted, m.Step())
			assert.True(t, *m.Snapshot().AcceptedDownsell)
			assert.True(t, *gw.lastPatch(t).AcceptedDownsell)

			// accepting twice changes nothing and sends nothing
			require.NoError(t, m.AcceptDownsell(ctx))
			assert.Len(t, gw.patches, 1)

			require.NoError(t, m.DownsellCompletedContinue())
			assert.Equal(t, StepJobRecommendations, m.Step())
			assert.Equal(t, StepInitial, m.Back())
		})
	}
}

func TestMachine_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine("user-1")
	assert.ErrorIs(t, m.AcceptDownsell(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, m.DeclineDownsell(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, m.CongratsContinue(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, m.DownsellCompletedContinue(), ErrInvalidTransition)

	toCongrats(t, m)
	assert.ErrorIs(t, m.FoundJob(), ErrInvalidTransition)
	_, err := m.StillLooking(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_PatchWithoutRecordIsDropped(t *testing.T) {
	ctx := context.Background()
	m, gw := newTestMachine("")
	m.gw = gw

	toCongrats(t, m)
	answerCongrats(m)
	require.NoError(t, m.CongratsContinue(ctx))
	assert.Equal(t, StepFeedback, m.Step())
	assert.Empty(t, gw.patches)
}

func TestMachine_NoUserSkipsCreateAndUsesFallbackVariant(t *testing.T) {
	m, gw := newTestMachine("")
	out, err := m.StillLooking(context.Background())
	require.NoError(t, err)
	// seed-user hashes to B
	assert.False(t, out.Close)
	assert.Equal(t, StepDownsell, m.Step())
	assert.Empty(t, gw.creates)
	assert.Equal(t, DownsellDisplay{OriginalPrice: 25, DownsellPrice: 15}, m.DownsellDisplay())
}

func TestMachine_PersistenceFailuresAreLoggedAndSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m, gw := newTestMachine("user-1", WithLogger(zap.New(core)))
	gw.createErr = errors.New("connection refused")

	out, err := m.StillLooking(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Close)
	assert.Equal(t, StepDownsell, m.Step())
	assert.Empty(t, m.Session().CancellationRecordID)

	entries := logs.FilterMessage("persistence failed; continuing").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "create_cancellation", entries[0].ContextMap()["op"])
}

func TestMachine_StrictPersistenceBlocksTransition(t *testing.T) {
	ctx := context.Background()
	m, gw := newTestMachine("user-1", WithStrictPersistence())
	gw.createErr = errors.New("boom")

	_, err := m.StillLooking(ctx)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, StepInitial, m.Step())

	gw.createErr = nil
	_, err = m.StillLooking(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepDownsell, m.Step())
	assert.Len(t, gw.creates, 2)

	gw.patchErr = errors.New("server error")
	assert.Error(t, m.DeclineDownsell(ctx))
	assert.Equal(t, StepDownsell, m.Step())
	assert.Nil(t, m.Snapshot().AcceptedDownsell)
}

func TestMachine_SetReasonClearsFollowUp(t *testing.T) {
	m, _ := newTestMachine("user-1", WithState(State{Step: StepReasonSelection}))
	require.NoError(t, m.SetReason(domain.ReasonOther))
	m.SetFollowUpText("something I typed for other")

	require.NoError(t, m.SetReason(domain.ReasonOther))
	assert.Equal(t, "something I typed for other", m.Snapshot().FollowUpText)

	require.NoError(t, m.SetReason(domain.ReasonNotEnoughJobs))
	assert.Empty(t, m.Snapshot().FollowUpText)

	assert.ErrorIs(t, m.SetReason("Bored"), ErrInvalidReason)
}

func TestMachine_BackFromCompleted(t *testing.T) {
	reason := domain.ReasonOther
	yes := true
	cases := []struct {
		name  string
		state State
		want  Step
	}{
		{"reason set", State{Step: StepCompleted, Reason: &reason, HasFoundJob: true}, StepReasonSelection},
		{"found job", State{Step: StepCompleted, HasFoundJob: true}, StepVisa},
		{"attribution answered", State{Step: StepCompleted, FoundJobWithMigrateMate: &yes}, StepVisa},
		{"nothing", State{Step: StepCompleted}, StepInitial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestMachine("user-1", WithState(tc.state))
			assert.Equal(t, tc.want, m.Back())
		})
	}
}

func TestMachine_BackEdges(t *testing.T) {
	cases := map[Step]Step{
		StepInitial:            StepInitial,
		StepCongrats:           StepInitial,
		StepDownsell:           StepInitial,
		StepFeedback:           StepCongrats,
		StepVisa:               StepFeedback,
		StepSurvey:             StepDownsell,
		StepReasonSelection:    StepSurvey,
		StepDownsellCompleted:  StepInitial,
		StepJobRecommendations: StepInitial,
	}
	for from, want := range cases {
		m, _ := newTestMachine("user-1", WithState(State{Step: from}))
		assert.Equal(t, want, m.Back(), "from=%s", from)
	}
}

func TestMachine_ForcedVariantAndReset(t *testing.T) {
	m, gw := newTestMachine("user-1", WithForcedVariant(domain.VariantA))
	out, err := m.StillLooking(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Close)
	assert.Equal(t, domain.VariantA, m.ResolveVariant())

	m.Reset()
	s := m.Snapshot()
	assert.Equal(t, StepInitial, s.Step)
	assert.Empty(t, s.DownsellVariant)
	assert.Empty(t, m.Session().CancellationRecordID)
	assert.Equal(t, "user-1", m.Session().UserID)

	_, err = m.StillLooking(context.Background())
	require.NoError(t, err)
	assert.Len(t, gw.creates, 2)
}

func TestMachine_ConcurrentAcceptIsIdempotent(t *testing.T) {
	m, gw := newTestMachine("user-1", WithState(State{Step: StepDownsell}))
	m.session.CancellationRecordID = "rec-1"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.AcceptDownsell(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, StepDownsellCompleted, m.Step())
	assert.Len(t, gw.patches, 1)
}

func TestLoadSession(t *testing.T) {
	price := 2900
	gw := &fakeGateway{account: Account{UserID: "u", Email: "u@example.com", SubscriptionID: "s", SubscriptionPriceCents: &price}}
	session, err := LoadSession(context.Background(), gw)
	require.NoError(t, err)
	assert.Equal(t, "u", session.UserID)
	assert.Equal(t, "u@example.com", session.Email)
	assert.Equal(t, 2900, *session.SubscriptionPriceCents)

	gw.fetchErr = errors.New("offline")
	session, err = LoadSession(context.Background(), gw)
	assert.Error(t, err)
	assert.Empty(t, session.UserID)
}
