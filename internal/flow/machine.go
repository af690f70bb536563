package flow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

var (
	// ErrStepIncomplete is returned when a forward transition's required answers are missing.
	ErrStepIncomplete = errors.New("step incomplete")
	// ErrInvalidTransition is returned when a trigger does not apply to the current step.
	ErrInvalidTransition = errors.New("invalid transition for current step")
)

// Outcome tells the controller what to do after a transition.
type Outcome struct {
	// Close asks the host to dismiss the wizard.
	Close bool
}

// Machine walks one user through the cancellation wizard. Actions are
// serialized, so a repeated trigger waits for the previous one and then
// sees the step it left behind. Reads never wait on network calls.
type Machine struct {
	act sync.Mutex // held for the whole of an action, including persistence calls

	mu      sync.RWMutex
	state   State
	session Session
	started bool

	gw     Gateway
	logger *zap.Logger
	strict bool
	forced domain.DownsellVariant
}

// Option customizes a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStrictPersistence makes persistence failures block the transition and
// return the error instead of being logged and ignored.
func WithStrictPersistence() Option {
	return func(m *Machine) {
		m.strict = true
	}
}

// WithForcedVariant pins the downsell variant. Production builds ignore it.
func WithForcedVariant(v domain.DownsellVariant) Option {
	return func(m *Machine) {
		if VariantOverrideEnabled && v.Valid() {
			m.forced = v
		}
	}
}

// WithState starts the machine from a previously captured state.
func WithState(s State) Option {
	return func(m *Machine) {
		m.state = s.clone()
		if m.state.Step == "" {
			m.state.Step = StepInitial
		}
	}
}

// NewMachine builds a machine for session. gw may be nil, in which case
// nothing is persisted.
func NewMachine(session Session, gw Gateway, opts ...Option) *Machine {
	m := &Machine{
		state:   newState(),
		session: session,
		gw:      gw,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Session returns a copy of the session.
func (m *Machine) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Step
}

// Progress returns the step indicator for the current step.
func (m *Machine) Progress() Progress {
	return ProgressFor(m.Step())
}

// DownsellDisplay returns the offer prices for the session's subscription.
func (m *Machine) DownsellDisplay() DownsellDisplay {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ComputeDownsellDisplay(m.session.SubscriptionPriceCents)
}

// Reset returns to the initial step with no answers. The next still-looking
// choice resolves the variant and creates a new record.
func (m *Machine) Reset() {
	m.act.Lock()
	defer m.act.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newState()
	m.session.CancellationRecordID = ""
	m.started = false
}

// Setters. They record answers without moving between steps.

// SetFoundJobWithMigrateMate answers the congrats attribution question.
func (m *Machine) SetFoundJobWithMigrateMate(v bool) {
	m.update(func(s *State) { s.FoundJobWithMigrateMate = &v })
}

// SetJobSearchAnswer answers one of the congrats screen's job search questions.
func (m *Machine) SetJobSearchAnswer(q Question, b Bucket) {
	m.update(func(s *State) { s.JobSearch.set(q, b) })
}

// SetFeedback sets the found-job feedback text.
func (m *Machine) SetFeedback(text string) {
	m.update(func(s *State) { s.Feedback = text })
}

// SetHasImmigrationLawyer answers the visa screen's lawyer question.
func (m *Machine) SetHasImmigrationLawyer(v bool) {
	m.update(func(s *State) { s.HasImmigrationLawyer = &v })
}

// SetVisaType sets the visa type text.
func (m *Machine) SetVisaType(text string) {
	m.update(func(s *State) { s.VisaType = text })
}

// SetSurveyAnswer answers one of the still-looking survey questions.
func (m *Machine) SetSurveyAnswer(q Question, b Bucket) {
	m.update(func(s *State) { s.Survey.set(q, b) })
}

// SetReason selects a cancellation reason. Choosing a different reason
// clears the follow-up answer.
func (m *Machine) SetReason(r domain.CancellationReason) error {
	if !r.Valid() {
		return ErrInvalidReason
	}
	m.update(func(s *State) {
		if s.Reason == nil || *s.Reason != r {
			s.FollowUpText = ""
		}
		s.Reason = &r
	})
	return nil
}

// ErrInvalidReason is returned by SetReason for reasons outside the fixed set.
var ErrInvalidReason = errors.New("unknown cancellation reason")

// SetFollowUpText sets the reason follow-up answer.
func (m *Machine) SetFollowUpText(text string) {
	m.update(func(s *State) { s.FollowUpText = text })
}

func (m *Machine) update(fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

// CanAdvance reports whether the current step's forward action is allowed.
// Steps whose forward actions are unguarded always report true; completed
// has no forward action.
func (m *Machine) CanAdvance() bool {
	return canAdvance(m.Snapshot())
}

func canAdvance(s State) bool {
	switch s.Step {
	case StepCongrats:
		return s.FoundJobWithMigrateMate != nil && s.JobSearch.Complete()
	case StepFeedback:
		return longEnough(s.Feedback) && s.FoundJobWithMigrateMate != nil
	case StepVisa:
		return s.HasImmigrationLawyer != nil && strings.TrimSpace(s.VisaType) != ""
	case StepSurvey:
		return s.Survey.Complete()
	case StepReasonSelection:
		return IsFollowUpComplete(s.Reason, s.FollowUpText)
	case StepCompleted:
		return false
	default:
		return true
	}
}

// ResolveVariant returns the session's downsell variant, computing and
// memoizing it on first use.
func (m *Machine) ResolveVariant() domain.DownsellVariant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveVariantLocked()
}

func (m *Machine) resolveVariantLocked() domain.DownsellVariant {
	if m.state.DownsellVariant != "" {
		return m.state.DownsellVariant
	}
	variant := m.forced
	if variant == "" {
		id := m.session.UserID
		if id == "" {
			id = FallbackVariantID
		}
		variant = ComputeVariant(id)
	}
	m.state.DownsellVariant = variant
	return variant
}

// EnsureCancellationStarted creates the session's cancellation record once.
// Later calls, and calls without a known user, do nothing. A failed
// creation may be retried by a later call.
func (m *Machine) EnsureCancellationStarted(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	return m.ensureStarted(ctx)
}

func (m *Machine) ensureStarted(ctx context.Context) error {
	m.mu.Lock()
	variant := m.resolveVariantLocked()
	session := m.session
	skip := m.started || session.CancellationRecordID != "" || session.UserID == "" || m.gw == nil
	m.started = true
	m.mu.Unlock()
	if skip {
		return nil
	}

	record, err := m.gw.CreateCancellationRecord(ctx, session.UserID, session.SubscriptionID, variant)
	if err != nil {
		// allow a later still-looking choice to try again
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.session.CancellationRecordID = record.ID
	if record.SubscriptionID != "" {
		m.session.SubscriptionID = record.SubscriptionID
	}
	m.mu.Unlock()
	m.logger.Info("cancellation started",
		zap.String("cancellation_id", record.ID),
		zap.String("variant", string(variant)))
	return nil
}

// FoundJob takes the found-job branch.
func (m *Machine) FoundJob() error {
	m.act.Lock()
	defer m.act.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Step != StepInitial {
		return ErrInvalidTransition
	}
	m.state.HasFoundJob = true
	m.state.Step = StepCongrats
	return nil
}

// StillLooking takes the still-looking branch. Variant B shows the discount
// offer; variant A asks the host to close the wizard.
func (m *Machine) StillLooking(ctx context.Context) (Outcome, error) {
	m.act.Lock()
	defer m.act.Unlock()
	if m.Step() != StepInitial {
		return Outcome{}, ErrInvalidTransition
	}

	variant := m.ResolveVariant()
	if err := m.persisted("create_cancellation", m.ensureStarted(ctx)); err != nil {
		return Outcome{}, err
	}
	if variant == domain.VariantA {
		return Outcome{Close: true}, nil
	}
	m.moveTo(StepDownsell)
	return Outcome{}, nil
}

// CongratsContinue saves the congrats answers and moves to feedback.
func (m *Machine) CongratsContinue(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	s, err := m.guard(StepCongrats)
	if err != nil {
		return err
	}
	roles, emailed, interviewed := s.JobSearch.labels()
	patch := domain.CancellationPatch{
		RolesApplied:            &roles,
		CompaniesEmailed:        &emailed,
		CompaniesInterviewed:    &interviewed,
		FoundJobWithMigrateMate: s.FoundJobWithMigrateMate,
	}
	if err := m.persisted("patch_cancellation", m.patch(ctx, patch)); err != nil {
		return err
	}
	m.moveTo(StepFeedback)
	return nil
}

// FeedbackContinue saves the feedback text and moves to visa.
func (m *Machine) FeedbackContinue(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	s, err := m.guard(StepFeedback)
	if err != nil {
		return err
	}
	if err := m.persisted("patch_cancellation", m.patch(ctx, domain.CancellationPatch{Feedback: &s.Feedback})); err != nil {
		return err
	}
	m.moveTo(StepVisa)
	return nil
}

// VisaComplete saves the visa answers, marks the subscription pending
// cancellation and finishes the found-job branch.
func (m *Machine) VisaComplete(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	s, err := m.guard(StepVisa)
	if err != nil {
		return err
	}
	visaType := strings.TrimSpace(s.VisaType)
	patch := domain.CancellationPatch{HasImmigrationLawyer: s.HasImmigrationLawyer, VisaType: &visaType}
	if err := m.persisted("patch_cancellation", m.patch(ctx, patch)); err != nil {
		return err
	}
	if err := m.persisted("mark_pending_cancellation", m.markPending(ctx)); err != nil {
		return err
	}
	m.moveTo(StepCompleted)
	return nil
}

// AcceptDownsell takes the discount from the offer, survey or reason screens.
// Accepting again once accepted is a no-op.
func (m *Machine) AcceptDownsell(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	switch m.Step() {
	case StepDownsellCompleted:
		return nil
	case StepDownsell, StepSurvey, StepReasonSelection:
	default:
		return ErrInvalidTransition
	}
	return m.respondToDownsell(ctx, true, StepDownsellCompleted)
}

// DeclineDownsell turns down the offer and moves to the survey.
func (m *Machine) DeclineDownsell(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	if m.Step() != StepDownsell {
		return ErrInvalidTransition
	}
	return m.respondToDownsell(ctx, false, StepSurvey)
}

func (m *Machine) respondToDownsell(ctx context.Context, accepted bool, next Step) error {
	if err := m.persisted("patch_cancellation", m.patch(ctx, domain.CancellationPatch{AcceptedDownsell: &accepted})); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.AcceptedDownsell = &accepted
	m.state.Step = next
	m.mu.Unlock()
	return nil
}

// SurveyContinue saves the survey answers and moves to reason selection.
func (m *Machine) SurveyContinue(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	s, err := m.guard(StepSurvey)
	if err != nil {
		return err
	}
	roles, emailed, interviewed := s.Survey.labels()
	patch := domain.CancellationPatch{
		RolesApplied:         &roles,
		CompaniesEmailed:     &emailed,
		CompaniesInterviewed: &interviewed,
	}
	if err := m.persisted("patch_cancellation", m.patch(ctx, patch)); err != nil {
		return err
	}
	m.moveTo(StepReasonSelection)
	return nil
}

// ReasonComplete saves the reason and follow-up, marks the subscription
// pending cancellation and finishes the still-looking branch.
func (m *Machine) ReasonComplete(ctx context.Context) error {
	m.act.Lock()
	defer m.act.Unlock()
	s, err := m.guard(StepReasonSelection)
	if err != nil {
		return err
	}
	patch := domain.CancellationPatch{Reason: s.Reason, Feedback: &s.FollowUpText}
	if err := m.persisted("patch_cancellation", m.patch(ctx, patch)); err != nil {
		return err
	}
	if err := m.persisted("mark_pending_cancellation", m.markPending(ctx)); err != nil {
		return err
	}
	m.moveTo(StepCompleted)
	return nil
}

// DownsellCompletedContinue moves from the discount confirmation to the job
// recommendations.
func (m *Machine) DownsellCompletedContinue() error {
	m.act.Lock()
	defer m.act.Unlock()
	if m.Step() != StepDownsellCompleted {
		return ErrInvalidTransition
	}
	m.moveTo(StepJobRecommendations)
	return nil
}

// Back moves to the previous screen and returns it. Answers are kept.
func (m *Machine) Back() Step {
	m.act.Lock()
	defer m.act.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Step = previous(m.state)
	return m.state.Step
}

func previous(s State) Step {
	switch s.Step {
	case StepCongrats, StepDownsell:
		return StepInitial
	case StepFeedback:
		return StepCongrats
	case StepVisa:
		return StepFeedback
	case StepSurvey:
		return StepDownsell
	case StepReasonSelection:
		return StepSurvey
	case StepCompleted:
		switch {
		case s.Reason != nil:
			return StepReasonSelection
		case s.HasFoundJob || s.FoundJobWithMigrateMate != nil:
			return StepVisa
		default:
			return StepInitial
		}
	default:
		return StepInitial
	}
}

func (m *Machine) guard(step Step) (State, error) {
	s := m.Snapshot()
	if s.Step != step {
		return s, ErrInvalidTransition
	}
	if !canAdvance(s) {
		return s, ErrStepIncomplete
	}
	return s, nil
}

func (m *Machine) moveTo(step Step) {
	m.mu.Lock()
	m.state.Step = step
	m.mu.Unlock()
}

// patch sends fields to the session's record. Without a record id it is
// dropped silently.
func (m *Machine) patch(ctx context.Context, patch domain.CancellationPatch) error {
	id := m.Session().CancellationRecordID
	if id == "" || m.gw == nil {
		m.logger.Debug("no cancellation record; patch dropped")
		return nil
	}
	return m.gw.PatchCancellationRecord(ctx, id, patch)
}

func (m *Machine) markPending(ctx context.Context) error {
	id := m.Session().SubscriptionID
	if id == "" || m.gw == nil {
		m.logger.Debug("no subscription; pending cancellation not recorded")
		return nil
	}
	return m.gw.MarkSubscriptionPendingCancellation(ctx, id)
}

// persisted applies the persistence policy to err: strict machines return
// it, others log it and carry on.
func (m *Machine) persisted(op string, err error) error {
	if err == nil {
		return nil
	}
	if m.strict {
		return err
	}
	session := m.Session()
	m.logger.Warn("persistence failed; continuing",
		zap.String("op", op),
		zap.String("user_id", session.UserID),
		zap.String("cancellation_id", session.CancellationRecordID),
		zap.Error(err))
	return nil
}
