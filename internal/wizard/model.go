// Package wizard renders the cancellation flow as a terminal modal.
package wizard

import (
	"context"
	"errors"
	"unicode"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/content"
	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/flow"
)

// Config wires a Model.
type Config struct {
	Machine *flow.Machine
	Content *content.Content
	Logger  *zap.Logger
	// Email is shown on the profile screen behind the modal.
	Email string
	// OpenOnStart shows the modal immediately instead of the profile screen.
	OpenOnStart bool
}

// Model is the bubbletea model hosting the cancellation modal.
type Model struct {
	ctx     context.Context
	machine *flow.Machine
	deck    *content.Content
	logger  *zap.Logger
	email   string

	open     bool
	opened   bool
	busy     bool
	notice   string
	err      error
	quitting bool

	// field is the focused control on multi-question screens, choice the
	// highlighted button on two-button screens.
	field        int
	choice       int
	reasonCursor int

	feedback textarea.Model
	followUp textarea.Model
	visaType textinput.Model
	spinner  spinner.Model
	width    int
}

type actionDoneMsg struct {
	action  string
	outcome flow.Outcome
	err     error
}

// New builds the wizard model.
func New(ctx context.Context, cfg Config) Model {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deck := cfg.Content
	if deck == nil {
		deck = content.MustDefault()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	feedback := textarea.New()
	feedback.Placeholder = deck.Screen(flow.StepFeedback).Placeholder
	feedback.ShowLineNumbers = false
	feedback.CharLimit = 1000
	feedback.SetWidth(60)
	feedback.SetHeight(4)
	feedback.KeyMap.InsertNewline.SetEnabled(false)
	feedback.Cursor.SetMode(cursor.CursorStatic)

	followUp := textarea.New()
	followUp.ShowLineNumbers = false
	followUp.CharLimit = 1000
	followUp.SetWidth(60)
	followUp.SetHeight(3)
	followUp.KeyMap.InsertNewline.SetEnabled(false)
	followUp.Cursor.SetMode(cursor.CursorStatic)

	visaType := textinput.New()
	visaType.Placeholder = "e.g. H-1B"
	visaType.CharLimit = 64
	visaType.Width = 40
	visaType.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		ctx:      ctx,
		machine:  cfg.Machine,
		deck:     deck,
		logger:   logger,
		email:    cfg.Email,
		feedback: feedback,
		followUp: followUp,
		visaType: visaType,
		spinner:  s,
		width:    80,
	}
	if cfg.OpenOnStart {
		m = m.openModal()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Open reports whether the modal is showing.
func (m Model) Open() bool { return m.open }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		return m.finishAction(msg), nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if !m.open {
			return m.updateProfile(msg)
		}
		return m.updateModal(msg)
	}
	return m, nil
}

func (m Model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "c", "enter":
		return m.openModal(), nil
	}
	return m, nil
}

// openModal shows the wizard. Reopening after a close starts from scratch.
func (m Model) openModal() Model {
	if m.opened {
		m.machine.Reset()
	}
	m.open = true
	m.opened = true
	m.notice = ""
	m.err = nil
	return m.stepChanged()
}

func (m Model) closeModal(notice string) Model {
	m.open = false
	m.notice = notice
	m.err = nil
	m.feedback.Blur()
	m.followUp.Blur()
	m.visaType.Blur()
	return m
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeModal(""), nil
	case "ctrl+b":
		return m.back(), nil
	}

	switch m.machine.Step() {
	case flow.StepInitial:
		return m.updateInitial(msg)
	case flow.StepCongrats:
		return m.updateCongrats(msg)
	case flow.StepFeedback:
		return m.updateFeedback(msg)
	case flow.StepVisa:
		return m.updateVisa(msg)
	case flow.StepDownsell:
		return m.updateDownsell(msg)
	case flow.StepSurvey:
		return m.updateSurvey(msg)
	case flow.StepReasonSelection:
		return m.updateReason(msg)
	case flow.StepDownsellCompleted:
		if msg.String() == "enter" {
			return m.apply("downsell_completed_continue", m.machine.DownsellCompletedContinue), nil
		}
	case flow.StepJobRecommendations, flow.StepCompleted:
		switch msg.String() {
		case "enter":
			return m.closeModal(""), nil
		case "backspace":
			return m.back(), nil
		}
	}
	return m, nil
}

func (m Model) back() Model {
	if m.machine.Step() == flow.StepInitial {
		return m
	}
	m.machine.Back()
	return m.stepChanged()
}

func (m Model) updateInitial(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k", "left", "h":
		m.choice = 0
	case "down", "j", "right", "l":
		m.choice = 1
	case "y":
		return m.apply("found_job", m.machine.FoundJob), nil
	case "n":
		return m.stillLooking()
	case "enter":
		if m.choice == 0 {
			return m.apply("found_job", m.machine.FoundJob), nil
		}
		return m.stillLooking()
	}
	return m, nil
}

func (m Model) stillLooking() (tea.Model, tea.Cmd) {
	machine := m.machine
	return m.run("still_looking", func(ctx context.Context) (flow.Outcome, error) {
		return machine.StillLooking(ctx)
	})
}

// congrats: field 0 is "found with us", fields 1-3 the job search questions.
func (m Model) updateCongrats(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.machine.Snapshot()
	key := msg.String()
	switch key {
	case "up", "k", "shift+tab":
		m.field = clamp(m.field-1, 0, 3)
	case "down", "j", "tab":
		m.field = clamp(m.field+1, 0, 3)
	case "enter":
		return m.advance(flow.StepCongrats, "Answer every question to continue.", m.machine.CongratsContinue)
	case "backspace":
		return m.back(), nil
	default:
		if m.field == 0 {
			if v, ok := yesNo(key, s.FoundJobWithMigrateMate); ok {
				m.machine.SetFoundJobWithMigrateMate(v)
			}
			return m, nil
		}
		q := flow.Questions[m.field-1]
		if b, ok := bucketKey(key, s.JobSearch.Get(q)); ok {
			m.machine.SetJobSearchAnswer(q, b)
		}
	}
	return m, nil
}

func (m Model) updateFeedback(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		return m.advance(flow.StepFeedback, "Please enter at least 25 characters so we can understand your feedback.", m.machine.FeedbackContinue)
	}
	var cmd tea.Cmd
	m.feedback, cmd = m.feedback.Update(msg)
	m.machine.SetFeedback(m.feedback.Value())
	return m, cmd
}

// visa: field 0 is the lawyer question, field 1 the visa type input.
func (m Model) updateVisa(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.machine.Snapshot()
	key := msg.String()
	switch key {
	case "tab", "shift+tab", "up", "down":
		if s.HasImmigrationLawyer == nil {
			return m, nil
		}
		return m.focusVisaField(1 - m.field), nil
	case "enter":
		return m.advance(flow.StepVisa, "Tell us about your visa to continue.", m.machine.VisaComplete)
	}

	if m.field == 0 {
		if key == "backspace" {
			return m.back(), nil
		}
		if v, ok := yesNo(key, s.HasImmigrationLawyer); ok {
			m.machine.SetHasImmigrationLawyer(v)
			if s.HasImmigrationLawyer == nil {
				return m.focusVisaField(1), nil
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.visaType, cmd = m.visaType.Update(msg)
	m.machine.SetVisaType(m.visaType.Value())
	return m, cmd
}

func (m Model) focusVisaField(field int) Model {
	m.field = field
	if field == 1 {
		m.visaType.Focus()
	} else {
		m.visaType.Blur()
	}
	return m
}

func (m Model) updateDownsell(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k", "left", "h":
		m.choice = 0
	case "down", "j", "right", "l":
		m.choice = 1
	case "a":
		return m.acceptDownsell()
	case "backspace":
		return m.back(), nil
	case "enter":
		if m.choice == 0 {
			return m.acceptDownsell()
		}
		machine := m.machine
		return m.run("decline_downsell", func(ctx context.Context) (flow.Outcome, error) {
			return flow.Outcome{}, machine.DeclineDownsell(ctx)
		})
	}
	return m, nil
}

func (m Model) acceptDownsell() (tea.Model, tea.Cmd) {
	machine := m.machine
	return m.run("accept_downsell", func(ctx context.Context) (flow.Outcome, error) {
		return flow.Outcome{}, machine.AcceptDownsell(ctx)
	})
}

func (m Model) updateSurvey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "up", "k", "shift+tab":
		m.field = clamp(m.field-1, 0, 2)
	case "down", "j", "tab":
		m.field = clamp(m.field+1, 0, 2)
	case "a":
		return m.acceptDownsell()
	case "backspace":
		return m.back(), nil
	case "enter":
		return m.advance(flow.StepSurvey, "Answer every question to continue.", m.machine.SurveyContinue)
	default:
		q := flow.Questions[m.field]
		if b, ok := bucketKey(key, m.machine.Snapshot().Survey.Get(q)); ok {
			m.machine.SetSurveyAnswer(q, b)
		}
	}
	return m, nil
}

// reason selection: field 0 is the reason list, field 1 the follow-up text.
func (m Model) updateReason(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	reasons := domain.CancellationReasons

	if m.field == 0 {
		switch key {
		case "up", "k":
			m.reasonCursor = clamp(m.reasonCursor-1, 0, len(reasons)-1)
		case "down", "j":
			m.reasonCursor = clamp(m.reasonCursor+1, 0, len(reasons)-1)
		case "a":
			return m.acceptDownsell()
		case "backspace":
			return m.back(), nil
		case "tab":
			if m.machine.Snapshot().Reason != nil {
				return m.focusFollowUp(), nil
			}
		case " ", "enter":
			if err := m.machine.SetReason(reasons[m.reasonCursor]); err != nil {
				m.err = err
				return m, nil
			}
			m.followUp.SetValue(m.machine.Snapshot().FollowUpText)
			return m.focusFollowUp(), nil
		}
		return m, nil
	}

	switch key {
	case "tab", "shift+tab":
		m.field = 0
		m.followUp.Blur()
		return m, nil
	case "enter":
		return m.advance(flow.StepReasonSelection, m.followUpHint(), m.machine.ReasonComplete)
	}
	if m.numericFollowUp() && msg.Type == tea.KeyRunes && !numeric(msg.Runes) {
		return m, nil
	}
	var cmd tea.Cmd
	m.followUp, cmd = m.followUp.Update(msg)
	m.machine.SetFollowUpText(m.followUp.Value())
	return m, cmd
}

func (m Model) focusFollowUp() Model {
	m.field = 1
	m.followUp.Focus()
	m.followUp.Placeholder = ""
	if m.numericFollowUp() {
		m.followUp.Placeholder = "$"
	}
	return m
}

func (m Model) followUpHint() string {
	if m.numericFollowUp() {
		return "Please enter an amount."
	}
	return "Please enter at least 25 characters so we can understand your feedback."
}

func (m Model) numericFollowUp() bool {
	s := m.machine.Snapshot()
	if s.Reason == nil {
		return false
	}
	p, _ := m.deck.ReasonPrompt(*s.Reason)
	return p.Numeric
}

// advance runs a guarded forward action, or explains what is missing.
func (m Model) advance(step flow.Step, hint string, action func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.machine.Step() != step {
		return m, nil
	}
	if !m.machine.CanAdvance() {
		m.notice = hint
		return m, nil
	}
	return m.run(string(step)+"_continue", func(ctx context.Context) (flow.Outcome, error) {
		return flow.Outcome{}, action(ctx)
	})
}

// apply runs an action that makes no persistence calls.
func (m Model) apply(name string, action func() error) Model {
	return m.finishAction(actionDoneMsg{action: name, err: action()})
}

// run starts an action in the background; keys are ignored until it settles.
func (m Model) run(name string, action func(context.Context) (flow.Outcome, error)) (tea.Model, tea.Cmd) {
	m.busy = true
	m.notice = ""
	m.err = nil
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		outcome, err := action(ctx)
		return actionDoneMsg{action: name, outcome: outcome, err: err}
	})
}

func (m Model) finishAction(msg actionDoneMsg) Model {
	m.busy = false
	if msg.err != nil {
		if errors.Is(msg.err, flow.ErrStepIncomplete) {
			m.notice = "Answer every question to continue."
			return m
		}
		m.logger.Warn("wizard action failed", zap.String("action", msg.action), zap.Error(msg.err))
		m.err = msg.err
		return m
	}
	if msg.outcome.Close {
		return m.closeModal("Thanks for sticking around. Back to your profile.")
	}
	return m.stepChanged()
}

// stepChanged resets per-screen controls from the machine's answers.
func (m Model) stepChanged() Model {
	s := m.machine.Snapshot()
	m.field = 0
	m.choice = 0
	m.notice = ""
	m.err = nil

	m.feedback.SetValue(s.Feedback)
	m.visaType.SetValue(s.VisaType)
	m.followUp.SetValue(s.FollowUpText)
	m.feedback.Blur()
	m.followUp.Blur()
	m.visaType.Blur()

	switch s.Step {
	case flow.StepFeedback:
		m.feedback.Focus()
	case flow.StepVisa:
		if s.HasImmigrationLawyer != nil {
			m = m.focusVisaField(1)
		}
	case flow.StepReasonSelection:
		m.reasonCursor = 0
		if s.Reason != nil {
			for i, r := range domain.CancellationReasons {
				if r == *s.Reason {
					m.reasonCursor = i
				}
			}
			m = m.focusFollowUp()
		}
	}
	return m
}

// yesNo maps a key to a yes/no answer. Arrows move from the current answer.
func yesNo(key string, current *bool) (bool, bool) {
	switch key {
	case "y", "left", "h":
		return true, true
	case "n", "right", "l":
		return false, true
	case " ":
		if current == nil {
			return true, true
		}
		return !*current, true
	}
	return false, false
}

// bucketKey maps a key to a survey bucket: 1-4 pick directly, arrows step.
func bucketKey(key string, current flow.Bucket) (flow.Bucket, bool) {
	switch key {
	case "1", "2", "3", "4":
		return flow.Buckets[key[0]-'1'], true
	case "left", "h":
		if current == flow.BucketUnset {
			return flow.BucketNone, true
		}
		return flow.Bucket(clamp(int(current)-1, int(flow.BucketNone), int(flow.BucketMany))), true
	case "right", "l":
		if current == flow.BucketUnset {
			return flow.BucketNone, true
		}
		return flow.Bucket(clamp(int(current)+1, int(flow.BucketNone), int(flow.BucketMany))), true
	}
	return current, false
}

func numeric(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
