package wizard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/flow"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.open {
		return m.renderProfile()
	}
	return m.renderModal()
}

func (m Model) renderProfile() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Profile"))
	b.WriteString("\n\n")

	price := m.machine.DownsellDisplay().OriginalPrice
	lines := []string{
		"Email:        " + orDash(m.email),
		fmt.Sprintf("Subscription: $%d/month", price),
	}
	b.WriteString(profileStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("c cancel subscription • q quit"))
	return b.String()
}

func (m Model) renderModal() string {
	s := m.machine.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader(s))
	b.WriteString("\n\n")

	switch s.Step {
	case flow.StepInitial:
		b.WriteString(m.renderInitial())
	case flow.StepCongrats:
		b.WriteString(m.renderCongrats(s))
	case flow.StepFeedback:
		b.WriteString(m.renderFeedback(s))
	case flow.StepVisa:
		b.WriteString(m.renderVisa(s))
	case flow.StepDownsell:
		b.WriteString(m.renderDownsell())
	case flow.StepSurvey:
		b.WriteString(m.renderSurvey(s))
	case flow.StepReasonSelection:
		b.WriteString(m.renderReason(s))
	case flow.StepDownsellCompleted:
		b.WriteString(m.renderDownsellCompleted())
	case flow.StepJobRecommendations:
		b.WriteString(m.renderJobRecommendations())
	case flow.StepCompleted:
		b.WriteString(m.renderCompleted(s))
	}

	b.WriteString(m.renderStatus())
	b.WriteString(helpStyle.Render(helpFor(s.Step)))

	width := m.width - 4
	if width > 80 || width <= 0 {
		width = 80
	}
	return modalStyle.Width(width).Render(b.String())
}

func (m Model) renderHeader(s flow.State) string {
	parts := []string{}
	if s.Step != flow.StepInitial {
		parts = append(parts, mutedStyle.Render("‹ Back"))
	}
	parts = append(parts, headerStyle.Render("Subscription Cancellation"))
	if p := flow.ProgressFor(s.Step); p.Visible() {
		parts = append(parts, renderProgress(p))
	}
	return strings.Join(parts, "  ")
}

func renderProgress(p flow.Progress) string {
	var bar strings.Builder
	for i := 1; i <= p.Total; i++ {
		if p.Completed || i <= p.Step {
			bar.WriteString(progressFull.Render("▬"))
		} else {
			bar.WriteString(progressEmpty.Render("▬"))
		}
	}
	label := mutedStyle.Render(p.Label())
	if p.Completed {
		label = successStyle.Render(p.Label())
	}
	return bar.String() + " " + label
}

func (m Model) renderStatus() string {
	switch {
	case m.busy:
		return "\n" + m.spinner.View() + " Saving...\n"
	case m.err != nil:
		return "\n" + errorStyle.Render("Couldn't save your answers: "+m.err.Error()+". Press enter to retry.") + "\n"
	case m.notice != "":
		return "\n" + noticeStyle.Render(m.notice) + "\n"
	}
	return ""
}

func (m Model) renderInitial() string {
	sc := m.deck.Screen(flow.StepInitial)
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(sc.Heading))
	b.WriteString("\n\n")
	b.WriteString(bodyStyle.Render(sc.Body))
	b.WriteString("\n\n")
	b.WriteString(buttons(m.choice, sc.Primary, sc.Secondary))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderCongrats(s flow.State) string {
	sc := m.deck.Screen(flow.StepCongrats)
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(label(m.field == 0, sc.Heading))
	b.WriteString("\n")
	b.WriteString(yesNoChips(s.FoundJobWithMigrateMate))
	b.WriteString("\n\n")
	for i, q := range flow.Questions {
		b.WriteString(m.renderQuestion(q, s.JobSearch.Get(q), m.field == i+1))
	}
	b.WriteString(buttonStyle.Render(sc.Primary))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderQuestion(q flow.Question, answer flow.Bucket, focused bool) string {
	chips := make([]string, 0, len(flow.Buckets))
	for _, bucket := range flow.Buckets {
		style := chipStyle
		if bucket == answer {
			style = chipSelectedStyle
		}
		chips = append(chips, style.Render(q.Label(bucket)))
	}
	return label(focused, m.deck.Question(q)+"*") + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, chips...) + "\n\n"
}

func (m Model) renderFeedback(s flow.State) string {
	sc := m.deck.Screen(flow.StepFeedback)
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(sc.Body + "*"))
	b.WriteString("\n\n")
	b.WriteString(m.feedback.View())
	b.WriteString("\n")
	b.WriteString(counter(s.Feedback))
	b.WriteString("\n\n")
	b.WriteString(buttonStyle.Render(sc.Primary))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderVisa(s flow.State) string {
	sc := m.deck.Screen(flow.StepVisa)
	var b strings.Builder
	if s.FoundJobWithMigrateMate != nil && *s.FoundJobWithMigrateMate {
		b.WriteString(titleStyle.Render(sc.Title))
	} else {
		b.WriteString(titleStyle.Render(sc.TitleElsewhere))
		b.WriteString("\n")
		b.WriteString(bodyStyle.Render(sc.BodyElsewhere))
		b.WriteString("\n\n")
	}
	b.WriteString("\n")
	b.WriteString(label(m.field == 0, sc.Heading+"*"))
	b.WriteString("\n")
	b.WriteString(yesNoChips(s.HasImmigrationLawyer))
	b.WriteString("\n")
	if s.HasImmigrationLawyer != nil {
		prompt := sc.PromptWithoutLawyer
		if *s.HasImmigrationLawyer {
			prompt = sc.PromptWithLawyer
		}
		b.WriteString("\n")
		b.WriteString(label(m.field == 1, prompt+"*"))
		b.WriteString("\n")
		b.WriteString(m.visaType.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(buttonStyle.Render(sc.Primary))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderDownsell() string {
	sc := m.deck.Screen(flow.StepDownsell)
	prices := m.machine.DownsellDisplay()
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(sc.Body))
	b.WriteString("\n\n")
	offer := fmt.Sprintf("Here's 50%% off until you find a job.\n%s  %s\n%s",
		focusStyle.Render(fmt.Sprintf("$%d/month", prices.DownsellPrice)),
		strikeStyle.Render(fmt.Sprintf("$%d/month", prices.OriginalPrice)),
		mutedStyle.Render(sc.Footnote))
	b.WriteString(offerStyle.Render(offer))
	b.WriteString("\n\n")
	b.WriteString(buttons(m.choice, offerLabel(sc.Primary, prices), sc.Secondary))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderSurvey(s flow.State) string {
	sc := m.deck.Screen(flow.StepSurvey)
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	for i, q := range flow.Questions {
		b.WriteString(m.renderQuestion(q, s.Survey.Get(q), m.field == i))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		buttonStyle.Render(offerLabel(sc.Secondary, m.machine.DownsellDisplay())),
		buttonStyle.Render(sc.Primary)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderReason(s flow.State) string {
	sc := m.deck.Screen(flow.StepReasonSelection)
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(sc.Heading))
	b.WriteString("\n")
	if s.Reason == nil {
		b.WriteString(bodyStyle.Render(sc.Body + "*"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for i, r := range domain.CancellationReasons {
		mark := "○"
		if s.Reason != nil && *s.Reason == r {
			mark = "●"
		}
		b.WriteString(label(m.field == 0 && m.reasonCursor == i, mark+" "+string(r)))
		b.WriteString("\n")
	}

	if s.Reason != nil {
		prompt, _ := m.deck.ReasonPrompt(*s.Reason)
		b.WriteString("\n")
		b.WriteString(label(m.field == 1, prompt.Prompt+"*"))
		b.WriteString("\n")
		b.WriteString(m.followUp.View())
		b.WriteString("\n")
		if !prompt.Numeric {
			b.WriteString(counter(s.FollowUpText))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		buttonStyle.Render(offerLabel(sc.Secondary, m.machine.DownsellDisplay())),
		buttonStyle.Render(sc.Primary)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderDownsellCompleted() string {
	sc := m.deck.Screen(flow.StepDownsellCompleted)
	prices := m.machine.DownsellDisplay()
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(sc.Body))
	b.WriteString("\n\n")
	b.WriteString(bodyStyle.Render(fmt.Sprintf("Starting from your next billing date, your monthly payment will be $%d.", prices.DownsellPrice)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(sc.Footnote))
	b.WriteString("\n\n")
	b.WriteString(buttonActiveStyle.Render(sc.Primary))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderJobRecommendations() string {
	sc := m.deck.Screen(flow.StepJobRecommendations)
	job := m.deck.Job
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(sc.Body))
	b.WriteString("\n\n")

	card := strings.Join([]string{
		headerStyle.Render(job.Title),
		mutedStyle.Render(job.Company + " • " + job.Location),
		strings.Join(job.Tags, " · "),
		focusStyle.Render(job.Salary),
		"Visas sponsored by company in the last year: " + strings.Join(job.Visas, ", "),
		"",
		bodyStyle.Render(job.Description),
		"",
		mutedStyle.Render("Company visa contact: " + job.Contact),
	}, "\n")
	b.WriteString(offerStyle.Render(card))
	b.WriteString("\n\n")
	b.WriteString(buttonActiveStyle.Render(sc.Primary))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderCompleted(s flow.State) string {
	sc := m.deck.CompletionFor(s)
	var b strings.Builder
	b.WriteString(titleStyle.Render(sc.Title))
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(sc.Body))
	b.WriteString("\n")
	if sc.Footnote != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(sc.Footnote))
		b.WriteString("\n")
	}
	if sc.Signature != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("- " + sc.Signature))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(buttonActiveStyle.Render(sc.Primary))
	b.WriteString("\n")
	return b.String()
}

func helpFor(step flow.Step) string {
	switch step {
	case flow.StepInitial:
		return "↑/↓ choose • enter select • y/n answer • esc close"
	case flow.StepCongrats, flow.StepSurvey:
		help := "↑/↓ question • ←/→ or 1-4 answer • enter continue • ctrl+b back • esc close"
		if step == flow.StepSurvey {
			help += " • a accept offer"
		}
		return help
	case flow.StepFeedback:
		return "type your feedback • enter continue • ctrl+b back • esc close"
	case flow.StepVisa:
		return "←/→ or y/n answer • tab switch field • enter complete • ctrl+b back • esc close"
	case flow.StepDownsell:
		return "←/→ choose • enter select • a accept offer • ctrl+b back • esc close"
	case flow.StepReasonSelection:
		return "↑/↓ reason • enter select • tab switch field • a accept offer • ctrl+b back • esc close"
	default:
		return "enter continue • ctrl+b back • esc close"
	}
}

func buttons(choice int, primary, secondary string) string {
	first, second := buttonStyle, buttonStyle
	if choice == 0 {
		first = buttonActiveStyle
	} else {
		second = buttonActiveStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, first.Render(primary), second.Render(secondary))
}

func offerLabel(text string, prices flow.DownsellDisplay) string {
	return fmt.Sprintf("%s | $%d %s", text, prices.DownsellPrice, strikeStyle.Render(fmt.Sprintf("$%d", prices.OriginalPrice)))
}

func yesNoChips(answer *bool) string {
	yes, no := chipStyle, chipStyle
	if answer != nil {
		if *answer {
			yes = chipSelectedStyle
		} else {
			no = chipSelectedStyle
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, yes.Render("Yes"), no.Render("No"))
}

func label(focused bool, text string) string {
	if focused {
		return focusStyle.Render("› " + text)
	}
	return "  " + text
}

func counter(text string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	line := fmt.Sprintf("Min %d characters (%d/%d)", flow.MinFeedbackLength, n, flow.MinFeedbackLength)
	if n >= flow.MinFeedbackLength {
		return successStyle.Render(line)
	}
	return mutedStyle.Render(line)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
