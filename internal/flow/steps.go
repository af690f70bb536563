package flow

import "fmt"

// Step is one screen of the cancellation wizard.
type Step string

const (
	StepInitial            Step = "initial"
	StepDownsell           Step = "downsell"
	StepDownsellCompleted  Step = "downsell_completed"
	StepJobRecommendations Step = "job_recommendations"
	StepSurvey             Step = "survey"
	StepReasonSelection    Step = "reason_selection"
	StepCongrats           Step = "congrats"
	StepFeedback           Step = "feedback"
	StepVisa               Step = "visa"
	StepCompleted          Step = "completed"
)

// Steps lists every step.
var Steps = []Step{
	StepInitial, StepDownsell, StepDownsellCompleted, StepJobRecommendations, StepSurvey,
	StepReasonSelection, StepCongrats, StepFeedback, StepVisa, StepCompleted,
}

// Progress is the step indicator for a screen.
type Progress struct {
	Step      int
	Total     int
	Completed bool
}

// Visible reports whether the screen shows an indicator at all.
func (p Progress) Visible() bool {
	return p.Completed || p.Total > 0
}

// Label renders the indicator text.
func (p Progress) Label() string {
	switch {
	case p.Completed:
		return "Completed"
	case p.Total > 0:
		return fmt.Sprintf("Step %d of %d", p.Step, p.Total)
	default:
		return ""
	}
}

// ProgressFor returns the indicator for step. Both branches count three steps.
func ProgressFor(step Step) Progress {
	switch step {
	case StepCongrats, StepDownsell:
		return Progress{Step: 1, Total: 3}
	case StepFeedback, StepSurvey:
		return Progress{Step: 2, Total: 3}
	case StepVisa, StepReasonSelection:
		return Progress{Step: 3, Total: 3}
	case StepCompleted:
		return Progress{Total: 3, Completed: true}
	default:
		return Progress{}
	}
}
