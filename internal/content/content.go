// Package content holds the static copy shown by the wizard screens.
package content

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/flow"
)

//go:embed content.yaml
var raw []byte

// Completion keys select the completed screen copy.
const (
	CompletionStillLooking   = "still_looking"
	CompletionFoundWithUs    = "found_with_us"
	CompletionFoundElsewhere = "found_elsewhere"
)

// Screen is the copy of one wizard screen. Empty fields are not rendered.
type Screen struct {
	Title               string `yaml:"title"`
	TitleElsewhere      string `yaml:"title_elsewhere"`
	Heading             string `yaml:"heading"`
	Body                string `yaml:"body"`
	BodyElsewhere       string `yaml:"body_elsewhere"`
	Placeholder         string `yaml:"placeholder"`
	PromptWithLawyer    string `yaml:"prompt_with_lawyer"`
	PromptWithoutLawyer string `yaml:"prompt_without_lawyer"`
	Primary             string `yaml:"primary"`
	Secondary           string `yaml:"secondary"`
	Footnote            string `yaml:"footnote"`
	Signature           string `yaml:"signature"`
}

// ReasonPrompt is the follow-up question for a cancellation reason.
type ReasonPrompt struct {
	Reason  domain.CancellationReason `yaml:"reason"`
	Prompt  string                    `yaml:"prompt"`
	Numeric bool                      `yaml:"numeric"`
}

// JobCard is the single recommended role.
type JobCard struct {
	Title       string   `yaml:"title"`
	Company     string   `yaml:"company"`
	Location    string   `yaml:"location"`
	Salary      string   `yaml:"salary"`
	Tags        []string `yaml:"tags"`
	Visas       []string `yaml:"visas"`
	Description string   `yaml:"description"`
	Contact     string   `yaml:"contact"`
}

// Content is the full copy deck.
type Content struct {
	Brand      string               `yaml:"brand"`
	Screens    map[flow.Step]Screen `yaml:"screens"`
	Completion map[string]Screen    `yaml:"completion"`
	Questions  map[string]string    `yaml:"questions"`
	Reasons    []ReasonPrompt       `yaml:"reasons"`
	Job        JobCard              `yaml:"job"`
}

var (
	once    sync.Once
	loaded  *Content
	loadErr error
)

// Default returns the embedded copy deck, parsed once.
func Default() (*Content, error) {
	once.Do(func() {
		loaded, loadErr = Parse(raw)
	})
	return loaded, loadErr
}

// MustDefault is Default for callers that cannot continue without copy.
func MustDefault() *Content {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a copy deck and checks that every screen and reason is covered.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	for _, step := range flow.Steps {
		if step == flow.StepCompleted {
			continue
		}
		if _, ok := c.Screens[step]; !ok {
			return nil, fmt.Errorf("content: missing screen %q", step)
		}
	}
	for _, key := range []string{CompletionStillLooking, CompletionFoundWithUs, CompletionFoundElsewhere} {
		if _, ok := c.Completion[key]; !ok {
			return nil, fmt.Errorf("content: missing completion %q", key)
		}
	}
	for _, reason := range domain.CancellationReasons {
		if _, ok := c.ReasonPrompt(reason); !ok {
			return nil, fmt.Errorf("content: missing prompt for reason %q", reason)
		}
	}
	return &c, nil
}

// Screen returns the copy for step.
func (c *Content) Screen(step flow.Step) Screen {
	return c.Screens[step]
}

// CompletionFor picks the completed screen copy for the branch the user took.
func (c *Content) CompletionFor(s flow.State) Screen {
	switch {
	case !s.HasFoundJob:
		return c.Completion[CompletionStillLooking]
	case s.FoundJobWithMigrateMate != nil && *s.FoundJobWithMigrateMate:
		return c.Completion[CompletionFoundWithUs]
	default:
		return c.Completion[CompletionFoundElsewhere]
	}
}

// ReasonPrompt returns the follow-up question for reason.
func (c *Content) ReasonPrompt(reason domain.CancellationReason) (ReasonPrompt, bool) {
	for _, p := range c.Reasons {
		if p.Reason == reason {
			return p, true
		}
	}
	return ReasonPrompt{}, false
}

// Question returns the prompt text for a survey question.
func (c *Content) Question(q flow.Question) string {
	switch q {
	case flow.QuestionRolesApplied:
		return c.Questions["roles_applied"]
	case flow.QuestionCompaniesEmailed:
		return c.Questions["companies_emailed"]
	default:
		return c.Questions["companies_interviewed"]
	}
}
