package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/flow"
)

func TestDefaultCoversEveryScreen(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, step := range flow.Steps {
		if step == flow.StepCompleted {
			continue
		}
		assert.NotEmpty(t, c.Screen(step).Title, "screen %s", step)
	}
	assert.Equal(t, "Electrical Automation Controls Engineer", c.Job.Title)
	assert.Contains(t, c.Job.Visas, "AU E-3")
	for _, q := range flow.Questions {
		assert.NotEmpty(t, c.Question(q))
	}
}

func TestReasonPrompts(t *testing.T) {
	c := MustDefault()
	for _, r := range domain.CancellationReasons {
		p, ok := c.ReasonPrompt(r)
		require.True(t, ok, "reason %s", r)
		assert.NotEmpty(t, p.Prompt)
	}
	p, _ := c.ReasonPrompt(domain.ReasonTooExpensive)
	assert.True(t, p.Numeric)

	_, ok := c.ReasonPrompt("Bored")
	assert.False(t, ok)
}

func TestCompletionFor(t *testing.T) {
	c := MustDefault()
	yes, no := true, false

	assert.Equal(t, c.Completion[CompletionStillLooking], c.CompletionFor(flow.State{}))
	assert.Equal(t, c.Completion[CompletionFoundWithUs], c.CompletionFor(flow.State{HasFoundJob: true, FoundJobWithMigrateMate: &yes}))
	assert.Equal(t, c.Completion[CompletionFoundElsewhere], c.CompletionFor(flow.State{HasFoundJob: true, FoundJobWithMigrateMate: &no}))
}

func TestParseRejectsIncompleteDeck(t *testing.T) {
	_, err := Parse([]byte("screens:\n  initial:\n    title: hi\n"))
	assert.ErrorContains(t, err, "missing screen")

	_, err = Parse([]byte("screens: [oops"))
	assert.ErrorContains(t, err, "parse content")
}
