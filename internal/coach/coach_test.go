package coach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLookupScenario(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty uses default", in: "", want: "CAMP_ADDRESS"},
		{name: "key", in: "SAED_KEYNOTE", want: "SAED_KEYNOTE"},
		{name: "lowercase dashed key", in: "crisis-comm", want: "CRISIS_COMM"},
		{name: "label", in: "field office briefing", want: "FIELD_OFFICE_BRIEF"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LookupScenario(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Key)
		})
	}

	_, err := LookupScenario("town hall")
	require.ErrorContains(t, err, "unknown scenario")
}

func TestLookupLeadershipStyle(t *testing.T) {
	got, err := LookupLeadershipStyle("Motivational & Inspiring")
	require.NoError(t, err)
	require.Equal(t, "MOTIVATIONAL", got.Key)

	got, err = LookupLeadershipStyle(" ")
	require.NoError(t, err)
	require.Equal(t, DefaultStyle, got)

	_, err = LookupLeadershipStyle("laissez-faire")
	require.ErrorContains(t, err, "unknown leadership style")
}

func TestCataloguesAreCopies(t *testing.T) {
	list := Scenarios()
	require.Len(t, list, 7)
	list[0].Label = "changed"
	require.Equal(t, "Address to Corps Members (Camp)", Scenarios()[0].Label)
	require.Len(t, LeadershipStyles(), 4)
}

func TestPromptMentionsContext(t *testing.T) {
	prompt := Prompt(scenarios[3], styles[2])
	require.Contains(t, prompt, "Oratory Audit")
	require.Contains(t, prompt, "Passing Out Parade (POP) Speech")
	require.Contains(t, prompt, "Consultative & Diplomatic")
	require.Contains(t, prompt, "SAED")
	require.Contains(t, prompt, "Pacing")
}

func TestWPM(t *testing.T) {
	require.Equal(t, 120, WPM(60, 30*time.Second))
	require.Equal(t, 500, WPM(5, 0))
	require.Equal(t, 0, WPM(0, time.Minute))
}

func TestSpeechAnalysisValidate(t *testing.T) {
	valid := SpeechAnalysis{
		OverallScore:        82,
		LeadershipAlignment: "Strong command presence",
		Metrics:             []FeedbackMetric{{Label: "Command", Score: 85, Feedback: "Clear"}},
	}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.OverallScore = 140
	require.ErrorContains(t, bad.Validate(), "out of range")

	bad = valid
	bad.Metrics = nil
	require.ErrorContains(t, bad.Validate(), "missing metrics")
}
