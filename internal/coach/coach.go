// Package coach defines the rehearsal catalogues and the critique returned
// for a finished rehearsal.
package coach

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Scenario is a rehearsal setting.
type Scenario struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// LeadershipStyle is the delivery register the speaker is aiming for.
type LeadershipStyle struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var scenarios = []Scenario{
	{Key: "CAMP_ADDRESS", Label: "Address to Corps Members (Camp)"},
	{Key: "MANAGEMENT_MEETING", Label: "Management/Stakeholder Meeting"},
	{Key: "FIELD_OFFICE_BRIEF", Label: "Field Office Briefing"},
	{Key: "POP_CEREMONY", Label: "Passing Out Parade (POP) Speech"},
	{Key: "SAED_KEYNOTE", Label: "SAED Keynote Address"},
	{Key: "CRISIS_COMM", Label: "Crisis Communication/Press Briefing"},
	{Key: "GOVERNMENT_LIAISON", Label: "Liaison with State Government"},
}

var styles = []LeadershipStyle{
	{Key: "COMMANDING", Label: "Commanding & Authoritative"},
	{Key: "MOTIVATIONAL", Label: "Motivational & Inspiring"},
	{Key: "CONSULTATIVE", Label: "Consultative & Diplomatic"},
	{Key: "INSTRUCTIVE", Label: "Instructive & Policy-Driven"},
}

// DefaultScenario and DefaultStyle are used when nothing is configured.
var (
	DefaultScenario = scenarios[0]
	DefaultStyle    = styles[0]
)

// Scenarios returns the scenario catalogue in display order.
func Scenarios() []Scenario {
	return append([]Scenario(nil), scenarios...)
}

// LeadershipStyles returns the style catalogue in display order.
func LeadershipStyles() []LeadershipStyle {
	return append([]LeadershipStyle(nil), styles...)
}

// LookupScenario resolves a scenario by key or label, case-insensitively.
// Dashes and spaces in keys are accepted in place of underscores.
func LookupScenario(name string) (Scenario, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultScenario, nil
	}
	for _, s := range scenarios {
		if matchesEntry(name, s.Key, s.Label) {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q", name)
}

// LookupLeadershipStyle resolves a style by key or label, case-insensitively.
func LookupLeadershipStyle(name string) (LeadershipStyle, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultStyle, nil
	}
	for _, s := range styles {
		if matchesEntry(name, s.Key, s.Label) {
			return s, nil
		}
	}
	return LeadershipStyle{}, fmt.Errorf("unknown leadership style %q", name)
}

func matchesEntry(name, key, label string) bool {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, label) {
		return true
	}
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(name)
	return strings.EqualFold(normalized, key)
}

// FeedbackMetric is one scored delivery dimension.
type FeedbackMetric struct {
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// SpeechAnalysis is the critique of one rehearsal.
type SpeechAnalysis struct {
	Transcript          string           `json:"transcript"`
	OverallScore        float64          `json:"overallScore"`
	LeadershipAlignment string           `json:"leadershipAlignment"`
	Strengths           []string         `json:"strengths"`
	Improvements        []string         `json:"improvements"`
	SuggestedPoints     []string         `json:"suggestedPoints"`
	ToneAnalysis        string           `json:"toneAnalysis"`
	Metrics             []FeedbackMetric `json:"metrics"`
}

// Validate reports analyses that are missing the fields every critique carries.
func (a SpeechAnalysis) Validate() error {
	switch {
	case a.OverallScore < 0 || a.OverallScore > 100 || math.IsNaN(a.OverallScore):
		return fmt.Errorf("overall score %v out of range", a.OverallScore)
	case strings.TrimSpace(a.LeadershipAlignment) == "":
		return fmt.Errorf("missing leadership alignment")
	case len(a.Metrics) == 0:
		return fmt.Errorf("missing metrics")
	}
	return nil
}

// MetricLabels are the delivery dimensions the critique scores.
var MetricLabels = []string{"Command", "Tone", "Pacing", "Clarity"}

// Terminology is kept verbatim in transcripts.
var Terminology = []string{"Corper", "PPA", "SAED", "CDS", "LGI", "ZI", "DG"}

// Prompt builds the critique instruction for one rehearsal.
func Prompt(scenario Scenario, style LeadershipStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conduct an NYSC Executive Oratory Audit of the attached recording.\n")
	fmt.Fprintf(&b, "Scenario: %s.\n", scenario.Label)
	fmt.Fprintf(&b, "Target leadership style: %s.\n", style.Label)
	fmt.Fprintf(&b, "1. Transcribe the speech accurately, preserving administrative terminology (%s).\n", strings.Join(Terminology, ", "))
	fmt.Fprintf(&b, "2. Score the delivery from 0 to 100 overall and on %s.\n", strings.Join(MetricLabels, ", "))
	b.WriteString("3. Assess how well the delivery matches the target leadership style.\n")
	b.WriteString("4. List strengths, concrete improvements and talking points the speaker should add.\n")
	b.WriteString("5. Describe the tone of the delivery.\n")
	return b.String()
}

// WPM computes words per minute, guarding very short rehearsals.
func WPM(words int, elapsed time.Duration) int {
	mins := math.Max(elapsed.Minutes(), 0.01)
	return int(math.Round(float64(words) / mins))
}
