package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/failure"
)

const (
	DefaultAnalysisModel = "gemini-3-flash-preview"
	DefaultTimeout       = 90 * time.Second

	wavMIMEType = "audio/wav"
)

// contentGenerator is the slice of genai.Models the analyzer needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// AnalyzerConfig configures the critique client.
type AnalyzerConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Analyzer submits finished recordings for a scored critique.
type Analyzer struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// NewAnalyzer builds a genai-backed analyzer for the Gemini API backend.
func NewAnalyzer(ctx context.Context, cfg AnalyzerConfig) (*Analyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini analysis: api key is empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL, APIVersion: "v1beta"}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini analysis: new client: %w", err)
	}
	return newAnalyzer(client.Models, cfg.Model, cfg.Timeout), nil
}

func newAnalyzer(models contentGenerator, model string, timeout time.Duration) *Analyzer {
	if strings.TrimSpace(model) == "" {
		model = DefaultAnalysisModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Analyzer{models: models, model: model, timeout: timeout}
}

// Model returns the configured analysis model.
func (a *Analyzer) Model() string {
	return a.model
}

// Analyze sends a WAV recording with the rehearsal context and decodes the
// critique. Empty audio is rejected without a request.
func (a *Analyzer) Analyze(ctx context.Context, wav []byte, scenario coach.Scenario, style coach.LeadershipStyle) (coach.SpeechAnalysis, error) {
	if len(wav) <= wavHeaderBytes {
		return coach.SpeechAnalysis{}, failure.New(failure.EmptyCapture, "analyze", errors.New("recording has no audio"))
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: wavMIMEType, Data: wav}},
			{Text: coach.Prompt(scenario, style)},
		},
	}}

	resp, err := a.models.GenerateContent(ctx, a.model, contents, analysisConfig())
	if err != nil {
		return coach.SpeechAnalysis{}, failure.New(failure.AnalysisFailure, "analyze", describeAPIError(err))
	}

	analysis, err := decodeAnalysis(responseText(resp))
	if err != nil {
		return coach.SpeechAnalysis{}, failure.New(failure.AnalysisFailure, "decode analysis", err)
	}
	return analysis, nil
}

const wavHeaderBytes = 44

func analysisConfig() *genai.GenerateContentConfig {
	budget := int32(0)
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
		ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
}

func analysisSchema() *genai.Schema {
	text := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	list := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transcript":          text("Verbatim transcription of the speech."),
			"overallScore":        {Type: genai.TypeNumber, Description: "Overall score from 0 to 100."},
			"leadershipAlignment": text("How well the delivery matches the target leadership style."),
			"strengths":           list("What the speaker did well."),
			"improvements":        list("Concrete delivery improvements."),
			"suggestedPoints":     list("Talking points worth adding."),
			"toneAnalysis":        text("Description of the delivery tone."),
			"metrics": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"label":    {Type: genai.TypeString},
						"score":    {Type: genai.TypeNumber},
						"feedback": {Type: genai.TypeString},
					},
					Required: []string{"label", "score", "feedback"},
				},
			},
		},
		Required: []string{
			"transcript", "overallScore", "leadershipAlignment", "strengths",
			"improvements", "suggestedPoints", "toneAnalysis", "metrics",
		},
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func decodeAnalysis(raw string) (coach.SpeechAnalysis, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	if strings.TrimSpace(raw) == "" {
		return coach.SpeechAnalysis{}, errors.New("empty response")
	}

	var analysis coach.SpeechAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return coach.SpeechAnalysis{}, fmt.Errorf("parse response: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return coach.SpeechAnalysis{}, err
	}
	return analysis, nil
}

func describeAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini %d %s: %s: %w", apiErr.Code, apiErr.Status, apiErr.Message, err)
	}
	return err
}
