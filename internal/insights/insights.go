package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	// ErrUnavailable indicates the OpenAI service is not configured.
	ErrUnavailable = errors.New("OpenAI service unavailable")
	// ErrRequest indicates an error during the OpenAI API request.
	ErrRequest = errors.New("OpenAI request failed")
	// ErrResponse indicates an error parsing the OpenAI response.
	ErrResponse = errors.New("failed to parse OpenAI response")
)

const systemPrompt = `You are an assistant that narrates simulated weekly health data.

You receive aggregated sleep and step metrics for one simulated week of a single person. The data is synthetic; never treat it as real measurements.

Your goals:
- Summarize the week's sleep and activity in clear, neutral language.
- Point out the notable days (shortest and longest nights, most and least active days).
- Mention weekday/weekend contrast when it is visible in the numbers.

Rules:
- Do NOT provide medical advice or diagnoses.
- Do NOT mention diseases, disorders, doctors, or treatment.
- Be concise and concrete; quote the actual numbers.

You must respond as strict JSON with exactly this shape:

{
  "headline": "one short sentence capturing the week",
  "narrative": "2-4 sentences walking through the week's sleep and steps",
  "notes": [
    "2-5 bullet points naming specific days and numbers"
  ]
}

No extra fields. No comments. No backticks.`

const userPromptTemplate = `Here is JSON describing one simulated week.

- "days" holds per-day totals: sleep hours, step count, weekday name.
- "total_sleep_hours" and "total_steps" are the week aggregates.

JSON:

%s

Based on this data, respond in the required JSON format.`

// weekDigest is the compact per-week view handed to the model.
type weekDigest struct {
	WeekStart       string      `json:"week_start"`
	Days            []dayDigest `json:"days"`
	TotalSleepHours float64     `json:"total_sleep_hours"`
	TotalSteps      int         `json:"total_steps"`
}

type dayDigest struct {
	Date       string  `json:"date"`
	Weekday    string  `json:"weekday"`
	SleepHours float64 `json:"sleep_hours"`
	Steps      int     `json:"steps"`
}

// Summarizer generates a narrative description of a weekly package.
type Summarizer interface {
	Summarize(ctx context.Context, pkg *domain.WeeklyPackage) (*domain.WeeklySummary, error)
}

// OpenAIClient implements Summarizer using the OpenAI API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a client for weekly narratives.
// Returns nil if apiKey is empty.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if apiKey == "" {
		return nil
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIClient{
		client: client,
		model:  model,
	}
}

// Summarize calls OpenAI to narrate one generated week.
func (c *OpenAIClient) Summarize(ctx context.Context, pkg *domain.WeeklyPackage) (*domain.WeeklySummary, error) {
	if c == nil {
		return nil, ErrUnavailable
	}

	digestJSON, err := json.MarshalIndent(digest(pkg), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize digest: %v", ErrRequest, err)
	}

	userPrompt := fmt.Sprintf(userPromptTemplate, string(digestJSON))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrResponse)
	}

	content := resp.Choices[0].Message.Content

	var out domain.WeeklySummary
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}

	return &out, nil
}

func digest(pkg *domain.WeeklyPackage) weekDigest {
	d := weekDigest{
		WeekStart:       pkg.WeekStart.Format("2006-01-02"),
		TotalSleepHours: pkg.TotalSleepHours,
		TotalSteps:      pkg.TotalSteps,
	}
	for i := range pkg.Days {
		day := &pkg.Days[i]
		dd := dayDigest{
			Date:    day.Date.Format("2006-01-02"),
			Weekday: day.Date.Weekday().String(),
		}
		if day.Sleep != nil {
			dd.SleepHours = round1(day.Sleep.Hours())
		}
		if day.Steps != nil {
			dd.Steps = day.Steps.Total()
		}
		d.Days = append(d.Days, dd)
	}
	return d
}

func round1(h float64) float64 {
	return float64(int(h*10+0.5)) / 10
}
