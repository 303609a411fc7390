// Package ai calls an OpenAI-compatible chat API to assess tasks. The rest of
// the system treats the result as opaque enrichment: scoring engines work
// without it.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mukkelmaus/Flox/internal/models"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

func New(apiKey, model string) *Client {
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

const assessPrompt = `You are a task analysis assistant. Given a task title and description,
respond with a JSON object only, no prose:
{"complexity_score": <float 0-5>, "energy_level": "low"|"medium"|"high", "suggestions": [<up to 3 short strings>]}`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type assessmentPayload struct {
	ComplexityScore float64  `json:"complexity_score"`
	EnergyLevel     string   `json:"energy_level"`
	Suggestions     []string `json:"suggestions"`
}

// AssessTask asks the model for a complexity score, energy level and
// suggestions for one task.
func (c *Client) AssessTask(ctx context.Context, title, description string) (models.TaskAssessment, error) {
	user := fmt.Sprintf("Title: %s\nDescription: %s", title, description)
	body := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: assessPrompt},
			{Role: "user", Content: user},
		},
	}
	body.ResponseFormat = &struct {
		Type string `json:"type"`
	}{Type: "json_object"}

	raw, err := json.Marshal(body)
	if err != nil {
		return models.TaskAssessment{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return models.TaskAssessment{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return models.TaskAssessment{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.TaskAssessment{}, fmt.Errorf("chat request: status %d: %s", resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.TaskAssessment{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return models.TaskAssessment{}, fmt.Errorf("chat response has no choices")
	}
	return parseAssessment(parsed.Choices[0].Message.Content)
}

func parseAssessment(content string) (models.TaskAssessment, error) {
	// Some models wrap JSON in a code fence despite instructions.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload assessmentPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return models.TaskAssessment{}, fmt.Errorf("parse assessment: %w", err)
	}

	score := payload.ComplexityScore
	if score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}
	energy := models.EnergyLevel(payload.EnergyLevel)
	switch energy {
	case models.EnergyLow, models.EnergyMedium, models.EnergyHigh:
	default:
		energy = models.EnergyMedium
	}

	suggestions, err := json.Marshal(payload.Suggestions)
	if err != nil {
		return models.TaskAssessment{}, err
	}
	return models.TaskAssessment{
		ComplexityScore: score,
		EnergyLevel:     energy,
		SuggestionsJSON: suggestions,
	}, nil
}
