// Package ner implements the pii.RecognitionModel capability on top of an
// OpenAI-compatible chat endpoint (a local Ollama instance by default).
//
// The model is prompted to return labeled entity mentions as strict JSON;
// offsets are then located in the source text here rather than trusted from
// the model, since language models are unreliable about character positions.
// Recognize is synchronous with no internal timeout; callers needing bounded
// latency wrap the call with a context deadline.
package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/dativo-io/guardian/pii"
)

const systemPrompt = `You are a named-entity recognizer. Extract every entity mention from the user's text.
Respond with ONLY a JSON object of the form:
{"entities":[{"label":"PERSON","text":"John Smith"}]}
Allowed labels: PERSON, GPE, LOC, ORG, DATE, MONEY, CARDINAL.
Copy each mention's text exactly as it appears. Return {"entities":[]} when there are none.`

// Client talks to an OpenAI-compatible chat endpoint.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a recognizer client for an OpenAI-compatible endpoint. For a
// local Ollama instance pass its /v1 base URL; the API key is unused there
// but the SDK requires one.
func New(baseURL, model string) *Client {
	cfg := openai.DefaultConfig("guardian")
	cfg.BaseURL = baseURL
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

type modelResponse struct {
	Entities []modelEntity `json:"entities"`
}

type modelEntity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Recognize implements pii.RecognitionModel. Spans are located in text by
// exact-match search; a mention the model invented (not present verbatim in
// the text) is dropped with a debug log.
func (c *Client) Recognize(ctx context.Context, text string) ([]pii.ModelSpan, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recognition model call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("recognition model returned no choices")
	}

	var parsed modelResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing recognition model output: %w", err)
	}

	return locateSpans(text, parsed.Entities), nil
}

// locateSpans resolves each mention to character offsets. Repeated mentions
// of the same text each claim the next unclaimed occurrence, left to right.
func locateSpans(text string, entities []modelEntity) []pii.ModelSpan {
	next := make(map[string]int)
	var spans []pii.ModelSpan

	for _, ent := range entities {
		if ent.Text == "" {
			continue
		}
		from := next[ent.Text]
		idx := strings.Index(text[from:], ent.Text)
		if idx < 0 {
			// Fall back to the first occurrence before giving up; the model
			// may repeat a mention more times than it occurs.
			idx = strings.Index(text, ent.Text)
			if idx < 0 {
				log.Debug().Str("mention", ent.Text).Msg("model mention not found in text; dropped")
				continue
			}
			from = 0
		}
		start := from + idx
		end := start + len(ent.Text)
		next[ent.Text] = end

		spans = append(spans, pii.ModelSpan{
			Label: ent.Label,
			Text:  ent.Text,
			Start: start,
			End:   end,
		})
	}
	return spans
}
