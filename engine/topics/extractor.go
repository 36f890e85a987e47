// Package topics assigns topic labels to transcripts with a single model
// call per batch. Labelling is batched across every transcript of an
// invocation, not per file; a save run with several clips shares one call.
package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"clipindex/engine/domain"
)

const (
	// MaxLabels caps the labels kept per transcript.
	MaxLabels = 5
	// excerptRunes bounds how much of each transcript goes into the prompt.
	excerptRunes = 4000
)

// Words too generic to be useful labels.
var stopWords = map[string]bool{
	"is": true, "of": true, "for": true, "the": true, "a": true, "an": true,
	"are": true, "in": true, "on": true, "at": true, "and": true, "to": true,
}

const systemPrompt = `You label transcripts with topics. You are given numbered transcripts.
Reply with a JSON array containing one array of short lowercase topic labels per transcript,
in the same order, at most five labels each. Reply with JSON only, no prose.`

// chatAPI is the slice of the hosted client the extractor needs.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor labels transcripts via the chat completion API.
type Extractor struct {
	api    chatAPI
	model  string
	logger *slog.Logger
}

// New creates an Extractor. An empty model selects the default.
func New(api chatAPI, model string, logger *slog.Logger) *Extractor {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{api: api, model: model, logger: logger}
}

// ExtractAll labels every transcript in one model call and returns one label
// list per transcript, in input order.
func (e *Extractor) ExtractAll(ctx context.Context, transcripts []domain.Transcript) ([][]string, error) {
	if len(transcripts) == 0 {
		return nil, nil
	}

	var prompt strings.Builder
	for i, t := range transcripts {
		fmt.Fprintf(&prompt, "Transcript %d:\n%s\n\n", i+1, excerpt(t.Text, excerptRunes))
	}

	e.logger.Info("extracting topics", "transcripts", len(transcripts), "model", e.model)
	response, err := e.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("topics: chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("topics: empty completion response")
	}

	labels, err := parseLabels(response.Choices[0].Message.Content, len(transcripts))
	if err != nil {
		return nil, err
	}
	for i := range labels {
		labels[i] = cleanLabels(labels[i])
	}
	return labels, nil
}

// parseLabels decodes the model reply into n label lists. Replies wrapped in
// code fences or surrounded by prose are tolerated; a reply with the wrong
// count is padded or truncated to n.
func parseLabels(reply string, n int) ([][]string, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("topics: no JSON array in model reply")
	}

	var labels [][]string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &labels); err != nil {
		return nil, fmt.Errorf("topics: decode model reply: %w", err)
	}

	for len(labels) < n {
		labels = append(labels, nil)
	}
	return labels[:n], nil
}

// cleanLabels lowercases labels, drops stop words and empties, and caps the
// list at MaxLabels.
func cleanLabels(labels []string) []string {
	cleaned := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || stopWords[l] {
			continue
		}
		cleaned = append(cleaned, l)
		if len(cleaned) == MaxLabels {
			break
		}
	}
	return cleaned
}

// excerpt truncates text to at most n runes.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
