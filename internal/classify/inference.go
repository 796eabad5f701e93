package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nagarseva/nagarseva/internal/lexicon"
)

// OpenAIClassifier asks an OpenAI chat model to pick a department. It
// implements InferenceClient; the engine bounds every call with a timeout
// and treats failures as a zero signal.
type OpenAIClassifier struct {
	client      *openai.Client
	model       string
	departments []lexicon.Department
}

// NewOpenAIClassifier creates a classifier restricted to the lexicon's
// departments.
func NewOpenAIClassifier(apiKey, model string, lex *lexicon.Lexicon) *OpenAIClassifier {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClassifier{
		client:      openai.NewClient(apiKey),
		model:       model,
		departments: lex.Departments(),
	}
}

type inferenceAnswer struct {
	Department string  `json:"department"`
	Confidence float64 `json:"confidence"`
}

// Classify sends the complaint text to the model and parses a JSON answer.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (lexicon.Department, float64, error) {
	names := make([]string, len(c.departments))
	for i, d := range c.departments {
		names[i] = string(d)
	}

	system := fmt.Sprintf(
		"You classify municipal citizen complaints into exactly one department. "+
			"Valid departments: %s. Respond with JSON only, in the form "+
			`{"department": "<department>", "confidence": <0.0-1.0>}.`,
		strings.Join(names, ", "))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: 60,
	})
	if err != nil {
		return "", 0, fmt.Errorf("inference request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("inference request: empty response")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.Trim(raw, "` \n")

	var answer inferenceAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return "", 0, fmt.Errorf("inference answer %q: %w", raw, err)
	}

	dept := lexicon.Department(strings.ToLower(strings.TrimSpace(answer.Department)))
	for _, d := range c.departments {
		if d == dept {
			return dept, answer.Confidence, nil
		}
	}
	return "", 0, fmt.Errorf("inference answer names unknown department %q", answer.Department)
}
