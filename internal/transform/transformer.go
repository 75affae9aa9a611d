// Package transform turns retrieved plan content into a human-friendly
// answer anchored to a specific page section.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"go.uber.org/zap"
)

// Model is the chat model used for answer generation.
const Model = openai.ChatModelGPT4oMini

// FallbackAnswer is returned when generation fails or the model response is
// malformed. The conversational UI must always get something to show.
const FallbackAnswer = "Sorry, I encountered an error processing this information."

// Metadata locates the retrieved content on the site.
type Metadata struct {
	URL        string
	Category   string
	SectionIDs []string
}

// Result is a generated answer with its source information.
type Result struct {
	Answer      string
	Source      string
	TargetURL   string // Source URL plus "#<best_section>" when one was picked
	BestSection string // Empty when no section was relevant
	Category    string
}

// modelResponse is the strict JSON shape the model must return.
type modelResponse struct {
	Answer      string  `json:"answer"`
	BestSection *string `json:"best_section"`
}

// Transformer generates answers from retrieved content.
type Transformer struct {
	client *openai.Client
	logger *zap.Logger
}

// NewTransformer creates a Transformer with the given OpenAI client.
func NewTransformer(client *openai.Client, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		client: client,
		logger: logger,
	}
}

// Transform generates a human-friendly answer for the query from the
// retrieved markdown content. Generation failures and malformed model
// responses degrade to a canned answer instead of an error - the caller
// always gets a well-formed Result.
func (t *Transformer) Transform(ctx context.Context, query, content string, meta Metadata) Result {
	prompt := buildPrompt(query, content, meta)

	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: Model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		t.logger.Warn("answer generation failed", zap.Error(err))
		return fallbackResult(meta)
	}

	parsed, err := parseModelResponse(resp.Choices[0].Message.Content)
	if err != nil {
		t.logger.Warn("answer generation returned malformed JSON", zap.Error(err))
		return fallbackResult(meta)
	}

	bestSection := ""
	if parsed.BestSection != nil {
		bestSection = *parsed.BestSection
	}

	targetURL := meta.URL
	if bestSection != "" && containsSection(meta.SectionIDs, bestSection) {
		targetURL = meta.URL + "#" + bestSection
	}

	return Result{
		Answer:      parsed.Answer,
		Source:      meta.URL,
		TargetURL:   targetURL,
		BestSection: bestSection,
		Category:    meta.Category,
	}
}

// parseModelResponse strips any code fencing the model wrapped around its
// output and unmarshals the strict {answer, best_section} contract.
func parseModelResponse(raw string) (*modelResponse, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed modelResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Answer == "" {
		return nil, fmt.Errorf("response missing answer field")
	}
	return &parsed, nil
}

func fallbackResult(meta Metadata) Result {
	return Result{
		Answer:    FallbackAnswer,
		Source:    meta.URL,
		TargetURL: meta.URL,
		Category:  meta.Category,
	}
}

func containsSection(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}

func buildPrompt(query, content string, meta Metadata) string {
	sectionList := "(none available)"
	if len(meta.SectionIDs) > 0 {
		var b strings.Builder
		for _, id := range meta.SectionIDs {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		sectionList = strings.TrimRight(b.String(), "\n")
	}

	return fmt.Sprintf(`You are a helpful customer service assistant for a telecommunications company.

A user asked: %q

Here is the retrieved content from our knowledge base:

---
%s
---

Source URL: %s
Category: %s

Available page sections (anchor IDs):
%s

Your task:
1. Analyze if the retrieved content is relevant to the user's question
2. Extract and present relevant information in a clear, conversational way
3. If specific details are missing, say so, but try to be helpful with what's available
4. Maintain a friendly, professional tone
5. Keep your response concise but informative

Respond in valid JSON with exactly these two fields:
{"answer": "Your helpful response here...", "best_section": "the_most_relevant_section_id_or_null"}

For "best_section", pick the MOST RELEVANT section ID from the available list
that matches the user's question intent (pricing questions prefer "plans" or
"pricing", feature questions prefer "benefits", how-to questions prefer "faq").
If no section is relevant or none are available, use null.`,
		query, content, meta.URL, meta.Category, sectionList)
}
