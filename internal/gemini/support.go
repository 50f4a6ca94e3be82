package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nutcracker-app/nutcracker/internal/support"
)

const classifyPrompt = `You triage support messages for a small holiday image app where visitors
generate pictures of animals and vote between them. Classify the message.

Reply with strict JSON only, no markdown:
{"type":"bug"|"feedback"|"question"|"invalid","component":"<one lowercase word or empty>","severity":"P1"|"P2"|"P3"|"P4","title":"<short issue title or empty>","confidence":<0.0-1.0>}

"invalid" means spam or off-topic for this app. Severity P1 means the app is
unusable, P4 a cosmetic nit.

Page: %s
Message: %s`

const answerPrompt = `You are the friendly in-app helper for a small holiday image app where
visitors generate pictures of animals (bear, hippo, lion, panda, whale) and
vote between pairs. Creations are limited to 24 per day and reset at UTC
midnight. Answer the visitor's question briefly and warmly, in plain text.

Page: %s
Question: %s`

// Classify triages a support message with the chat model.
func (c *Client) Classify(ctx context.Context, message, pageContext string) (*support.Classification, error) {
	resp, err := c.generateContent(ctx, c.cfg.ChatModel, generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(classifyPrompt, pageContext, message)}}}},
	})
	if err != nil {
		return nil, err
	}

	raw := stripFences(firstText(resp))
	var parsed struct {
		Type       string  `json:"type"`
		Component  string  `json:"component"`
		Severity   string  `json:"severity"`
		Title      string  `json:"title"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parsing classification %q: %w", raw, err)
	}

	result := &support.Classification{
		Type:       parsed.Type,
		Component:  strings.ToLower(strings.TrimSpace(parsed.Component)),
		Severity:   parseSeverity(parsed.Severity),
		Title:      strings.TrimSpace(parsed.Title),
		Confidence: min(max(parsed.Confidence, 0), 1),
	}
	switch result.Type {
	case support.TypeBug, support.TypeFeedback, support.TypeQuestion, support.TypeInvalid:
	default:
		return nil, fmt.Errorf("unknown classification type %q", parsed.Type)
	}
	return result, nil
}

// Answer responds to a question-type message with the chat model.
func (c *Client) Answer(ctx context.Context, message, pageContext string) (string, error) {
	resp, err := c.generateContent(ctx, c.cfg.ChatModel, generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(answerPrompt, pageContext, message)}}}},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(firstText(resp))
	if text == "" {
		return "", fmt.Errorf("empty answer response")
	}
	return text, nil
}

func parseSeverity(s string) support.Tier {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P1":
		return support.TierP1
	case "P2":
		return support.TierP2
	case "P3":
		return support.TierP3
	default:
		return support.TierP4
	}
}

// stripFences removes a markdown code fence the model sometimes wraps JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
