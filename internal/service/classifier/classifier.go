// Package classifier asks the language model whether a message is a feature
// request, extracts its structure and writes draft replies.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/llm"
	"feedback-relay-go/internal/model"
)

const (
	defaultTitle      = "Untitled Feature Request"
	maxTitleRunes     = 100
	fallbackDescRunes = 500

	classifyTokens = 10
	extractTokens  = 1000
	draftTokens    = 600
)

// ErrNoJSON is returned when the extraction reply contains no parseable object
var ErrNoJSON = errors.New("no JSON object in model reply")

// ErrEmptyDraft is returned when the model produced an empty draft
var ErrEmptyDraft = errors.New("model returned an empty draft")

// DraftRequest carries what the model needs to write a status reply
type DraftRequest struct {
	CustomerName  *string
	FeatureTitle  string
	FeatureStatus model.RequestStatus
	ProductName   string
	Subject       string
}

// Service wraps a Completer with the pipeline prompts
type Service struct {
	llm llm.Completer
}

// New creates a classification service
func New(c llm.Completer) *Service {
	return &Service{llm: c}
}

// IsFeatureRequest returns true only when the model answers "yes". A model
// error is returned alongside false so callers can tell the cases apart.
func (s *Service) IsFeatureRequest(ctx context.Context, text string) (bool, error) {
	prompt := `Analyze this message and determine if it contains a feature request, product improvement suggestion, enhancement request, or actionable user feedback.

Reply with ONLY "yes" or "no".

Message:
` + text

	reply, err := s.llm.Complete(ctx, prompt, classifyTokens)
	if err != nil {
		return false, fmt.Errorf("failed to classify message: %w", err)
	}
	return isYes(reply), nil
}

// ExtractFeatureRequest parses the structured request out of the model reply
func (s *Service) ExtractFeatureRequest(ctx context.Context, text string) (*model.ExtractedRequest, error) {
	prompt := `Extract the feature request from this message and return it as JSON.

Return ONLY valid JSON in this exact format:
{
  "title": "Brief, descriptive title (max 100 chars)",
  "description": "Detailed description of what the user wants",
  "category": "one of: feature, improvement, bug, integration, ux, performance, documentation, other",
  "sentiment": "one of: positive, neutral, negative (the sentiment of the feedback)"
}

Message:
` + text

	reply, err := s.llm.Complete(ctx, prompt, extractTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to extract feature request: %w", err)
	}
	return parseExtraction(reply, text)
}

// GenerateDraftReply writes a short customer-facing status update
func (s *Service) GenerateDraftReply(ctx context.Context, req DraftRequest) (string, error) {
	greeting := "the customer"
	if req.CustomerName != nil && strings.TrimSpace(*req.CustomerName) != "" {
		greeting = strings.TrimSpace(*req.CustomerName)
	}

	prompt := fmt.Sprintf(`Write a short, friendly email reply on behalf of the %s team to %s, who asked about a feature.

Feature: %s
Current status: %s
Original subject: %s

Acknowledge the request and explain the current status in plain language.
Do not mention vote counts, request counts, priority, or any other internal metrics.
Do not promise delivery dates.
Return only the body of the email, without a subject line.`,
		req.ProductName, greeting, req.FeatureTitle, statusPhrase(req.FeatureStatus), req.Subject)

	reply, err := s.llm.Complete(ctx, prompt, draftTokens)
	if err != nil {
		return "", fmt.Errorf("failed to generate draft reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyDraft
	}
	return reply, nil
}

func statusPhrase(s model.RequestStatus) string {
	switch s {
	case model.StatusUntriaged:
		return "received, not yet reviewed"
	case model.StatusReviewing:
		return "under review"
	case model.StatusPlanned:
		return "planned"
	case model.StatusInProgress:
		return "in progress"
	case model.StatusCompleted:
		return "completed"
	case model.StatusRejected:
		return "not planned"
	}
	return string(s)
}

func isYes(reply string) bool {
	answer := strings.ToLower(strings.TrimSpace(reply))
	answer = strings.TrimRight(answer, ".!?,;: \t\n")
	return answer == "yes"
}

type extraction struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Sentiment   string `json:"sentiment"`
}

func parseExtraction(reply, source string) (*model.ExtractedRequest, error) {
	obj, ok := firstJSONObject(reply)
	if !ok {
		logrus.WithField("reply", truncate(reply, 200)).Warn("No JSON object found in extraction reply")
		return nil, ErrNoJSON
	}

	var e extraction
	if err := json.Unmarshal([]byte(obj), &e); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	title := truncate(strings.TrimSpace(e.Title), maxTitleRunes)
	if title == "" {
		title = defaultTitle
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = truncate(source, fallbackDescRunes)
	}

	return &model.ExtractedRequest{
		Title:       title,
		Description: desc,
		Category:    model.ParseCategory(strings.ToLower(strings.TrimSpace(e.Category))),
		Sentiment:   model.ParseSentiment(strings.ToLower(strings.TrimSpace(e.Sentiment))),
	}, nil
}

// firstJSONObject returns the first balanced {...} span, skipping braces that
// appear inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
