// Package matcher decides whether an extracted request duplicates an existing one.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"feedback-relay-go/internal/llm"
	"feedback-relay-go/internal/model"
)

const (
	DefaultCandidateLimit = 50
	descriptionRunes      = 200
	matchTokens           = 10
)

// CandidateStore loads the requests a new one may be matched against
type CandidateStore interface {
	ListMatchCandidates(ctx context.Context, productID string, limit int) ([]model.FeatureRequest, error)
}

// Matcher compares new requests with a product's existing ones
type Matcher struct {
	store CandidateStore
	llm   llm.Completer
	limit int
}

// New creates a matcher. A non-positive limit falls back to DefaultCandidateLimit.
func New(store CandidateStore, c llm.Completer, limit int) *Matcher {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &Matcher{store: store, llm: c, limit: limit}
}

type candidate struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FindMatch returns the matching request, or nil when there is none
func (m *Matcher) FindMatch(ctx context.Context, productID string, req *model.ExtractedRequest) (*model.FeatureRequest, error) {
	existing, err := m.store.ListMatchCandidates(ctx, productID, m.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load match candidates: %w", err)
	}
	if len(existing) == 0 {
		return nil, nil
	}

	list := make([]candidate, len(existing))
	for i, fr := range existing {
		list[i] = candidate{Index: i, Title: fr.Title, Description: truncate(fr.Description, descriptionRunes)}
	}
	listJSON, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode match candidates: %w", err)
	}

	prompt := fmt.Sprintf(`You are matching feature requests. Determine if the new request is essentially the same as any existing request.

New request:
Title: %s
Description: %s

Existing requests:
%s

If the new request matches an existing one (same core feature, just worded differently), respond with ONLY the index number (0-based).
If there is no match, respond with ONLY "none".

Your response:`, req.Title, req.Description, listJSON)

	reply, err := m.llm.Complete(ctx, prompt, matchTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to match feature request: %w", err)
	}

	idx, ok := parseIndex(reply, len(existing))
	if !ok {
		return nil, nil
	}
	match := existing[idx]
	return &match, nil
}

func parseIndex(reply string, n int) (int, bool) {
	answer := strings.ToLower(strings.TrimSpace(reply))
	answer = strings.TrimRight(answer, ".")
	if answer == "none" {
		return 0, false
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
