// Package llmtest provides a scripted Completer for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Rule answers prompts containing Match
type Rule struct {
	Match string
	Reply string
	Err   error
	// Hook runs before the reply is returned
	Hook func()
}

// Fake answers each prompt with the first rule whose Match is a substring of
// the prompt. Unmatched prompts fail.
type Fake struct {
	mu      sync.Mutex
	rules   []Rule
	prompts []string
}

// New creates a fake with the given rules
func New(rules ...Rule) *Fake {
	return &Fake{rules: rules}
}

// On appends a rule
func (f *Fake) On(match, reply string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, Rule{Match: match, Reply: reply})
	return f
}

// OnCall appends a rule that runs hook and then replies
func (f *Fake) OnCall(match, reply string, hook func()) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, Rule{Match: match, Reply: reply, Hook: hook})
	return f
}

// Fail appends a rule that returns err
func (f *Fake) Fail(match string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, Rule{Match: match, Err: err})
	return f
}

func (f *Fake) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range f.rules {
		if strings.Contains(prompt, r.Match) {
			if r.Hook != nil {
				r.Hook()
			}
			return r.Reply, r.Err
		}
	}
	return "", fmt.Errorf("llmtest: no rule for prompt %q", firstLine(prompt))
}

// Calls returns how many prompts were sent
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of the prompts sent so far
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
