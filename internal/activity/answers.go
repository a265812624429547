// internal/activity/answers.go
package activity

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Question is what a quiz shows: its prompt and the option labels in
// display order.
type Question struct {
	Text    string
	Options []string
}

// AnswerStrategy picks the option to select. It returns an index into
// q.Options.
type AnswerStrategy interface {
	Choose(ctx context.Context, q Question) (int, error)
}

// FirstOption always selects the first listed option.
type FirstOption struct{}

func (FirstOption) Choose(_ context.Context, q Question) (int, error) {
	if len(q.Options) == 0 {
		return 0, ErrNoOptions
	}
	return 0, nil
}

// AnswerTable looks up the option label by question text. Unknown
// questions and labels that match no option go to the fallback strategy.
type AnswerTable struct {
	answers  map[string]string
	fallback AnswerStrategy
}

// NewAnswerTable builds a table from question → option label pairs.
// fallback defaults to FirstOption.
func NewAnswerTable(answers map[string]string, fallback AnswerStrategy) *AnswerTable {
	if fallback == nil {
		fallback = FirstOption{}
	}
	t := &AnswerTable{answers: make(map[string]string, len(answers)), fallback: fallback}
	for q, a := range answers {
		t.answers[normalize(q)] = a
	}
	return t
}

// LoadAnswerTable reads a YAML mapping of question text to option label.
func LoadAnswerTable(path string, fallback AnswerStrategy) (*AnswerTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers file: %w", err)
	}
	var answers map[string]string
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers file %s: %w", path, err)
	}
	return NewAnswerTable(answers, fallback), nil
}

// Len returns the number of known questions.
func (t *AnswerTable) Len() int { return len(t.answers) }

func (t *AnswerTable) Choose(ctx context.Context, q Question) (int, error) {
	if want, ok := t.answers[normalize(q.Text)]; ok {
		want = normalize(want)
		for i, opt := range q.Options {
			if normalize(opt) == want {
				return i, nil
			}
		}
		for i, opt := range q.Options {
			if strings.Contains(normalize(opt), want) {
				return i, nil
			}
		}
	}
	return t.fallback.Choose(ctx, q)
}

// normalize lowercases s and collapses whitespace.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
