// Package categorize asks a generative model to file merchants under the
// vault's category vocabulary. Answers outside the vocabulary are rejected.
package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrUnknownCategory is returned when the model answers with a name that is
// not in the vocabulary.
var ErrUnknownCategory = errors.New("model returned a category outside the vocabulary")

// Model generates a text answer for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Suggester proposes categories for merchants.
type Suggester struct {
	model Model
	log   zerolog.Logger
}

// NewSuggester creates a suggester over model.
func NewSuggester(model Model, log zerolog.Logger) *Suggester {
	return &Suggester{model: model, log: log}
}

// Suggest returns the category name, exactly as spelled in categories,
// that best fits merchant for a transaction of type t.
func (s *Suggester) Suggest(ctx context.Context, merchant string, t domain.TransactionType, categories []domain.Category) (string, error) {
	got, err := s.SuggestMany(ctx, []string{merchant}, t, categories)
	if err != nil {
		return "", err
	}
	name, ok := got[merchant]
	if !ok {
		return "", fmt.Errorf("Suggest: %q: %w", merchant, ErrUnknownCategory)
	}
	return name, nil
}

// SuggestMany categorises several merchants with one model call. Merchants
// the model skipped or filed under an unknown name are left out of the
// result and logged.
func (s *Suggester) SuggestMany(ctx context.Context, merchants []string, t domain.TransactionType, categories []domain.Category) (map[string]string, error) {
	vocab := vocabulary(categories, t)
	if len(vocab) == 0 {
		return nil, fmt.Errorf("SuggestMany: no %s categories to choose from", t)
	}
	merchants = uniqueMerchants(merchants)
	if len(merchants) == 0 {
		return map[string]string{}, nil
	}

	raw, err := s.model.Generate(ctx, buildPrompt(merchants, t, vocab))
	if err != nil {
		return nil, fmt.Errorf("SuggestMany: generate content: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("SuggestMany: empty response from model")
	}

	var answers map[string]string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answers); err != nil {
		return nil, fmt.Errorf("SuggestMany: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	byKey := make(map[string]string, len(vocab))
	for _, name := range vocab {
		byKey[normalize(name)] = name
	}

	out := make(map[string]string, len(merchants))
	for _, m := range merchants {
		answer, ok := answers[m]
		if !ok {
			s.log.Debug().Str("merchant", m).Msg("model skipped merchant")
			continue
		}
		name, ok := byKey[normalize(answer)]
		if !ok {
			s.log.Warn().Str("merchant", m).Str("answer", answer).Msg("model answer outside vocabulary")
			continue
		}
		out[m] = name
	}
	return out, nil
}

// vocabulary lists the category names usable for t. Transfer is reserved
// for linked transfers and never suggested.
func vocabulary(categories []domain.Category, t domain.TransactionType) []string {
	var names []string
	for _, c := range domain.CategoriesFor(categories, t) {
		if c.Name == domain.TransferCategory {
			continue
		}
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

func buildPrompt(merchants []string, t domain.TransactionType, vocab []string) string {
	var b strings.Builder
	b.WriteString("You categorise personal finance transactions.\n\n")
	fmt.Fprintf(&b, "Every merchant below appears on a %s transaction.\n", t)
	b.WriteString("Use ONLY the following categories:\n")
	for _, name := range vocab {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\nMerchants:\n")
	for _, m := range merchants {
		b.WriteString("  - " + m + "\n")
	}
	b.WriteString("\nRules:\n")
	b.WriteString("1. Category must be EXACTLY one of the names shown above.\n")
	b.WriteString("2. Use each merchant string verbatim as a key.\n")
	b.WriteString("3. If you are unsure about a merchant, leave it out.\n\n")
	b.WriteString("Return ONLY a raw JSON object mapping merchant to category.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")
	return b.String()
}

func uniqueMerchants(merchants []string) []string {
	seen := make(map[string]bool, len(merchants))
	var out []string
	for _, m := range merchants {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
