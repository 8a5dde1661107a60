// Package tokens estimates how many tokens a text costs a language model.
//
// The default Heuristic estimator is a crude, deterministic proxy used for
// savings figures. Tiktoken runs a real BPE tokenizer and is opt-in.
package tokens

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator names accepted by New.
const (
	KindHeuristic = "heuristic"
	KindTiktoken  = "tiktoken"
)

// DefaultModel is the tokenizer model used when none is configured.
const DefaultModel = "gpt-4o"

// Estimator counts tokens in text.
type Estimator interface {
	Estimate(text string) int
	Name() string
}

// New returns the estimator for kind. An empty kind selects the heuristic.
func New(kind, model string) (Estimator, error) {
	switch kind {
	case "", KindHeuristic:
		return Heuristic{}, nil
	case KindTiktoken:
		return NewTiktoken(model)
	default:
		return nil, fmt.Errorf("unknown estimator %q (want %s or %s)", kind, KindHeuristic, KindTiktoken)
	}
}

// Heuristic counts whitespace-delimited words plus every character that is
// neither a word character (letter, number, underscore) nor whitespace.
type Heuristic struct{}

// Name implements Estimator.
func (Heuristic) Name() string { return KindHeuristic }

// Estimate implements Estimator.
func (Heuristic) Estimate(text string) int {
	count := len(strings.FieldsFunc(text, isSpace))
	for _, r := range text {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || isSpace(r) {
			continue
		}
		count++
	}
	return count
}

// isSpace extends unicode.IsSpace with the U+001C..U+001F information
// separators, which also split words.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Tiktoken counts tokens with a BPE codec.
type Tiktoken struct {
	codec tokenizer.Codec
}

// NewTiktoken selects the codec for model, falling back to cl100k_base
// for models the tokenizer does not know.
func NewTiktoken(model string) (*Tiktoken, error) {
	if model == "" {
		model = DefaultModel
	}
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil, fmt.Errorf("failed to get fallback tokenizer: %w", err)
		}
	}
	return &Tiktoken{codec: codec}, nil
}

// Name implements Estimator.
func (t *Tiktoken) Name() string { return KindTiktoken }

// Estimate implements Estimator. Encoding failures fall back to the
// heuristic so callers always get a count.
func (t *Tiktoken) Estimate(text string) int {
	if text == "" {
		return 0
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return Heuristic{}.Estimate(text)
	}
	return len(ids)
}
