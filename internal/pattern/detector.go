// Package pattern finds long, structurally recognizable spans in text
// (URLs, emails, code, paths, JSON-like blobs, identifiers, versions,
// hashes, quoted strings) and resolves them into a single ordered,
// non-overlapping match sequence.
//
// Recognizers use the backtracking regexp2 engine so that \s, \d and \b
// are Unicode-aware: a URL ends at any Unicode space and word boundaries
// see accented letters and non-ASCII digits as word characters. Each
// pattern scan is bounded by MatchTimeout.
package pattern

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// DefaultMinLength is the shortest span (in characters) worth replacing.
const DefaultMinLength = 15

// MatchTimeout bounds a single recognizer scan. A scan that times out
// keeps the candidates it found before the deadline.
const MatchTimeout = 2 * time.Second

// recognizer pairs a content type with its compiled pattern.
type recognizer struct {
	typ ContentType
	re  *regexp2.Regexp
}

func compile(pattern string) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = MatchTimeout
	return re
}

// recognizers is the fixed, ordered pattern table. Order must follow
// the ContentType declaration order.
//
// \s in regexp2 omits the U+001C..U+001F separators, so the URL class
// lists them explicitly.
var recognizers = []recognizer{
	{URL, compile(`https?://[^\s\x1c-\x1f<>"{}|\\^` + "`" + `\[\]]+`)},
	{Email, compile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
	{CodeBlock, compile("```[\\s\\S]*?```")},
	{InlineCode, compile("`[^`\\n]+`")},
	{FilePath, compile(`(?:/[a-zA-Z0-9_.-]+)+/?|(?:[A-Z]:\\(?:[^\\/*?"<>|\r\n]+\\)*[^\\/*?"<>|\r\n]*)`)},
	{JSON, compile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)},
	{Identifier, compile(`\b[a-z]+(?:[A-Z][a-z]*){2,}\b|\b[a-z]+(?:_[a-z]+){2,}\b`)},
	{Version, compile(`\b\d+\.\d+\.\d+(?:-[a-zA-Z0-9]+)?\b`)},
	{Hash, compile(`\b[a-f0-9]{32,64}\b`)},
	{Quoted, compile(`"[^"]{20,}"`)},
}

// Match is a recognized span in the coordinate space of the input text.
// Start and End are byte offsets; Content == text[Start:End].
type Match struct {
	Type    ContentType `json:"content_type"`
	Start   int         `json:"start"`
	End     int         `json:"end"`
	Content string      `json:"content"`
}

// Len returns the match length in characters.
func (m Match) Len() int {
	return utf8.RuneCountInString(m.Content)
}

// Detector scans text with the recognizer table. It holds no mutable
// state and is safe for concurrent use.
type Detector struct {
	minLength int
	enabled   [len(contentTypeNames)]bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithTypes restricts detection to the given content types. Precedence
// still follows the declaration order, not the argument order.
func WithTypes(types ...ContentType) Option {
	return func(d *Detector) {
		d.enabled = [len(contentTypeNames)]bool{}
		for _, t := range types {
			if t.Valid() {
				d.enabled[t] = true
			}
		}
	}
}

// NewDetector creates a Detector. A non-positive minLength falls back to
// DefaultMinLength.
func NewDetector(minLength int, opts ...Option) *Detector {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	d := &Detector{minLength: minLength}
	for i := range d.enabled {
		d.enabled[i] = true
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MinLength returns the configured minimum match length.
func (d *Detector) MinLength() int {
	return d.minLength
}

// Types returns the enabled content types in precedence order.
func (d *Detector) Types() []ContentType {
	var types []ContentType
	for _, t := range AllContentTypes() {
		if d.enabled[t] {
			types = append(types, t)
		}
	}
	return types
}

// DetectAll returns the non-overlapping matches in text, ascending by
// start. Candidates shorter than the minimum length are dropped first.
// Overlaps are resolved greedily: after sorting by (start asc, end desc)
// a candidate is kept only if it starts at or after the end of the last
// kept one. The sort is stable, so exact ties keep precedence order.
func (d *Detector) DetectAll(text string) []Match {
	return resolve(d.candidates(text))
}

// candidates runs every enabled recognizer in table order and returns
// the matches that meet the minimum length, grouped by recognizer.
func (d *Detector) candidates(text string) []Match {
	runes := []rune(text)
	// offsets[i] is the byte offset of runes[i]; regexp2 reports rune
	// positions.
	offsets := make([]int, 0, len(runes)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	var candidates []Match
	for _, r := range recognizers {
		if !d.enabled[r.typ] {
			continue
		}
		m, err := r.re.FindRunesMatch(runes)
		for m != nil && err == nil {
			if m.Length >= d.minLength {
				start, end := offsets[m.Index], offsets[m.Index+m.Length]
				candidates = append(candidates, Match{Type: r.typ, Start: start, End: end, Content: text[start:end]})
			}
			m, err = r.re.FindNextMatch(m)
		}
	}
	return candidates
}

// resolve orders candidates and keeps the first one plus every later one
// that does not overlap the last kept candidate. No backtracking.
func resolve(candidates []Match) []Match {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]Match, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	kept := []Match{sorted[0]}
	for _, m := range sorted[1:] {
		if m.Start >= kept[len(kept)-1].End {
			kept = append(kept, m)
		}
	}
	return kept
}
