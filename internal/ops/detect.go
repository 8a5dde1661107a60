package ops

import (
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/pattern"
)

// DetectInput contains parameters for the Detect operation.
type DetectInput struct {
	Text string // required
}

// DetectOutput lists the spans that Compress would replace.
type DetectOutput struct {
	Matches   []pattern.Match `json:"matches"`
	Count     int             `json:"count"`
	MinLength int             `json:"min_length"`
}

// Detect reports the non-overlapping spans in the text without replacing them.
func Detect(detector *pattern.Detector, cfg *config.Config, input DetectInput) (*DetectOutput, error) {
	if input.Text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	if err := checkTextSize(input.Text, cfg.MaxTextChars); err != nil {
		return nil, err
	}

	matches := detector.DetectAll(input.Text)
	if matches == nil {
		matches = []pattern.Match{}
	}

	return &DetectOutput{
		Matches:   matches,
		Count:     len(matches),
		MinLength: detector.MinLength(),
	}, nil
}
