package record

import "github.com/hpungsan/pith/internal/compress"

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1.0"

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	PithExport    bool   `json:"_pith_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportRecord is one stored record as written to an export file.
// Normalized fields are recomputed on import.
type ExportRecord struct {
	// Set only on the header line; lets the import parser skip it.
	PithExport bool `json:"_pith_export,omitempty"`

	ID               string                   `json:"id"`
	WorkspaceRaw     string                   `json:"workspace_raw"`
	NameRaw          *string                  `json:"name_raw,omitempty"`
	OriginalText     string                   `json:"original_text"`
	CompressedText   string                   `json:"compressed_text"`
	Placeholders     *compress.PlaceholderMap `json:"placeholders"`
	OriginalTokens   int                      `json:"original_tokens"`
	CompressedTokens int                      `json:"compressed_tokens"`
	SavingsRatio     float64                  `json:"savings_ratio"`
	Estimator        string                   `json:"estimator"`
	TypeCounts       map[string]int           `json:"content_type_counts"`
	CreatedAt        int64                    `json:"created_at"`
	DeletedAt        *int64                   `json:"deleted_at,omitempty"`
}

// ToExportRecord converts a Record for export.
func ToExportRecord(r *Record) ExportRecord {
	placeholders := r.Placeholders
	if placeholders == nil {
		placeholders = compress.NewPlaceholderMap()
	}
	return ExportRecord{
		ID:               r.ID,
		WorkspaceRaw:     r.WorkspaceRaw,
		NameRaw:          r.NameRaw,
		OriginalText:     r.OriginalText,
		CompressedText:   r.CompressedText,
		Placeholders:     placeholders,
		OriginalTokens:   r.OriginalTokens,
		CompressedTokens: r.CompressedTokens,
		SavingsRatio:     r.SavingsRatio,
		Estimator:        r.Estimator,
		TypeCounts:       r.TypeCounts,
		CreatedAt:        r.CreatedAt,
		DeletedAt:        r.DeletedAt,
	}
}

// ToRecord converts an imported line back into a Record, recomputing the
// normalized workspace and name.
func (e ExportRecord) ToRecord() *Record {
	r := &Record{
		ID:               e.ID,
		WorkspaceRaw:     e.WorkspaceRaw,
		WorkspaceNorm:    Normalize(e.WorkspaceRaw),
		NameRaw:          e.NameRaw,
		OriginalText:     e.OriginalText,
		CompressedText:   e.CompressedText,
		Placeholders:     e.Placeholders,
		OriginalTokens:   e.OriginalTokens,
		CompressedTokens: e.CompressedTokens,
		SavingsRatio:     e.SavingsRatio,
		Estimator:        e.Estimator,
		TypeCounts:       e.TypeCounts,
		CreatedAt:        e.CreatedAt,
		DeletedAt:        e.DeletedAt,
	}
	if r.Placeholders == nil {
		r.Placeholders = compress.NewPlaceholderMap()
	}
	if r.TypeCounts == nil {
		r.TypeCounts = map[string]int{}
	}
	if e.NameRaw != nil {
		norm := Normalize(*e.NameRaw)
		r.NameNorm = &norm
	}
	return r
}
