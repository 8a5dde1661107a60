package record

// Summary is a record's metadata without its texts or placeholders.
// Used by list operations to keep responses small.
type Summary struct {
	ID               string         `json:"id"`
	Workspace        string         `json:"workspace"`
	WorkspaceNorm    string         `json:"workspace_norm"`
	Name             *string        `json:"name,omitempty"`
	NameNorm         *string        `json:"name_norm,omitempty"`
	OriginalChars    int            `json:"original_chars"`
	OriginalTokens   int            `json:"original_tokens"`
	CompressedTokens int            `json:"compressed_tokens"`
	SavingsRatio     float64        `json:"savings_ratio"`
	Placeholders     int            `json:"placeholders"`
	TypeCounts       map[string]int `json:"content_type_counts"`
	Estimator        string         `json:"estimator"`
	CreatedAt        int64          `json:"created_at"`
	DeletedAt        *int64         `json:"deleted_at,omitempty"`
}

// ToSummary strips the texts and placeholder details from a record.
func (r *Record) ToSummary() Summary {
	return Summary{
		ID:               r.ID,
		Workspace:        r.WorkspaceRaw,
		WorkspaceNorm:    r.WorkspaceNorm,
		Name:             r.NameRaw,
		NameNorm:         r.NameNorm,
		OriginalChars:    CountChars(r.OriginalText),
		OriginalTokens:   r.OriginalTokens,
		CompressedTokens: r.CompressedTokens,
		SavingsRatio:     r.SavingsRatio,
		Placeholders:     r.Placeholders.Len(),
		TypeCounts:       r.TypeCounts,
		Estimator:        r.Estimator,
		CreatedAt:        r.CreatedAt,
		DeletedAt:        r.DeletedAt,
	}
}
