package compress

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hpungsan/pith/internal/pattern"
)

// ChecksumLen is the number of hex characters kept from the SHA-256 digest.
const ChecksumLen = 8

const (
	idPrefix = "@@P"
	idSuffix = "@@"
)

// Checksum returns the first ChecksumLen hex characters of the SHA-256
// digest of s's UTF-8 bytes.
func Checksum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:ChecksumLen]
}

// FormatID returns the placeholder token for counter value n.
func FormatID(n int64) string {
	return idPrefix + strconv.FormatInt(n, 10) + idSuffix
}

// ParsePlaceholderID extracts n from a token of the form @@P<n>@@.
// Leading zeros and signs are rejected.
func ParsePlaceholderID(id string) (int64, bool) {
	digits, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, false
	}
	digits, ok = strings.CutSuffix(digits, idSuffix)
	if !ok || digits == "" {
		return 0, false
	}
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Placeholder records one substitution. StartPos and EndPos locate the
// token in the working text at the moment it was substituted; they are
// not renormalized after later substitutions.
type Placeholder struct {
	ID          string              `json:"id"`
	Original    string              `json:"original"`
	ContentType pattern.ContentType `json:"content_type"`
	StartPos    int                 `json:"start_pos"`
	EndPos      int                 `json:"end_pos"`
	Checksum    string              `json:"checksum"`
}

// PlaceholderMap is an id-keyed map that iterates in insertion order.
// Restoration order and error order depend on it.
type PlaceholderMap struct {
	ids  []string
	byID map[string]Placeholder
}

// NewPlaceholderMap returns a map holding ps in order.
func NewPlaceholderMap(ps ...Placeholder) *PlaceholderMap {
	m := &PlaceholderMap{byID: make(map[string]Placeholder, len(ps))}
	for _, p := range ps {
		m.Put(p)
	}
	return m
}

// Put appends p, or replaces the entry with the same ID in place.
func (m *PlaceholderMap) Put(p Placeholder) {
	if m.byID == nil {
		m.byID = make(map[string]Placeholder)
	}
	if _, exists := m.byID[p.ID]; !exists {
		m.ids = append(m.ids, p.ID)
	}
	m.byID[p.ID] = p
}

// Get returns a copy of the placeholder with the given id.
func (m *PlaceholderMap) Get(id string) (Placeholder, bool) {
	if m == nil {
		return Placeholder{}, false
	}
	p, ok := m.byID[id]
	return p, ok
}

// Len returns the number of placeholders.
func (m *PlaceholderMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// IDs returns the placeholder ids in insertion order.
func (m *PlaceholderMap) IDs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// All returns the placeholders in insertion order.
func (m *PlaceholderMap) All() []Placeholder {
	if m == nil {
		return nil
	}
	out := make([]Placeholder, len(m.ids))
	for i, id := range m.ids {
		out[i] = m.byID[id]
	}
	return out
}

// MarshalJSON encodes the map as an ordered array.
func (m *PlaceholderMap) MarshalJSON() ([]byte, error) {
	all := m.All()
	if all == nil {
		all = []Placeholder{}
	}
	return json.Marshal(all)
}

// UnmarshalJSON decodes an ordered array. Duplicate ids are rejected.
func (m *PlaceholderMap) UnmarshalJSON(data []byte) error {
	var ps []Placeholder
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}
	fresh := NewPlaceholderMap()
	for _, p := range ps {
		if _, dup := fresh.byID[p.ID]; dup {
			return fmt.Errorf("duplicate placeholder id %q", p.ID)
		}
		fresh.Put(p)
	}
	*m = *fresh
	return nil
}
