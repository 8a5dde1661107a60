package pattern

import "fmt"

// ContentType is the category a recognized span belongs to.
// The declaration order is the detection precedence: on an exact
// (start, end) tie the earlier type wins.
type ContentType int

const (
	URL ContentType = iota
	Email
	CodeBlock
	InlineCode
	FilePath
	JSON
	Identifier
	Version
	Hash
	Quoted
)

var contentTypeNames = [...]string{
	URL:        "url",
	Email:      "email",
	CodeBlock:  "code_block",
	InlineCode: "inline_code",
	FilePath:   "file_path",
	JSON:       "json",
	Identifier: "identifier",
	Version:    "version",
	Hash:       "hash",
	Quoted:     "quoted",
}

// AllContentTypes returns every content type in precedence order.
func AllContentTypes() []ContentType {
	types := make([]ContentType, len(contentTypeNames))
	for i := range contentTypeNames {
		types[i] = ContentType(i)
	}
	return types
}

// String returns the wire name of the content type (e.g. "code_block").
func (t ContentType) String() string {
	if t < 0 || int(t) >= len(contentTypeNames) {
		return fmt.Sprintf("content_type(%d)", int(t))
	}
	return contentTypeNames[t]
}

// Valid reports whether t is one of the declared content types.
func (t ContentType) Valid() bool {
	return t >= 0 && int(t) < len(contentTypeNames)
}

// ParseContentType converts a wire name back to a ContentType.
func ParseContentType(name string) (ContentType, error) {
	for i, n := range contentTypeNames {
		if n == name {
			return ContentType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown content type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t ContentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid content type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ContentType) UnmarshalText(b []byte) error {
	parsed, err := ParseContentType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
