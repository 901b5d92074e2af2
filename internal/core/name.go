package core

import "strings"

// structuralWords are keywords a loose capture can mistake for a schema segment.
var structuralWords = map[string]struct{}{
	"TABLE":     {},
	"INDEX":     {},
	"VIEW":      {},
	"SEQUENCE":  {},
	"FUNCTION":  {},
	"PROCEDURE": {},
	"TRIGGER":   {},
	"ON":        {},
	"ONLY":      {},
	"INTO":      {},
	"FROM":      {},
	"EXISTS":    {},
}

// QualifiedName is an optional schema plus a local name, both stored unquoted.
type QualifiedName struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

// NewQualifiedName builds a name from raw captured segments. Quotes are stripped and a
// schema that is actually a structural keyword is dropped.
func NewQualifiedName(schema, name string) QualifiedName {
	raw := strings.TrimSpace(schema)
	if _, ok := structuralWords[strings.ToUpper(raw)]; ok {
		raw = ""
	}
	return QualifiedName{Schema: Unquote(raw), Name: Unquote(name)}
}

// ParseQualifiedName splits a dotted, possibly quoted reference such as `"public"."orders"`.
func ParseQualifiedName(ref string) QualifiedName {
	parts := SplitQualified(ref)
	switch len(parts) {
	case 0:
		return QualifiedName{}
	case 1:
		return NewQualifiedName("", parts[0])
	default:
		return NewQualifiedName(parts[len(parts)-2], parts[len(parts)-1])
	}
}

// IsZero reports whether the name has no local part.
func (q QualifiedName) IsZero() bool {
	return q.Name == ""
}

// String renders the name with every part double-quoted.
func (q QualifiedName) String() string {
	if q.Schema == "" {
		return QuoteIdentifier(q.Name)
	}
	return QuoteIdentifier(q.Schema) + "." + QuoteIdentifier(q.Name)
}

// WithName returns a copy that keeps the schema and replaces the local name.
func (q QualifiedName) WithName(name string) QualifiedName {
	return QualifiedName{Schema: q.Schema, Name: name}
}

// QuoteIdentifier wraps name in double quotes, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Unquote strips surrounding double quotes and undoubles embedded ones.
// Bare identifiers are returned trimmed and unchanged.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if isQuoted(s) {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

// SplitQualified splits a dotted reference on dots that sit outside double quotes.
func SplitQualified(ref string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range strings.TrimSpace(ref) {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == '.' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 || len(parts) > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}
