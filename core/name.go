package core

import "strings"

// DefaultSchema is the schema a table name without an explicit schema
// part resolves to. It always exists and cannot be dropped.
const DefaultSchema = "public"

// TableName is a schema-qualified table identifier. An empty Schema
// resolves to DefaultSchema. Names are case-preserving; equality is
// on the resolved (schema, name) pair.
type TableName struct {
	Schema string
	Name   string
}

func NewTableName(schema, name string) TableName {
	return TableName{Schema: schema, Name: name}
}

// UnqualifiedTableName names a table in the default schema.
func UnqualifiedTableName(name string) TableName {
	return TableName{Name: name}
}

// ResolvedSchema returns the schema the name lives in, applying the
// default when none was given.
func (n TableName) ResolvedSchema() string {
	if n.Schema == "" {
		return DefaultSchema
	}
	return n.Schema
}

// Equal compares the resolved schema and the table name.
func (n TableName) Equal(o TableName) bool {
	return n.ResolvedSchema() == o.ResolvedSchema() && n.Name == o.Name
}

// Key is the normalized map key for catalog lookups.
func (n TableName) Key() string {
	return n.ResolvedSchema() + "\x00" + n.Name
}

// String renders the fully escaped, schema-qualified name, e.g.
// `"Extract"."Extract"`. The rendering is valid SQL statement text.
func (n TableName) String() string {
	return EscapeName(n.ResolvedSchema()) + "." + EscapeName(n.Name)
}

// ParseTableName parses a rendering produced by String: one or two
// dot-separated identifiers, each bare or double-quoted.
func ParseTableName(text string) (TableName, error) {
	first, rest, err := readNamePart(strings.TrimSpace(text))
	if err != nil {
		return TableName{}, err
	}
	if rest == "" {
		return TableName{Name: first}, nil
	}
	if rest[0] != '.' {
		return TableName{}, Errorf(KindSyntax, "invalid table name %q", text)
	}
	second, rest, err := readNamePart(rest[1:])
	if err != nil {
		return TableName{}, err
	}
	if rest != "" {
		return TableName{}, Errorf(KindSyntax, "invalid table name %q", text)
	}
	return TableName{Schema: first, Name: second}, nil
}

func readNamePart(s string) (string, string, error) {
	if s == "" {
		return "", "", Errorf(KindSyntax, "empty identifier")
	}
	if s[0] == '"' {
		var part strings.Builder
		for i := 1; i < len(s); i++ {
			if s[i] != '"' {
				part.WriteByte(s[i])
				continue
			}
			if i+1 < len(s) && s[i+1] == '"' {
				part.WriteByte('"')
				i++
				continue
			}
			if part.Len() == 0 {
				return "", "", Errorf(KindSyntax, "empty identifier")
			}
			return part.String(), s[i+1:], nil
		}
		return "", "", Errorf(KindSyntax, "unterminated quoted identifier")
	}
	end := strings.IndexByte(s, '.')
	if end == -1 {
		return s, "", nil
	}
	if end == 0 {
		return "", "", Errorf(KindSyntax, "empty identifier")
	}
	return s[:end], s[end:], nil
}

// EscapeName quotes an identifier for use in SQL text. Identifiers use
// double quotes with embedded double quotes doubled. Identifiers and
// string literals have distinct escaping rules; never mix the two.
func EscapeName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EscapeStringLiteral quotes a string literal for use in SQL text.
// Literals use single quotes with embedded single quotes doubled.
func EscapeStringLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
