package core

import (
	"errors"
	"testing"
)

func TestTableNameResolution(t *testing.T) {
	unqualified := UnqualifiedTableName("orders")
	if unqualified.ResolvedSchema() != "public" {
		t.Errorf("Expected default schema public, got %q", unqualified.ResolvedSchema())
	}
	if !unqualified.Equal(NewTableName("public", "orders")) {
		t.Error("Expected unqualified name to equal its public-qualified form")
	}
	if unqualified.Equal(NewTableName("Extract", "orders")) {
		t.Error("Expected names in different schemas to differ")
	}
	if NewTableName("S", "a").Key() == NewTableName("S", "A").Key() {
		t.Error("Expected case-sensitive keys")
	}
}

func TestEscapeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"orders", `"orders"`},
		{"Order ID", `"Order ID"`},
		{`say "hi"`, `"say ""hi"""`},
	}
	for _, test := range tests {
		if got := EscapeName(test.input); got != test.expected {
			t.Errorf("EscapeName(%q): expected %s, got %s", test.input, test.expected, got)
		}
	}
	if got := EscapeStringLiteral("it's"); got != `'it''s'` {
		t.Errorf("Expected 'it''s', got %s", got)
	}
}

func TestParseTableName(t *testing.T) {
	tests := []struct {
		input    string
		expected TableName
	}{
		{"orders", TableName{Name: "orders"}},
		{"sales.orders", TableName{Schema: "sales", Name: "orders"}},
		{`"Extract"."Extract"`, TableName{Schema: "Extract", Name: "Extract"}},
		{`"Order ""Log"""`, TableName{Name: `Order "Log"`}},
		{`sales."Order Details"`, TableName{Schema: "sales", Name: "Order Details"}},
	}
	for _, test := range tests {
		got, err := ParseTableName(test.input)
		if err != nil {
			t.Errorf("ParseTableName(%q): unexpected error %v", test.input, err)
			continue
		}
		if got != test.expected {
			t.Errorf("ParseTableName(%q): expected %+v, got %+v", test.input, test.expected, got)
		}
	}
}

func TestParseTableNameRoundTrip(t *testing.T) {
	names := []TableName{
		UnqualifiedTableName("orders"),
		NewTableName("Extract", "Extract"),
		NewTableName("a.b", `weird "quotes"`),
	}
	for _, name := range names {
		parsed, err := ParseTableName(name.String())
		if err != nil {
			t.Errorf("Failed to parse %s: %v", name, err)
			continue
		}
		if !parsed.Equal(name) {
			t.Errorf("Round trip of %s produced %s", name, parsed)
		}
	}
}

func TestParseTableNameErrors(t *testing.T) {
	inputs := []string{
		"",
		".",
		"a.",
		".b",
		`"unterminated`,
		`""`,
		"a.b.c",
		`"a" trailing`,
	}
	for _, input := range inputs {
		if _, err := ParseTableName(input); !errors.Is(err, ErrSyntax) {
			t.Errorf("ParseTableName(%q): expected syntax error, got %v", input, err)
		}
	}
}
