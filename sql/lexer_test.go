package sql

import "testing"

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []Token
	}{
		{
			"keywords and identifiers",
			"SELECT price FROM items",
			[]Token{
				{Select, "SELECT", 0},
				{Identifier, "price", 7},
				{From, "FROM", 13},
				{Identifier, "items", 18},
			},
		},
		{
			"keywords are case insensitive",
			"select From WHERE",
			[]Token{
				{Select, "select", 0},
				{From, "From", 7},
				{Where, "WHERE", 12},
			},
		},
		{
			"symbols",
			", . ( ) * + - / ; = <> < > <= >= || !=",
			[]Token{
				{Comma, ",", 0},
				{Dot, ".", 2},
				{ParenOpen, "(", 4},
				{ParenClose, ")", 6},
				{Star, "*", 8},
				{Plus, "+", 10},
				{Minus, "-", 12},
				{Slash, "/", 14},
				{Semicolon, ";", 16},
				{Equals, "=", 18},
				{NotEquals, "<>", 20},
				{LessThan, "<", 23},
				{GreaterThan, ">", 25},
				{LessThanOrEqual, "<=", 27},
				{GreaterThanOrEqual, ">=", 30},
				{Concat, "||", 33},
				{NotEquals, "!=", 36},
			},
		},
		{
			"numbers",
			"42 3.14 0",
			[]Token{
				{Int, "42", 0},
				{Float, "3.14", 3},
				{Int, "0", 8},
			},
		},
		{
			"string literal with escaped quote",
			"'it''s'",
			[]Token{
				{String, "it's", 0},
			},
		},
		{
			"quoted identifier with space",
			`"Loyalty Reward Points"`,
			[]Token{
				{QuotedIdentifier, "Loyalty Reward Points", 0},
			},
		},
		{
			"quoted identifier with escaped quote",
			`"a ""b"""`,
			[]Token{
				{QuotedIdentifier, `a "b"`, 0},
			},
		},
		{
			"qualified name",
			`"Extract"."Extract"`,
			[]Token{
				{QuotedIdentifier, "Extract", 0},
				{Dot, ".", 9},
				{QuotedIdentifier, "Extract", 10},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lexer := NewLexer(test.sql)
			for i, want := range test.expected {
				got := lexer.NextToken()
				if got != want {
					t.Fatalf("token %d: expected %+v, got %+v", i, want, got)
				}
			}
			if got := lexer.NextToken(); got.Type != EOF {
				t.Fatalf("expected EOF, got %+v", got)
			}
		})
	}
}

func TestLexerIllegal(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"unterminated string", "'abc"},
		{"unterminated identifier", `"abc`},
		{"lone pipe", "|"},
		{"lone bang", "!"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lexer := NewLexer(test.sql)
			if got := lexer.NextToken(); got.Type != Illegal {
				t.Fatalf("expected Illegal token, got %+v", got)
			}
		})
	}
}
