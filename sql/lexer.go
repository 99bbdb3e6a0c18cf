package sql

import "strings"

type TokenType int

const (
	EOF TokenType = iota
	Illegal
	Identifier
	QuotedIdentifier
	String
	Int
	Float

	Comma
	Dot
	ParenOpen
	ParenClose
	Star
	Plus
	Minus
	Slash
	Concat
	Semicolon
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual

	Select
	From
	Where
	And
	Or
	Not
	Is
	Null
	True
	False
	Insert
	Into
	Values
	Update
	Set
	Delete
	Create
	Drop
	Table
	Schema
	If
	Exists
	Cascade
	Replace
	Copy
	With
	Count
	Case
	When
	Then
	Else
	End
	Cast
	As
	Any
	Order
	By
	Asc
	Desc
	Limit
	Offset
)

var tokenNames = map[TokenType]string{
	EOF:                "EOF",
	Illegal:            "Illegal",
	Identifier:         "Identifier",
	QuotedIdentifier:   "QuotedIdentifier",
	String:             "String",
	Int:                "Int",
	Float:              "Float",
	Comma:              ",",
	Dot:                ".",
	ParenOpen:          "(",
	ParenClose:         ")",
	Star:               "*",
	Plus:               "+",
	Minus:              "-",
	Slash:              "/",
	Concat:             "||",
	Semicolon:          ";",
	Equals:             "=",
	NotEquals:          "<>",
	LessThan:           "<",
	GreaterThan:        ">",
	LessThanOrEqual:    "<=",
	GreaterThanOrEqual: ">=",
	Select:             "SELECT",
	From:               "FROM",
	Where:              "WHERE",
	And:                "AND",
	Or:                 "OR",
	Not:                "NOT",
	Is:                 "IS",
	Null:               "NULL",
	True:               "TRUE",
	False:              "FALSE",
	Insert:             "INSERT",
	Into:               "INTO",
	Values:             "VALUES",
	Update:             "UPDATE",
	Set:                "SET",
	Delete:             "DELETE",
	Create:             "CREATE",
	Drop:               "DROP",
	Table:              "TABLE",
	Schema:             "SCHEMA",
	If:                 "IF",
	Exists:             "EXISTS",
	Cascade:            "CASCADE",
	Replace:            "REPLACE",
	Copy:               "COPY",
	With:               "WITH",
	Count:              "COUNT",
	Case:               "CASE",
	When:               "WHEN",
	Then:               "THEN",
	Else:               "ELSE",
	End:                "END",
	Cast:               "CAST",
	As:                 "AS",
	Any:                "ANY",
	Order:              "ORDER",
	By:                 "BY",
	Asc:                "ASC",
	Desc:               "DESC",
	Limit:              "LIMIT",
	Offset:             "OFFSET",
}

var keywords = map[string]TokenType{}

func init() {
	for t := Select; t <= Offset; t++ {
		keywords[tokenNames[t]] = t
	}
}

// Token is one lexical unit plus the byte offset where it starts, so
// parser diagnostics can point into the original statement text.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

func (token Token) String() string {
	name, ok := tokenNames[token.Type]
	if !ok {
		return "Unknown(" + token.Value + ")"
	}
	switch token.Type {
	case Identifier, QuotedIdentifier, String, Int, Float, Illegal:
		return name + "(" + token.Value + ")"
	}
	return name
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespace()

	pos := lexer.position
	var token Token

	switch lexer.ch {
	case 0:
		return Token{Type: EOF, Pos: pos}
	case ',':
		token = Token{Type: Comma, Value: ","}
	case '.':
		token = Token{Type: Dot, Value: "."}
	case '(':
		token = Token{Type: ParenOpen, Value: "("}
	case ')':
		token = Token{Type: ParenClose, Value: ")"}
	case '*':
		token = Token{Type: Star, Value: "*"}
	case '+':
		token = Token{Type: Plus, Value: "+"}
	case '-':
		token = Token{Type: Minus, Value: "-"}
	case '/':
		token = Token{Type: Slash, Value: "/"}
	case ';':
		token = Token{Type: Semicolon, Value: ";"}
	case '=':
		token = Token{Type: Equals, Value: "="}
	case '|':
		if lexer.peekChar() == '|' {
			lexer.readChar()
			token = Token{Type: Concat, Value: "||"}
		} else {
			token = Token{Type: Illegal, Value: "|"}
		}
	case '<':
		switch lexer.peekChar() {
		case '=':
			lexer.readChar()
			token = Token{Type: LessThanOrEqual, Value: "<="}
		case '>':
			lexer.readChar()
			token = Token{Type: NotEquals, Value: "<>"}
		default:
			token = Token{Type: LessThan, Value: "<"}
		}
	case '>':
		if lexer.peekChar() == '=' {
			lexer.readChar()
			token = Token{Type: GreaterThanOrEqual, Value: ">="}
		} else {
			token = Token{Type: GreaterThan, Value: ">"}
		}
	case '!':
		if lexer.peekChar() == '=' {
			lexer.readChar()
			token = Token{Type: NotEquals, Value: "!="}
		} else {
			token = Token{Type: Illegal, Value: "!"}
		}
	case '\'':
		value, ok := lexer.readQuoted('\'')
		if !ok {
			return Token{Type: Illegal, Value: "unterminated string literal", Pos: pos}
		}
		return Token{Type: String, Value: value, Pos: pos}
	case '"':
		value, ok := lexer.readQuoted('"')
		if !ok {
			return Token{Type: Illegal, Value: "unterminated quoted identifier", Pos: pos}
		}
		return Token{Type: QuotedIdentifier, Value: value, Pos: pos}
	default:
		if isDigit(lexer.ch) {
			return lexer.readNumber(pos)
		}
		if isIdentStart(lexer.ch) {
			literal := lexer.readIdentifier()
			if keyword, ok := keywords[strings.ToUpper(literal)]; ok {
				return Token{Type: keyword, Value: literal, Pos: pos}
			}
			return Token{Type: Identifier, Value: literal, Pos: pos}
		}
		token = Token{Type: Illegal, Value: string(lexer.ch)}
	}

	token.Pos = pos
	lexer.readChar()
	return token
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

// readQuoted reads a quoted region where a doubled quote character is
// an escaped quote: 'it''s' and "a ""b""" both unescape here.
func (lexer *Lexer) readQuoted(quote byte) (string, bool) {
	lexer.readChar() // opening quote
	var sb strings.Builder
	for {
		switch lexer.ch {
		case 0:
			return "", false
		case quote:
			if lexer.peekChar() == quote {
				sb.WriteByte(quote)
				lexer.readChar()
				lexer.readChar()
				continue
			}
			lexer.readChar() // closing quote
			return sb.String(), true
		default:
			sb.WriteByte(lexer.ch)
			lexer.readChar()
		}
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isIdentPart(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readNumber(pos int) Token {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	if lexer.ch == '.' && isDigit(lexer.peekChar()) {
		lexer.readChar()
		for isDigit(lexer.ch) {
			lexer.readChar()
		}
		return Token{Type: Float, Value: lexer.sql[position:lexer.position], Pos: pos}
	}
	return Token{Type: Int, Value: lexer.sql[position:lexer.position], Pos: pos}
}

func isIdentStart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
