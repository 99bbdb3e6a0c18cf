package core

import "fmt"

// ErrorKind classifies every failure the engine reports. Each
// operation either succeeds or fails with exactly one kind; there is
// no partial success.
type ErrorKind int

const (
	KindSyntax ErrorKind = iota
	KindTableNotFound
	KindColumnNotFound
	KindSchemaNotFound
	KindDuplicateSchema
	KindDuplicateTable
	KindInvalidColumnDefinition
	KindConstraintViolation
	KindRowShape
	KindTypeMismatch
	KindCardinality
	KindFileNotFound
	KindAlreadyExists
	KindIncompatibleFormat
	KindFileLocked
	KindUseAfterClose
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindTableNotFound:
		return "table not found"
	case KindColumnNotFound:
		return "column not found"
	case KindSchemaNotFound:
		return "schema not found"
	case KindDuplicateSchema:
		return "duplicate schema"
	case KindDuplicateTable:
		return "duplicate table"
	case KindInvalidColumnDefinition:
		return "invalid column definition"
	case KindConstraintViolation:
		return "constraint violation"
	case KindRowShape:
		return "row shape mismatch"
	case KindTypeMismatch:
		return "type mismatch"
	case KindCardinality:
		return "cardinality violation"
	case KindFileNotFound:
		return "file not found"
	case KindAlreadyExists:
		return "file already exists"
	case KindIncompatibleFormat:
		return "incompatible file format"
	case KindFileLocked:
		return "file locked"
	case KindUseAfterClose:
		return "use after close"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// Error is the engine's tagged error type. Position is a byte offset
// into the offending SQL text, or -1 when no position applies.
type Error struct {
	Kind     ErrorKind
	Message  string
	Position int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so callers can test
// errors.Is(err, core.ErrTableNotFound) regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf builds an *Error without a SQL position.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: -1}
}

// ErrorfAt builds an *Error carrying the byte offset of the offending
// token in the SQL text.
func ErrorfAt(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos}
}

// Kind sentinels for errors.Is.
var (
	ErrSyntax                  = &Error{Kind: KindSyntax, Position: -1}
	ErrTableNotFound           = &Error{Kind: KindTableNotFound, Position: -1}
	ErrColumnNotFound          = &Error{Kind: KindColumnNotFound, Position: -1}
	ErrSchemaNotFound          = &Error{Kind: KindSchemaNotFound, Position: -1}
	ErrDuplicateSchema         = &Error{Kind: KindDuplicateSchema, Position: -1}
	ErrDuplicateTable          = &Error{Kind: KindDuplicateTable, Position: -1}
	ErrInvalidColumnDefinition = &Error{Kind: KindInvalidColumnDefinition, Position: -1}
	ErrConstraintViolation     = &Error{Kind: KindConstraintViolation, Position: -1}
	ErrRowShape                = &Error{Kind: KindRowShape, Position: -1}
	ErrTypeMismatch            = &Error{Kind: KindTypeMismatch, Position: -1}
	ErrCardinality             = &Error{Kind: KindCardinality, Position: -1}
	ErrFileNotFound            = &Error{Kind: KindFileNotFound, Position: -1}
	ErrAlreadyExists           = &Error{Kind: KindAlreadyExists, Position: -1}
	ErrIncompatibleFormat      = &Error{Kind: KindIncompatibleFormat, Position: -1}
	ErrFileLocked              = &Error{Kind: KindFileLocked, Position: -1}
	ErrUseAfterClose           = &Error{Kind: KindUseAfterClose, Position: -1}
)
