// Package core provides the shared vocabulary of the TideDB engine:
// the closed scalar type system, typed nullable values and rows,
// schema-qualified names with SQL escaping, table definitions, and the
// tagged error taxonomy every component reports through.
//
// # Types and values
//
// SqlType is a closed enumeration (switch over TypeTag, never reflect):
//
//	col := core.Column{Name: "Loyalty Reward Points", Type: core.BigInt(), Nullability: core.NotNullable}
//
// Value is a tagged union over the same domain plus a null marker.
// Conversions are explicit and lossless-only (Convert); text parsing
// and native-Go coercion live in ParseValueText and CoerceValue.
//
// # Names and escaping
//
// Identifiers and string literals have two distinct escaping rules.
// EscapeName doubles embedded double quotes, EscapeStringLiteral
// doubles embedded single quotes. All SQL the engine generates routes
// user-supplied names and values through the matching escaper:
//
//	sql := "SELECT COUNT(*) FROM " + core.NewTableName("Extract", "Extract").String()
//
// # Errors
//
// Every failure is a *core.Error with a Kind from the closed taxonomy.
// Match with errors.Is against the exported sentinels:
//
//	if errors.Is(err, core.ErrTableNotFound) { ... }
package core
