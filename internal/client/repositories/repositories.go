// Package repositories holds helpers shared by the client's SQLite
// repositories. Each entity kind lives in its own subpackage.
//
// All local mutations stamp rows with StampExpr so a row's updated_at only
// ever grows, even when the wall clock steps backwards or a pulled row
// carries a timestamp from the future.
package repositories

import "database/sql"

// StampExpr is the SQL expression for a fresh updated_at. It expects the
// current clock value as its single bind parameter.
const StampExpr = "MAX(?, updated_at + 1)"

// RowScanner is implemented by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// NullString maps "" to SQL NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// StringOrEmpty unwraps a nullable text column.
func StringOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// Text turns an optional string-kinded field into a bind argument.
func Text[T ~string](p *T) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

// Opt turns an optional numeric field into a bind argument.
func Opt[T ~int64 | ~float64](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
