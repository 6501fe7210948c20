package database

import (
	"database/sql/driver"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// FoldFunc is the SQL name of the Unicode case-folding function available on
// every connection, e.g. instr(fold(title), ?).
const FoldFunc = "fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(FoldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return Fold(v), nil
		case []byte:
			return Fold(string(v)), nil
		default:
			return v, nil
		}
	})
}

// Fold returns s case-folded, so "Über" and "über" compare equal. A Caser is
// stateful, so one is made per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}
