package utils

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL error numbers the handlers translate to 409 responses.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// IsDuplicateEntry reports whether err is a unique-constraint violation.
func IsDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// IsForeignKeyViolation reports whether err is a foreign-key constraint
// violation, in either direction (dependent rows exist, or the referenced
// row does not).
func IsForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlRowIsReferenced || myErr.Number == mysqlNoReferencedRow
}
