package sql

import (
	"database/sql"
	"strings"
)

func isAffected(res sql.Result) bool {
	rows, err := res.RowsAffected()
	if err != nil {
		return true
	}
	return rows != 0
}

func getAffected(res sql.Result) int64 {
	ret, err := res.RowsAffected()
	if err != nil {
		return -1
	}
	return ret
}

// isUniqueViolation reports whether err is a primary-key / unique-constraint
// violation. Checked by message substring rather than driver-specific error
// types so the same code path works across the sqlite and postgres dialects
// bun is configured with.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
