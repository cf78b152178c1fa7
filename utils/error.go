package utils

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorDuplicateKey marks an insert that collided with an existing unique pair.
// Callers treat it as a benign skip, not a failure.
var ErrorDuplicateKey = errors.New("duplicate key")

// ErrorUnauthorized marks a capability check that failed before any write was attempted.
var ErrorUnauthorized = errors.New("unauthorized")

const mysqlDuplicateEntry = 1062

func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrorDuplicateKey) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}
