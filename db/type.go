package db

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEntryCode = 1062
)

const (
	DialectMysql    = "mysql"
	DialectSqlite   = "sqlite"
	DialectPostgres = "postgres"
)

func MysqlErrCode(err error) int {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return 0
	}
	return int(mysqlErr.Number)
}

// IsDuplicateEntry reports whether err is a unique constraint violation on
// any of the supported dialects.
func IsDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || MysqlErrCode(err) == ErrDuplicateEntryCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}

// MaxBackoffExponent caps the doubling of the retry delay. Every attempt
// past it waits base * 2^MaxBackoffExponent.
const MaxBackoffExponent = 20

const maxBackoffSeconds = int64(math.MaxInt64 / int64(time.Second))

// backoffSeconds is the base delay in whole seconds. Fractions round up so a
// positive base is never dropped.
func backoffSeconds(base time.Duration) int64 {
	if base <= 0 {
		return 0
	}
	seconds := int64(base / time.Second)
	if base%time.Second != 0 {
		seconds++
	}
	return seconds
}

func backoffExponent(attempts int) int {
	if attempts < 0 {
		return 0
	}
	if attempts > MaxBackoffExponent {
		return MaxBackoffExponent
	}
	return attempts
}

// backoffDelay is base * 2^min(attempts, MaxBackoffExponent), saturating
// instead of overflowing.
func backoffDelay(base time.Duration, attempts int) time.Duration {
	seconds := backoffSeconds(base)
	exponent := backoffExponent(attempts)
	if seconds > maxBackoffSeconds>>exponent {
		return time.Duration(maxBackoffSeconds) * time.Second
	}
	return time.Duration(seconds<<exponent) * time.Second
}

// backoffCondition builds the claim eligibility predicate
// created_at + base * 2^min(ingestion_attempts, MaxBackoffExponent) <= now
// for the given dialect. It computes the same delay as backoffDelay.
func backoffCondition(dialect string, base time.Duration, now time.Time) (string, []interface{}) {
	seconds := backoffSeconds(base)
	switch dialect {
	case DialectPostgres:
		return fmt.Sprintf("created_at + (interval '1 second' * %d * power(2, LEAST(ingestion_attempts, %d))) <= ?",
			seconds, MaxBackoffExponent), []interface{}{now}
	case DialectMysql:
		return fmt.Sprintf("DATE_ADD(created_at, INTERVAL (%d << LEAST(ingestion_attempts, %d)) SECOND) <= ?",
			seconds, MaxBackoffExponent), []interface{}{now}
	default:
		return fmt.Sprintf("CAST(strftime('%%s', created_at) AS INTEGER) + (%d << MIN(ingestion_attempts, %d)) <= ?",
			seconds, MaxBackoffExponent), []interface{}{now.Unix()}
	}
}
