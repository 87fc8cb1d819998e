// Package repository implements the store ports on MySQL.  Sentinel
// values from internal/store and internal/model are returned so that
// higher layers can distinguish failure scenarios with errors.Is; raw
// driver errors are only returned for unexpected failures.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/drop-waitlist/internal/store"
)

// MySQL server error numbers that carry meaning for callers.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// classify maps driver errors onto store sentinels.  The original error
// stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
		case errDeadlock, errLockWaitTimeout:
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
	}
	return err
}

// notFound converts sql.ErrNoRows into the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return classify(err)
}

func isDuplicate(err error) bool {
	return errors.Is(classify(err), store.ErrDuplicate)
}
