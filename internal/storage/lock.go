package storage

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrLocked возвращается, когда строку не удалось заблокировать за lock_timeout
// либо транзакция была выбрана жертвой взаимной блокировки.
var ErrLocked = errors.New("resource is locked, please try again")

// коды SQLSTATE postgres
const (
	codeLockNotAvailable = "55P03"
	codeDeadlock         = "40P01"
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
)

func mapLockError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeLockNotAvailable, codeDeadlock:
			return fmt.Errorf("%w: %s", ErrLocked, pqErr.Message)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeCheckViolation
}
