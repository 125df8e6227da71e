// Package repositories is the gorm-backed data access layer. Every
// repository can be rebound to a transaction with WithTx so a service can
// compose several of them in one unit of work.
package repositories

import (
	"errors"

	"github.com/shashiranjanraj/mithai/pkg/orm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// translate maps driver errors to the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case orm.IsNotFound(err):
		return ErrNotFound
	case orm.IsDuplicate(err):
		return ErrDuplicate
	default:
		return err
	}
}
