// Package orm holds small helpers shared by the gorm repositories.
package orm

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsNotFound reports a missing row from First/Take.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports a unique-constraint violation on any supported driver.
// Drivers without an error translator are matched on their message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key") || // postgres, sqlserver
		strings.Contains(msg, "Duplicate entry") // mysql
}

// LikeEscape is the escape character used with EscapeLike. A backslash would
// need dialect-specific quoting on MySQL.
const LikeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike escapes LIKE wildcards in s for use with ESCAPE '!'.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// Contains builds a case-insensitive substring condition on column:
//
//	db.Where(orm.Contains("sweets.name", q))
func Contains(column, s string) (string, string) {
	return "LOWER(" + column + ") LIKE ? ESCAPE '" + LikeEscape + "'",
		"%" + EscapeLike(strings.ToLower(s)) + "%"
}

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// Page is a 1-based page request.
type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps number and perPage into range.
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Scope applies LIMIT/OFFSET:
//
//	db.Scopes(page.Scope()).Find(&logs)
func (p Page) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.PerPage)
	}
}
