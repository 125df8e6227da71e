// Package resource shapes models into API payloads.
//
// A transformer is a plain function from model to payload:
//
//	func Sweet(s models.Sweet) SweetResource { ... }
//
//	c.Success(resource.Collection(sweets, resources.Sweet))
//	c.Success(resource.Paginate(logs, resources.AuditLog, total, page))
package resource

import (
	"github.com/samber/lo"

	"github.com/shashiranjanraj/mithai/pkg/orm"
)

// Collection transforms items, never returning nil so empty lists render
// as [].
func Collection[T, R any](items []T, transform func(T) R) []R {
	if len(items) == 0 {
		return []R{}
	}
	return lo.Map(items, func(item T, _ int) R { return transform(item) })
}

type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

type Page[R any] struct {
	Items []R  `json:"items"`
	Meta  Meta `json:"meta"`
}

// Paginate transforms one page of items and attaches its metadata.
func Paginate[T, R any](items []T, transform func(T) R, total int64, page orm.Page) Page[R] {
	pages := 0
	if page.PerPage > 0 {
		pages = int((total + int64(page.PerPage) - 1) / int64(page.PerPage))
	}
	return Page[R]{
		Items: Collection(items, transform),
		Meta: Meta{
			Total:      total,
			Page:       page.Number,
			PerPage:    page.PerPage,
			TotalPages: pages,
		},
	}
}
