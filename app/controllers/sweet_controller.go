package controllers

import (
	"github.com/shashiranjanraj/mithai/app/resources"
	"github.com/shashiranjanraj/mithai/app/services"
	"github.com/shashiranjanraj/mithai/pkg/ctx"
	"github.com/shashiranjanraj/mithai/pkg/resource"
)

type SweetController struct {
	catalog *services.CatalogService
}

func NewSweetController(catalog *services.CatalogService) *SweetController {
	return &SweetController{catalog: catalog}
}

func (c *SweetController) Index(cx *ctx.Context) {
	sweets, err := c.catalog.List(cx.Context())
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resource.Collection(sweets, resources.NewSweet))
}

// Search filters by ?name=, ?category=, ?min_price= and ?max_price=.
func (c *SweetController) Search(cx *ctx.Context) {
	sweets, err := c.catalog.Search(cx.Context(), services.SearchQuery{
		Name:     cx.Query("name"),
		Category: cx.Query("category"),
		MinPrice: cx.Query("min_price"),
		MaxPrice: cx.Query("max_price"),
	})
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resource.Collection(sweets, resources.NewSweet))
}

func (c *SweetController) Show(cx *ctx.Context) {
	id, err := cx.ParamUint("id")
	if err != nil {
		cx.Fail(err)
		return
	}
	detail, err := c.catalog.Show(cx.Context(), id)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resources.NewSweetDetail(detail))
}

func (c *SweetController) Store(cx *ctx.Context) {
	admin, ok := identity(cx)
	if !ok {
		return
	}
	var in services.SweetInput
	if !cx.BindJSON(&in) {
		return
	}

	detail, err := c.catalog.Create(cx.Context(), admin.UserID, in)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Created(resources.NewSweetDetail(detail))
}

func (c *SweetController) Update(cx *ctx.Context) {
	admin, ok := identity(cx)
	if !ok {
		return
	}
	id, err := cx.ParamUint("id")
	if err != nil {
		cx.Fail(err)
		return
	}
	var in services.SweetPatch
	if !cx.BindJSON(&in) {
		return
	}

	detail, err := c.catalog.Update(cx.Context(), admin.UserID, id, in)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resources.NewSweetDetail(detail))
}

func (c *SweetController) Destroy(cx *ctx.Context) {
	admin, ok := identity(cx)
	if !ok {
		return
	}
	id, err := cx.ParamUint("id")
	if err != nil {
		cx.Fail(err)
		return
	}
	if err := c.catalog.Delete(cx.Context(), admin.UserID, id); err != nil {
		cx.Fail(err)
		return
	}
	cx.Message("Sweet deleted successfully")
}

type CategoryController struct {
	catalog *services.CatalogService
}

func NewCategoryController(catalog *services.CatalogService) *CategoryController {
	return &CategoryController{catalog: catalog}
}

func (c *CategoryController) Index(cx *ctx.Context) {
	categories, err := c.catalog.Categories(cx.Context())
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resource.Collection(categories, resources.NewCategory))
}

func (c *CategoryController) Store(cx *ctx.Context) {
	admin, ok := identity(cx)
	if !ok {
		return
	}
	var in services.CategoryInput
	if !cx.BindJSON(&in) {
		return
	}

	category, err := c.catalog.CreateCategory(cx.Context(), admin.UserID, in)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Created(resources.NewCategory(category))
}
