package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/cache"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/validate"
)

const catalogNamespace = "catalog"

var maxPrice = decimal.RequireFromString("99999999.99")

// SearchQuery is the raw query string of GET /api/sweets/search.
type SearchQuery struct {
	Name     string
	Category string
	MinPrice string
	MaxPrice string
}

type SweetInput struct {
	Name         string           `json:"name" validate:"required,max=100"`
	CategoryID   uint             `json:"category_id" validate:"required,gt=0"`
	Price        *decimal.Decimal `json:"price" validate:"required"`
	ImageURL     string           `json:"image_url" validate:"nullable,url,max=255"`
	Description  string           `json:"description" validate:"max=2000"`
	InitialStock int              `json:"initial_stock" validate:"gte=0"`
}

// SweetPatch updates only the fields that are present.
type SweetPatch struct {
	Name        *string          `json:"name" validate:"nullable,max=100"`
	CategoryID  *uint            `json:"category_id" validate:"nullable,gt=0"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url" validate:"nullable,url,max=255"`
	Description *string          `json:"description" validate:"nullable,max=2000"`
}

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SweetDetail is a sweet with its stock and review summary.
type SweetDetail struct {
	Sweet       models.Sweet
	Quantity    int
	AvgRating   float64
	ReviewCount int64
	Reviews     []models.Review
}

type CatalogService struct {
	db        *gorm.DB
	catalog   *repositories.CatalogRepository
	inventory *repositories.InventoryRepository
	reviews   *repositories.ReviewRepository
	audit     *AuditRecorder
	cache     *cache.Store
	ttl       time.Duration
	events    events.Firer
}

func NewCatalogService(
	db *gorm.DB,
	catalog *repositories.CatalogRepository,
	inventory *repositories.InventoryRepository,
	reviews *repositories.ReviewRepository,
	audit *AuditRecorder,
	store *cache.Store,
	ttl time.Duration,
	ev events.Firer,
) *CatalogService {
	return &CatalogService{
		db:        db,
		catalog:   catalog,
		inventory: inventory,
		reviews:   reviews,
		audit:     audit,
		cache:     store,
		ttl:       ttl,
		events:    ev,
	}
}

func (s *CatalogService) cacheKey(ctx context.Context, parts ...string) string {
	return fmt.Sprintf("%s:v%d:%s", catalogNamespace, s.cache.Version(ctx, catalogNamespace), strings.Join(parts, ":"))
}

// List returns every active sweet ordered by id.
func (s *CatalogService) List(ctx context.Context) ([]models.Sweet, error) {
	sweets, err := cache.Remember(ctx, s.cache, s.cacheKey(ctx, "list"), s.ttl, func() ([]models.Sweet, error) {
		return s.catalog.List(ctx)
	})
	if err != nil {
		return nil, apperr.Database(err)
	}
	return sweets, nil
}

// ParseSearch validates the raw query. Prices must be non-negative decimals
// and min_price may not exceed max_price.
func ParseSearch(q SearchQuery) (repositories.SearchFilter, error) {
	f := repositories.SearchFilter{
		Name:     strings.TrimSpace(q.Name),
		Category: strings.TrimSpace(q.Category),
	}
	errs := map[string]string{}

	parse := func(field, raw string) *decimal.Decimal {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			errs[field] = fmt.Sprintf("The %s must be a non-negative number.", field)
			return nil
		}
		return &d
	}
	f.MinPrice = parse("min_price", q.MinPrice)
	f.MaxPrice = parse("max_price", q.MaxPrice)

	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		errs["min_price"] = "The min_price must not be greater than max_price."
	}
	if len(errs) > 0 {
		return f, apperr.Validation("Validation failed", errs)
	}
	return f, nil
}

func (s *CatalogService) Search(ctx context.Context, q SearchQuery) ([]models.Sweet, error) {
	f, err := ParseSearch(q)
	if err != nil {
		return nil, err
	}

	key := url.Values{}
	key.Set("name", strings.ToLower(f.Name))
	key.Set("category", strings.ToLower(f.Category))
	if f.MinPrice != nil {
		key.Set("min", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		key.Set("max", f.MaxPrice.String())
	}

	sweets, err := cache.Remember(ctx, s.cache, s.cacheKey(ctx, "search", key.Encode()), s.ttl, func() ([]models.Sweet, error) {
		return s.catalog.Search(ctx, f)
	})
	if err != nil {
		return nil, apperr.Database(err)
	}
	return sweets, nil
}

func (s *CatalogService) Show(ctx context.Context, id uint) (SweetDetail, error) {
	sweet, err := s.findActive(ctx, s.catalog, id)
	if err != nil {
		return SweetDetail{}, err
	}

	avg, count, err := s.reviews.Rating(ctx, id)
	if err != nil {
		return SweetDetail{}, apperr.Database(err)
	}
	reviews, err := s.reviews.ListBySweet(ctx, id)
	if err != nil {
		return SweetDetail{}, apperr.Database(err)
	}

	detail := SweetDetail{Sweet: sweet, AvgRating: avg, ReviewCount: count, Reviews: reviews}
	if sweet.Inventory != nil {
		detail.Quantity = sweet.Inventory.Quantity
	}
	return detail, nil
}

func (s *CatalogService) findActive(ctx context.Context, repo *repositories.CatalogRepository, id uint) (models.Sweet, error) {
	sweet, err := repo.FindActive(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Sweet{}, apperr.NotFound("Sweet not found")
	}
	if err != nil {
		return models.Sweet{}, apperr.Database(err)
	}
	return sweet, nil
}

func checkPrice(p decimal.Decimal) (decimal.Decimal, error) {
	if p.IsNegative() {
		return p, apperr.Field("price", "The price must be at least 0.")
	}
	if p.GreaterThan(maxPrice) {
		return p, apperr.Field("price", "The price must not be greater than 99999999.99.")
	}
	return p.Round(2), nil
}

// Create adds a sweet with its inventory row.
func (s *CatalogService) Create(ctx context.Context, adminID uint, in SweetInput) (SweetDetail, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return SweetDetail{}, apperr.Validation("Validation failed", errs)
	}
	price, err := checkPrice(*in.Price)
	if err != nil {
		return SweetDetail{}, err
	}

	sweet := models.Sweet{
		Name:        strings.TrimSpace(in.Name),
		CategoryID:  in.CategoryID,
		Price:       price,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Description: strings.TrimSpace(in.Description),
		Lifecycle:   models.LifecycleActive,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		category, err := s.category(ctx, catalog, in.CategoryID)
		if err != nil {
			return err
		}
		sweet.Category = category

		if err := catalog.Create(ctx, &sweet); err != nil {
			return apperr.Database(err)
		}
		if _, err := s.inventory.WithTx(tx).Adjust(ctx, sweet.ID, in.InitialStock); err != nil {
			return apperr.Database(err)
		}
		return s.record(ctx, tx, adminID, models.ActionCreateSweet, sweet.ID, models.Metadata{
			"name":          sweet.Name,
			"price":         sweet.Price.StringFixed(2),
			"category_id":   sweet.CategoryID,
			"initial_stock": in.InitialStock,
		})
	})
	if err != nil {
		return SweetDetail{}, err
	}

	s.changed(ctx, models.ActionCreateSweet, sweet.ID)
	return SweetDetail{Sweet: sweet, Quantity: in.InitialStock}, nil
}

func (s *CatalogService) Update(ctx context.Context, adminID, id uint, in SweetPatch) (SweetDetail, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return SweetDetail{}, apperr.Validation("Validation failed", errs)
	}

	var sweet models.Sweet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		var err error
		if sweet, err = s.findActive(ctx, catalog, id); err != nil {
			return err
		}

		changes := models.Metadata{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Field("name", "The name field is required.")
			}
			sweet.Name = name
			changes["name"] = name
		}
		if in.CategoryID != nil && *in.CategoryID != sweet.CategoryID {
			category, err := s.category(ctx, catalog, *in.CategoryID)
			if err != nil {
				return err
			}
			sweet.CategoryID = category.ID
			sweet.Category = category
			changes["category_id"] = category.ID
		}
		if in.Price != nil {
			price, err := checkPrice(*in.Price)
			if err != nil {
				return err
			}
			sweet.Price = price
			changes["price"] = price.StringFixed(2)
		}
		if in.ImageURL != nil {
			sweet.ImageURL = strings.TrimSpace(*in.ImageURL)
			changes["image_url"] = sweet.ImageURL
		}
		if in.Description != nil {
			sweet.Description = strings.TrimSpace(*in.Description)
			changes["description"] = sweet.Description
		}

		if err := catalog.Save(ctx, &sweet); err != nil {
			return apperr.Database(err)
		}
		return s.record(ctx, tx, adminID, models.ActionUpdateSweet, sweet.ID, models.Metadata{"changes": changes})
	})
	if err != nil {
		return SweetDetail{}, err
	}

	s.changed(ctx, models.ActionUpdateSweet, sweet.ID)
	detail := SweetDetail{Sweet: sweet}
	if sweet.Inventory != nil {
		detail.Quantity = sweet.Inventory.Quantity
	}
	return detail, nil
}

// Delete moves the sweet to the deleted lifecycle state. Its purchases and
// reviews keep pointing at it.
func (s *CatalogService) Delete(ctx context.Context, adminID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		sweet, err := s.findActive(ctx, catalog, id)
		if err != nil {
			return err
		}
		if err := catalog.SoftDelete(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperr.NotFound("Sweet not found")
			}
			return apperr.Database(err)
		}
		return s.record(ctx, tx, adminID, models.ActionDeleteSweet, id, models.Metadata{"name": sweet.Name})
	})
	if err != nil {
		return err
	}

	s.changed(ctx, models.ActionDeleteSweet, id)
	return nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.catalog.Categories(ctx)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, adminID uint, in CategoryInput) (models.Category, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return models.Category{}, apperr.Validation("Validation failed", errs)
	}
	category := models.Category{Name: strings.TrimSpace(in.Name)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		_, err := catalog.FindCategoryByName(ctx, category.Name)
		switch {
		case err == nil:
			return apperr.Conflict("Category already exists")
		case !errors.Is(err, repositories.ErrNotFound):
			return apperr.Database(err)
		}

		if err := catalog.CreateCategory(ctx, &category); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperr.Conflict("Category already exists")
			}
			return apperr.Database(err)
		}
		return s.record(ctx, tx, adminID, models.ActionCreateCategory, category.ID, models.Metadata{"name": category.Name})
	})
	if err != nil {
		return models.Category{}, err
	}

	s.changed(ctx, models.ActionCreateCategory, 0)
	return category, nil
}

// Invalidate drops every cached catalog read.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx, catalogNamespace); err != nil {
		logger.WithCtx(ctx).Warn("catalog cache bump failed", "error", err)
	}
}

func (s *CatalogService) category(ctx context.Context, catalog *repositories.CatalogRepository, id uint) (models.Category, error) {
	category, err := catalog.FindCategory(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Category{}, apperr.NotFound("Category not found")
	}
	if err != nil {
		return models.Category{}, apperr.Database(err)
	}
	return category, nil
}

func (s *CatalogService) record(ctx context.Context, tx *gorm.DB, adminID uint, action string, target uint, meta models.Metadata) error {
	table := "sweets"
	if action == models.ActionCreateCategory {
		table = "categories"
	}
	if err := s.audit.Record(ctx, tx, adminID, action, table, target, meta); err != nil {
		return apperr.Database(err)
	}
	return nil
}

func (s *CatalogService) changed(ctx context.Context, action string, sweetID uint) {
	s.Invalidate(ctx)
	s.events.FireAsync(ctx, events.CatalogChanged, events.CatalogPayload{Action: action, SweetID: sweetID})
}
