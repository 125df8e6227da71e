package repositories

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/pkg/orm"
)

// SearchFilter narrows the active catalog. Zero fields are ignored.
type SearchFilter struct {
	Name     string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: tx}
}

func (r *CatalogRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Category").
		Preload("Inventory").
		Where("sweets.lifecycle = ?", models.LifecycleActive)
}

// FindActive returns the sweet with its category and inventory, or
// ErrNotFound when it does not exist or was deleted.
func (r *CatalogRepository) FindActive(ctx context.Context, id uint) (models.Sweet, error) {
	var sweet models.Sweet
	err := r.active(ctx).Where("sweets.id = ?", id).First(&sweet).Error
	return sweet, translate(err)
}

func (r *CatalogRepository) List(ctx context.Context) ([]models.Sweet, error) {
	var sweets []models.Sweet
	err := r.active(ctx).Order("sweets.id").Find(&sweets).Error
	return sweets, err
}

func (r *CatalogRepository) Search(ctx context.Context, f SearchFilter) ([]models.Sweet, error) {
	q := r.active(ctx)

	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where(orm.Contains("sweets.name", name))
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		q = q.Joins("JOIN categories ON categories.id = sweets.category_id").
			Where("LOWER(categories.name) = ?", strings.ToLower(category))
	}
	if f.MinPrice != nil {
		q = q.Where("sweets.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("sweets.price <= ?", *f.MaxPrice)
	}

	sweets := []models.Sweet{}
	err := q.Order("sweets.id").Find(&sweets).Error
	return sweets, err
}

func (r *CatalogRepository) Create(ctx context.Context, sweet *models.Sweet) error {
	return translate(r.db.WithContext(ctx).Omit("Category", "Inventory").Create(sweet).Error)
}

// Save writes every column of an existing sweet.
func (r *CatalogRepository) Save(ctx context.Context, sweet *models.Sweet) error {
	return translate(r.db.WithContext(ctx).Omit("Category", "Inventory").Save(sweet).Error)
}

// SoftDelete moves an active sweet to the deleted lifecycle state.
func (r *CatalogRepository) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Sweet{}).
		Where("id = ? AND lifecycle = ?", id, models.LifecycleActive).
		Update("lifecycle", models.LifecycleDeleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CatalogRepository) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}

func (r *CatalogRepository) FindCategory(ctx context.Context, id uint) (models.Category, error) {
	var c models.Category
	err := r.db.WithContext(ctx).First(&c, id).Error
	return c, translate(err)
}

// FindCategoryByName matches case-insensitively.
func (r *CatalogRepository) FindCategoryByName(ctx context.Context, name string) (models.Category, error) {
	var c models.Category
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&c).Error
	return c, translate(err)
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}
