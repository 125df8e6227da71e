package seeders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/config"
	"github.com/shashiranjanraj/mithai/pkg/auth"
)

func init() {
	Register("roles", SeedRoles)
	Register("categories", SeedCategories)
	Register("users", SeedUsers)
	Register("sweets", SeedSweets)
}

const (
	CategoryTraditional = "Traditional Sweets"
	CategoryFestival    = "Festival Sweets"
	CategoryDryFruit    = "Dry Fruit Sweets"
	CategoryFarsan      = "Farsan"
)

func SeedRoles(ctx context.Context, db *gorm.DB) error {
	for _, name := range []string{auth.RoleAdmin, auth.RoleCustomer} {
		role := models.Role{Name: name}
		if err := db.WithContext(ctx).Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

func SeedCategories(ctx context.Context, db *gorm.DB) error {
	for _, name := range []string{CategoryTraditional, CategoryFestival, CategoryDryFruit, CategoryFarsan} {
		c := models.Category{Name: name}
		if err := db.WithContext(ctx).Where(models.Category{Name: name}).FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

type seedUser struct {
	username, email, password, role string
	city, state, postal           string
}

// SeedUsers creates the shop admin and a verified demo customer. Existing
// accounts are left untouched, passwords included.
func SeedUsers(ctx context.Context, db *gorm.DB) error {
	users := []seedUser{
		{"admin_gj", "admin@gujaratsweets.com", config.Get("SEED_ADMIN_PASSWORD", "hash123"), auth.RoleAdmin, "Ahmedabad", "Gujarat", "380001"},
		{"legal_customer", "legal@gujaratsweets.com", config.Get("SEED_CUSTOMER_PASSWORD", "legal123"), auth.RoleCustomer, "Surat", "Gujarat", "395007"},
	}

	for _, u := range users {
		var role models.Role
		if err := db.WithContext(ctx).Where("name = ?", u.role).First(&role).Error; err != nil {
			return fmt.Errorf("role %s: %w", u.role, err)
		}

		var count int64
		if err := db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("email = ?", u.email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return err
		}
		user := models.User{
			Username:     u.username,
			Email:        u.email,
			PasswordHash: hash,
			RoleID:       role.ID,
			IsVerified:   true,
			City:         u.city,
			State:        u.state,
			PostalCode:   u.postal,
			Country:      "India",
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	}
	return nil
}

type seedSweet struct {
	name     string
	price    int64
	category string
	image    string
	stock    int
}

var sweets = []seedSweet{
	{"Kaju Katli", 450, CategoryDryFruit, "sweet_images/kaju_katli.jpg", 0},
	{"Jalebi", 220, CategoryFestival, "sweet_images/jalebi.jpg", 0},
	{"Mohanthal", 350, CategoryTraditional, "sweet_images/mohanthal.jpg", 100},
	{"Basundi", 300, CategoryTraditional, "sweet_images/basundi.jpg", 100},
	{"Peda", 180, CategoryFestival, "sweet_images/peda.jpg", 100},
	{"Rasgulla", 250, CategoryFestival, "sweet_images/rasgulla.jpg", 100},
	{"Ghari", 400, CategoryTraditional, "sweet_images/ghari.jpg", 100},
	{"Shakarpara", 160, CategoryFarsan, "sweet_images/shakarpara.jpg", 100},
	{"Khaman", 120, CategoryFarsan, "sweet_images/khaman.jpg", 100},
	{"Surti Undhiyu", 500, CategoryFarsan, "sweet_images/surti_undhiyu.jpg", 100},
}

// SeedSweets creates the catalog with its opening stock. The first two
// sweets start out of stock.
func SeedSweets(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	for _, s := range sweets {
		var category models.Category
		if err := db.Where("name = ?", s.category).First(&category).Error; err != nil {
			return fmt.Errorf("category %s: %w", s.category, err)
		}

		sweet := models.Sweet{
			Name:       s.name,
			CategoryID: category.ID,
			Price:      decimal.NewFromInt(s.price),
			ImageURL:   s.image,
			Lifecycle:  models.LifecycleActive,
		}
		if err := db.Omit("Category", "Inventory").Where("name = ?", s.name).FirstOrCreate(&sweet).Error; err != nil {
			return err
		}

		inv := models.SweetInventory{SweetID: sweet.ID, Quantity: s.stock}
		if err := db.Where("sweet_id = ?", sweet.ID).FirstOrCreate(&inv).Error; err != nil {
			return err
		}
	}
	return nil
}
