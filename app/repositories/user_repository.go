package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/pkg/rbac"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&user).Error
	return user, translate(err)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Role").First(&user, id).Error
	return user, translate(err)
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *UserRepository) exists(ctx context.Context, cond string, arg any) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.User{}).Where(cond, arg).Count(&n).Error
	return n > 0, err
}

// Create inserts user. A unique violation on email or username returns
// ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// List returns every user with its role, oldest first.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Preload("Role").Order("id").Find(&users).Error
	return users, err
}

func (r *UserRepository) RoleByName(ctx context.Context, name string) (models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	return role, translate(err)
}

// Principal reads the stored identity of a token subject for the access gate.
func (r *UserRepository) Principal(ctx context.Context, id uint) (rbac.Principal, error) {
	var row struct {
		ID       uint
		Username string
		Role     string
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id, users.username, roles.name AS role").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.id = ?", id).
		Take(&row).Error
	if err != nil {
		if translate(err) == ErrNotFound {
			return rbac.Principal{}, rbac.ErrUnknownUser
		}
		return rbac.Principal{}, err
	}
	return rbac.Principal{ID: row.ID, Username: row.Username, Role: row.Role}, nil
}
