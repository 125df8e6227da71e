package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/validate"
)

type ReviewInput struct {
	SweetID uint   `json:"sweet_id" validate:"required,gt=0"`
	Rating  int    `json:"rating" validate:"required,between=1,5"`
	Comment string `json:"comment" validate:"nullable,max=1000"`
}

// Statement fragments that have no business in a review. Queries are
// parameterised; this only rejects obvious probing.
var sqlMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bUNION\s+SELECT\b`),
	regexp.MustCompile(`(?i)\bINSERT\s+INTO\b`),
	regexp.MustCompile(`(?i)\bUPDATE\s+.*\s+SET\b`),
	regexp.MustCompile(`(?i)\bDELETE\s+FROM\b`),
	regexp.MustCompile(`(?i)\bCREATE\s+TABLE\b`),
	regexp.MustCompile(`(?i)\bALTER\s+TABLE\b`),
	regexp.MustCompile(`(?i)\bEXEC(UTE)?\b`),
}

// LooksLikeSQL reports whether text carries a statement fragment.
func LooksLikeSQL(text string) bool {
	for _, re := range sqlMarkers {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

type ReviewService struct {
	catalog *repositories.CatalogRepository
	reviews *repositories.ReviewRepository
	now     clock
}

func NewReviewService(catalog *repositories.CatalogRepository, reviews *repositories.ReviewRepository) *ReviewService {
	return &ReviewService{catalog: catalog, reviews: reviews, now: systemClock}
}

// Create stores one review per user and sweet.
func (s *ReviewService) Create(ctx context.Context, userID uint, in ReviewInput) (models.Review, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return models.Review{}, apperr.Validation("Validation failed", errs)
	}
	comment := strings.TrimSpace(in.Comment)
	if LooksLikeSQL(comment) {
		return models.Review{}, apperr.Field("comment", "Invalid comment detected")
	}

	if _, err := s.catalog.FindActive(ctx, in.SweetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Review{}, apperr.NotFound("Sweet not found")
		}
		return models.Review{}, apperr.Database(err)
	}

	exists, err := s.reviews.Exists(ctx, userID, in.SweetID)
	if err != nil {
		return models.Review{}, apperr.Database(err)
	}
	if exists {
		return models.Review{}, apperr.Conflict("You have already reviewed this sweet")
	}

	review := models.Review{
		UserID:    userID,
		SweetID:   in.SweetID,
		Rating:    in.Rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if err := s.reviews.Create(ctx, &review); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.Review{}, apperr.Conflict("You have already reviewed this sweet")
		}
		return models.Review{}, apperr.Database(err)
	}
	return review, nil
}

// ForSweet lists the reviews of an active sweet, newest first.
func (s *ReviewService) ForSweet(ctx context.Context, sweetID uint) ([]models.Review, error) {
	if _, err := s.catalog.FindActive(ctx, sweetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Sweet not found")
		}
		return nil, apperr.Database(err)
	}
	reviews, err := s.reviews.ListBySweet(ctx, sweetID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return reviews, nil
}
