package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/validate"
)

type PurchaseInput struct {
	SweetID  uint `json:"sweet_id" validate:"required,gt=0"`
	Quantity int  `json:"quantity" validate:"required,gt=0"`
}

// Invalidator drops cached catalog reads so stock changes are visible to
// the next list or search.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type PurchaseService struct {
	db        *gorm.DB
	catalog   *repositories.CatalogRepository
	inventory *repositories.InventoryRepository
	purchases *repositories.PurchaseRepository
	audit     *AuditRecorder
	cache     Invalidator
	events    events.Firer
	now       clock
}

func NewPurchaseService(
	db *gorm.DB,
	catalog *repositories.CatalogRepository,
	inventory *repositories.InventoryRepository,
	purchases *repositories.PurchaseRepository,
	audit *AuditRecorder,
	cache Invalidator,
	ev events.Firer,
) *PurchaseService {
	return &PurchaseService{
		db:        db,
		catalog:   catalog,
		inventory: inventory,
		purchases: purchases,
		audit:     audit,
		cache:     cache,
		events:    ev,
		now:       systemClock,
	}
}

// Purchase buys quantity units of a sweet for buyerID. Stock check,
// decrement, purchase row and audit entry commit or roll back together.
func (s *PurchaseService) Purchase(ctx context.Context, buyerID uint, in PurchaseInput) (models.Purchase, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return models.Purchase{}, apperr.Validation("Validation failed", errs)
	}

	var (
		purchase  models.Purchase
		remaining int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sweet, err := s.catalog.WithTx(tx).FindActive(ctx, in.SweetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Sweet not found")
		}
		if err != nil {
			return apperr.Database(err)
		}

		remaining, err = s.inventory.WithTx(tx).Adjust(ctx, sweet.ID, -in.Quantity)
		if errors.Is(err, repositories.ErrInsufficientStock) {
			return apperr.Conflict("Insufficient stock available")
		}
		if err != nil {
			return apperr.Database(err)
		}

		purchase = models.Purchase{
			UserID:            buyerID,
			SweetID:           sweet.ID,
			Sweet:             sweet,
			QuantityPurchased: in.Quantity,
			TotalPrice:        sweet.Price.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
			PurchasedAt:       s.now(),
		}
		if err := s.purchases.WithTx(tx).Create(ctx, &purchase); err != nil {
			return apperr.Database(err)
		}

		err = s.audit.Record(ctx, tx, buyerID, models.ActionPurchase, "purchases", purchase.ID, models.Metadata{
			"sweet_id":           sweet.ID,
			"quantity_purchased": in.Quantity,
			"total_price":        purchase.TotalPrice.StringFixed(2),
		})
		if err != nil {
			return apperr.Database(err)
		}
		return nil
	})
	if err != nil {
		return models.Purchase{}, err
	}
	invalidate(ctx, s.cache)

	logger.WithCtx(ctx).Info("purchase completed",
		"purchase_id", purchase.ID,
		"sweet_id", purchase.SweetID,
		"quantity", purchase.QuantityPurchased,
		"remaining", remaining,
	)
	s.events.FireAsync(ctx, events.PurchaseCompleted, events.PurchasePayload{
		Purchase:  purchase,
		SweetName: purchase.Sweet.Name,
		Remaining: remaining,
	})
	return purchase, nil
}

func invalidate(ctx context.Context, c Invalidator) {
	if c != nil {
		c.Invalidate(ctx)
	}
}

// History lists the buyer's purchases, newest first.
func (s *PurchaseService) History(ctx context.Context, buyerID uint) ([]models.Purchase, error) {
	purchases, err := s.purchases.ListByUser(ctx, buyerID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return purchases, nil
}
