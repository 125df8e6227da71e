package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/validate"
)

type RestockInput struct {
	SweetID       uint `json:"sweet_id" validate:"required,gt=0"`
	QuantityAdded int  `json:"quantity_added" validate:"required,gt=0"`
}

// RestockReceipt is a committed restock with the resulting stock level.
type RestockReceipt struct {
	Restock     models.Restock
	NewQuantity int
}

type RestockService struct {
	db        *gorm.DB
	catalog   *repositories.CatalogRepository
	inventory *repositories.InventoryRepository
	restocks  *repositories.RestockRepository
	audit     *AuditRecorder
	cache     Invalidator
	events    events.Firer
	now       clock
}

func NewRestockService(
	db *gorm.DB,
	catalog *repositories.CatalogRepository,
	inventory *repositories.InventoryRepository,
	restocks *repositories.RestockRepository,
	audit *AuditRecorder,
	cache Invalidator,
	ev events.Firer,
) *RestockService {
	return &RestockService{
		db:        db,
		catalog:   catalog,
		inventory: inventory,
		restocks:  restocks,
		audit:     audit,
		cache:     cache,
		events:    ev,
		now:       systemClock,
	}
}

// Restock adds stock to an active sweet, creating its inventory row if it
// has none.
func (s *RestockService) Restock(ctx context.Context, adminID uint, in RestockInput) (RestockReceipt, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return RestockReceipt{}, apperr.Validation("Validation failed", errs)
	}

	var receipt RestockReceipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sweet, err := s.catalog.WithTx(tx).FindActive(ctx, in.SweetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Sweet not found")
		}
		if err != nil {
			return apperr.Database(err)
		}

		qty, err := s.inventory.WithTx(tx).Adjust(ctx, sweet.ID, in.QuantityAdded)
		if err != nil {
			return apperr.Database(err)
		}

		restock := models.Restock{
			AdminID:       adminID,
			SweetID:       sweet.ID,
			Sweet:         sweet,
			QuantityAdded: in.QuantityAdded,
			RestockedAt:   s.now(),
		}
		if err := s.restocks.WithTx(tx).Create(ctx, &restock); err != nil {
			return apperr.Database(err)
		}

		err = s.audit.Record(ctx, tx, adminID, models.ActionRestock, "restocks", restock.ID, models.Metadata{
			"sweet_id":       sweet.ID,
			"quantity_added": in.QuantityAdded,
		})
		if err != nil {
			return apperr.Database(err)
		}

		receipt = RestockReceipt{Restock: restock, NewQuantity: qty}
		return nil
	})
	if err != nil {
		return RestockReceipt{}, err
	}
	invalidate(ctx, s.cache)

	logger.WithCtx(ctx).Info("sweet restocked",
		"sweet_id", receipt.Restock.SweetID,
		"added", receipt.Restock.QuantityAdded,
		"quantity", receipt.NewQuantity,
	)
	s.events.FireAsync(ctx, events.InventoryRestocked, events.RestockPayload{
		Restock:   receipt.Restock,
		SweetName: receipt.Restock.Sweet.Name,
		Quantity:  receipt.NewQuantity,
	})
	return receipt, nil
}
