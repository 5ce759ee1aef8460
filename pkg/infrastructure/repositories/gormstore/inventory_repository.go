package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

func (r *repo) SaveLot(ctx context.Context, lot *entities.StockLot) error {
	m := toLotModel(lot)
	return r.with(ctx).Save(&m).Error
}

func (r *repo) GetLot(ctx context.Context, id entities.LotID) (*entities.StockLot, error) {
	var m lotModel
	if err := r.with(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, "lot", string(id))
	}
	return m.toEntity(), nil
}

func (r *repo) ListLots(ctx context.Context, filter entities.LotFilter) ([]*entities.StockLot, error) {
	q := r.with(ctx).Order("id")
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", string(filter.ProductID))
	}
	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Unit != 0 {
		q = q.Where("unit = ?", int(filter.Unit))
	}
	var rows []lotModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.StockLot, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

func (r *repo) CountLotsForProduct(ctx context.Context, productID entities.ProductID) (int, error) {
	var count int64
	err := r.with(ctx).Model(&lotModel{}).Where("product_id = ?", string(productID)).Count(&count).Error
	return int(count), err
}

// AppendMovement numbers the movement after the highest stored sequence.
// The single-connection pool keeps the read and the insert from interleaving.
func (r *repo) AppendMovement(ctx context.Context, movement *entities.LedgerMovement) error {
	return r.with(ctx).Transaction(func(tx *gorm.DB) error {
		var lots int64
		if err := tx.Model(&lotModel{}).Where("id = ?", string(movement.LotID)).Count(&lots).Error; err != nil {
			return err
		}
		if lots == 0 {
			return entities.NewNotFoundError("lot", string(movement.LotID))
		}

		var last int64
		if err := tx.Model(&movementModel{}).Select("COALESCE(MAX(sequence), 0)").Scan(&last).Error; err != nil {
			return fmt.Errorf("read ledger sequence: %w", err)
		}
		m := toMovementModel(movement)
		m.Sequence = last + 1
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		movement.Sequence = m.Sequence
		return nil
	})
}

func (r *repo) ListMovements(ctx context.Context, lotID entities.LotID) ([]entities.LedgerMovement, error) {
	var rows []movementModel
	if err := r.with(ctx).Where("lot_id = ?", string(lotID)).Order("sequence").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entities.LedgerMovement, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}
