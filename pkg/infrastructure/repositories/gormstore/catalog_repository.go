package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/services"
)

func (r *repo) SaveProduct(ctx context.Context, product *entities.Product) error {
	m := toProductModel(product)
	return r.with(ctx).Save(&m).Error
}

func (r *repo) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	var m productModel
	if err := r.with(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, "product", string(id))
	}
	return m.toEntity(), nil
}

func (r *repo) FindProductByName(ctx context.Context, normalizedName string) (*entities.Product, error) {
	var m productModel
	err := r.with(ctx).Where("normalized_name = ?", normalizedName).Order("id").First(&m).Error
	if err != nil {
		return nil, notFound(err, "product", normalizedName)
	}
	return m.toEntity(), nil
}

func (r *repo) ListProducts(ctx context.Context, productType string) ([]*entities.Product, error) {
	q := r.with(ctx).Order("trade_name").Order("id")
	if productType != "" {
		q = q.Where("product_type = ?", productType)
	}
	var rows []productModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.Product, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

func (r *repo) DeleteProduct(ctx context.Context, id entities.ProductID) error {
	return r.with(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&productModel{}, "id = ?", string(id))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return entities.NewNotFoundError("product", string(id))
		}
		return tx.Delete(&productActiveModel{}, "product_id = ?", string(id)).Error
	})
}

func (r *repo) SaveActive(ctx context.Context, active *entities.ActiveSubstance) error {
	m := toActiveModel(active)
	return r.with(ctx).Save(&m).Error
}

func (r *repo) GetActive(ctx context.Context, id entities.ActiveID) (*entities.ActiveSubstance, error) {
	var m activeModel
	if err := r.with(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, "active substance", string(id))
	}
	return m.toEntity(), nil
}

func (r *repo) FindActiveByName(ctx context.Context, normalizedName string) (*entities.ActiveSubstance, error) {
	var m activeModel
	err := r.with(ctx).Where("normalized_name = ?", normalizedName).Order("name").Order("id").First(&m).Error
	if err != nil {
		return nil, notFound(err, "active substance", normalizedName)
	}
	return m.toEntity(), nil
}

// FindActiveBySynonym scans the synonym lists, which are stored serialized and
// so cannot be matched in SQL after normalization.
func (r *repo) FindActiveBySynonym(ctx context.Context, normalizedName string) (*entities.ActiveSubstance, error) {
	actives, err := r.ListActives(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range actives {
		if services.MatchesSynonym(normalizedName, a.Synonyms) {
			return a, nil
		}
	}
	return nil, entities.NewNotFoundError("active substance", normalizedName)
}

func (r *repo) ListActives(ctx context.Context) ([]*entities.ActiveSubstance, error) {
	var rows []activeModel
	if err := r.with(ctx).Order("name").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.ActiveSubstance, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

func (r *repo) DeleteActive(ctx context.Context, id entities.ActiveID) error {
	res := r.with(ctx).Delete(&activeModel{}, "id = ?", string(id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.NewNotFoundError("active substance", string(id))
	}
	return nil
}

func (r *repo) SaveProductActive(ctx context.Context, pa entities.ProductActive) error {
	return r.with(ctx).Transaction(func(tx *gorm.DB) error {
		var position int64
		if err := tx.Model(&productActiveModel{}).Where("product_id = ?", string(pa.ProductID)).Count(&position).Error; err != nil {
			return fmt.Errorf("count product actives: %w", err)
		}
		m := productActiveModel{
			ProductID:     string(pa.ProductID),
			ActiveID:      string(pa.ActiveID),
			Concentration: pa.Concentration,
			Unit:          int(pa.Unit),
			Position:      int(position),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "active_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"concentration", "unit"}),
		}).Create(&m).Error
	})
}

func (r *repo) ListProductActives(ctx context.Context, productID entities.ProductID) ([]entities.ProductActive, error) {
	var rows []productActiveModel
	err := r.with(ctx).Where("product_id = ?", string(productID)).Order("position").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toProductActives(rows), nil
}

func (r *repo) ListProductsWithActive(ctx context.Context, activeID entities.ActiveID) ([]entities.ProductActive, error) {
	var rows []productActiveModel
	err := r.with(ctx).Where("active_id = ?", string(activeID)).Order("product_id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toProductActives(rows), nil
}

func (r *repo) DeleteProductActives(ctx context.Context, productID entities.ProductID) error {
	return r.with(ctx).Delete(&productActiveModel{}, "product_id = ?", string(productID)).Error
}

func toProductActives(rows []productActiveModel) []entities.ProductActive {
	out := make([]entities.ProductActive, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out
}
