package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

func (r *repo) SaveApplication(ctx context.Context, app *entities.Application) error {
	model, items := toApplicationModels(app)
	return r.with(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		if err := tx.Delete(&applicationItemModel{}, "application_id = ?", model.ID).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (r *repo) GetApplication(ctx context.Context, id entities.ApplicationID) (*entities.Application, error) {
	var m applicationModel
	db := r.with(ctx)
	if err := db.First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, "application", string(id))
	}
	var items []applicationItemModel
	if err := db.Where("application_id = ?", m.ID).Order("position").Find(&items).Error; err != nil {
		return nil, err
	}
	return m.toEntity(items), nil
}

func (r *repo) ListApplications(ctx context.Context, parcelRef string) ([]*entities.Application, error) {
	db := r.with(ctx)
	q := db.Order("date DESC").Order("id DESC")
	if parcelRef != "" {
		q = q.Where("parcel_ref = ?", parcelRef)
	}
	var rows []applicationModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.Application, 0, len(rows))
	for _, m := range rows {
		var items []applicationItemModel
		if err := db.Where("application_id = ?", m.ID).Order("position").Find(&items).Error; err != nil {
			return nil, err
		}
		out = append(out, m.toEntity(items))
	}
	return out, nil
}

func (r *repo) SaveMix(ctx context.Context, mix *entities.TankMix) error {
	model, items := toMixModels(mix)
	return r.with(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		if err := tx.Delete(&mixItemModel{}, "mix_id = ?", model.ID).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (r *repo) GetMix(ctx context.Context, id entities.MixID) (*entities.TankMix, error) {
	var m mixModel
	db := r.with(ctx)
	if err := db.First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, "tank mix", string(id))
	}
	var items []mixItemModel
	if err := db.Where("mix_id = ?", m.ID).Order("position").Find(&items).Error; err != nil {
		return nil, err
	}
	return m.toEntity(items), nil
}

func (r *repo) ListMixes(ctx context.Context) ([]*entities.TankMix, error) {
	db := r.with(ctx)
	var rows []mixModel
	if err := db.Order("name").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.TankMix, 0, len(rows))
	for _, m := range rows {
		var items []mixItemModel
		if err := db.Where("mix_id = ?", m.ID).Order("position").Find(&items).Error; err != nil {
			return nil, err
		}
		out = append(out, m.toEntity(items))
	}
	return out, nil
}

func (r *repo) FindRule(ctx context.Context, a, b string) (*entities.CompatibilityRule, error) {
	var rows []ruleModel
	if err := r.with(ctx).Where("a = ? AND b = ?", a, b).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toEntity(), nil
}

func (r *repo) SaveRule(ctx context.Context, rule *entities.CompatibilityRule) error {
	m := ruleModel{A: rule.A, B: rule.B, Relation: int(rule.Relation), Notes: rule.Notes}
	return r.with(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ruleModel{}, "(a = ? AND b = ?) OR (a = ? AND b = ?)", rule.A, rule.B, rule.B, rule.A).Error; err != nil {
			return err
		}
		return tx.Create(&m).Error
	})
}

func (r *repo) ListRules(ctx context.Context) ([]*entities.CompatibilityRule, error) {
	var rows []ruleModel
	if err := r.with(ctx).Order("a").Order("b").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.CompatibilityRule, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}
