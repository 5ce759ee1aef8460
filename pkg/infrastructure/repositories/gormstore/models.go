package gormstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// Decimal columns are stored as text so SQLite's numeric affinity never turns them into floats.

type productModel struct {
	ID             string              `gorm:"primaryKey"`
	TradeName      string              `gorm:"not null"`
	NormalizedName string              `gorm:"not null;index"`
	ProductType    string              `gorm:"index"`
	Density        decimal.NullDecimal `gorm:"type:text"`
	DefaultUnit    int
	Formulation    string
	Supplier       string
	Notes          string
}

func (productModel) TableName() string { return "products" }

type activeModel struct {
	ID             string   `gorm:"primaryKey"`
	Name           string   `gorm:"not null"`
	NormalizedName string   `gorm:"not null;index"`
	Synonyms       []string `gorm:"serializer:json"`
	CASNumber      string
	Notes          string
}

func (activeModel) TableName() string { return "active_substances" }

type productActiveModel struct {
	ProductID     string          `gorm:"primaryKey"`
	ActiveID      string          `gorm:"primaryKey;index"`
	Concentration decimal.Decimal `gorm:"type:text;not null"`
	Unit          int             `gorm:"not null"`
	Position      int
}

func (productActiveModel) TableName() string { return "product_actives" }

type lotModel struct {
	ID           string `gorm:"primaryKey"`
	ProductID    string `gorm:"not null;index"`
	LocationID   string `gorm:"not null"`
	LotCode      string `gorm:"not null"`
	ReceivedDate time.Time
	ExpiryDate   *time.Time
	Unit         int                 `gorm:"not null"`
	UnitPrice    decimal.NullDecimal `gorm:"type:text"`
	Notes        string
}

func (lotModel) TableName() string { return "stock_lots" }

type movementModel struct {
	ID            string          `gorm:"primaryKey"`
	LotID         string          `gorm:"not null;index"`
	Sequence      int64           `gorm:"not null;uniqueIndex"`
	Direction     int             `gorm:"not null"`
	Quantity      decimal.Decimal `gorm:"type:text;not null"`
	Unit          int             `gorm:"not null"`
	EffectiveDate time.Time
	RefType       string
	RefID         string `gorm:"index"`
	Reason        string
	Notes         string
	CreatedAt     time.Time
}

func (movementModel) TableName() string { return "ledger_movements" }

type applicationModel struct {
	ID          string `gorm:"primaryKey"`
	ParcelRef   string `gorm:"index"`
	Date        time.Time
	AreaHa      decimal.Decimal `gorm:"type:text"`
	MixID       string
	Operator    string
	Machine     string
	WaterLPerHa decimal.NullDecimal `gorm:"type:text"`
	TankVolumeL decimal.NullDecimal `gorm:"type:text"`
	Status      string
	TotalCost   decimal.Decimal `gorm:"type:text"`
	CreatedAt   time.Time
}

func (applicationModel) TableName() string { return "applications" }

type applicationItemModel struct {
	ApplicationID string `gorm:"primaryKey"`
	Position      int    `gorm:"primaryKey"`
	ProductID     string
	AppliedQty    decimal.Decimal `gorm:"type:text"`
	Unit          int
	FromLotID     string `gorm:"index"`
	UnitPrice     decimal.NullDecimal `gorm:"type:text"`
	Cost          decimal.Decimal     `gorm:"type:text"`
}

func (applicationItemModel) TableName() string { return "application_items" }

type mixModel struct {
	ID               string `gorm:"primaryKey"`
	Name             string
	WaterPH          decimal.NullDecimal `gorm:"type:text"`
	WaterHardnessPPM decimal.NullDecimal `gorm:"type:text"`
	Notes            string
	Compatibility    int
	CreatedAt        time.Time
}

func (mixModel) TableName() string { return "tank_mixes" }

type mixItemModel struct {
	MixID     string `gorm:"primaryKey"`
	Position  int    `gorm:"primaryKey"`
	ProductID string
	DosePerHa decimal.Decimal `gorm:"type:text"`
	DoseUnit  int
}

func (mixItemModel) TableName() string { return "tank_mix_items" }

type ruleModel struct {
	A        string `gorm:"primaryKey"`
	B        string `gorm:"primaryKey"`
	Relation int    `gorm:"not null"`
	Notes    string
}

func (ruleModel) TableName() string { return "compatibility_rules" }

func allModels() []any {
	return []any{
		&productModel{},
		&activeModel{},
		&productActiveModel{},
		&lotModel{},
		&movementModel{},
		&applicationModel{},
		&applicationItemModel{},
		&mixModel{},
		&mixItemModel{},
		&ruleModel{},
	}
}

func toProductModel(p *entities.Product) productModel {
	return productModel{
		ID:             string(p.ID),
		TradeName:      p.TradeName,
		NormalizedName: p.NormalizedName,
		ProductType:    p.ProductType,
		Density:        p.Density,
		DefaultUnit:    int(p.DefaultUnit),
		Formulation:    p.Formulation,
		Supplier:       p.Supplier,
		Notes:          p.Notes,
	}
}

func (m productModel) toEntity() *entities.Product {
	return &entities.Product{
		ID:             entities.ProductID(m.ID),
		TradeName:      m.TradeName,
		NormalizedName: m.NormalizedName,
		ProductType:    m.ProductType,
		Density:        m.Density,
		DefaultUnit:    entities.QuantityUnit(m.DefaultUnit),
		Formulation:    m.Formulation,
		Supplier:       m.Supplier,
		Notes:          m.Notes,
	}
}

func toActiveModel(a *entities.ActiveSubstance) activeModel {
	return activeModel{
		ID:             string(a.ID),
		Name:           a.Name,
		NormalizedName: a.NormalizedName,
		Synonyms:       append([]string(nil), a.Synonyms...),
		CASNumber:      a.CASNumber,
		Notes:          a.Notes,
	}
}

func (m activeModel) toEntity() *entities.ActiveSubstance {
	return &entities.ActiveSubstance{
		ID:             entities.ActiveID(m.ID),
		Name:           m.Name,
		NormalizedName: m.NormalizedName,
		Synonyms:       m.Synonyms,
		CASNumber:      m.CASNumber,
		Notes:          m.Notes,
	}
}

func (m productActiveModel) toEntity() entities.ProductActive {
	return entities.ProductActive{
		ProductID:     entities.ProductID(m.ProductID),
		ActiveID:      entities.ActiveID(m.ActiveID),
		Concentration: m.Concentration,
		Unit:          entities.ConcentrationUnit(m.Unit),
	}
}

func toLotModel(l *entities.StockLot) lotModel {
	return lotModel{
		ID:           string(l.ID),
		ProductID:    string(l.ProductID),
		LocationID:   l.LocationID,
		LotCode:      l.LotCode,
		ReceivedDate: l.ReceivedDate.UTC(),
		ExpiryDate:   utcPtr(l.ExpiryDate),
		Unit:         int(l.Unit),
		UnitPrice:    l.UnitPrice,
		Notes:        l.Notes,
	}
}

func (m lotModel) toEntity() *entities.StockLot {
	return &entities.StockLot{
		ID:           entities.LotID(m.ID),
		ProductID:    entities.ProductID(m.ProductID),
		LocationID:   m.LocationID,
		LotCode:      m.LotCode,
		ReceivedDate: m.ReceivedDate.UTC(),
		ExpiryDate:   utcPtr(m.ExpiryDate),
		Unit:         entities.QuantityUnit(m.Unit),
		UnitPrice:    m.UnitPrice,
		Notes:        m.Notes,
	}
}

func toMovementModel(m *entities.LedgerMovement) movementModel {
	return movementModel{
		ID:            string(m.ID),
		LotID:         string(m.LotID),
		Sequence:      m.Sequence,
		Direction:     int(m.Direction),
		Quantity:      m.Quantity,
		Unit:          int(m.Unit),
		EffectiveDate: m.EffectiveDate.UTC(),
		RefType:       m.RefType,
		RefID:         m.RefID,
		Reason:        m.Reason,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func (m movementModel) toEntity() entities.LedgerMovement {
	return entities.LedgerMovement{
		ID:            entities.MovementID(m.ID),
		LotID:         entities.LotID(m.LotID),
		Direction:     entities.Direction(m.Direction),
		Quantity:      m.Quantity,
		Unit:          entities.QuantityUnit(m.Unit),
		EffectiveDate: m.EffectiveDate.UTC(),
		Sequence:      m.Sequence,
		RefType:       m.RefType,
		RefID:         m.RefID,
		Reason:        m.Reason,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func toApplicationModels(app *entities.Application) (applicationModel, []applicationItemModel) {
	model := applicationModel{
		ID:          string(app.ID),
		ParcelRef:   app.ParcelRef,
		Date:        app.Date.UTC(),
		AreaHa:      app.AreaHa,
		MixID:       string(app.MixID),
		Operator:    app.Operator,
		Machine:     app.Machine,
		WaterLPerHa: app.WaterLPerHa,
		TankVolumeL: app.TankVolumeL,
		Status:      app.Status,
		TotalCost:   app.TotalCost,
		CreatedAt:   app.CreatedAt.UTC(),
	}
	items := make([]applicationItemModel, 0, len(app.Items))
	for i, item := range app.Items {
		items = append(items, applicationItemModel{
			ApplicationID: string(app.ID),
			Position:      i,
			ProductID:     string(item.ProductID),
			AppliedQty:    item.AppliedQty,
			Unit:          int(item.Unit),
			FromLotID:     string(item.FromLotID),
			UnitPrice:     item.UnitPrice,
			Cost:          item.Cost,
		})
	}
	return model, items
}

func (m applicationModel) toEntity(items []applicationItemModel) *entities.Application {
	app := &entities.Application{
		ID:          entities.ApplicationID(m.ID),
		ParcelRef:   m.ParcelRef,
		Date:        m.Date.UTC(),
		AreaHa:      m.AreaHa,
		MixID:       entities.MixID(m.MixID),
		Operator:    m.Operator,
		Machine:     m.Machine,
		WaterLPerHa: m.WaterLPerHa,
		TankVolumeL: m.TankVolumeL,
		Status:      m.Status,
		TotalCost:   m.TotalCost,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	for _, item := range items {
		app.Items = append(app.Items, entities.ApplicationItem{
			ProductID:  entities.ProductID(item.ProductID),
			AppliedQty: item.AppliedQty,
			Unit:       entities.QuantityUnit(item.Unit),
			FromLotID:  entities.LotID(item.FromLotID),
			UnitPrice:  item.UnitPrice,
			Cost:       item.Cost,
		})
	}
	return app
}

func toMixModels(mix *entities.TankMix) (mixModel, []mixItemModel) {
	model := mixModel{
		ID:               string(mix.ID),
		Name:             mix.Name,
		WaterPH:          mix.WaterPH,
		WaterHardnessPPM: mix.WaterHardnessPPM,
		Notes:            mix.Notes,
		Compatibility:    int(mix.Compatibility),
		CreatedAt:        mix.CreatedAt.UTC(),
	}
	items := make([]mixItemModel, 0, len(mix.Items))
	for i, item := range mix.Items {
		items = append(items, mixItemModel{
			MixID:     string(mix.ID),
			Position:  i,
			ProductID: string(item.ProductID),
			DosePerHa: item.DosePerHa,
			DoseUnit:  int(item.DoseUnit),
		})
	}
	return model, items
}

func (m mixModel) toEntity(items []mixItemModel) *entities.TankMix {
	mix := &entities.TankMix{
		ID:               entities.MixID(m.ID),
		Name:             m.Name,
		WaterPH:          m.WaterPH,
		WaterHardnessPPM: m.WaterHardnessPPM,
		Notes:            m.Notes,
		Compatibility:    entities.Verdict(m.Compatibility),
		CreatedAt:        m.CreatedAt.UTC(),
	}
	for _, item := range items {
		mix.Items = append(mix.Items, entities.TankMixItem{
			ProductID: entities.ProductID(item.ProductID),
			DosePerHa: item.DosePerHa,
			DoseUnit:  entities.QuantityUnit(item.DoseUnit),
		})
	}
	return mix
}

func (m ruleModel) toEntity() *entities.CompatibilityRule {
	return &entities.CompatibilityRule{
		A:        m.A,
		B:        m.B,
		Relation: entities.Verdict(m.Relation),
		Notes:    m.Notes,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
