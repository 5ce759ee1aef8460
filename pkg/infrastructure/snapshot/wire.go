package snapshot

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// Wire types. Decimals travel as strings, an empty string is null; times as
// Unix milliseconds.

type Active struct {
	ID        string   `msgpack:"id"`
	Name      string   `msgpack:"name"`
	Key       string   `msgpack:"key"`
	Synonyms  []string `msgpack:"synonyms,omitempty"`
	CASNumber string   `msgpack:"cas,omitempty"`
	Notes     string   `msgpack:"notes,omitempty"`
}

type Product struct {
	ID          string `msgpack:"id"`
	TradeName   string `msgpack:"trade_name"`
	Key         string `msgpack:"key"`
	ProductType string `msgpack:"type,omitempty"`
	Density     string `msgpack:"density,omitempty"`
	DefaultUnit int    `msgpack:"default_unit,omitempty"`
	Formulation string `msgpack:"formulation,omitempty"`
	Supplier    string `msgpack:"supplier,omitempty"`
	Notes       string `msgpack:"notes,omitempty"`
}

type ProductActive struct {
	ProductID     string `msgpack:"product_id"`
	ActiveID      string `msgpack:"active_id"`
	Concentration string `msgpack:"concentration"`
	Unit          int    `msgpack:"unit"`
}

type Lot struct {
	ID         string `msgpack:"id"`
	ProductID  string `msgpack:"product_id"`
	LocationID string `msgpack:"location"`
	LotCode    string `msgpack:"code"`
	ReceivedMs int64  `msgpack:"received"`
	ExpiryMs   *int64 `msgpack:"expiry,omitempty"`
	Unit       int    `msgpack:"unit"`
	UnitPrice  string `msgpack:"unit_price,omitempty"`
	Notes      string `msgpack:"notes,omitempty"`
}

type Movement struct {
	ID          string `msgpack:"id"`
	LotID       string `msgpack:"lot_id"`
	Sequence    int64  `msgpack:"seq"`
	Direction   int    `msgpack:"dir"`
	Quantity    string `msgpack:"qty"`
	Unit        int    `msgpack:"unit"`
	EffectiveMs int64  `msgpack:"date"`
	RefType     string `msgpack:"ref_type,omitempty"`
	RefID       string `msgpack:"ref_id,omitempty"`
	Reason      string `msgpack:"reason,omitempty"`
	Notes       string `msgpack:"notes,omitempty"`
	CreatedMs   int64  `msgpack:"created"`
}

type Rule struct {
	A        string `msgpack:"a"`
	B        string `msgpack:"b"`
	Relation int    `msgpack:"relation"`
	Notes    string `msgpack:"notes,omitempty"`
}

type MixItem struct {
	ProductID string `msgpack:"product_id"`
	DosePerHa string `msgpack:"dose"`
	DoseUnit  int    `msgpack:"unit"`
}

type Mix struct {
	ID               string    `msgpack:"id"`
	Name             string    `msgpack:"name"`
	WaterPH          string    `msgpack:"ph,omitempty"`
	WaterHardnessPPM string    `msgpack:"hardness,omitempty"`
	Notes            string    `msgpack:"notes,omitempty"`
	Items            []MixItem `msgpack:"items"`
	Compatibility    int       `msgpack:"compatibility"`
	CreatedMs        int64     `msgpack:"created"`
}

type ApplicationItem struct {
	ProductID  string `msgpack:"product_id"`
	AppliedQty string `msgpack:"qty"`
	Unit       int    `msgpack:"unit"`
	FromLotID  string `msgpack:"lot_id"`
	UnitPrice  string `msgpack:"unit_price,omitempty"`
	Cost       string `msgpack:"cost"`
}

type Application struct {
	ID          string            `msgpack:"id"`
	ParcelRef   string            `msgpack:"parcel"`
	DateMs      int64             `msgpack:"date"`
	AreaHa      string            `msgpack:"area_ha"`
	MixID       string            `msgpack:"mix_id,omitempty"`
	Operator    string            `msgpack:"operator,omitempty"`
	Machine     string            `msgpack:"machine,omitempty"`
	WaterLPerHa string            `msgpack:"water,omitempty"`
	TankVolumeL string            `msgpack:"tank,omitempty"`
	Status      string            `msgpack:"status"`
	TotalCost   string            `msgpack:"total_cost"`
	Items       []ApplicationItem `msgpack:"items"`
	CreatedMs   int64             `msgpack:"created"`
}

func toMs(t time.Time) int64 { return t.UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", field, s)
	}
	return d, nil
}

func parseNull(field, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseDecimal(field, s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func fromActive(a *entities.ActiveSubstance) Active {
	return Active{ID: string(a.ID), Name: a.Name, Key: a.NormalizedName, Synonyms: a.Synonyms, CASNumber: a.CASNumber, Notes: a.Notes}
}

func (a Active) entity() *entities.ActiveSubstance {
	return &entities.ActiveSubstance{
		ID: entities.ActiveID(a.ID), Name: a.Name, NormalizedName: a.Key,
		Synonyms: a.Synonyms, CASNumber: a.CASNumber, Notes: a.Notes,
	}
}

func fromProduct(p *entities.Product) Product {
	return Product{
		ID: string(p.ID), TradeName: p.TradeName, Key: p.NormalizedName, ProductType: p.ProductType,
		Density: nullString(p.Density), DefaultUnit: int(p.DefaultUnit),
		Formulation: p.Formulation, Supplier: p.Supplier, Notes: p.Notes,
	}
}

func (p Product) entity() (*entities.Product, error) {
	density, err := parseNull("density", p.Density)
	if err != nil {
		return nil, err
	}
	return &entities.Product{
		ID: entities.ProductID(p.ID), TradeName: p.TradeName, NormalizedName: p.Key, ProductType: p.ProductType,
		Density: density, DefaultUnit: entities.QuantityUnit(p.DefaultUnit),
		Formulation: p.Formulation, Supplier: p.Supplier, Notes: p.Notes,
	}, nil
}

func fromProductActive(pa entities.ProductActive) ProductActive {
	return ProductActive{
		ProductID: string(pa.ProductID), ActiveID: string(pa.ActiveID),
		Concentration: pa.Concentration.String(), Unit: int(pa.Unit),
	}
}

func (pa ProductActive) entity() (entities.ProductActive, error) {
	conc, err := parseDecimal("concentration", pa.Concentration)
	if err != nil {
		return entities.ProductActive{}, err
	}
	unit := entities.ConcentrationUnit(pa.Unit)
	if !unit.IsValid() {
		return entities.ProductActive{}, fmt.Errorf("concentration unit %d unknown", pa.Unit)
	}
	return entities.ProductActive{
		ProductID: entities.ProductID(pa.ProductID), ActiveID: entities.ActiveID(pa.ActiveID),
		Concentration: conc, Unit: unit,
	}, nil
}

func fromLot(l *entities.StockLot) Lot {
	out := Lot{
		ID: string(l.ID), ProductID: string(l.ProductID), LocationID: l.LocationID, LotCode: l.LotCode,
		ReceivedMs: toMs(l.ReceivedDate), Unit: int(l.Unit), UnitPrice: nullString(l.UnitPrice), Notes: l.Notes,
	}
	if l.ExpiryDate != nil {
		ms := toMs(*l.ExpiryDate)
		out.ExpiryMs = &ms
	}
	return out
}

func (l Lot) entity() (*entities.StockLot, error) {
	price, err := parseNull("unit_price", l.UnitPrice)
	if err != nil {
		return nil, err
	}
	unit := entities.QuantityUnit(l.Unit)
	if !unit.IsValid() {
		return nil, fmt.Errorf("unit %d unknown", l.Unit)
	}
	lot := &entities.StockLot{
		ID: entities.LotID(l.ID), ProductID: entities.ProductID(l.ProductID), LocationID: l.LocationID,
		LotCode: l.LotCode, ReceivedDate: fromMs(l.ReceivedMs), Unit: unit, UnitPrice: price, Notes: l.Notes,
	}
	if l.ExpiryMs != nil {
		t := fromMs(*l.ExpiryMs)
		lot.ExpiryDate = &t
	}
	return lot, nil
}

func fromMovement(m entities.LedgerMovement) Movement {
	return Movement{
		ID: string(m.ID), LotID: string(m.LotID), Sequence: m.Sequence, Direction: int(m.Direction),
		Quantity: m.Quantity.String(), Unit: int(m.Unit), EffectiveMs: toMs(m.EffectiveDate),
		RefType: m.RefType, RefID: m.RefID, Reason: m.Reason, Notes: m.Notes, CreatedMs: toMs(m.CreatedAt),
	}
}

func (m Movement) entity() (*entities.LedgerMovement, error) {
	qty, err := parseDecimal("quantity", m.Quantity)
	if err != nil {
		return nil, err
	}
	return &entities.LedgerMovement{
		ID: entities.MovementID(m.ID), LotID: entities.LotID(m.LotID), Direction: entities.Direction(m.Direction),
		Quantity: qty, Unit: entities.QuantityUnit(m.Unit), EffectiveDate: fromMs(m.EffectiveMs),
		RefType: m.RefType, RefID: m.RefID, Reason: m.Reason, Notes: m.Notes, CreatedAt: fromMs(m.CreatedMs),
	}, nil
}

func fromMix(mix *entities.TankMix) Mix {
	out := Mix{
		ID: string(mix.ID), Name: mix.Name, WaterPH: nullString(mix.WaterPH),
		WaterHardnessPPM: nullString(mix.WaterHardnessPPM), Notes: mix.Notes,
		Items: make([]MixItem, 0, len(mix.Items)), Compatibility: int(mix.Compatibility), CreatedMs: toMs(mix.CreatedAt),
	}
	for _, item := range mix.Items {
		out.Items = append(out.Items, MixItem{ProductID: string(item.ProductID), DosePerHa: item.DosePerHa.String(), DoseUnit: int(item.DoseUnit)})
	}
	return out
}

func (m Mix) entity() (*entities.TankMix, error) {
	ph, err := parseNull("water_ph", m.WaterPH)
	if err != nil {
		return nil, err
	}
	hardness, err := parseNull("water_hardness", m.WaterHardnessPPM)
	if err != nil {
		return nil, err
	}
	mix := &entities.TankMix{
		ID: entities.MixID(m.ID), Name: m.Name, WaterPH: ph, WaterHardnessPPM: hardness, Notes: m.Notes,
		Items: make([]entities.TankMixItem, 0, len(m.Items)), Compatibility: entities.Verdict(m.Compatibility),
		CreatedAt: fromMs(m.CreatedMs),
	}
	for _, item := range m.Items {
		dose, err := parseDecimal("dose", item.DosePerHa)
		if err != nil {
			return nil, err
		}
		mix.Items = append(mix.Items, entities.TankMixItem{
			ProductID: entities.ProductID(item.ProductID), DosePerHa: dose, DoseUnit: entities.QuantityUnit(item.DoseUnit),
		})
	}
	return mix, nil
}

func fromApplication(app *entities.Application) Application {
	out := Application{
		ID: string(app.ID), ParcelRef: app.ParcelRef, DateMs: toMs(app.Date), AreaHa: app.AreaHa.String(),
		MixID: string(app.MixID), Operator: app.Operator, Machine: app.Machine,
		WaterLPerHa: nullString(app.WaterLPerHa), TankVolumeL: nullString(app.TankVolumeL), Status: app.Status, TotalCost: app.TotalCost.String(),
		Items: make([]ApplicationItem, 0, len(app.Items)), CreatedMs: toMs(app.CreatedAt),
	}
	for _, item := range app.Items {
		out.Items = append(out.Items, ApplicationItem{
			ProductID: string(item.ProductID), AppliedQty: item.AppliedQty.String(), Unit: int(item.Unit),
			FromLotID: string(item.FromLotID), UnitPrice: nullString(item.UnitPrice), Cost: item.Cost.String(),
		})
	}
	return out
}

func (a Application) entity() (*entities.Application, error) {
	area, err := parseDecimal("area_ha", a.AreaHa)
	if err != nil {
		return nil, err
	}
	water, err := parseNull("water_l_per_ha", a.WaterLPerHa)
	if err != nil {
		return nil, err
	}
	tank, err := parseNull("tank_volume_l", a.TankVolumeL)
	if err != nil {
		return nil, err
	}
	total, err := parseDecimal("total_cost", a.TotalCost)
	if err != nil {
		return nil, err
	}
	app := &entities.Application{
		ID: entities.ApplicationID(a.ID), ParcelRef: a.ParcelRef, Date: fromMs(a.DateMs), AreaHa: area,
		MixID: entities.MixID(a.MixID), Operator: a.Operator, Machine: a.Machine, WaterLPerHa: water,
		TankVolumeL: tank,
		Status: a.Status, TotalCost: total, Items: make([]entities.ApplicationItem, 0, len(a.Items)),
		CreatedAt: fromMs(a.CreatedMs),
	}
	for _, item := range a.Items {
		qty, err := parseDecimal("applied_qty", item.AppliedQty)
		if err != nil {
			return nil, err
		}
		price, err := parseNull("unit_price", item.UnitPrice)
		if err != nil {
			return nil, err
		}
		cost, err := parseDecimal("cost", item.Cost)
		if err != nil {
			return nil, err
		}
		app.Items = append(app.Items, entities.ApplicationItem{
			ProductID: entities.ProductID(item.ProductID), AppliedQty: qty, Unit: entities.QuantityUnit(item.Unit),
			FromLotID: entities.LotID(item.FromLotID), UnitPrice: price, Cost: cost,
		})
	}
	return app, nil
}
