package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

const (
	LotReceivedEvent         = "lot.received"
	MovementAppendedEvent    = "movement.appended"
	StockWithdrawnEvent      = "stock.withdrawn"
	ApplicationRecordedEvent = "application.recorded"
	MixCreatedEvent          = "mix.created"

	ProductUpsertedEvent = "product.upserted"
	ProductDeletedEvent  = "product.deleted"
	ActiveUpsertedEvent  = "active.upserted"
	ActiveDeletedEvent   = "active.deleted"
	RuleSavedEvent       = "rule.saved"
)

// Stream ids group events by the record they concern
func LotStream(id entities.LotID) string                 { return "lot-" + string(id) }
func ProductStream(id entities.ProductID) string         { return "product-" + string(id) }
func ActiveStream(id entities.ActiveID) string           { return "active-" + string(id) }
func ApplicationStream(id entities.ApplicationID) string { return "application-" + string(id) }
func MixStream(id entities.MixID) string                 { return "mix-" + string(id) }

const RulesStream = "compatibility-rules"

type LotReceived struct {
	Lot      entities.StockLot `json:"lot"`
	Quantity decimal.Decimal   `json:"quantity"`
}

type MovementAppended struct {
	Movement entities.LedgerMovement `json:"movement"`
	Balance  decimal.Decimal         `json:"balance"`
}

type StockWithdrawn struct {
	Result entities.AllocationResult `json:"result"`
	Reason string                    `json:"reason"`
}

type ApplicationRecorded struct {
	Application entities.Application `json:"application"`
}

type MixCreated struct {
	Mix entities.TankMix `json:"mix"`
}

type ProductUpserted struct {
	Product entities.Product         `json:"product"`
	Actives []entities.ProductActive `json:"actives"`
}

type ProductDeleted struct {
	ProductID entities.ProductID `json:"product_id"`
}

type ActiveUpserted struct {
	Active entities.ActiveSubstance `json:"active"`
}

type ActiveDeleted struct {
	ActiveID entities.ActiveID `json:"active_id"`
}

type RuleSaved struct {
	Rule entities.CompatibilityRule `json:"rule"`
}
