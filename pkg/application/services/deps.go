package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/services/shared"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	"github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
)

// DefaultExpiryWarningDays flags lots expiring within this many days
const DefaultExpiryWarningDays = 90

// Deps are the collaborators shared by every service. Store is required;
// the rest default when left zero.
type Deps struct {
	Store  repositories.Store
	Locks  *shared.ProductLocks
	Events events.EventStore
	Logger zerolog.Logger
	Now    func() time.Time

	ExpiryWarningDays int
}

func (d Deps) withDefaults() Deps {
	if d.Locks == nil {
		d.Locks = shared.NewProductLocks()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.ExpiryWarningDays <= 0 {
		d.ExpiryWarningDays = DefaultExpiryWarningDays
	}
	return d
}

// publish records an event after a successful commit. Failures are logged
// and never undo the committed change.
func (d Deps) publish(streamID, eventType string, data any) {
	if d.Events == nil {
		return
	}
	if err := d.Events.AppendEvent(streamID, events.NewEvent(eventType, streamID, data, d.Now())); err != nil {
		d.Logger.Warn().Err(err).Str("type", eventType).Str("stream", streamID).Msg("failed to publish event")
	}
}

// lotBalances returns the lots matching filter with their folded balances
func lotBalances(ctx context.Context, repos repositories.Repositories, filter entities.LotFilter) ([]entities.LotBalance, error) {
	lots, err := repos.Ledger.ListLots(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	rows := make([]entities.LotBalance, 0, len(lots))
	for _, lot := range lots {
		movements, err := repos.Ledger.ListMovements(ctx, lot.ID)
		if err != nil {
			return nil, fmt.Errorf("list movements of lot %s: %w", lot.ID, err)
		}
		rows = append(rows, entities.LotBalance{Lot: *lot, Balance: services.FoldBalance(movements, nil)})
	}
	return rows, nil
}

func lotBalance(ctx context.Context, repos repositories.Repositories, lotID entities.LotID, asOf *time.Time) (decimal.Decimal, error) {
	movements, err := repos.Ledger.ListMovements(ctx, lotID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list movements of lot %s: %w", lotID, err)
	}
	return services.FoldBalance(movements, asOf), nil
}

// ensureNonNegative re-reads the touched lots after their outs were appended.
// A negative balance means another writer consumed the same stock.
func ensureNonNegative(ctx context.Context, repos repositories.Repositories, lotIDs []entities.LotID) error {
	for _, id := range lotIDs {
		balance, err := lotBalance(ctx, repos, id, nil)
		if err != nil {
			return err
		}
		if balance.IsNegative() {
			return &entities.ConflictError{LotID: id, Balance: balance}
		}
	}
	return nil
}

// outRef describes why outs are written
type outRef struct {
	RefType string
	RefID   string
	Reason  string
	Notes   string
	Date    time.Time
}

// consumeFIFO allocates req against the balances visible to repos and appends
// one "out" movement per allocation. The caller holds the product lock and runs
// this inside a unit of work, so an error leaves nothing behind.
func consumeFIFO(
	ctx context.Context,
	repos repositories.Repositories,
	req services.AllocationRequest,
	ref outRef,
) (*entities.AllocationResult, []entities.LedgerMovement, map[entities.LotID]entities.StockLot, error) {
	rows, err := lotBalances(ctx, repos, entities.LotFilter{ProductID: req.ProductID, Unit: req.Unit})
	if err != nil {
		return nil, nil, nil, err
	}
	result, err := services.AllocateFIFO(req, rows)
	if err != nil {
		return nil, nil, nil, err
	}

	lots := make(map[entities.LotID]entities.StockLot, len(rows))
	for _, row := range rows {
		lots[row.Lot.ID] = row.Lot
	}

	movements := make([]entities.LedgerMovement, 0, len(result.Allocations))
	touched := make([]entities.LotID, 0, len(result.Allocations))
	for _, alloc := range result.Allocations {
		lot := lots[alloc.LotID]
		m, err := entities.NewLedgerMovement(&lot, entities.Out, alloc.Quantity, req.Unit, ref.Date)
		if err != nil {
			return nil, nil, nil, err
		}
		m.RefType = ref.RefType
		m.RefID = ref.RefID
		m.Reason = ref.Reason
		m.Notes = ref.Notes
		if err := repos.Ledger.AppendMovement(ctx, m); err != nil {
			return nil, nil, nil, fmt.Errorf("append out movement to lot %s: %w", lot.ID, err)
		}
		movements = append(movements, *m)
		touched = append(touched, lot.ID)
	}

	if err := ensureNonNegative(ctx, repos, touched); err != nil {
		return nil, nil, nil, err
	}
	return result, movements, lots, nil
}

// daysUntil counts whole calendar days from now to t
func daysUntil(now, t time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
