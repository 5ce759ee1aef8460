package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	"github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
)

// LedgerService receives lots, appends movements and answers balance and
// allocation queries. Every write that depends on a balance runs under the
// product lock inside one unit of work.
type LedgerService struct {
	deps   Deps
	logger zerolog.Logger
}

// NewLedgerService creates a ledger service
func NewLedgerService(deps Deps) *LedgerService {
	deps = deps.withDefaults()
	return &LedgerService{
		deps:   deps,
		logger: deps.Logger.With().Str("service", "ledger").Logger(),
	}
}

// CreateLot records a received lot together with its opening "in" movement.
// The product's actives must be convertible for the lot unit.
func (s *LedgerService) CreateLot(ctx context.Context, req dto.CreateLotRequest) (*dto.LotRow, error) {
	unit, err := services.NormalizeQuantityUnit(req.Unit)
	if err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, entities.NewValidationError("quantity", "must be > 0")
	}
	lot, err := entities.NewStockLot(
		entities.ProductID(req.ProductID),
		req.LocationID,
		req.LotCode,
		req.ReceivedDate.UTC(),
		utcPtr(req.ExpiryDate),
		unit,
		req.UnitPrice,
	)
	if err != nil {
		return nil, err
	}
	lot.Notes = req.Notes

	unlock := s.deps.Locks.Lock(lot.ProductID)
	defer unlock()

	var (
		product *entities.Product
		opening *entities.LedgerMovement
	)
	err = s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		product, err = repos.Catalog.GetProduct(ctx, lot.ProductID)
		if err != nil {
			return err
		}
		actives, err := repos.Catalog.ListProductActives(ctx, lot.ProductID)
		if err != nil {
			return err
		}
		if err := services.EnsureConvertible(product, actives, lot.Unit); err != nil {
			return err
		}

		if err := repos.Ledger.SaveLot(ctx, lot); err != nil {
			return fmt.Errorf("save lot: %w", err)
		}
		opening, err = entities.NewLedgerMovement(lot, entities.In, req.Quantity, lot.Unit, lot.ReceivedDate)
		if err != nil {
			return err
		}
		opening.RefType = entities.RefReceipt
		opening.RefID = string(lot.ID)
		opening.Reason = "receipt"
		return repos.Ledger.AppendMovement(ctx, opening)
	})
	if err != nil {
		if errors.Is(err, entities.ErrValidation) {
			s.logger.Warn().Err(err).Str("product_id", req.ProductID).Str("lot_code", req.LotCode).Msg("lot refused")
		}
		return nil, err
	}

	s.logger.Info().
		Str("lot_id", string(lot.ID)).
		Str("product_id", string(lot.ProductID)).
		Str("quantity", req.Quantity.String()).
		Str("unit", lot.Unit.String()).
		Msg("lot received")
	s.deps.publish(events.LotStream(lot.ID), events.LotReceivedEvent, events.LotReceived{Lot: *lot, Quantity: req.Quantity})

	row := s.lotRow(entities.LotBalance{Lot: *lot, Balance: req.Quantity}, product.TradeName)
	return &row, nil
}

// AppendMovement adds one movement to a lot. An "out" may not exceed the lot's
// balance; an "adjust" of either sign is accepted as is.
func (s *LedgerService) AppendMovement(ctx context.Context, req dto.MovementRequest) (*dto.MovementView, error) {
	direction, err := entities.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	unit, err := services.NormalizeQuantityUnit(req.Unit)
	if err != nil {
		return nil, err
	}
	lotID := entities.LotID(req.LotID)

	// the lot's product is needed to pick the lock; it never changes
	lot, err := s.deps.Store.Repositories().Ledger.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	unlock := s.deps.Locks.Lock(lot.ProductID)
	defer unlock()

	date := req.EffectiveDate
	if date.IsZero() {
		date = s.deps.Now()
	}

	var (
		movement *entities.LedgerMovement
		balance  decimal.Decimal
	)
	err = s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		movement, err = entities.NewLedgerMovement(lot, direction, req.Quantity, unit, date.UTC())
		if err != nil {
			return err
		}
		movement.RefType = req.RefType
		movement.RefID = req.RefID
		movement.Reason = req.Reason
		movement.Notes = req.Notes

		current, err := lotBalance(ctx, repos, lot.ID, nil)
		if err != nil {
			return err
		}
		if direction == entities.Out && movement.Quantity.GreaterThan(current) {
			return &entities.InsufficientStockError{
				ProductID: lot.ProductID,
				Unit:      lot.Unit,
				Requested: movement.Quantity,
				Available: decimal.Max(current, decimal.Zero),
			}
		}
		if err := repos.Ledger.AppendMovement(ctx, movement); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		balance = current.Add(movement.Signed())
		if direction == entities.Out {
			return ensureNonNegative(ctx, repos, []entities.LotID{lot.ID})
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("lot_id", req.LotID).Str("direction", req.Direction).Msg("movement refused")
		return nil, err
	}

	s.logger.Info().
		Str("lot_id", string(lot.ID)).
		Str("direction", movement.Direction.String()).
		Str("quantity", movement.Quantity.String()).
		Str("balance", balance.String()).
		Msg("movement appended")
	s.deps.publish(events.LotStream(lot.ID), events.MovementAppendedEvent, events.MovementAppended{Movement: *movement, Balance: balance})

	view := movementView(*movement)
	return &view, nil
}

// Balance folds a lot's ledger, optionally up to asOf (inclusive)
func (s *LedgerService) Balance(ctx context.Context, lotID string, asOf *time.Time) (*dto.BalanceView, error) {
	repos := s.deps.Store.Repositories()
	lot, err := repos.Ledger.GetLot(ctx, entities.LotID(lotID))
	if err != nil {
		return nil, err
	}
	balance, err := lotBalance(ctx, repos, lot.ID, asOf)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceView{LotID: string(lot.ID), Unit: lot.Unit.String(), Balance: balance, AsOf: asOf}, nil
}

// ListLotsWithBalance returns lots with their balances in FIFO order, or by
// received date when q.ByReceived is set.
func (s *LedgerService) ListLotsWithBalance(ctx context.Context, q dto.LotQuery) ([]dto.LotRow, error) {
	if q.ExpiringWithinDays != nil && *q.ExpiringWithinDays < 0 {
		return nil, entities.NewValidationError("expiring_within_days", "cannot be negative")
	}
	repos := s.deps.Store.Repositories()
	rows, err := lotBalances(ctx, repos, entities.LotFilter{
		ProductID:  entities.ProductID(q.ProductID),
		LocationID: q.LocationID,
	})
	if err != nil {
		return nil, err
	}

	if q.ByReceived {
		services.SortByReceived(rows)
	} else {
		services.SortFIFO(rows)
	}

	now := s.deps.Now()
	names := make(map[entities.ProductID]string)
	out := make([]dto.LotRow, 0, len(rows))
	for _, row := range rows {
		if q.InStockOnly && !row.Balance.IsPositive() {
			continue
		}
		if q.ExpiringWithinDays != nil {
			if row.Lot.ExpiryDate == nil || daysUntil(now, *row.Lot.ExpiryDate) > *q.ExpiringWithinDays {
				continue
			}
		}
		name, ok := names[row.Lot.ProductID]
		if !ok {
			product, err := repos.Catalog.GetProduct(ctx, row.Lot.ProductID)
			if err != nil && !errors.Is(err, entities.ErrNotFound) {
				return nil, err
			}
			if product != nil {
				name = product.TradeName
			}
			names[row.Lot.ProductID] = name
		}
		out = append(out, s.lotRow(row, name))
	}
	return out, nil
}

func (s *LedgerService) lotRow(row entities.LotBalance, tradeName string) dto.LotRow {
	lot := row.Lot
	out := dto.LotRow{
		LotID:        string(lot.ID),
		ProductID:    string(lot.ProductID),
		TradeName:    tradeName,
		LocationID:   lot.LocationID,
		LotCode:      lot.LotCode,
		ReceivedDate: lot.ReceivedDate,
		ExpiryDate:   lot.ExpiryDate,
		Unit:         lot.Unit.String(),
		UnitPrice:    lot.UnitPrice,
		Balance:      row.Balance,
	}
	if lot.ExpiryDate != nil {
		days := daysUntil(s.deps.Now(), *lot.ExpiryDate)
		out.ExpiresInDays = &days
		out.ExpiringSoon = days <= s.deps.ExpiryWarningDays
	}
	return out
}

// ListMovements returns a lot's ledger in insertion order
func (s *LedgerService) ListMovements(ctx context.Context, lotID string) ([]dto.MovementView, error) {
	repos := s.deps.Store.Repositories()
	if _, err := repos.Ledger.GetLot(ctx, entities.LotID(lotID)); err != nil {
		return nil, err
	}
	movements, err := repos.Ledger.ListMovements(ctx, entities.LotID(lotID))
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementView, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementView(m))
	}
	return out, nil
}

// Allocate answers what FIFO would take for the request without writing.
// It fails with InsufficientStockError when stock does not cover the request.
func (s *LedgerService) Allocate(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationView, error) {
	return s.allocate(ctx, req, services.AllocateFIFO)
}

// Preview is the partial mode of Allocate: an uncovered request reports the
// shortfall instead of failing. Nothing is written.
func (s *LedgerService) Preview(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationView, error) {
	return s.allocate(ctx, req, services.PreviewFIFO)
}

func (s *LedgerService) allocate(
	ctx context.Context,
	req dto.AllocationRequest,
	fn func(services.AllocationRequest, []entities.LotBalance) (*entities.AllocationResult, error),
) (*dto.AllocationView, error) {
	areq, err := toAllocationRequest(req)
	if err != nil {
		return nil, err
	}
	repos := s.deps.Store.Repositories()
	if _, err := repos.Catalog.GetProduct(ctx, areq.ProductID); err != nil {
		return nil, err
	}
	rows, err := lotBalances(ctx, repos, entities.LotFilter{ProductID: areq.ProductID, Unit: areq.Unit})
	if err != nil {
		return nil, err
	}
	result, err := fn(areq, rows)
	if err != nil {
		return nil, err
	}
	lots := make(map[entities.LotID]entities.StockLot, len(rows))
	for _, row := range rows {
		lots[row.Lot.ID] = row.Lot
	}
	view := allocationView(result, lots)
	return &view, nil
}

// Withdraw takes stock out by FIFO outside of an application, all or nothing
func (s *LedgerService) Withdraw(ctx context.Context, req dto.WithdrawRequest) (*dto.WithdrawalView, error) {
	areq, err := toAllocationRequest(req.AllocationRequest)
	if err != nil {
		return nil, err
	}
	date := req.Date
	if date.IsZero() {
		date = s.deps.Now()
	}
	reason := req.Reason
	if reason == "" {
		reason = entities.RefWithdrawal
	}
	ref := outRef{
		RefType: entities.RefWithdrawal,
		RefID:   entities.NewID(),
		Reason:  reason,
		Notes:   req.Notes,
		Date:    date.UTC(),
	}

	unlock := s.deps.Locks.Lock(areq.ProductID)
	defer unlock()

	var (
		result    *entities.AllocationResult
		movements []entities.LedgerMovement
		lots      map[entities.LotID]entities.StockLot
	)
	err = s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Catalog.GetProduct(ctx, areq.ProductID); err != nil {
			return err
		}
		result, movements, lots, err = consumeFIFO(ctx, repos, areq, ref)
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", req.ProductID).Str("quantity", req.Quantity.String()).Msg("withdrawal refused")
		return nil, err
	}

	s.logger.Info().
		Str("product_id", string(areq.ProductID)).
		Str("quantity", areq.Quantity.String()).
		Int("lots", len(movements)).
		Str("withdrawal_id", ref.RefID).
		Msg("stock withdrawn")
	s.deps.publish(events.ProductStream(areq.ProductID), events.StockWithdrawnEvent, events.StockWithdrawn{Result: *result, Reason: reason})
	ids := make([]string, 0, len(movements))
	for _, m := range movements {
		ids = append(ids, string(m.ID))
		s.deps.publish(events.LotStream(m.LotID), events.MovementAppendedEvent, events.MovementAppended{Movement: m})
	}

	return &dto.WithdrawalView{AllocationView: allocationView(result, lots), MovementIDs: ids}, nil
}

func toAllocationRequest(req dto.AllocationRequest) (services.AllocationRequest, error) {
	if req.ProductID == "" {
		return services.AllocationRequest{}, entities.NewValidationError("product_id", "cannot be empty")
	}
	unit, err := services.NormalizeQuantityUnit(req.Unit)
	if err != nil {
		return services.AllocationRequest{}, err
	}
	if !req.Quantity.IsPositive() {
		return services.AllocationRequest{}, entities.NewValidationError("quantity", "must be > 0")
	}
	return services.AllocationRequest{
		ProductID: entities.ProductID(req.ProductID),
		Quantity:  req.Quantity,
		Unit:      unit,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
