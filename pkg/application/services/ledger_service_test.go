package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
	fixtures "github.com/vsinha/agrostock/pkg/infrastructure/testing"
)

func TestLedgerService_WithdrawTakesSoonestExpiryFirst(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()

	// RU-B was received first but RU-A expires first
	result, err := svc.Withdraw(ctx, dto.WithdrawRequest{AllocationRequest: roundupRequest(farm, "15")})
	require.NoError(t, err)

	require.Len(t, result.Allocations, 2)
	assert.Equal(t, string(farm.LotA), result.Allocations[0].LotID)
	assertDecimal(t, "10", result.Allocations[0].Quantity)
	assert.Equal(t, string(farm.LotB), result.Allocations[1].LotID)
	assertDecimal(t, "5", result.Allocations[1].Quantity)
	assert.True(t, result.Covered)
	assert.Len(t, result.MovementIDs, 2)

	assertDecimal(t, "0", balanceOf(t, svc, farm.LotA))
	assertDecimal(t, "5", balanceOf(t, svc, farm.LotB))

	movements, err := svc.ListMovements(ctx, string(farm.LotB))
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, "out", movements[1].Direction)
	assert.Equal(t, entities.RefWithdrawal, movements[1].RefType)
	assert.Equal(t, fixtures.FarmNow, movements[1].EffectiveDate)
}

func TestLedgerService_InsufficientWithdrawalWritesNothing(t *testing.T) {
	deps, farm, bus := newFarmDeps(t)
	svc := NewLedgerService(deps)

	_, err := svc.Withdraw(context.Background(), dto.WithdrawRequest{AllocationRequest: roundupRequest(farm, "25")})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)

	var short *entities.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assertDecimal(t, "25", short.Requested)
	assertDecimal(t, "20", short.Available)

	assert.Equal(t, 1, movementCount(t, svc, farm.LotA))
	assert.Equal(t, 1, movementCount(t, svc, farm.LotB))
	assertDecimal(t, "10", balanceOf(t, svc, farm.LotA))

	all, err := bus.ReadAllEvents(0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLedgerService_WithdrawValidation(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)

	tests := []struct {
		name string
		req  dto.AllocationRequest
		want error
	}{
		{"zero quantity", roundupRequest(farm, "0"), entities.ErrValidation},
		{"negative quantity", roundupRequest(farm, "-1"), entities.ErrValidation},
		{"bad unit", dto.AllocationRequest{ProductID: string(farm.Roundup), Quantity: dec("1"), Unit: "gallon"}, entities.ErrValidation},
		{"missing product", dto.AllocationRequest{Quantity: dec("1"), Unit: "l"}, entities.ErrValidation},
		{"unknown product", dto.AllocationRequest{ProductID: "nope", Quantity: dec("1"), Unit: "l"}, entities.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Withdraw(context.Background(), dto.WithdrawRequest{AllocationRequest: tt.req})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLedgerService_WithdrawInOtherUnitFindsNoStock(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)

	_, err := svc.Withdraw(context.Background(), dto.WithdrawRequest{
		AllocationRequest: dto.AllocationRequest{ProductID: string(farm.Roundup), Quantity: dec("1"), Unit: "kg"},
	})
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)
}

func TestLedgerService_AllocateAndPreview(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, roundupRequest(farm, "25"))
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)

	preview, err := svc.Preview(ctx, roundupRequest(farm, "25"))
	require.NoError(t, err)
	assert.False(t, preview.Covered)
	assertDecimal(t, "20", preview.Allocated)
	assertDecimal(t, "5", preview.Remaining)
	require.Len(t, preview.Allocations, 2)
	assert.Equal(t, "RU-A", preview.Allocations[0].LotCode)
	assertDecimal(t, "5.00", preview.Allocations[0].UnitPrice.Decimal)

	exact, err := svc.Allocate(ctx, roundupRequest(farm, "12.5"))
	require.NoError(t, err)
	assert.True(t, exact.Covered)
	assertDecimal(t, "2.5", exact.Allocations[1].Quantity)

	// read-only
	assert.Equal(t, 1, movementCount(t, svc, farm.LotA))
}

func TestLedgerService_AppendMovementRefusesOverdraw(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()

	_, err := svc.AppendMovement(ctx, dto.MovementRequest{
		LotID: string(farm.LotA), Direction: "out", Quantity: dec("11"), Unit: "l",
	})
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)
	assert.Equal(t, 1, movementCount(t, svc, farm.LotA))

	out, err := svc.AppendMovement(ctx, dto.MovementRequest{
		LotID: string(farm.LotA), Direction: "out", Quantity: dec("10"), Unit: "l", Reason: "spill",
	})
	require.NoError(t, err)
	movements, err := svc.ListMovements(ctx, string(farm.LotA))
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, out.ID, movements[1].ID)
	assert.Greater(t, out.Sequence, movements[0].Sequence)
	assertDecimal(t, "0", balanceOf(t, svc, farm.LotA))

	// a count correction is recorded as is, even below zero
	_, err = svc.AppendMovement(ctx, dto.MovementRequest{
		LotID: string(farm.LotA), Direction: "adjust", Quantity: dec("-1"), Unit: "l", Reason: "stock count",
	})
	require.NoError(t, err)
	assertDecimal(t, "-1", balanceOf(t, svc, farm.LotA))
}

func TestLedgerService_SequenceIsStoreWide(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()

	var last int64
	for _, lot := range []entities.LotID{farm.LotA, farm.LotB, farm.LotA} {
		m, err := svc.AppendMovement(ctx, dto.MovementRequest{
			LotID: string(lot), Direction: "out", Quantity: dec("1"), Unit: "l",
		})
		require.NoError(t, err)
		assert.Greater(t, m.Sequence, last)
		last = m.Sequence
	}

	// RU-A holds its opening movement and two outs, numbered apart by the RU-B out
	movements, err := svc.ListMovements(ctx, string(farm.LotA))
	require.NoError(t, err)
	require.Len(t, movements, 3)
	assert.Less(t, movements[0].Sequence, movements[1].Sequence)
	assert.Greater(t, movements[2].Sequence-movements[1].Sequence, int64(1))
	assertDecimal(t, "8", balanceOf(t, svc, farm.LotA))
}

func TestLedgerService_AppendMovementValidation(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)

	tests := []struct {
		name string
		req  dto.MovementRequest
		want error
	}{
		{"unit mismatch", dto.MovementRequest{LotID: string(farm.LotA), Direction: "in", Quantity: dec("1"), Unit: "kg"}, entities.ErrValidation},
		{"bad direction", dto.MovementRequest{LotID: string(farm.LotA), Direction: "transfer", Quantity: dec("1"), Unit: "l"}, entities.ErrValidation},
		{"zero adjust", dto.MovementRequest{LotID: string(farm.LotA), Direction: "adjust", Quantity: dec("0"), Unit: "l"}, entities.ErrValidation},
		{"negative in", dto.MovementRequest{LotID: string(farm.LotA), Direction: "in", Quantity: dec("-2"), Unit: "l"}, entities.ErrValidation},
		{"unknown lot", dto.MovementRequest{LotID: "missing", Direction: "in", Quantity: dec("1"), Unit: "l"}, entities.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AppendMovement(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 1, movementCount(t, svc, farm.LotA))
}

func TestLedgerService_BalanceAsOf(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()

	_, err := svc.AppendMovement(ctx, dto.MovementRequest{
		LotID: string(farm.LotA), Direction: "out", Quantity: dec("4"), Unit: "l",
		EffectiveDate: time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	before := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	view, err := svc.Balance(ctx, string(farm.LotA), &before)
	require.NoError(t, err)
	assertDecimal(t, "10", view.Balance)
	assert.Equal(t, "l", view.Unit)

	onDay := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)
	view, err = svc.Balance(ctx, string(farm.LotA), &onDay)
	require.NoError(t, err)
	assertDecimal(t, "6", view.Balance)

	_, err = svc.Balance(ctx, "missing", nil)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestLedgerService_CreateLot(t *testing.T) {
	deps, farm, bus := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()

	expiry := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	row, err := svc.CreateLot(ctx, dto.CreateLotRequest{
		ProductID:    string(farm.Roundup),
		LocationID:   "shed-2",
		LotCode:      "RU-C",
		ReceivedDate: time.Date(2024, 10, 20, 0, 0, 0, 0, time.UTC),
		ExpiryDate:   &expiry,
		Unit:         "Litres",
		Quantity:     dec("200"),
		UnitPrice:    decimal.NewNullDecimal(dec("4.75")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Roundup", row.TradeName)
	assert.Equal(t, "l", row.Unit)
	assert.Equal(t, "shed-2", row.LocationID)
	assertDecimal(t, "200", row.Balance)
	require.NotNil(t, row.ExpiresInDays)
	assert.Equal(t, 92, *row.ExpiresInDays)
	assert.False(t, row.ExpiringSoon)

	movements, err := svc.ListMovements(ctx, row.LotID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "in", movements[0].Direction)
	assert.Equal(t, entities.RefReceipt, movements[0].RefType)

	bus.Wait()
	received, err := bus.ReadEvents(events.LotStream(entities.LotID(row.LotID)), 0)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, events.LotReceivedEvent, received[0].Type())
}

func TestLedgerService_CreateLotRefusals(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()
	received := time.Date(2024, 10, 20, 0, 0, 0, 0, time.UTC)
	early := received.AddDate(0, 0, -1)

	tests := []struct {
		name string
		req  dto.CreateLotRequest
		want error
	}{
		// 480 g/L on a kilogram lot needs a density Amine 480 does not have
		{"density required", dto.CreateLotRequest{ProductID: string(farm.Amine), LotCode: "AM-2", ReceivedDate: received, Unit: "kg", Quantity: dec("5")}, entities.ErrValidation},
		{"zero quantity", dto.CreateLotRequest{ProductID: string(farm.Amine), LotCode: "AM-2", ReceivedDate: received, Unit: "l", Quantity: dec("0")}, entities.ErrValidation},
		{"expiry before receipt", dto.CreateLotRequest{ProductID: string(farm.Amine), LotCode: "AM-2", ReceivedDate: received, ExpiryDate: &early, Unit: "l", Quantity: dec("5")}, entities.ErrValidation},
		{"negative price", dto.CreateLotRequest{ProductID: string(farm.Amine), LotCode: "AM-2", ReceivedDate: received, Unit: "l", Quantity: dec("5"), UnitPrice: decimal.NewNullDecimal(dec("-1"))}, entities.ErrValidation},
		{"missing code", dto.CreateLotRequest{ProductID: string(farm.Amine), ReceivedDate: received, Unit: "l", Quantity: dec("5")}, entities.ErrValidation},
		{"unknown product", dto.CreateLotRequest{ProductID: "nope", LotCode: "X", ReceivedDate: received, Unit: "l", Quantity: dec("5")}, entities.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateLot(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	rows, err := svc.ListLotsWithBalance(ctx, dto.LotQuery{ProductID: string(farm.Amine)})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLedgerService_ListLotsWithBalance(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)
	ctx := context.Background()

	rows, err := svc.ListLotsWithBalance(ctx, dto.LotQuery{ProductID: string(farm.Roundup)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "RU-A", rows[0].LotCode)
	require.NotNil(t, rows[0].ExpiresInDays)
	assert.Equal(t, 61, *rows[0].ExpiresInDays)
	assert.True(t, rows[0].ExpiringSoon)
	assert.Equal(t, 212, *rows[1].ExpiresInDays)
	assert.False(t, rows[1].ExpiringSoon)

	byReceived, err := svc.ListLotsWithBalance(ctx, dto.LotQuery{ProductID: string(farm.Roundup), ByReceived: true})
	require.NoError(t, err)
	assert.Equal(t, "RU-B", byReceived[0].LotCode)

	within := 100
	expiring, err := svc.ListLotsWithBalance(ctx, dto.LotQuery{ExpiringWithinDays: &within})
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, string(farm.LotA), expiring[0].LotID)

	_, err = svc.Withdraw(ctx, dto.WithdrawRequest{AllocationRequest: roundupRequest(farm, "10")})
	require.NoError(t, err)
	inStock, err := svc.ListLotsWithBalance(ctx, dto.LotQuery{ProductID: string(farm.Roundup), InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, "RU-B", inStock[0].LotCode)

	negative := -1
	_, err = svc.ListLotsWithBalance(ctx, dto.LotQuery{ExpiringWithinDays: &negative})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestLedgerService_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewLedgerService(deps)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(context.Background(), dto.WithdrawRequest{AllocationRequest: roundupRequest(farm, "3")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, entities.ErrInsufficientStock):
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 4, short)
	a, b := balanceOf(t, svc, farm.LotA), balanceOf(t, svc, farm.LotB)
	assert.False(t, a.IsNegative())
	assert.False(t, b.IsNegative())
	assertDecimal(t, "2", a.Add(b))
}

func TestLedgerService_WithdrawPublishesEvents(t *testing.T) {
	deps, farm, bus := newFarmDeps(t)
	svc := NewLedgerService(deps)

	_, err := svc.Withdraw(context.Background(), dto.WithdrawRequest{AllocationRequest: roundupRequest(farm, "12"), Reason: "sprayer calibration"})
	require.NoError(t, err)
	bus.Wait()

	withdrawn, err := bus.ReadEvents(events.ProductStream(farm.Roundup), 0)
	require.NoError(t, err)
	require.Len(t, withdrawn, 1)
	payload, ok := withdrawn[0].Data().(events.StockWithdrawn)
	require.True(t, ok)
	assert.Equal(t, "sprayer calibration", payload.Reason)
	assertDecimal(t, "12", payload.Result.Allocated)

	for _, lot := range []entities.LotID{farm.LotA, farm.LotB} {
		appended, err := bus.ReadEvents(events.LotStream(lot), 0)
		require.NoError(t, err)
		require.Len(t, appended, 1)
		assert.Equal(t, events.MovementAppendedEvent, appended[0].Type())
	}
}
