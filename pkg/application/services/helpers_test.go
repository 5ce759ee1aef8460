package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
	"github.com/vsinha/agrostock/pkg/infrastructure/repositories/memory"
	fixtures "github.com/vsinha/agrostock/pkg/infrastructure/testing"
)

func newFarmDeps(t *testing.T) (Deps, *fixtures.Farm, *events.InMemoryEventStore) {
	t.Helper()
	store, farm := fixtures.NewFarmStore()
	bus := events.NewInMemoryEventStore(zerolog.Nop())
	return Deps{
		Store:  store,
		Events: bus,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixtures.FarmNow },
	}, farm, bus
}

func newEmptyDeps() Deps {
	return Deps{
		Store:  memory.NewStore(),
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixtures.FarmNow },
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func balanceOf(t *testing.T, svc *LedgerService, lot entities.LotID) decimal.Decimal {
	t.Helper()
	view, err := svc.Balance(context.Background(), string(lot), nil)
	require.NoError(t, err)
	return view.Balance
}

func movementCount(t *testing.T, svc *LedgerService, lot entities.LotID) int {
	t.Helper()
	movements, err := svc.ListMovements(context.Background(), string(lot))
	require.NoError(t, err)
	return len(movements)
}

func roundupRequest(farm *fixtures.Farm, qty string) dto.AllocationRequest {
	return dto.AllocationRequest{ProductID: string(farm.Roundup), Quantity: dec(qty), Unit: "l"}
}
