package services

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

func movement(dir entities.Direction, qty string, date string) entities.LedgerMovement {
	return entities.LedgerMovement{Direction: dir, Quantity: dec(qty), Unit: entities.Liquid, EffectiveDate: day(date)}
}

func TestFoldBalance(t *testing.T) {
	movements := []entities.LedgerMovement{
		movement(entities.In, "100", "2025-01-01"),
		movement(entities.Out, "30", "2025-02-01"),
		movement(entities.Adjust, "-5", "2025-03-01"),
		movement(entities.Adjust, "2.5", "2025-04-01"),
		movement(entities.Out, "10", "2025-05-01"),
	}

	assert.True(t, FoldBalance(movements, nil).Equal(dec("57.5")))
	assert.True(t, FoldBalance(movements, dayPtr("2025-02-15")).Equal(dec("70")))
	assert.True(t, FoldBalance(movements, dayPtr("2024-12-31")).IsZero())
	assert.True(t, FoldBalance(nil, nil).IsZero())
}

func TestFoldBalance_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	directions := []entities.Direction{entities.In, entities.Out, entities.Adjust}

	for round := 0; round < 50; round++ {
		var movements []entities.LedgerMovement
		expected := decimal.Zero
		for i := 0; i < 20; i++ {
			dir := directions[rng.Intn(len(directions))]
			qty := decimal.New(int64(rng.Intn(1000)+1), -2)
			if dir == entities.Adjust && rng.Intn(2) == 0 {
				qty = qty.Neg()
			}
			m := entities.LedgerMovement{Direction: dir, Quantity: qty, EffectiveDate: day("2025-01-01")}
			movements = append(movements, m)
			expected = expected.Add(m.Signed())
		}

		assert.True(t, FoldBalance(movements, nil).Equal(expected))

		rng.Shuffle(len(movements), func(i, j int) { movements[i], movements[j] = movements[j], movements[i] })
		assert.True(t, FoldBalance(movements, nil).Equal(expected))
	}
}
