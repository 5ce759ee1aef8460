package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// FoldBalance replays movements into a balance: +in, -out, adjust as signed.
// When asOf is set, movements effective after it are ignored.
func FoldBalance(movements []entities.LedgerMovement, asOf *time.Time) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		if asOf != nil && m.EffectiveDate.After(*asOf) {
			continue
		}
		balance = balance.Add(m.Signed())
	}
	return balance
}
