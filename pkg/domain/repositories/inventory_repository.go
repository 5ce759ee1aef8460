package repositories

import (
	"context"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// LedgerRepository provides access to stock lots and their append-only movements.
// Movements are never updated or deleted.
type LedgerRepository interface {
	SaveLot(ctx context.Context, lot *entities.StockLot) error
	GetLot(ctx context.Context, id entities.LotID) (*entities.StockLot, error)
	ListLots(ctx context.Context, filter entities.LotFilter) ([]*entities.StockLot, error)
	CountLotsForProduct(ctx context.Context, productID entities.ProductID) (int, error)

	// AppendMovement assigns the next store-wide Sequence and stores the movement
	AppendMovement(ctx context.Context, movement *entities.LedgerMovement) error
	// ListMovements returns a lot's movements in insertion order
	ListMovements(ctx context.Context, lotID entities.LotID) ([]entities.LedgerMovement, error)
}
