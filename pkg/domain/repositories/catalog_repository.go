package repositories

import (
	"context"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// CatalogRepository provides access to product reference data.
// Find* methods return a NotFoundError when nothing matches.
type CatalogRepository interface {
	SaveProduct(ctx context.Context, product *entities.Product) error
	GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error)
	FindProductByName(ctx context.Context, normalizedName string) (*entities.Product, error)
	ListProducts(ctx context.Context, productType string) ([]*entities.Product, error)
	DeleteProduct(ctx context.Context, id entities.ProductID) error

	SaveActive(ctx context.Context, active *entities.ActiveSubstance) error
	GetActive(ctx context.Context, id entities.ActiveID) (*entities.ActiveSubstance, error)
	FindActiveByName(ctx context.Context, normalizedName string) (*entities.ActiveSubstance, error)
	FindActiveBySynonym(ctx context.Context, normalizedName string) (*entities.ActiveSubstance, error)
	ListActives(ctx context.Context) ([]*entities.ActiveSubstance, error)
	DeleteActive(ctx context.Context, id entities.ActiveID) error

	// SaveProductActive inserts or replaces the record for the (product, active) pair
	SaveProductActive(ctx context.Context, pa entities.ProductActive) error
	ListProductActives(ctx context.Context, productID entities.ProductID) ([]entities.ProductActive, error)
	ListProductsWithActive(ctx context.Context, activeID entities.ActiveID) ([]entities.ProductActive, error)
	DeleteProductActives(ctx context.Context, productID entities.ProductID) error
}
