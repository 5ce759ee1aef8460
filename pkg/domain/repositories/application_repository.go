package repositories

import (
	"context"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// ApplicationRepository stores field applications and tank mixes
type ApplicationRepository interface {
	SaveApplication(ctx context.Context, app *entities.Application) error
	GetApplication(ctx context.Context, id entities.ApplicationID) (*entities.Application, error)
	// ListApplications returns applications newest first; empty parcelRef lists all
	ListApplications(ctx context.Context, parcelRef string) ([]*entities.Application, error)

	SaveMix(ctx context.Context, mix *entities.TankMix) error
	GetMix(ctx context.Context, id entities.MixID) (*entities.TankMix, error)
	ListMixes(ctx context.Context) ([]*entities.TankMix, error)
}

// CompatibilityRepository stores the pairwise mix rule table
type CompatibilityRepository interface {
	// FindRule returns the rule stored for the ordered pair, or nil when absent
	FindRule(ctx context.Context, a, b string) (*entities.CompatibilityRule, error)
	// SaveRule replaces any rule stored for the same unordered pair
	SaveRule(ctx context.Context, rule *entities.CompatibilityRule) error
	ListRules(ctx context.Context) ([]*entities.CompatibilityRule, error)
}
