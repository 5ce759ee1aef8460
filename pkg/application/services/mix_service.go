package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	"github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
)

// MixService checks tank-mix compatibility against the pairwise rule table
// and stores tank mix recipes.
type MixService struct {
	deps   Deps
	logger zerolog.Logger
}

// NewMixService creates a mix service
func NewMixService(deps Deps) *MixService {
	deps = deps.withDefaults()
	return &MixService{
		deps:   deps,
		logger: deps.Logger.With().Str("service", "mix").Logger(),
	}
}

func ruleLookup(ctx context.Context, repos repositories.Repositories) services.RuleLookup {
	return func(a, b string) (*entities.CompatibilityRule, error) {
		return repos.Compatibility.FindRule(ctx, a, b)
	}
}

// ruleKey maps a name to the normalized name of the catalog active it
// resolves to by name or synonym. Names outside the catalog keep their own key.
func ruleKey(ctx context.Context, repos repositories.Repositories, key string) (string, error) {
	active, err := resolveActiveName(ctx, repos, key)
	if errors.Is(err, entities.ErrNotFound) {
		return key, nil
	}
	if err != nil {
		return "", err
	}
	return services.NormalizeName(active.Name), nil
}

// Check returns the verdict for two active substance names in either order.
// Synonyms resolve to their catalog active; a rule written against the raw
// names is still found. No rule means Unknown, which is a verdict and not an error.
func (s *MixService) Check(ctx context.Context, a, b string) (*dto.PairCheck, error) {
	keyA, keyB := services.NormalizeName(a), services.NormalizeName(b)
	if keyA == "" {
		return nil, entities.NewValidationError("a", "cannot be empty")
	}
	if keyB == "" {
		return nil, entities.NewValidationError("b", "cannot be empty")
	}

	repos := s.deps.Store.Repositories()
	canonA, err := ruleKey(ctx, repos, keyA)
	if err != nil {
		return nil, err
	}
	canonB, err := ruleKey(ctx, repos, keyB)
	if err != nil {
		return nil, err
	}
	pair, err := services.CheckPair(canonA, canonB, ruleLookup(ctx, repos))
	if err != nil {
		return nil, err
	}
	if pair.Relation == entities.Unknown && (canonA != keyA || canonB != keyB) {
		if pair, err = services.CheckPair(keyA, keyB, ruleLookup(ctx, repos)); err != nil {
			return nil, err
		}
	}
	return &dto.PairCheck{
		A:        strings.TrimSpace(a),
		B:        strings.TrimSpace(b),
		Relation: pair.Relation.String(),
		Notes:    pair.Notes,
	}, nil
}

// CheckItems resolves the products to their distinct active substances and
// reduces every pairwise verdict to the most severe one.
func (s *MixService) CheckItems(ctx context.Context, productIDs []string) (*dto.MixReport, error) {
	if len(productIDs) == 0 {
		return nil, entities.NewValidationError("product_ids", "at least one product is required")
	}
	ids := make([]entities.ProductID, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, entities.ProductID(id))
	}
	report, err := checkProducts(ctx, s.deps.Store.Repositories(), ids)
	if err != nil {
		return nil, err
	}
	view := mixReportView(report)
	return &view, nil
}

// checkProducts evaluates the mix on normalized names and reports display names
func checkProducts(ctx context.Context, repos repositories.Repositories, productIDs []entities.ProductID) (*entities.MixReport, error) {
	display := make(map[string]string)
	var keys []string
	for _, id := range productIDs {
		if _, err := repos.Catalog.GetProduct(ctx, id); err != nil {
			return nil, err
		}
		links, err := repos.Catalog.ListProductActives(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, pa := range links {
			active, err := repos.Catalog.GetActive(ctx, pa.ActiveID)
			if err != nil {
				return nil, fmt.Errorf("product %s: %w", id, err)
			}
			display[active.NormalizedName] = active.Name
			keys = append(keys, active.NormalizedName)
		}
	}

	report, err := services.CheckAll(keys, ruleLookup(ctx, repos))
	if err != nil {
		return nil, err
	}
	for i, key := range report.Actives {
		report.Actives[i] = display[key]
	}
	for i := range report.Pairs {
		report.Pairs[i].A = display[report.Pairs[i].A]
		report.Pairs[i].B = display[report.Pairs[i].B]
	}
	return report, nil
}

// SaveRule stores the relation of two active substance names, replacing any
// rule held for the pair in either order.
func (s *MixService) SaveRule(ctx context.Context, req dto.RuleRequest) (*dto.PairCheck, error) {
	relation, err := entities.ParseVerdict(strings.ToLower(strings.TrimSpace(req.Relation)))
	if err != nil {
		return nil, err
	}

	var rule *entities.CompatibilityRule
	err = s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		keyA, err := ruleKey(ctx, repos, services.NormalizeName(req.A))
		if err != nil {
			return err
		}
		keyB, err := ruleKey(ctx, repos, services.NormalizeName(req.B))
		if err != nil {
			return err
		}
		if rule, err = entities.NewCompatibilityRule(keyA, keyB, relation, strings.TrimSpace(req.Notes)); err != nil {
			return err
		}
		if keyA == keyB {
			return entities.NewValidationError("b", "must differ from a")
		}
		return repos.Compatibility.SaveRule(ctx, rule)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("a", rule.A).Str("b", rule.B).Str("relation", rule.Relation.String()).Msg("compatibility rule saved")
	s.deps.publish(events.RulesStream, events.RuleSavedEvent, events.RuleSaved{Rule: *rule})
	return &dto.PairCheck{A: rule.A, B: rule.B, Relation: rule.Relation.String(), Notes: rule.Notes}, nil
}

// ListRules returns the whole rule table
func (s *MixService) ListRules(ctx context.Context) ([]dto.PairCheck, error) {
	rules, err := s.deps.Store.Repositories().Compatibility.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PairCheck, 0, len(rules))
	for _, r := range rules {
		out = append(out, dto.PairCheck{A: r.A, B: r.B, Relation: r.Relation.String(), Notes: r.Notes})
	}
	return out, nil
}

// CreateMix stores a tank mix with the compatibility verdict of its products
func (s *MixService) CreateMix(ctx context.Context, req dto.CreateMixRequest) (*dto.MixView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entities.NewValidationError("name", "cannot be empty")
	}
	items, err := parseDoseItems(req.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, entities.NewValidationError("items", "at least one product is required")
	}
	seen := make(map[entities.ProductID]bool, len(items))
	for i, item := range items {
		if seen[item.ProductID] {
			return nil, fmt.Errorf("items[%d]: %w", i, entities.NewValidationError("product_id", "listed twice"))
		}
		seen[item.ProductID] = true
	}

	mix := &entities.TankMix{
		ID:               entities.MixID(entities.NewID()),
		Name:             name,
		WaterPH:          req.WaterPH,
		WaterHardnessPPM: req.WaterHardnessPPM,
		Notes:            req.Notes,
		Items:            items,
		CreatedAt:        s.deps.Now(),
	}

	var report *entities.MixReport
	err = s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		ids := make([]entities.ProductID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		report, err = checkProducts(ctx, repos, ids)
		if err != nil {
			return err
		}
		mix.Compatibility = report.Summary
		return repos.Applications.SaveMix(ctx, mix)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("mix_id", string(mix.ID)).
		Str("name", mix.Name).
		Str("compatibility", mix.Compatibility.String()).
		Msg("tank mix created")
	s.deps.publish(events.MixStream(mix.ID), events.MixCreatedEvent, events.MixCreated{Mix: *mix})
	return mixView(mix, mixReportView(report)), nil
}

// GetMix returns a tank mix with its compatibility re-evaluated against the current rules
func (s *MixService) GetMix(ctx context.Context, id string) (*dto.MixView, error) {
	repos := s.deps.Store.Repositories()
	mix, err := repos.Applications.GetMix(ctx, entities.MixID(id))
	if err != nil {
		return nil, err
	}
	ids := make([]entities.ProductID, 0, len(mix.Items))
	for _, item := range mix.Items {
		ids = append(ids, item.ProductID)
	}
	report, err := checkProducts(ctx, repos, ids)
	if err != nil {
		return nil, err
	}
	return mixView(mix, mixReportView(report)), nil
}

// ListMixes returns the stored mixes with the verdict captured at creation
func (s *MixService) ListMixes(ctx context.Context) ([]*dto.MixView, error) {
	mixes, err := s.deps.Store.Repositories().Applications.ListMixes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.MixView, 0, len(mixes))
	for _, mix := range mixes {
		out = append(out, mixView(mix, dto.MixReport{Summary: mix.Compatibility.String(), Actives: []string{}, Pairs: []dto.PairCheck{}}))
	}
	return out, nil
}

// parseDoseItems validates per-hectare doses
func parseDoseItems(in []dto.MixItemInput) ([]entities.TankMixItem, error) {
	items := make([]entities.TankMixItem, 0, len(in))
	for i, item := range in {
		if item.ProductID == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, entities.NewValidationError("product_id", "cannot be empty"))
		}
		if !item.Dose.IsPositive() {
			return nil, fmt.Errorf("items[%d]: %w", i, entities.NewValidationError("dose", "must be > 0"))
		}
		unit, err := services.ParseDoseUnit(item.DoseUnit)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		items = append(items, entities.TankMixItem{
			ProductID: entities.ProductID(item.ProductID),
			DosePerHa: item.Dose,
			DoseUnit:  unit,
		})
	}
	return items, nil
}
