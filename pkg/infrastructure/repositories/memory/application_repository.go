package memory

import (
	"context"
	"sort"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// SaveApplication inserts or replaces an application with its items
func (v *view) SaveApplication(ctx context.Context, app *entities.Application) error {
	stored := *app
	stored.Items = append([]entities.ApplicationItem(nil), app.Items...)
	return v.write(func(st *state) error {
		st.applications[app.ID] = stored
		return nil
	})
}

// GetApplication returns an application by id
func (v *view) GetApplication(ctx context.Context, id entities.ApplicationID) (*entities.Application, error) {
	var out *entities.Application
	err := v.read(func(st *state) error {
		app, ok := st.applications[id]
		if !ok {
			return entities.NewNotFoundError("application", string(id))
		}
		out = copyApplication(app)
		return nil
	})
	return out, err
}

// ListApplications returns applications newest first, optionally for one parcel
func (v *view) ListApplications(ctx context.Context, parcelRef string) ([]*entities.Application, error) {
	var out []*entities.Application
	err := v.read(func(st *state) error {
		for _, app := range st.applications {
			if parcelRef != "" && app.ParcelRef != parcelRef {
				continue
			}
			out = append(out, copyApplication(app))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

// SaveMix inserts or replaces a tank mix
func (v *view) SaveMix(ctx context.Context, mix *entities.TankMix) error {
	stored := *mix
	stored.Items = append([]entities.TankMixItem(nil), mix.Items...)
	return v.write(func(st *state) error {
		st.mixes[mix.ID] = stored
		return nil
	})
}

// GetMix returns a tank mix by id
func (v *view) GetMix(ctx context.Context, id entities.MixID) (*entities.TankMix, error) {
	var out *entities.TankMix
	err := v.read(func(st *state) error {
		mix, ok := st.mixes[id]
		if !ok {
			return entities.NewNotFoundError("tank mix", string(id))
		}
		out = copyMix(mix)
		return nil
	})
	return out, err
}

// ListMixes returns all tank mixes ordered by name
func (v *view) ListMixes(ctx context.Context) ([]*entities.TankMix, error) {
	var out []*entities.TankMix
	err := v.read(func(st *state) error {
		for _, mix := range st.mixes {
			out = append(out, copyMix(mix))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// FindRule returns the rule stored for exactly (a, b), or nil
func (v *view) FindRule(ctx context.Context, a, b string) (*entities.CompatibilityRule, error) {
	var out *entities.CompatibilityRule
	err := v.read(func(st *state) error {
		if rule, ok := st.rules[ruleKey{a, b}]; ok {
			out = &rule
		}
		return nil
	})
	return out, err
}

// SaveRule stores a rule, dropping any rule held for the reversed pair
func (v *view) SaveRule(ctx context.Context, rule *entities.CompatibilityRule) error {
	return v.write(func(st *state) error {
		delete(st.rules, ruleKey{rule.B, rule.A})
		st.rules[ruleKey{rule.A, rule.B}] = *rule
		return nil
	})
}

// ListRules returns all rules ordered by pair
func (v *view) ListRules(ctx context.Context) ([]*entities.CompatibilityRule, error) {
	var out []*entities.CompatibilityRule
	err := v.read(func(st *state) error {
		for _, rule := range st.rules {
			r := rule
			out = append(out, &r)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out, err
}

func copyApplication(app entities.Application) *entities.Application {
	app.Items = append([]entities.ApplicationItem(nil), app.Items...)
	return &app
}

func copyMix(mix entities.TankMix) *entities.TankMix {
	mix.Items = append([]entities.TankMixItem(nil), mix.Items...)
	return &mix
}
