package memory

import (
	"context"
	"sort"

	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/services"
)

// SaveProduct inserts or replaces a product by id
func (v *view) SaveProduct(ctx context.Context, product *entities.Product) error {
	return v.write(func(st *state) error {
		st.products[product.ID] = *product
		return nil
	})
}

// GetProduct returns a product by id
func (v *view) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	var out *entities.Product
	err := v.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return entities.NewNotFoundError("product", string(id))
		}
		out = &p
		return nil
	})
	return out, err
}

// FindProductByName returns the product whose normalized trade name matches
func (v *view) FindProductByName(ctx context.Context, normalizedName string) (*entities.Product, error) {
	var out *entities.Product
	err := v.read(func(st *state) error {
		for _, p := range st.products {
			if p.NormalizedName == normalizedName {
				found := p
				out = &found
				return nil
			}
		}
		return entities.NewNotFoundError("product", normalizedName)
	})
	return out, err
}

// ListProducts returns products ordered by trade name, optionally filtered by type
func (v *view) ListProducts(ctx context.Context, productType string) ([]*entities.Product, error) {
	var out []*entities.Product
	err := v.read(func(st *state) error {
		for _, p := range st.products {
			if productType != "" && p.ProductType != productType {
				continue
			}
			product := p
			out = append(out, &product)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeName != out[j].TradeName {
			return out[i].TradeName < out[j].TradeName
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// DeleteProduct removes a product and its active associations
func (v *view) DeleteProduct(ctx context.Context, id entities.ProductID) error {
	return v.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return entities.NewNotFoundError("product", string(id))
		}
		delete(st.products, id)
		delete(st.productActives, id)
		return nil
	})
}

// SaveActive inserts or replaces an active substance by id
func (v *view) SaveActive(ctx context.Context, active *entities.ActiveSubstance) error {
	stored := *active
	stored.Synonyms = append([]string(nil), active.Synonyms...)
	return v.write(func(st *state) error {
		st.actives[active.ID] = stored
		return nil
	})
}

// GetActive returns an active substance by id
func (v *view) GetActive(ctx context.Context, id entities.ActiveID) (*entities.ActiveSubstance, error) {
	var out *entities.ActiveSubstance
	err := v.read(func(st *state) error {
		a, ok := st.actives[id]
		if !ok {
			return entities.NewNotFoundError("active substance", string(id))
		}
		out = copyActive(a)
		return nil
	})
	return out, err
}

// FindActiveByName returns the active substance whose normalized name matches
func (v *view) FindActiveByName(ctx context.Context, normalizedName string) (*entities.ActiveSubstance, error) {
	var out *entities.ActiveSubstance
	err := v.read(func(st *state) error {
		for _, a := range sortedActives(st) {
			if a.NormalizedName == normalizedName {
				out = copyActive(a)
				return nil
			}
		}
		return entities.NewNotFoundError("active substance", normalizedName)
	})
	return out, err
}

// FindActiveBySynonym returns the first active substance (by name) listing a matching synonym
func (v *view) FindActiveBySynonym(ctx context.Context, normalizedName string) (*entities.ActiveSubstance, error) {
	var out *entities.ActiveSubstance
	err := v.read(func(st *state) error {
		for _, a := range sortedActives(st) {
			if services.MatchesSynonym(normalizedName, a.Synonyms) {
				out = copyActive(a)
				return nil
			}
		}
		return entities.NewNotFoundError("active substance", normalizedName)
	})
	return out, err
}

// ListActives returns all active substances ordered by name
func (v *view) ListActives(ctx context.Context) ([]*entities.ActiveSubstance, error) {
	var out []*entities.ActiveSubstance
	err := v.read(func(st *state) error {
		for _, a := range sortedActives(st) {
			out = append(out, copyActive(a))
		}
		return nil
	})
	return out, err
}

// DeleteActive removes an active substance
func (v *view) DeleteActive(ctx context.Context, id entities.ActiveID) error {
	return v.write(func(st *state) error {
		if _, ok := st.actives[id]; !ok {
			return entities.NewNotFoundError("active substance", string(id))
		}
		delete(st.actives, id)
		return nil
	})
}

// SaveProductActive inserts or replaces the association for the pair
func (v *view) SaveProductActive(ctx context.Context, pa entities.ProductActive) error {
	return v.write(func(st *state) error {
		current := st.productActives[pa.ProductID]
		// rebuilt, never modified in place: the slice may be shared with a clone
		next := make([]entities.ProductActive, 0, len(current)+1)
		replaced := false
		for _, existing := range current {
			if existing.ActiveID == pa.ActiveID {
				next = append(next, pa)
				replaced = true
				continue
			}
			next = append(next, existing)
		}
		if !replaced {
			next = append(next, pa)
		}
		st.productActives[pa.ProductID] = next
		return nil
	})
}

// ListProductActives returns the actives of one product
func (v *view) ListProductActives(ctx context.Context, productID entities.ProductID) ([]entities.ProductActive, error) {
	var out []entities.ProductActive
	err := v.read(func(st *state) error {
		out = append([]entities.ProductActive(nil), st.productActives[productID]...)
		return nil
	})
	return out, err
}

// ListProductsWithActive returns every association referencing the active
func (v *view) ListProductsWithActive(ctx context.Context, activeID entities.ActiveID) ([]entities.ProductActive, error) {
	var out []entities.ProductActive
	err := v.read(func(st *state) error {
		for _, list := range st.productActives {
			for _, pa := range list {
				if pa.ActiveID == activeID {
					out = append(out, pa)
				}
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, err
}

// DeleteProductActives removes all associations of a product
func (v *view) DeleteProductActives(ctx context.Context, productID entities.ProductID) error {
	return v.write(func(st *state) error {
		delete(st.productActives, productID)
		return nil
	})
}

func sortedActives(st *state) []entities.ActiveSubstance {
	list := make([]entities.ActiveSubstance, 0, len(st.actives))
	for _, a := range st.actives {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func copyActive(a entities.ActiveSubstance) *entities.ActiveSubstance {
	a.Synonyms = append([]string(nil), a.Synonyms...)
	return &a
}
