package refloc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rate-estimator/internal/store"
)

// StoreRepository keeps one JSON document per category in an artifact
// store. Every Save rewrites the whole document.
type StoreRepository struct {
	store store.Store

	mu sync.Mutex
}

func NewStoreRepository(s store.Store) *StoreRepository {
	return &StoreRepository{store: s}
}

// Key returns the document key for a category. Domestic towns belong to the
// general-rates dataset and ports to the freight-rates dataset.
func Key(cat Category) string {
	if cat == Domestic {
		return "general-rates/locations.json"
	}
	return "freight-rates/locations.json"
}

type document struct {
	Locations []Location `json:"locations"`
}

func (d *document) Validate() error {
	if d.Locations == nil {
		return errors.New("refloc: missing location list")
	}
	for i, l := range d.Locations {
		if err := l.validate(); err != nil {
			return fmt.Errorf("location %d: %w", i, err)
		}
	}
	return nil
}

func (r *StoreRepository) load(ctx context.Context, cat Category) ([]Location, error) {
	var doc document
	err := store.GetJSON(ctx, r.store, Key(cat), &doc)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Locations, nil
}

func (r *StoreRepository) Exists(ctx context.Context, name string, cat Category) (bool, error) {
	locs, err := r.load(ctx, cat)
	if err != nil {
		return false, err
	}
	for _, l := range locs {
		if l.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *StoreRepository) Save(ctx context.Context, loc Location) error {
	if err := loc.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	locs, err := r.load(ctx, loc.Category)
	if err != nil {
		return err
	}

	replaced := false
	for i := range locs {
		if locs[i].Name == loc.Name {
			locs[i] = loc
			replaced = true
			break
		}
	}
	if !replaced {
		locs = append(locs, loc)
	}
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].Name < locs[j].Name })

	return store.PutJSON(ctx, r.store, Key(loc.Category), document{Locations: locs})
}

func (r *StoreRepository) ByCountry(ctx context.Context, country string, cat Category) ([]Location, error) {
	locs, err := r.load(ctx, cat)
	if err != nil {
		return nil, err
	}
	var out []Location
	for _, l := range locs {
		if l.Country == country {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *StoreRepository) All(ctx context.Context, cat Category) ([]Location, error) {
	return r.load(ctx, cat)
}
