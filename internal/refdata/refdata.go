// Package refdata holds the immutable geographic reference tables: regions
// (wilayas), their subdivisions (communes) and per-region delivery prices.
package refdata

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"wilayasapi/internal/normalize"
)

// ErrInvalidData wraps every consistency violation found while building a Store.
var ErrInvalidData = errors.New("invalid reference data")

// Region is a top-level administrative division.
type Region struct {
	Code         int      `json:"code"`
	Name         string   `json:"name"`
	Subdivisions []string `json:"subdivisions"`
}

// DeliveryRecord is the base delivery price list for one region.
// A zero DeskPrice means counter pickup is not offered there.
type DeliveryRecord struct {
	Code          int             `json:"code"`
	Name          string          `json:"name"`
	HomePrice     decimal.Decimal `json:"home_price"`
	DeskPrice     decimal.Decimal `json:"desk_price"`
	EstimatedDays string          `json:"estimated_days"`
}

// DeskAvailable reports whether counter pickup is priced for the region.
func (d DeliveryRecord) DeskAvailable() bool {
	return d.DeskPrice.IsPositive()
}

// Source produces a fully built Store. Load either returns a complete store or
// an error; callers must not serve traffic on error.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Store, error)
}

// Store is read-only once built and safe for concurrent use without locking.
type Store struct {
	regions  []Region
	index    map[string]int
	delivery map[string]DeliveryRecord
}

// NewStore validates and indexes the given tables. Regions are ordered by code.
func NewStore(regions []Region, records []DeliveryRecord) (*Store, error) {
	s := &Store{
		regions:  make([]Region, 0, len(regions)),
		index:    make(map[string]int, len(regions)),
		delivery: make(map[string]DeliveryRecord, len(records)),
	}

	var errs []error
	codes := make(map[int]string, len(regions))
	for _, r := range regions {
		key := normalize.Key(r.Name)
		if key == "" {
			errs = append(errs, fmt.Errorf("region %d: empty name", r.Code))
			continue
		}
		if prev, ok := codes[r.Code]; ok {
			errs = append(errs, fmt.Errorf("region code %d used by %q and %q", r.Code, prev, r.Name))
			continue
		}
		if _, ok := s.index[key]; ok {
			errs = append(errs, fmt.Errorf("region name %q is duplicated", r.Name))
			continue
		}
		codes[r.Code] = r.Name
		r.Subdivisions = slices.Clone(r.Subdivisions)
		if r.Subdivisions == nil {
			r.Subdivisions = []string{}
		}
		s.index[key] = -1
		s.regions = append(s.regions, r)
	}
	sort.SliceStable(s.regions, func(i, j int) bool { return s.regions[i].Code < s.regions[j].Code })
	for i, r := range s.regions {
		s.index[normalize.Key(r.Name)] = i
	}

	for _, d := range records {
		key := normalize.Key(d.Name)
		if _, ok := s.index[key]; !ok {
			errs = append(errs, fmt.Errorf("delivery record %q matches no region", d.Name))
			continue
		}
		if _, dup := s.delivery[key]; dup {
			errs = append(errs, fmt.Errorf("region %q has more than one delivery record", d.Name))
			continue
		}
		if d.HomePrice.IsNegative() || d.DeskPrice.IsNegative() {
			errs = append(errs, fmt.Errorf("delivery record %q: prices must be >= 0", d.Name))
			continue
		}
		s.delivery[key] = d
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, errors.Join(errs...))
	}
	return s, nil
}

// Len returns the number of regions.
func (s *Store) Len() int { return len(s.regions) }

// Regions returns every region ordered by code.
func (s *Store) Regions() []Region {
	out := make([]Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = cloneRegion(r)
	}
	return out
}

// RegionByKey looks a region up by its normalized key.
func (s *Store) RegionByKey(key string) (Region, bool) {
	i, ok := s.index[key]
	if !ok {
		return Region{}, false
	}
	return cloneRegion(s.regions[i]), true
}

// DeliveryByKey looks a delivery record up by the normalized region key.
func (s *Store) DeliveryByKey(key string) (DeliveryRecord, bool) {
	d, ok := s.delivery[key]
	return d, ok
}

func cloneRegion(r Region) Region {
	r.Subdivisions = slices.Clone(r.Subdivisions)
	return r
}
