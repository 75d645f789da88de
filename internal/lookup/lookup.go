// Package lookup resolves free-text region names against the reference store.
package lookup

import (
	"errors"

	"wilayasapi/internal/normalize"
	"wilayasapi/internal/refdata"
)

var (
	// ErrNotFound means no region matches the normalized name.
	ErrNotFound = errors.New("region not found")
	// ErrNoDelivery means the region exists but has no delivery price record.
	ErrNoDelivery = errors.New("no delivery service for region")
)

// RegionSummary is one row of the region listing.
type RegionSummary struct {
	Code             int    `json:"code"`
	Name             string `json:"name"`
	SubdivisionCount int    `json:"communes_count"`
}

// RegionDetail is a region with its delivery record, nil when unsupported.
type RegionDetail struct {
	refdata.Region
	Delivery *refdata.DeliveryRecord `json:"delivery,omitempty"`
}

// Service answers read-only queries over a Store.
type Service struct {
	store *refdata.Store
}

func New(store *refdata.Store) *Service {
	return &Service{store: store}
}

func (s *Service) FindRegion(name string) (refdata.Region, error) {
	r, ok := s.store.RegionByKey(normalize.Key(name))
	if !ok {
		return refdata.Region{}, ErrNotFound
	}
	return r, nil
}

// FindDeliveryRecord returns ErrNotFound for an unknown region and
// ErrNoDelivery for a known region without service.
func (s *Service) FindDeliveryRecord(name string) (refdata.DeliveryRecord, error) {
	key := normalize.Key(name)
	if _, ok := s.store.RegionByKey(key); !ok {
		return refdata.DeliveryRecord{}, ErrNotFound
	}
	d, ok := s.store.DeliveryByKey(key)
	if !ok {
		return refdata.DeliveryRecord{}, ErrNoDelivery
	}
	return d, nil
}

func (s *Service) ListRegions() []RegionSummary {
	regions := s.store.Regions()
	out := make([]RegionSummary, 0, len(regions))
	for _, r := range regions {
		out = append(out, RegionSummary{Code: r.Code, Name: r.Name, SubdivisionCount: len(r.Subdivisions)})
	}
	return out
}

// RegionNames lists every region name in code order.
func (s *Service) RegionNames() []string {
	regions := s.store.Regions()
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		out = append(out, r.Name)
	}
	return out
}

func (s *Service) GetRegion(name string) (RegionDetail, error) {
	key := normalize.Key(name)
	r, ok := s.store.RegionByKey(key)
	if !ok {
		return RegionDetail{}, ErrNotFound
	}
	detail := RegionDetail{Region: r}
	if d, ok := s.store.DeliveryByKey(key); ok {
		detail.Delivery = &d
	}
	return detail, nil
}

// GetSubdivisions is FindRegion under the name the transport layer uses.
func (s *Service) GetSubdivisions(name string) (refdata.Region, error) {
	return s.FindRegion(name)
}

// GetDeliveryRecord is FindDeliveryRecord under the name the transport layer uses.
func (s *Service) GetDeliveryRecord(name string) (refdata.DeliveryRecord, error) {
	return s.FindDeliveryRecord(name)
}
