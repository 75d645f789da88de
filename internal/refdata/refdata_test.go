package refdata

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSourceLoads(t *testing.T) {
	store, err := JSONSource{}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 58, store.Len())

	regions := store.Regions()
	for i := 1; i < len(regions); i++ {
		assert.Less(t, regions[i-1].Code, regions[i].Code, "regions must be ordered by code")
	}

	alger, ok := store.RegionByKey("alger")
	require.True(t, ok)
	assert.Equal(t, 16, alger.Code)

	d, ok := store.DeliveryByKey("alger")
	require.True(t, ok)
	assert.True(t, d.HomePrice.Equal(decimal.NewFromInt(400)))
	assert.False(t, d.DeskAvailable())

	// Stored as "Béjaïa" in one document and "Bejaia" in the other.
	_, ok = store.DeliveryByKey("bejaia")
	assert.True(t, ok)

	_, ok = store.DeliveryByKey("in guezzam")
	assert.False(t, ok, "In Guezzam has no delivery service")
}

func TestStoreReturnsCopies(t *testing.T) {
	store, err := NewStore([]Region{{Code: 1, Name: "Oran", Subdivisions: []string{"Arzew"}}}, nil)
	require.NoError(t, err)

	r, _ := store.RegionByKey("oran")
	r.Subdivisions[0] = "mutated"

	again, _ := store.RegionByKey("oran")
	assert.Equal(t, "Arzew", again.Subdivisions[0])
}

func TestNewStoreRejectsInconsistentData(t *testing.T) {
	cases := map[string]struct {
		regions []Region
		records []DeliveryRecord
	}{
		"duplicate code": {
			regions: []Region{{Code: 1, Name: "A"}, {Code: 1, Name: "B"}},
		},
		"duplicate normalized name": {
			regions: []Region{{Code: 1, Name: "Sétif"}, {Code: 2, Name: " SETIF"}},
		},
		"orphan delivery record": {
			regions: []Region{{Code: 1, Name: "A"}},
			records: []DeliveryRecord{{Code: 2, Name: "B"}},
		},
		"negative price": {
			regions: []Region{{Code: 1, Name: "A"}},
			records: []DeliveryRecord{{Code: 1, Name: "A", HomePrice: decimal.NewFromInt(-1)}},
		},
		"two records for one region": {
			regions: []Region{{Code: 1, Name: "A"}},
			records: []DeliveryRecord{{Code: 1, Name: "A"}, {Code: 1, Name: "a "}},
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewStore(c.regions, c.records)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidData))
		})
	}
}

func TestParseJSONRejectsMalformedDocuments(t *testing.T) {
	_, err := ParseJSON([]byte(`{`), []byte(`{"wilayas":[]}`))
	require.Error(t, err)

	_, err = ParseJSON([]byte(`[]`), []byte(`[`))
	require.Error(t, err)
}

func TestJSONSourceMissingDir(t *testing.T) {
	_, err := JSONSource{Dir: t.TempDir() + "/nope"}.Load(context.Background())
	require.Error(t, err)
}
