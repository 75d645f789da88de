package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wilayasapi/internal/rate"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	a, err := Load(context.Background(), Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "embedded", a.Source)
	assert.Len(t, a.Lookup.ListRegions(), 58)

	w := 1.5
	q, err := a.Engine.Estimate(rate.Request{Destination: "Alger", Weight: &w})
	require.NoError(t, err)
	assert.Equal(t, "DA", q.Costs.Currency)
	assert.Equal(t, "550", q.Costs.FinalCost.String())
}

func TestLoad_Currency(t *testing.T) {
	a, err := Load(context.Background(), Options{Currency: "DZD"}, nil)
	require.NoError(t, err)

	w := 1.0
	q, err := a.Engine.Estimate(rate.Request{Destination: "Oran", Weight: &w})
	require.NoError(t, err)
	assert.Equal(t, "DZD", q.Costs.Currency)
}

func TestLoad_BadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"weightRanges": []}`), 0o600))

	_, err := Load(context.Background(), Options{RulesPath: path}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rules")
}

func TestLoad_MissingDataDir(t *testing.T) {
	_, err := Load(context.Background(), Options{DataDir: filepath.Join(t.TempDir(), "nope")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load reference data")
}

func TestLoad_BadDatabaseURL(t *testing.T) {
	_, err := Load(context.Background(), Options{DatabaseURL: "::not a url::"}, nil)
	require.Error(t, err)
}
