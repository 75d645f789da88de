// Package rules holds the tiered pricing configuration consulted by the
// estimation engine. Tables are read-only once loaded.
package rules

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// MaxWeight is the upper bound, inclusive, of any priced parcel in kg.
	MaxWeight = decimal.NewFromInt(50)

	lightLimit  = decimal.NewFromInt(2)
	mediumLimit = decimal.NewFromInt(10)
)

// Kind tells which base price a delivery option draws from.
type Kind string

const (
	KindHome Kind = "home"
	KindDesk Kind = "desk"
)

// WeightRange is the bracket (Min, Max].
type WeightRange struct {
	Min         decimal.Decimal `json:"min"`
	Max         decimal.Decimal `json:"max"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Description string          `json:"description"`
}

func (r WeightRange) Contains(w decimal.Decimal) bool {
	return w.GreaterThan(r.Min) && w.LessThanOrEqual(r.Max)
}

type PackageType struct {
	MaxWeight   decimal.Decimal `json:"maxWeight"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Description string          `json:"description"`
}

type DeliveryOption struct {
	Kind        Kind            `json:"kind"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Description string          `json:"description"`
}

type HandlingFees struct {
	Light  decimal.Decimal `json:"light"`
	Medium decimal.Decimal `json:"medium"`
	Heavy  decimal.Decimal `json:"heavy"`
}

type Insurance struct {
	Percentage decimal.Decimal `json:"percentage"`
	MaxFee     decimal.Decimal `json:"maxFee"`
}

type FeeTables struct {
	Packaging map[string]decimal.Decimal `json:"packaging"`
	Handling  HandlingFees               `json:"handling"`
	Insurance Insurance                  `json:"insurance"`
}

type BulkTier struct {
	MinQuantity int             `json:"minQuantity"`
	Discount    decimal.Decimal `json:"discount"`
	Description string          `json:"description"`
}

type Recurring struct {
	Monthly     decimal.Decimal `json:"monthly"`
	Description string          `json:"description"`
}

type DiscountTables struct {
	Bulk      []BulkTier `json:"bulk"`
	Recurring Recurring  `json:"recurring"`
}

// Tables is the whole rule document.
type Tables struct {
	WeightRanges    []WeightRange             `json:"weightRanges"`
	PackageTypes    map[string]PackageType    `json:"packageTypes"`
	DeliveryOptions map[string]DeliveryOption `json:"deliveryOptions"`
	OptionAliases   map[string]string         `json:"deliveryOptionAliases,omitempty"`
	Fees            FeeTables                 `json:"additionalFees"`
	Discounts       DiscountTables            `json:"discounts"`
}

// Key canonicalizes a package type or delivery option name.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindWeightRange returns the range containing w. ok is false when no range
// matches, which for a validated table only happens outside (0, MaxWeight].
func (t *Tables) FindWeightRange(w decimal.Decimal) (WeightRange, bool) {
	for _, r := range t.WeightRanges {
		if r.Contains(w) {
			return r, true
		}
	}
	return WeightRange{}, false
}

func (t *Tables) PackageType(key string) (PackageType, bool) {
	p, ok := t.PackageTypes[Key(key)]
	return p, ok
}

// DeliveryOption resolves key, following one level of alias. The returned
// name is the canonical option key.
func (t *Tables) DeliveryOption(key string) (name string, opt DeliveryOption, ok bool) {
	name = Key(key)
	if target, aliased := t.OptionAliases[name]; aliased {
		name = target
	}
	opt, ok = t.DeliveryOptions[name]
	return name, opt, ok
}

// PackagingFee falls back to the standard fee when the type has no entry.
func (t *Tables) PackagingFee(key string) decimal.Decimal {
	if fee, ok := t.Fees.Packaging[Key(key)]; ok {
		return fee
	}
	return t.Fees.Packaging["standard"]
}

// HandlingFee is tiered: up to 2 kg light, up to 10 kg medium, heavier is heavy.
func (t *Tables) HandlingFee(w decimal.Decimal) decimal.Decimal {
	switch {
	case w.LessThanOrEqual(lightLimit):
		return t.Fees.Handling.Light
	case w.LessThanOrEqual(mediumLimit):
		return t.Fees.Handling.Medium
	default:
		return t.Fees.Handling.Heavy
	}
}

// InsuranceFee is a capped percentage of the declared value; zero when nothing
// is declared.
func (t *Tables) InsuranceFee(declared decimal.Decimal) decimal.Decimal {
	if !declared.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(declared.Mul(t.Fees.Insurance.Percentage), t.Fees.Insurance.MaxFee)
}

// BulkTier returns the qualifying tier with the largest MinQuantity,
// independent of declaration order.
func (t *Tables) BulkTier(quantity int) (BulkTier, bool) {
	var (
		best  BulkTier
		found bool
	)
	for _, tier := range t.Discounts.Bulk {
		if tier.MinQuantity > quantity {
			continue
		}
		if !found || tier.MinQuantity > best.MinQuantity {
			best, found = tier, true
		}
	}
	return best, found
}

func (t *Tables) PackageTypeKeys() []string {
	return sortedKeys(t.PackageTypes)
}

func (t *Tables) DeliveryOptionKeys() []string {
	return sortedKeys(t.DeliveryOptions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
