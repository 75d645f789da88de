package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInvalidRules wraps every problem Validate finds.
var ErrInvalidRules = errors.New("invalid rule tables")

var one = decimal.NewFromInt(1)

// Validate checks the structural invariants the engine relies on. All problems
// are reported at once.
func (t *Tables) Validate() error {
	var errs []error
	errs = append(errs, t.validateWeightRanges()...)

	if len(t.PackageTypes) == 0 {
		errs = append(errs, errors.New("no package types configured"))
	}
	for k, p := range t.PackageTypes {
		if k == "" {
			errs = append(errs, errors.New("package type with empty key"))
		}
		if !p.MaxWeight.IsPositive() {
			errs = append(errs, fmt.Errorf("package type %q: maxWeight must be > 0", k))
		}
		if !p.Multiplier.IsPositive() {
			errs = append(errs, fmt.Errorf("package type %q: multiplier must be > 0", k))
		}
	}

	if len(t.DeliveryOptions) == 0 {
		errs = append(errs, errors.New("no delivery options configured"))
	}
	for k, o := range t.DeliveryOptions {
		if o.Kind != KindHome && o.Kind != KindDesk {
			errs = append(errs, fmt.Errorf("delivery option %q: kind must be %q or %q", k, KindHome, KindDesk))
		}
		if !o.Multiplier.IsPositive() {
			errs = append(errs, fmt.Errorf("delivery option %q: multiplier must be > 0", k))
		}
	}
	for alias, target := range t.OptionAliases {
		if _, ok := t.DeliveryOptions[target]; !ok {
			errs = append(errs, fmt.Errorf("delivery option alias %q points to unknown option %q", alias, target))
		}
		if _, ok := t.DeliveryOptions[alias]; ok {
			errs = append(errs, fmt.Errorf("delivery option alias %q shadows an option", alias))
		}
	}

	if _, ok := t.Fees.Packaging["standard"]; !ok {
		errs = append(errs, errors.New(`packaging fees: "standard" fallback is required`))
	}
	for k, fee := range t.Fees.Packaging {
		if fee.IsNegative() {
			errs = append(errs, fmt.Errorf("packaging fee %q must be >= 0", k))
		}
	}
	h := t.Fees.Handling
	if h.Light.IsNegative() || h.Medium.IsNegative() || h.Heavy.IsNegative() {
		errs = append(errs, errors.New("handling fees must be >= 0"))
	}
	if !inUnitInterval(t.Fees.Insurance.Percentage) {
		errs = append(errs, errors.New("insurance percentage must be within [0, 1]"))
	}
	if t.Fees.Insurance.MaxFee.IsNegative() {
		errs = append(errs, errors.New("insurance maxFee must be >= 0"))
	}

	maxBulk := decimal.Zero
	for _, tier := range t.Discounts.Bulk {
		if tier.MinQuantity < 1 {
			errs = append(errs, fmt.Errorf("bulk tier %q: minQuantity must be >= 1", tier.Description))
		}
		if !inUnitInterval(tier.Discount) {
			errs = append(errs, fmt.Errorf("bulk tier %q: discount must be within [0, 1]", tier.Description))
		}
		maxBulk = decimal.Max(maxBulk, tier.Discount)
	}
	if !inUnitInterval(t.Discounts.Recurring.Monthly) {
		errs = append(errs, errors.New("recurring discount must be within [0, 1]"))
	}
	if maxBulk.Add(t.Discounts.Recurring.Monthly).GreaterThan(one) {
		errs = append(errs, errors.New("largest bulk discount plus recurring discount exceeds 100%"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRules, errors.Join(errs...))
	}
	return nil
}

// validateWeightRanges requires the ranges to partition (0, MaxWeight].
func (t *Tables) validateWeightRanges() []error {
	if len(t.WeightRanges) == 0 {
		return []error{errors.New("no weight ranges configured")}
	}
	ranges := make([]WeightRange, len(t.WeightRanges))
	copy(ranges, t.WeightRanges)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Min.LessThan(ranges[j].Min) })

	var errs []error
	if !ranges[0].Min.IsZero() {
		errs = append(errs, fmt.Errorf("weight ranges start at %s, want 0", ranges[0].Min))
	}
	for i, r := range ranges {
		if !r.Max.GreaterThan(r.Min) {
			errs = append(errs, fmt.Errorf("weight range %q: max must exceed min", r.Description))
		}
		if !r.Multiplier.IsPositive() {
			errs = append(errs, fmt.Errorf("weight range %q: multiplier must be > 0", r.Description))
		}
		if i > 0 && !r.Min.Equal(ranges[i-1].Max) {
			errs = append(errs, fmt.Errorf("weight ranges %q and %q leave a gap or overlap", ranges[i-1].Description, r.Description))
		}
	}
	if last := ranges[len(ranges)-1]; !last.Max.Equal(MaxWeight) {
		errs = append(errs, fmt.Errorf("weight ranges end at %s, want %s", last.Max, MaxWeight))
	}
	return errs
}

func inUnitInterval(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(one)
}
