package rate

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"wilayasapi/internal/rules"
)

const (
	DefaultPackageType    = "standard"
	DefaultDeliveryOption = "home"
	MinQuantity           = 1
	MaxQuantity           = 100
)

// Request is an estimate request as parsed by a transport. Nil pointers and
// empty strings mean "not supplied".
type Request struct {
	Destination       string
	Weight            *float64
	PackageType       string
	DeliveryOption    string
	Quantity          *int
	DeclaredValue     *float64
	RecurringCustomer bool
}

// validated is a Request with defaults applied and bounds checked.
type validated struct {
	destination    string
	weight         decimal.Decimal
	packageType    string
	deliveryOption string
	quantity       int
	declaredValue  decimal.Decimal
	recurring      bool
}

// validate covers the checks that need no table lookup.
func (r Request) validate() (validated, *Error) {
	if strings.TrimSpace(r.Destination) == "" || r.Weight == nil {
		var missing []string
		if strings.TrimSpace(r.Destination) == "" {
			missing = append(missing, "destination")
		}
		if r.Weight == nil {
			missing = append(missing, "weight")
		}
		return validated{}, newError(KindMissingParameter, missing[0], "required parameters missing").
			WithContext("missing", missing).
			WithContext("required", []string{"destination", "weight"})
	}

	w := *r.Weight
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 || decimal.NewFromFloat(w).GreaterThan(rules.MaxWeight) {
		return validated{}, newError(KindOutOfRange, "weight", "weight must satisfy 0 < weight <= %s kg", rules.MaxWeight).
			WithContext("min_exclusive", 0).
			WithContext("max", rules.MaxWeight.IntPart())
	}

	qty := MinQuantity
	if r.Quantity != nil {
		qty = *r.Quantity
	}
	if qty < MinQuantity || qty > MaxQuantity {
		return validated{}, newError(KindOutOfRange, "quantity", "quantity must be between %d and %d", MinQuantity, MaxQuantity).
			WithContext("min", MinQuantity).
			WithContext("max", MaxQuantity)
	}

	declared := decimal.Zero
	if r.DeclaredValue != nil {
		v := *r.DeclaredValue
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return validated{}, newError(KindOutOfRange, "declaredValue", "declared value must be >= 0").
				WithContext("min", 0)
		}
		declared = decimal.NewFromFloat(v)
	}

	v := validated{
		destination:    r.Destination,
		weight:         decimal.NewFromFloat(w),
		packageType:    rules.Key(r.PackageType),
		deliveryOption: rules.Key(r.DeliveryOption),
		quantity:       qty,
		declaredValue:  declared,
		recurring:      r.RecurringCustomer,
	}
	if v.packageType == "" {
		v.packageType = DefaultPackageType
	}
	if v.deliveryOption == "" {
		v.deliveryOption = DefaultDeliveryOption
	}
	return v, nil
}
