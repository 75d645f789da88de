package rate

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wilayasapi/internal/lookup"
	"wilayasapi/internal/rules"
)

// Estimator defines the interface for delivery estimation engines.
type Estimator interface {
	Estimate(req Request) (*Quote, error)
}

// DefaultCurrency is the Algerian dinar as printed on quotes.
const DefaultCurrency = "DA"

// Engine prices requests against immutable reference data and rule tables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	regions  *lookup.Service
	tables   *rules.Tables
	currency string
	log      *zap.Logger
}

type Option func(*Engine)

func WithCurrency(code string) Option {
	return func(e *Engine) {
		if code != "" {
			e.currency = code
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(regions *lookup.Service, tables *rules.Tables, opts ...Option) *Engine {
	e := &Engine{
		regions:  regions,
		tables:   tables,
		currency: DefaultCurrency,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Estimate validates req and returns an itemized quote. The first failing
// check short-circuits; no partial quote is ever returned with an error.
func (e *Engine) Estimate(req Request) (*Quote, error) {
	v, verr := req.validate()
	if verr != nil {
		return nil, verr
	}

	region, err := e.regions.FindRegion(v.destination)
	if err != nil {
		return nil, newError(KindDestinationNotFound, "destination", "no region named %q", v.destination).
			WithContext("available", e.regions.RegionNames())
	}
	record, err := e.regions.FindDeliveryRecord(region.Name)
	if err != nil {
		if errors.Is(err, lookup.ErrNoDelivery) {
			return nil, newError(KindServiceUnavailable, "destination", "delivery is not offered to %s", region.Name)
		}
		return nil, newError(KindDestinationNotFound, "destination", "no region named %q", v.destination).
			WithContext("available", e.regions.RegionNames())
	}

	// An unknown option is rejected further down, after the package checks.
	optionName, option, optionKnown := e.tables.DeliveryOption(v.deliveryOption)
	basePrice := record.HomePrice
	if optionKnown && option.Kind == rules.KindDesk {
		if !record.DeskAvailable() {
			return nil, newError(KindServiceUnavailable, "deliveryOption", "desk pickup is not offered in %s", region.Name).
				WithContext("option", optionName)
		}
		basePrice = record.DeskPrice
	}

	weightRange, ok := e.tables.FindWeightRange(v.weight)
	if !ok {
		e.log.Error("weight ranges do not cover a valid weight",
			zap.String("weight", v.weight.String()),
			zap.Int("ranges", len(e.tables.WeightRanges)))
		return nil, newError(KindWeightOutOfRange, "weight", "no weight range configured for %s kg", v.weight)
	}

	pkg, ok := e.tables.PackageType(v.packageType)
	if !ok {
		return nil, newError(KindUnknownPackageType, "packageType", "unknown package type %q", v.packageType).
			WithContext("allowed", e.tables.PackageTypeKeys())
	}
	if v.weight.GreaterThan(pkg.MaxWeight) {
		return nil, newError(KindPackageWeightExceeded, "weight", "%s kg exceeds the %s kg limit for %q", v.weight, pkg.MaxWeight, v.packageType).
			WithContext("max", pkg.MaxWeight.String())
	}

	if !optionKnown {
		return nil, newError(KindUnknownDeliveryOption, "deliveryOption", "unknown delivery option %q", v.deliveryOption).
			WithContext("allowed", e.tables.DeliveryOptionKeys())
	}

	unitCost := basePrice.Mul(weightRange.Multiplier).Mul(pkg.Multiplier).Mul(option.Multiplier)
	packagingFee := e.tables.PackagingFee(v.packageType)
	handlingFee := e.tables.HandlingFee(v.weight)
	insuranceFee := e.tables.InsuranceFee(v.declaredValue)

	qty := decimal.NewFromInt(int64(v.quantity))
	subtotal := unitCost.Add(packagingFee).Add(handlingFee).Add(insuranceFee).Mul(qty)

	var applied []AppliedDiscount
	bulkDiscount := decimal.Zero
	if tier, ok := e.tables.BulkTier(v.quantity); ok {
		bulkDiscount = subtotal.Mul(tier.Discount)
		if !bulkDiscount.IsZero() {
			applied = append(applied, AppliedDiscount{Type: DiscountBulk, Description: tier.Description, Amount: round(bulkDiscount)})
		}
	}
	recurringDiscount := decimal.Zero
	if v.recurring {
		recurringDiscount = subtotal.Mul(e.tables.Discounts.Recurring.Monthly)
		if !recurringDiscount.IsZero() {
			applied = append(applied, AppliedDiscount{
				Type:        DiscountRecurring,
				Description: e.tables.Discounts.Recurring.Description,
				Amount:      round(recurringDiscount),
			})
		}
	}

	net := subtotal.Sub(bulkDiscount).Sub(recurringDiscount)
	if net.IsNegative() {
		e.log.Error("discounts exceed subtotal",
			zap.String("subtotal", subtotal.String()),
			zap.String("bulk_discount", bulkDiscount.String()),
			zap.String("recurring_discount", recurringDiscount.String()))
		return nil, newError(KindConfigurationGap, "", "discounts exceed the subtotal")
	}
	finalCost := round(net)

	return &Quote{
		Destination: Destination{Name: region.Name, Code: region.Code},
		Package: PackageSummary{
			Weight:      v.weight,
			Type:        v.packageType,
			Description: pkg.Description,
			Quantity:    v.quantity,
		},
		Delivery: DeliverySummary{
			Option:        optionName,
			Description:   option.Description,
			EstimatedDays: record.EstimatedDays,
		},
		Costs: Costs{
			BasePrice:    round(basePrice),
			UnitCost:     round(unitCost),
			PackagingFee: round(packagingFee),
			HandlingFee:  round(handlingFee),
			InsuranceFee: round(insuranceFee),
			Subtotal:     round(subtotal),
			Discounts: DiscountTotals{
				Bulk:      round(bulkDiscount),
				Recurring: round(recurringDiscount),
				Total:     round(bulkDiscount.Add(recurringDiscount)),
			},
			FinalCost: finalCost,
			Currency:  e.currency,
		},
		Breakdown: Breakdown{
			WeightRange:        weightRange.Description,
			WeightMultiplier:   weightRange.Multiplier,
			PackageMultiplier:  pkg.Multiplier,
			DeliveryMultiplier: option.Multiplier,
			AppliedDiscounts:   applied,
		},
	}, nil
}

// round is half-up to whole currency units; amounts here are never negative
// except on the configuration-gap path.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}
