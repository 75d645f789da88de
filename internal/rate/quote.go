package rate

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Quote is an itemized delivery estimate. It is built fresh per request.
type Quote struct {
	Destination Destination
	Package     PackageSummary
	Delivery    DeliverySummary
	Costs       Costs
	Breakdown   Breakdown
}

type Destination struct {
	Name string
	Code int
}

type PackageSummary struct {
	Weight      decimal.Decimal
	Type        string
	Description string
	Quantity    int
}

type DeliverySummary struct {
	Option        string
	Description   string
	EstimatedDays string
}

// Costs holds display values: each line is rounded on its own, while the
// discounts and FinalCost were computed from the unrounded subtotal.
type Costs struct {
	BasePrice    decimal.Decimal
	UnitCost     decimal.Decimal
	PackagingFee decimal.Decimal
	HandlingFee  decimal.Decimal
	InsuranceFee decimal.Decimal
	Subtotal     decimal.Decimal
	Discounts    DiscountTotals
	FinalCost    decimal.Decimal
	Currency     string
}

type DiscountTotals struct {
	Bulk      decimal.Decimal
	Recurring decimal.Decimal
	Total     decimal.Decimal
}

type Breakdown struct {
	WeightRange        string
	WeightMultiplier   decimal.Decimal
	PackageMultiplier  decimal.Decimal
	DeliveryMultiplier decimal.Decimal
	AppliedDiscounts   []AppliedDiscount
}

// AppliedDiscount is listed only when its amount is non-zero.
type AppliedDiscount struct {
	Type        string
	Description string
	Amount      decimal.Decimal
}

const (
	DiscountBulk      = "bulk"
	DiscountRecurring = "recurring"
)

// MarshalJSON renders money and multipliers as JSON numbers using the field
// names clients of the estimate endpoint already consume.
func (q *Quote) MarshalJSON() ([]byte, error) {
	type discount struct {
		Type        string      `json:"type"`
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
	}
	applied := make([]discount, 0, len(q.Breakdown.AppliedDiscounts))
	for _, d := range q.Breakdown.AppliedDiscounts {
		applied = append(applied, discount{Type: d.Type, Description: d.Description, Amount: num(d.Amount)})
	}

	view := struct {
		Destination struct {
			Wilaya string `json:"wilaya"`
			Code   int    `json:"code"`
		} `json:"destination"`
		Package struct {
			Weight      json.Number `json:"weight"`
			Type        string      `json:"type"`
			Description string      `json:"description"`
			Quantity    int         `json:"quantity"`
		} `json:"package"`
		Delivery struct {
			Option         string `json:"option"`
			Description    string `json:"description"`
			EstimatedDelay string `json:"estimatedDelay"`
		} `json:"delivery"`
		Costs struct {
			BasePrice    json.Number `json:"basePrice"`
			UnitCost     json.Number `json:"unitCost"`
			PackagingFee json.Number `json:"packagingFee"`
			HandlingFee  json.Number `json:"handlingFee"`
			InsuranceFee json.Number `json:"insuranceFee"`
			Subtotal     json.Number `json:"subtotal"`
			Discounts    struct {
				Bulk      json.Number `json:"bulk"`
				Recurring json.Number `json:"recurring"`
				Total     json.Number `json:"total"`
			} `json:"discounts"`
			FinalCost json.Number `json:"finalCost"`
			Currency  string      `json:"currency"`
		} `json:"costs"`
		Breakdown struct {
			WeightRange        string      `json:"weightRange"`
			WeightMultiplier   json.Number `json:"weightMultiplier"`
			PackageMultiplier  json.Number `json:"packageMultiplier"`
			DeliveryMultiplier json.Number `json:"deliveryMultiplier"`
			AppliedDiscounts   []discount  `json:"appliedDiscounts"`
		} `json:"breakdown"`
	}{}

	view.Destination.Wilaya = q.Destination.Name
	view.Destination.Code = q.Destination.Code
	view.Package.Weight = num(q.Package.Weight)
	view.Package.Type = q.Package.Type
	view.Package.Description = q.Package.Description
	view.Package.Quantity = q.Package.Quantity
	view.Delivery.Option = q.Delivery.Option
	view.Delivery.Description = q.Delivery.Description
	view.Delivery.EstimatedDelay = q.Delivery.EstimatedDays

	c := q.Costs
	view.Costs.BasePrice = num(c.BasePrice)
	view.Costs.UnitCost = num(c.UnitCost)
	view.Costs.PackagingFee = num(c.PackagingFee)
	view.Costs.HandlingFee = num(c.HandlingFee)
	view.Costs.InsuranceFee = num(c.InsuranceFee)
	view.Costs.Subtotal = num(c.Subtotal)
	view.Costs.Discounts.Bulk = num(c.Discounts.Bulk)
	view.Costs.Discounts.Recurring = num(c.Discounts.Recurring)
	view.Costs.Discounts.Total = num(c.Discounts.Total)
	view.Costs.FinalCost = num(c.FinalCost)
	view.Costs.Currency = c.Currency

	b := q.Breakdown
	view.Breakdown.WeightRange = b.WeightRange
	view.Breakdown.WeightMultiplier = num(b.WeightMultiplier)
	view.Breakdown.PackageMultiplier = num(b.PackageMultiplier)
	view.Breakdown.DeliveryMultiplier = num(b.DeliveryMultiplier)
	view.Breakdown.AppliedDiscounts = applied

	return json.Marshal(view)
}

func num(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
