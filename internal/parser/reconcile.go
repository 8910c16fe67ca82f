package parser

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/receiptlens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func toCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

func eur(v float64) *money.Money {
	return money.New(toCents(decimal.NewFromFloat(v)), money.EUR)
}

// reconcile compares the stated total with the sum of the product lines.
// A difference above the total tolerance is reported, never fatal.
func (a *assembler) reconcile() {
	if a.receipt.Total == nil {
		return
	}

	sum := money.New(0, money.EUR)
	for _, p := range a.receipt.Products {
		line := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromFloat(p.Quantity))
		parts := []*money.Money{money.New(toCents(line), money.EUR)}
		if p.Discount != nil {
			parts = append(parts, eur(*p.Discount))
		}
		if p.Discount2 != nil {
			parts = append(parts, eur(*p.Discount2))
		}

		next, err := sum.Add(parts...)
		if err != nil {
			a.logger.Error().Err(err).Msg("summing product lines")
			return
		}
		sum = next
	}

	// product discounts are already netted into sum, so compare with what
	// was paid when the receipt states it
	stated := eur(*a.receipt.Total)
	if a.receipt.TotalPaid != nil {
		stated = eur(*a.receipt.TotalPaid)
	}

	diff, err := stated.Subtract(sum)
	if err != nil {
		a.logger.Error().Err(err).Msg("reconciling totals")
		return
	}
	if diff.Absolute().Amount() <= a.p.totalTolerance {
		return
	}

	msg := fmt.Sprintf("receipt total %s, product lines sum to %s", stated.Display(), sum.Display())
	a.diagnose(0, domain.DiagTotalMismatch, "", msg)
	a.logger.Warn().Int64("difference_cents", diff.Amount()).Msg(msg)
}
