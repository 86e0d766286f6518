// Package tax converts between gross and net monthly salary under the
// flat 2025 employee tax rules: social tax on the full gross, income tax on
// what remains after the non-taxable minimum and dependent relief.
package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// SocialRate is the employee social insurance contribution.
	SocialRate = decimal.RequireFromString("0.105")
	// IncomeRate is the base personal income tax rate.
	IncomeRate = decimal.RequireFromString("0.255")
	// IncomeRateHigh applies above HighIncomeThreshold. It is not used by
	// the conversions, which stay in the base bracket.
	IncomeRateHigh = decimal.RequireFromString("0.33")
	// DependentRelief is the monthly relief per dependent.
	DependentRelief = decimal.NewFromInt(250)
	// NonTaxableMinimum is granted when the tax book is with the employer.
	NonTaxableMinimum = decimal.NewFromInt(510)
	// HighIncomeThreshold is the monthly gross above which IncomeRateHigh would apply.
	HighIncomeThreshold = decimal.NewFromInt(8775)
)

var (
	one         = decimal.NewFromInt(1)
	afterSocial = one.Sub(SocialRate) // 0.895
	afterIncome = one.Sub(IncomeRate) // 0.745
)

// Breakdown is every intermediate of a gross to net conversion.
type Breakdown struct {
	Gross       decimal.Decimal
	SocialTax   decimal.Decimal
	NonTaxable  decimal.Decimal
	Relief      decimal.Decimal
	TaxableBase decimal.Decimal
	IncomeTax   decimal.Decimal
	Net         decimal.Decimal
}

// Compute returns the full breakdown for gross. Intermediates stay exact
// and only the net is rounded to cents, with ties going to the even cent.
// The tax fields are rounded the same way for display. A non-positive gross
// yields a zero breakdown.
func Compute(gross decimal.Decimal, dependents int, hasTaxBook bool) Breakdown {
	if !gross.IsPositive() {
		return Breakdown{}
	}

	social := gross.Mul(SocialRate)
	nonTaxable := decimal.Zero
	if hasTaxBook {
		nonTaxable = NonTaxableMinimum
	}
	relief := DependentRelief.Mul(decimal.NewFromInt(int64(dependents)))

	base := gross.Sub(social).Sub(nonTaxable).Sub(relief)
	if base.IsNegative() {
		base = decimal.Zero
	}
	income := base.Mul(IncomeRate)

	return Breakdown{
		Gross:       gross,
		SocialTax:   cents(social),
		NonTaxable:  nonTaxable,
		Relief:      relief,
		TaxableBase: cents(base),
		IncomeTax:   cents(income),
		Net:         cents(gross.Sub(social).Sub(income)),
	}
}

// cents rounds half to even. 1000 gross nets exactly 796.825, which
// settles at 796.82.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// NetFromGross returns the monthly net salary for gross, rounded to cents.
// Non-positive input returns zero.
func NetFromGross(gross decimal.Decimal, dependents int, hasTaxBook bool) decimal.Decimal {
	return Compute(gross, dependents, hasTaxBook).Net
}

// GrossFromNet inverts NetFromGross within one cent. It first assumes income
// tax is due and falls back to the social-tax-only formula when that
// assumption leaves a negative taxable base.
func GrossFromNet(net decimal.Decimal, dependents int, hasTaxBook bool) decimal.Decimal {
	if !net.IsPositive() {
		return decimal.Zero
	}

	relief := DependentRelief.Mul(decimal.NewFromInt(int64(dependents)))
	if hasTaxBook {
		relief = relief.Add(NonTaxableMinimum)
	}

	gross := net.Sub(relief.Mul(IncomeRate)).Div(afterSocial.Mul(afterIncome))
	if gross.Sub(gross.Mul(SocialRate)).Sub(relief).IsNegative() {
		gross = net.Div(afterSocial)
	}
	return gross.Round(2)
}

// NetFromGrossString parses s as a decimal (dot or comma separator) and
// converts it. Unparseable input returns zero rather than an error.
func NetFromGrossString(s string, dependents int, hasTaxBook bool) decimal.Decimal {
	gross, ok := parse(s)
	if !ok {
		return decimal.Zero
	}
	return NetFromGross(gross, dependents, hasTaxBook)
}

// GrossFromNetString is the string form of GrossFromNet.
func GrossFromNetString(s string, dependents int, hasTaxBook bool) decimal.Decimal {
	net, ok := parse(s)
	if !ok {
		return decimal.Zero
	}
	return GrossFromNet(net, dependents, hasTaxBook)
}

func parse(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
