package utils

import "github.com/shopspring/decimal"

// SumMoney adds amounts in decimal so that 0.1+0.2 stays 0.3.
func SumMoney(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.InexactFloat64()
}

// SubMoney returns a - b.
func SubMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}

// MulMoney returns a * b, e.g. quantity times rate.
func MulMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).InexactFloat64()
}

// PercentOf returns part as a percentage of whole, rounded to whole percent. A zero whole yields 0.
func PercentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(0).
		InexactFloat64()
}
