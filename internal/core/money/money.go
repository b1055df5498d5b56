// Package money keeps currency arithmetic on two decimal places.
//
// Rounding works on the exact binary value of a float64 and breaks ties to
// even, so 500.125 (exact in binary) rounds to 500.12 while 2.675, stored as
// 2.67499999..., rounds to 2.67.
package money

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance used when comparing paid and due amounts.
const Epsilon = 1e-6

// exact converts v to the decimal it holds in binary, without shortest-form
// formatting. v = mant * 2^-k = mant * 5^k * 10^-k.
func exact(v float64) decimal.Decimal {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	frac, e := math.Frexp(v)
	mant := int64(frac * (1 << 53))
	k := 53 - e
	for k > 0 && mant%2 == 0 {
		mant /= 2
		k--
	}

	m := big.NewInt(mant)
	if k <= 0 {
		return decimal.NewFromBigInt(m.Lsh(m, uint(-k)), 0)
	}
	pow5 := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(k)), nil)
	return decimal.NewFromBigInt(m.Mul(m, pow5), -int32(k))
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return exact(v).RoundBank(2).InexactFloat64()
}

// Add sums two amounts in float64 and rounds the result to cents.
func Add(a, b float64) float64 {
	return Round2(a + b)
}

// Remaining returns round(due - paid, 2).
func Remaining(due, paid float64) float64 {
	return Round2(due - paid)
}

// ToMinorUnits converts an amount to the processor's integer unit (cents).
func ToMinorUnits(amount float64) int64 {
	return exact(amount * 100).RoundBank(0).IntPart()
}

// Settled reports whether paid covers due within Epsilon.
func Settled(paid, due float64) bool {
	return paid+Epsilon >= due
}

func NormalizeCurrency(currency, fallback string) string {
	c := strings.TrimSpace(currency)
	if c == "" {
		c = fallback
	}
	return strings.ToLower(c)
}
