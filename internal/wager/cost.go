package wager

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxFieldSize is the largest field a race card carries, and so the largest box
const MaxFieldSize = 24

// BoxCost returns the cost of boxing n horses at amount per combination.
// A box covers every ordered arrangement, so the count is a permutation, not a
// combination. Types without their own formula are priced as an exacta.
func BoxCost(n int, betType BetType, amount decimal.Decimal) decimal.Decimal {
	if n < 2 {
		return decimal.Zero
	}
	return Permutations(n, BoxDepth(betType)).Mul(amount)
}

// BoxDepth is the number of finishing positions a box of betType covers
func BoxDepth(betType BetType) int {
	switch betType {
	case BetTypeTrifecta:
		return 3
	case BetTypeSuperfecta:
		return 4
	}
	return 2
}

// Permutations returns n!/(n-k)!, which is 0 whenever k > n. The product is
// exact for any n.
func Permutations(n, k int) decimal.Decimal {
	if n < 0 || k < 0 || k > n {
		return decimal.Zero
	}
	p := decimal.NewFromInt(1)
	for i := 0; i < k; i++ {
		p = p.Mul(decimal.NewFromInt(int64(n - i)))
	}
	return p
}

// ValidateBoxSize rejects boxes larger than any race field
func ValidateBoxSize(n int) error {
	if n < 0 || n > MaxFieldSize {
		return fmt.Errorf("box size must be between 0 and %d, got %d", MaxFieldSize, n)
	}
	return nil
}

// BoxLineAmount is the amount carried by each line emitted for a boxed horse.
// Every line carries the full box cost, so a ticket total counts a box once per
// boxed horse. Changing how box lines are priced only needs this function.
// boxSize is unused by the current rule; it stays so an alternative rule, such
// as splitting the cost across lines, needs no caller changes.
func BoxLineAmount(boxCost decimal.Decimal, boxSize int) decimal.Decimal {
	return boxCost
}
