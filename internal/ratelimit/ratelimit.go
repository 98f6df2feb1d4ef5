// Package ratelimit caps how many generation requests one run may spend.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
)

// ErrExhausted is returned by Use once the budget is spent.
var ErrExhausted = errors.New("request budget exhausted")

// Budget counts requests against an optional ceiling. A max of zero or
// less means unlimited.
type Budget struct {
	mu   sync.Mutex
	used int
	max  int
}

func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Use reserves one request.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used >= b.max {
		return fmt.Errorf("%w (%d/%d)", ErrExhausted, b.used, b.max)
	}
	b.used++
	return nil
}

// Limit returns the configured ceiling, zero when unlimited.
func (b *Budget) Limit() int {
	if b.max < 0 {
		return 0
	}
	return b.max
}
