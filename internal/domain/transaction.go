package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Transaction represents a single buy or sell entered by the user.
// A Transaction is never mutated once it is part of the log.
type Transaction struct {
	ID        int64           // Unique identifier within the log
	StockName string          // Case-sensitive stock identifier
	Quantity  int64           // Number of shares, always positive
	Price     float64         // Per-share price, never negative
	Type      TransactionType // Buy or Sell
	Timestamp time.Time       // Ordering key for the fold
}

// Amount returns quantity times price.
func (t Transaction) Amount() float64 {
	return float64(t.Quantity) * t.Price
}

// Validate checks the creation-time invariants of a transaction.
func (t Transaction) Validate() error {
	var errs []error
	if strings.TrimSpace(t.StockName) == "" {
		errs = append(errs, errors.New("stock name must not be empty"))
	}
	if t.Quantity <= 0 {
		errs = append(errs, fmt.Errorf("quantity must be positive, got %d", t.Quantity))
	}
	if t.Price < 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		errs = append(errs, fmt.Errorf("price must be a non-negative number, got %v", t.Price))
	}
	if t.Type != Buy && t.Type != Sell {
		errs = append(errs, fmt.Errorf("unknown transaction type %q", t.Type))
	}
	return errors.Join(errs...)
}
