package domain

import (
	"fmt"
	"strings"
)

// TransactionType represents the side of a transaction (buy or sell).
type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

// ParseTransactionType converts a string to a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown transaction type: %q", s)
	}
}

// CostBasisPolicy decides how a sell reduces the remaining cost basis.
type CostBasisPolicy int

const (
	// IncludeRealizedPnl deducts the actual sale proceeds from the cost basis,
	// so realized gains or losses shift the average price of the remaining shares.
	IncludeRealizedPnl CostBasisPolicy = iota
	// ExcludeRealizedPnl deducts the sold shares at the pre-sale average price,
	// leaving the average price of the remaining shares untouched.
	ExcludeRealizedPnl
)

// String returns the string representation of the CostBasisPolicy.
func (p CostBasisPolicy) String() string {
	switch p {
	case IncludeRealizedPnl:
		return "include"
	case ExcludeRealizedPnl:
		return "exclude"
	default:
		return "unknown"
	}
}

// IncludesRealizedPnl reports whether the policy is IncludeRealizedPnl.
func (p CostBasisPolicy) IncludesRealizedPnl() bool {
	return p == IncludeRealizedPnl
}

// PolicyFromFlag maps the persisted boolean flag to a policy.
func PolicyFromFlag(includeRealizedPnl bool) CostBasisPolicy {
	if includeRealizedPnl {
		return IncludeRealizedPnl
	}
	return ExcludeRealizedPnl
}

// ParseCostBasisPolicy parses a string into a CostBasisPolicy.
func ParseCostBasisPolicy(s string) (CostBasisPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "include", "included", "true", "on":
		return IncludeRealizedPnl, nil
	case "exclude", "excluded", "false", "off":
		return ExcludeRealizedPnl, nil
	default:
		return 0, fmt.Errorf("unknown cost basis policy: %q", s)
	}
}
