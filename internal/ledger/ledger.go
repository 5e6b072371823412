// Package ledger holds the transaction log, the source of truth of a portfolio.
package ledger

import (
	"iter"
	"slices"
	"time"

	"stockCalculator/internal/domain"
)

// Log is an append-only sequence of transactions with explicit deletion.
// It is not safe for concurrent use; the owning store serializes access.
type Log struct {
	txs    []domain.Transaction
	lastID int64
}

// New creates a log holding a copy of txs in the given order.
func New(txs []domain.Transaction) *Log {
	l := &Log{txs: slices.Clone(txs)}
	for _, t := range l.txs {
		l.lastID = max(l.lastID, t.ID)
	}
	return l
}

// NextID returns a fresh id derived from now in Unix milliseconds.
// Ids are strictly increasing even when the clock is not.
func (l *Log) NextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

// Append adds t at the end of the log. No ordering is imposed.
func (l *Log) Append(t domain.Transaction) {
	l.txs = append(l.txs, t)
	l.lastID = max(l.lastID, t.ID)
}

// Remove deletes the transaction with the given id.
// It reports whether a transaction was removed.
func (l *Log) Remove(id int64) bool {
	n := len(l.txs)
	l.txs = slices.DeleteFunc(l.txs, func(t domain.Transaction) bool { return t.ID == id })
	return len(l.txs) != n
}

// RemoveByStock deletes every transaction of the stock and returns how many were removed.
func (l *Log) RemoveByStock(stockName string) int {
	n := len(l.txs)
	l.txs = slices.DeleteFunc(l.txs, func(t domain.Transaction) bool { return t.StockName == stockName })
	return n - len(l.txs)
}

// Get returns the transaction with the given id.
func (l *Log) Get(id int64) (domain.Transaction, bool) {
	i := slices.IndexFunc(l.txs, func(t domain.Transaction) bool { return t.ID == id })
	if i < 0 {
		return domain.Transaction{}, false
	}
	return l.txs[i], true
}

// HasStock reports whether any transaction references the stock.
func (l *Log) HasStock(stockName string) bool {
	return slices.ContainsFunc(l.txs, func(t domain.Transaction) bool { return t.StockName == stockName })
}

// AllSortedByTime returns the transactions ordered by timestamp ascending,
// ties broken by insertion order. Each call sorts a fresh snapshot of the log,
// so the sequence is restartable and unaffected by later mutations.
func (l *Log) AllSortedByTime() iter.Seq[domain.Transaction] {
	sorted := slices.Clone(l.txs)
	slices.SortStableFunc(sorted, func(a, b domain.Transaction) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return slices.Values(sorted)
}

// Transactions returns a copy of the log in insertion order.
func (l *Log) Transactions() []domain.Transaction {
	return slices.Clone(l.txs)
}

// ByStock returns the transactions of one stock, newest first.
func (l *Log) ByStock(stockName string) []domain.Transaction {
	var out []domain.Transaction
	for _, t := range l.txs {
		if t.StockName == stockName {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// LastTimestamp returns the latest timestamp in the log, or the zero time.
func (l *Log) LastTimestamp() time.Time {
	var last time.Time
	for _, t := range l.txs {
		if t.Timestamp.After(last) {
			last = t.Timestamp
		}
	}
	return last
}

// Len returns the number of transactions.
func (l *Log) Len() int { return len(l.txs) }

// Clone returns an independent copy of the log.
func (l *Log) Clone() *Log {
	return &Log{txs: slices.Clone(l.txs), lastID: l.lastID}
}

// Reset empties the log. Ids keep increasing across resets.
func (l *Log) Reset() {
	l.txs = l.txs[:0]
}
