package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"stockCalculator/internal/accounting"
	"stockCalculator/internal/adapters/jsoncodec"
	"stockCalculator/internal/bulkparse"
	"stockCalculator/internal/domain"
	"stockCalculator/internal/ledger"
	"stockCalculator/internal/ports"
)

// StoreConfig holds the settings a PortfolioStore needs.
type StoreConfig struct {
	DefaultPolicy domain.CostBasisPolicy // Policy until a stored one is loaded
	BulkKeywords  bulkparse.Keywords
}

// Option configures a PortfolioStore.
type Option func(*PortfolioStore)

// WithClock replaces time.Now for ids, timestamps and the bulk-import year.
func WithClock(now func() time.Time) Option {
	return func(s *PortfolioStore) { s.now = now }
}

// WithListener registers a change listener at construction time.
func WithListener(l ports.ChangeListener) Option {
	return func(s *PortfolioStore) { s.listeners = append(s.listeners, l) }
}

// PortfolioStore orchestrates the transaction log, the accountant and the
// price overlay. Every mutation is serialized, persisted, and only then made
// visible; listeners are notified afterwards with an immutable snapshot.
type PortfolioStore struct {
	logger ports.Logger
	repo   ports.StateRepository
	parser *bulkparse.Parser
	now    func() time.Time

	mu        sync.Mutex // Protects the fields below
	cur       *portfolio
	listeners []ports.ChangeListener
}

// NewPortfolioStore creates a store with an empty portfolio. Call Load to
// restore persisted state.
func NewPortfolioStore(cfg StoreConfig, logger ports.Logger, repo ports.StateRepository, opts ...Option) (*PortfolioStore, error) {
	if logger == nil || repo == nil {
		return nil, fmt.Errorf("missing required dependencies for PortfolioStore")
	}
	if cfg.DefaultPolicy != domain.IncludeRealizedPnl && cfg.DefaultPolicy != domain.ExcludeRealizedPnl {
		return nil, fmt.Errorf("%w: unknown default cost basis policy %d", ports.ErrConfigurationError, cfg.DefaultPolicy)
	}

	s := &PortfolioStore{
		logger: logger,
		repo:   repo,
		now:    time.Now,
		cur:    newPortfolio(cfg.DefaultPolicy),
	}
	for _, opt := range opts {
		opt(s)
	}

	kw := cfg.BulkKeywords
	if kw == (bulkparse.Keywords{}) {
		kw = bulkparse.DefaultKeywords
	}
	parser, err := bulkparse.New(kw, bulkparse.WithClock(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	s.parser = parser

	return s, nil
}

// Subscribe registers a listener for change notifications.
func (s *PortfolioStore) Subscribe(l ports.ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Load restores the persisted portfolio. A first run (nothing stored) keeps
// the empty portfolio. A malformed or inconsistent document is reported and
// the in-memory state is kept.
func (s *PortfolioStore) Load(ctx context.Context) error {
	state, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load stored portfolio, keeping current state")
		return fmt.Errorf("failed to load portfolio: %w", err)
	}
	if state == nil {
		s.logger.Info(ctx, "No stored portfolio found, starting empty")
		return nil
	}

	next := &portfolio{
		log:      ledger.New(state.Transactions),
		holdings: make(map[string]domain.Holding),
		prices:   clonePrices(state.Prices),
		policy:   state.Policy,
	}
	if err := next.recompute(); err != nil {
		err = fmt.Errorf("%w: stored transaction history is inconsistent: %w", ports.ErrParse, err)
		s.logger.Error(ctx, err, "Failed to load stored portfolio, keeping current state")
		return err
	}

	s.mu.Lock()
	s.cur = next
	snap := next.snapshot()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.Info(ctx, "Portfolio loaded", map[string]interface{}{
		"transactions": len(snap.Transactions),
		"positions":    len(snap.Positions),
		"policy":       snap.Policy.String(),
	})
	notify(ctx, listeners, snap)
	return nil
}

// AddTransaction validates and records a new transaction stamped with the
// current time. Surrounding whitespace in the stock name is dropped. A sell of more shares than held is rejected and nothing changes.
func (s *PortfolioStore) AddTransaction(ctx context.Context, stockName string, quantity int64, price float64, typ domain.TransactionType) (domain.Transaction, error) {
	stockName = strings.TrimSpace(stockName)
	t := domain.Transaction{
		StockName: stockName,
		Quantity:  quantity,
		Price:     price,
		Type:      typ,
	}
	if err := t.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", ports.ErrValidation, err)
		s.logger.Warn(ctx, "Transaction rejected", map[string]interface{}{"stock": stockName, "error": err.Error()})
		return domain.Transaction{}, err
	}

	err := s.mutate(ctx, "add transaction", func(p *portfolio) error {
		if err := accounting.CheckSell(p.holdings, t); err != nil {
			return err
		}
		at := normalize(s.now())
		t.ID = p.log.NextID(at)
		t.Timestamp = at

		if at.Before(p.log.LastTimestamp()) {
			// The clock went backwards relative to the log; an
			// incremental step would fold out of order.
			p.log.Append(t)
			return p.recompute()
		}
		return p.apply(t)
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logger.Info(ctx, "Transaction added", map[string]interface{}{
		"id": t.ID, "stock": t.StockName, "type": t.Type, "quantity": t.Quantity, "price": t.Price,
	})
	return t, nil
}

// RemoveTransaction deletes a transaction and recomputes all positions.
// Returns an error wrapping ports.ErrNotFound for an unknown id, and rejects
// the removal if the remaining history would sell shares it never bought.
func (s *PortfolioStore) RemoveTransaction(ctx context.Context, id int64) error {
	var removed domain.Transaction
	err := s.mutate(ctx, "remove transaction", func(p *portfolio) error {
		t, ok := p.log.Get(id)
		if !ok {
			return fmt.Errorf("transaction %d: %w", id, ports.ErrNotFound)
		}
		p.log.Remove(id)
		if err := p.recompute(); err != nil {
			return fmt.Errorf("removing transaction %d would invalidate later sells: %w", id, err)
		}
		removed = t
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Transaction removed", map[string]interface{}{
		"id": id, "stock": removed.StockName, "type": removed.Type, "quantity": removed.Quantity,
	})
	return nil
}

// RemoveStock deletes a stock's position together with all its transactions.
func (s *PortfolioStore) RemoveStock(ctx context.Context, stockName string) error {
	stockName = strings.TrimSpace(stockName)
	var removed int
	err := s.mutate(ctx, "remove stock", func(p *portfolio) error {
		if _, held := p.holdings[stockName]; !held && !p.log.HasStock(stockName) {
			return fmt.Errorf("stock %q: %w", stockName, ports.ErrNotFound)
		}
		removed = p.log.RemoveByStock(stockName)
		return p.recompute()
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Stock removed", map[string]interface{}{"stock": stockName, "transactions": removed})
	return nil
}

// SetCurrentPrice overrides the market price of a held stock. No recompute is needed.
func (s *PortfolioStore) SetCurrentPrice(ctx context.Context, stockName string, price float64) error {
	stockName = strings.TrimSpace(stockName)
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		err := fmt.Errorf("%w: price must be a non-negative number, got %v", ports.ErrValidation, price)
		s.logger.Warn(ctx, "Price rejected", map[string]interface{}{"stock": stockName, "error": err.Error()})
		return err
	}
	err := s.mutate(ctx, "set current price", func(p *portfolio) error {
		if _, ok := p.holdings[stockName]; !ok {
			return fmt.Errorf("position %q: %w", stockName, ports.ErrNotFound)
		}
		p.prices[stockName] = price
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Current price set", map[string]interface{}{"stock": stockName, "price": price})
	return nil
}

// SetCostBasisPolicy switches the policy and recomputes every position.
func (s *PortfolioStore) SetCostBasisPolicy(ctx context.Context, policy domain.CostBasisPolicy) error {
	if policy != domain.IncludeRealizedPnl && policy != domain.ExcludeRealizedPnl {
		return fmt.Errorf("%w: unknown cost basis policy %d", ports.ErrValidation, policy)
	}
	err := s.mutate(ctx, "set cost basis policy", func(p *portfolio) error {
		p.policy = policy
		return p.recompute()
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Cost basis policy changed", map[string]interface{}{"policy": policy.String()})
	return nil
}

// BulkImport parses pasted history text for one stock and adds every
// transaction found. The batch is all-or-nothing: if the merged history
// would oversell, nothing is added. Returns the number of transactions added.
func (s *PortfolioStore) BulkImport(ctx context.Context, text, stockName string) (int, error) {
	stockName = strings.TrimSpace(stockName)
	if stockName == "" {
		return 0, fmt.Errorf("%w: stock name is required for bulk import", ports.ErrValidation)
	}

	parsed := s.parser.Parse(text, stockName)
	if len(parsed) == 0 {
		s.logger.Warn(ctx, "Bulk import found nothing", map[string]interface{}{"stock": stockName})
		return 0, ports.ErrNoTransactions
	}

	err := s.mutate(ctx, "bulk import", func(p *portfolio) error {
		stamp := normalize(s.now())
		for _, t := range parsed {
			t.ID = p.log.NextID(stamp)
			t.Timestamp = normalize(t.Timestamp)
			p.log.Append(t)
		}
		if err := p.recompute(); err != nil {
			return fmt.Errorf("bulk import rejected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "Bulk import completed", map[string]interface{}{"stock": stockName, "transactions": len(parsed)})
	return len(parsed), nil
}

// ClearAll empties the log, the positions and the price overlay.
// The cost basis policy is kept.
func (s *PortfolioStore) ClearAll(ctx context.Context) error {
	err := s.mutate(ctx, "clear", func(p *portfolio) error {
		p.log.Reset()
		p.holdings = make(map[string]domain.Holding)
		p.prices = make(map[string]float64)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Portfolio cleared")
	return nil
}

// Export writes the export document (positions and transactions, without
// the policy flag) to w.
func (s *PortfolioStore) Export(w io.Writer) error {
	s.mu.Lock()
	state := s.cur.state()
	s.mu.Unlock()
	return jsoncodec.WriteExport(w, state)
}

// Import replaces the transaction log and price overlay with the content of
// an export document and recomputes positions under the current policy.
// The policy itself is not restored. On any error the current state is kept.
func (s *PortfolioStore) Import(ctx context.Context, r io.Reader) (int, error) {
	doc, err := jsoncodec.ReadExport(r, domain.IncludeRealizedPnl)
	if err != nil {
		s.logger.Error(ctx, err, "Portfolio import failed, keeping current state")
		return 0, err
	}

	err = s.mutate(ctx, "import", func(p *portfolio) error {
		p.log = ledger.New(doc.Transactions)
		p.prices = clonePrices(doc.Prices)
		if err := p.recompute(); err != nil {
			return fmt.Errorf("%w: imported transaction history is inconsistent: %w", ports.ErrParse, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "Portfolio imported", map[string]interface{}{"transactions": len(doc.Transactions)})
	return len(doc.Transactions), nil
}

// Snapshot returns a copy of the current positions, log and policy.
func (s *PortfolioStore) Snapshot() ports.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.snapshot()
}

// StockHistory returns the transactions of one stock, newest first.
func (s *PortfolioStore) StockHistory(stockName string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.log.ByStock(strings.TrimSpace(stockName))
}

// mutate runs fn on a clone of the portfolio, persists the result and swaps
// it in. If fn or persistence fails the current portfolio is untouched.
func (s *PortfolioStore) mutate(ctx context.Context, op string, fn func(p *portfolio) error) error {
	snap, listeners, err := s.commit(ctx, op, fn)
	if err != nil {
		return err
	}
	notify(ctx, listeners, snap)
	return nil
}

func (s *PortfolioStore) commit(ctx context.Context, op string, fn func(p *portfolio) error) (ports.Snapshot, []ports.ChangeListener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.clone()
	if err := fn(next); err != nil {
		if errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrValidation) || errors.Is(err, ports.ErrParse) {
			s.logger.Warn(ctx, "Operation rejected", map[string]interface{}{"op": op, "error": err.Error()})
		} else {
			s.logger.Error(ctx, err, "Operation failed", map[string]interface{}{"op": op})
		}
		return ports.Snapshot{}, nil, err
	}

	if err := s.repo.Save(ctx, next.state()); err != nil {
		s.logger.Error(ctx, err, "Failed to persist portfolio", map[string]interface{}{"op": op})
		return ports.Snapshot{}, nil, fmt.Errorf("failed to persist portfolio: %w", err)
	}
	s.logger.Debug(ctx, "Portfolio persisted", map[string]interface{}{"op": op, "transactions": next.log.Len()})

	s.cur = next
	return next.snapshot(), slices.Clone(s.listeners), nil
}

func notify(ctx context.Context, listeners []ports.ChangeListener, snap ports.Snapshot) {
	for _, l := range listeners {
		l.PortfolioChanged(ctx, snap)
	}
}

// normalize drops sub-millisecond precision and the location so that a
// timestamp survives a round trip through the JSON document unchanged.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
