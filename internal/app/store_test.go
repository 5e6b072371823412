package app

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockCalculator/internal/bulkparse"
	"stockCalculator/internal/domain"
	"stockCalculator/internal/ports"
)

// Mock implementations
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type memRepo struct {
	state   *domain.State
	saves   int
	loadErr error
	saveErr error
}

func (m *memRepo) Load(ctx context.Context) (*domain.State, error) {
	return m.state, m.loadErr
}

func (m *memRepo) Save(ctx context.Context, state *domain.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = state
	return nil
}

// steppingClock advances one second per call.
type steppingClock struct {
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T, start time.Time, opts ...Option) (*PortfolioStore, *memRepo, *mockLogger) {
	t.Helper()
	repo := &memRepo{}
	log := &mockLogger{}
	clock := &steppingClock{now: start}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s, err := NewPortfolioStore(StoreConfig{DefaultPolicy: domain.IncludeRealizedPnl}, log, repo, opts...)
	require.NoError(t, err)
	return s, repo, log
}

var october = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

func TestNewPortfolioStore_Validation(t *testing.T) {
	_, err := NewPortfolioStore(StoreConfig{}, nil, &memRepo{})
	assert.Error(t, err)

	_, err = NewPortfolioStore(StoreConfig{DefaultPolicy: domain.CostBasisPolicy(9)}, &mockLogger{}, &memRepo{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = NewPortfolioStore(StoreConfig{BulkKeywords: bulkparse.Keywords{Buy: "x", Sell: "x", UnitPrice: "y"}}, &mockLogger{}, &memRepo{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestAddTransaction_PolicyExamples(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		policy   domain.CostBasisPolicy
		wantCost float64
	}{
		{name: "include realized pnl", policy: domain.IncludeRealizedPnl, wantCost: 300},
		{name: "exclude realized pnl", policy: domain.ExcludeRealizedPnl, wantCost: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, _ := newTestStore(t, october)
			require.NoError(t, s.SetCostBasisPolicy(ctx, tt.policy))

			_, err := s.AddTransaction(ctx, "AAPL", 2, 200, domain.Buy)
			require.NoError(t, err)
			_, err = s.AddTransaction(ctx, "AAPL", 1, 100, domain.Sell)
			require.NoError(t, err)

			pos := s.Snapshot().Positions["AAPL"]
			assert.Equal(t, int64(1), pos.TotalQuantity)
			assert.InDelta(t, tt.wantCost, pos.TotalCost, 1e-9)
			assert.InDelta(t, tt.wantCost, pos.AveragePrice, 1e-9)
			assert.Equal(t, 3, repo.saves)
		})
	}
}

func TestAddTransaction_AssignsIncreasingIDsAndTimestamps(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	first, err := s.AddTransaction(ctx, "MSFT", 1, 10, domain.Buy)
	require.NoError(t, err)
	second, err := s.AddTransaction(ctx, "MSFT", 1, 12, domain.Buy)
	require.NoError(t, err)

	assert.Equal(t, october.Add(time.Second), first.Timestamp)
	assert.Equal(t, october.Add(time.Second).UnixMilli(), first.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, []domain.Transaction{first, second}, s.Snapshot().Transactions)
}

func TestAddTransaction_Rejections(t *testing.T) {
	ctx := context.Background()
	s, repo, logger := newTestStore(t, october)
	_, err := s.AddTransaction(ctx, "TSLA", 3, 100, domain.Buy)
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.AddTransaction(ctx, "TSLA", 4, 100, domain.Sell)
	assert.ErrorIs(t, err, ports.ErrInsufficientShares)
	assert.ErrorIs(t, err, ports.ErrValidation)

	_, err = s.AddTransaction(ctx, "NVDA", 1, 100, domain.Sell)
	assert.ErrorIs(t, err, ports.ErrInsufficientShares)

	_, err = s.AddTransaction(ctx, "  ", 1, 100, domain.Buy)
	assert.ErrorIs(t, err, ports.ErrValidation)

	_, err = s.AddTransaction(ctx, "TSLA", 0, 100, domain.Buy)
	assert.ErrorIs(t, err, ports.ErrValidation)

	_, err = s.AddTransaction(ctx, "TSLA", 1, -5, domain.Buy)
	assert.ErrorIs(t, err, ports.ErrValidation)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 1, repo.saves)
	assert.NotEmpty(t, logger.warnMsgs)
	assert.Empty(t, logger.errorMsgs)
}

func TestAddTransaction_SellToZeroRemovesPosition(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	_, err := s.AddTransaction(ctx, "AMD", 5, 20, domain.Buy)
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentPrice(ctx, "AMD", 25))
	_, err = s.AddTransaction(ctx, "AMD", 5, 30, domain.Sell)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.NotContains(t, snap.Positions, "AMD")
	assert.Len(t, snap.Transactions, 2)

	// Rebuying starts a fresh position seeded with the new price.
	_, err = s.AddTransaction(ctx, "AMD", 2, 40, domain.Buy)
	require.NoError(t, err)
	pos := s.Snapshot().Positions["AMD"]
	assert.Equal(t, int64(2), pos.TotalQuantity)
	assert.InDelta(t, 80.0, pos.TotalCost, 1e-9)
	assert.InDelta(t, 40.0, pos.CurrentPrice, 1e-9)
}

func TestAddTransaction_ClockGoingBackwardsStillFoldsInOrder(t *testing.T) {
	ctx := context.Background()
	times := []time.Time{october.Add(time.Hour), october}
	i := 0
	clock := func() time.Time {
		now := times[i]
		i++
		return now
	}
	s, err := NewPortfolioStore(StoreConfig{}, &mockLogger{}, &memRepo{}, WithClock(clock))
	require.NoError(t, err)

	first, err := s.AddTransaction(ctx, "IBM", 2, 100, domain.Buy)
	require.NoError(t, err)
	second, err := s.AddTransaction(ctx, "IBM", 2, 200, domain.Buy)
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
	pos := s.Snapshot().Positions["IBM"]
	assert.Equal(t, int64(4), pos.TotalQuantity)
	assert.InDelta(t, 600.0, pos.TotalCost, 1e-9)
}

func TestAddTransaction_RejectsOverflow(t *testing.T) {
	ctx := context.Background()
	s, repo, logger := newTestStore(t, october)

	_, err := s.AddTransaction(ctx, "BIG", math.MaxInt64, 0, domain.Buy)
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.AddTransaction(ctx, "BIG", 2, 0, domain.Buy)
	assert.ErrorIs(t, err, ports.ErrValidation)

	_, err = s.AddTransaction(ctx, "HUGE", 2, math.MaxFloat64, domain.Buy)
	assert.ErrorIs(t, err, ports.ErrValidation)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, int64(math.MaxInt64), s.Snapshot().Positions["BIG"].TotalQuantity)
	assert.Equal(t, 1, repo.saves)
	assert.Empty(t, logger.errorMsgs, "rejections are not persistence failures")
}

func TestStockNamesAreTrimmed(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	tx, err := s.AddTransaction(ctx, " AAPL ", 1, 100, domain.Buy)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", tx.StockName)
	_, err = s.AddTransaction(ctx, "AAPL", 1, 200, domain.Buy)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, int64(2), snap.Positions["AAPL"].TotalQuantity)

	require.NoError(t, s.SetCurrentPrice(ctx, "AAPL\t", 180))
	assert.InDelta(t, 180.0, s.Snapshot().Positions["AAPL"].CurrentPrice, 1e-9)
	assert.Len(t, s.StockHistory(" AAPL"), 2)

	n, err := s.BulkImport(ctx, "8.19\n구매 1주\n주당 $10.00\n", "  AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(3), s.Snapshot().Positions["AAPL"].TotalQuantity)

	require.NoError(t, s.RemoveStock(ctx, " AAPL "))
	assert.Empty(t, s.Snapshot().Positions)
}

func TestRemoveTransaction(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	_, err := s.AddTransaction(ctx, "AAPL", 2, 100, domain.Buy)
	require.NoError(t, err)
	buy2, err := s.AddTransaction(ctx, "AAPL", 2, 200, domain.Buy)
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "AAPL", 3, 150, domain.Sell)
	require.NoError(t, err)

	t.Run("unknown id", func(t *testing.T) {
		err := s.RemoveTransaction(ctx, 42)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("removal that would invalidate a later sell is rejected", func(t *testing.T) {
		before := s.Snapshot()
		err := s.RemoveTransaction(ctx, buy2.ID)
		assert.ErrorIs(t, err, ports.ErrInsufficientShares)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("valid removal recomputes", func(t *testing.T) {
		snap := s.Snapshot()
		sell := snap.Transactions[2]
		require.NoError(t, s.RemoveTransaction(ctx, sell.ID))

		snap = s.Snapshot()
		assert.Len(t, snap.Transactions, 2)
		pos := snap.Positions["AAPL"]
		assert.Equal(t, int64(4), pos.TotalQuantity)
		assert.InDelta(t, 600.0, pos.TotalCost, 1e-9)
		assert.InDelta(t, 150.0, pos.AveragePrice, 1e-9)
	})
}

func TestRemoveTransaction_RecomputesPosition(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	first, err := s.AddTransaction(ctx, "GOOG", 1, 100, domain.Buy)
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "GOOG", 3, 200, domain.Buy)
	require.NoError(t, err)

	require.NoError(t, s.RemoveTransaction(ctx, first.ID))

	pos := s.Snapshot().Positions["GOOG"]
	assert.Equal(t, int64(3), pos.TotalQuantity)
	assert.InDelta(t, 600.0, pos.TotalCost, 1e-9)
	assert.InDelta(t, 200.0, pos.AveragePrice, 1e-9)
}

func TestRemoveStock(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	_, err := s.AddTransaction(ctx, "AAPL", 1, 100, domain.Buy)
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "MSFT", 1, 300, domain.Buy)
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "AAPL", 1, 120, domain.Buy)
	require.NoError(t, err)

	require.NoError(t, s.RemoveStock(ctx, "AAPL"))
	snap := s.Snapshot()
	assert.NotContains(t, snap.Positions, "AAPL")
	assert.Contains(t, snap.Positions, "MSFT")
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "MSFT", snap.Transactions[0].StockName)

	assert.ErrorIs(t, s.RemoveStock(ctx, "AAPL"), ports.ErrNotFound)
}

func TestSetCurrentPrice(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)
	_, err := s.AddTransaction(ctx, "AAPL", 2, 200, domain.Buy)
	require.NoError(t, err)

	assert.InDelta(t, 200.0, s.Snapshot().Positions["AAPL"].CurrentPrice, 1e-9)

	require.NoError(t, s.SetCurrentPrice(ctx, "AAPL", 250))
	pos := s.Snapshot().Positions["AAPL"]
	assert.InDelta(t, 250.0, pos.CurrentPrice, 1e-9)
	assert.InDelta(t, 100.0, pos.Profit(), 1e-9)

	assert.ErrorIs(t, s.SetCurrentPrice(ctx, "NOPE", 1), ports.ErrNotFound)
	assert.ErrorIs(t, s.SetCurrentPrice(ctx, "AAPL", -1), ports.ErrValidation)
}

func TestCurrentPriceSurvivesRecompute(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	_, err := s.AddTransaction(ctx, "AAPL", 2, 200, domain.Buy)
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentPrice(ctx, "AAPL", 250))

	_, err = s.AddTransaction(ctx, "AAPL", 1, 300, domain.Buy)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, s.Snapshot().Positions["AAPL"].CurrentPrice, 1e-9)

	require.NoError(t, s.SetCostBasisPolicy(ctx, domain.ExcludeRealizedPnl))
	assert.InDelta(t, 250.0, s.Snapshot().Positions["AAPL"].CurrentPrice, 1e-9)

	other, err := s.AddTransaction(ctx, "MSFT", 1, 10, domain.Buy)
	require.NoError(t, err)
	require.NoError(t, s.RemoveTransaction(ctx, other.ID))
	assert.InDelta(t, 250.0, s.Snapshot().Positions["AAPL"].CurrentPrice, 1e-9)
}

func TestSetCostBasisPolicy_RecomputesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)

	_, err := s.AddTransaction(ctx, "AAPL", 2, 200, domain.Buy)
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "AAPL", 1, 100, domain.Sell)
	require.NoError(t, err)

	require.NoError(t, s.SetCostBasisPolicy(ctx, domain.ExcludeRealizedPnl))
	excluded := s.Snapshot()
	assert.Equal(t, domain.ExcludeRealizedPnl, excluded.Policy)
	assert.InDelta(t, 200.0, excluded.Positions["AAPL"].TotalCost, 1e-9)

	require.NoError(t, s.SetCostBasisPolicy(ctx, domain.ExcludeRealizedPnl))
	assert.Equal(t, excluded, s.Snapshot())

	require.NoError(t, s.SetCostBasisPolicy(ctx, domain.IncludeRealizedPnl))
	assert.InDelta(t, 300.0, s.Snapshot().Positions["AAPL"].TotalCost, 1e-9)

	assert.ErrorIs(t, s.SetCostBasisPolicy(ctx, domain.CostBasisPolicy(7)), ports.ErrValidation)
}

func TestBulkImport(t *testing.T) {
	ctx := context.Background()
	text := "8.19\n구매 8주\n주당 $77.76\n8.18\n판매 6주\n주당 $80.00\n"
	january := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	t.Run("merges into existing history", func(t *testing.T) {
		s, _, _ := newTestStore(t, january)
		_, err := s.AddTransaction(ctx, "X", 10, 70, domain.Buy)
		require.NoError(t, err)

		n, err := s.BulkImport(ctx, text, "X")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		snap := s.Snapshot()
		require.Len(t, snap.Transactions, 3)
		assert.Equal(t, domain.Sell, snap.Transactions[1].Type)
		assert.Equal(t, time.Date(2024, 8, 18, 0, 0, 0, 0, time.Local).UTC(), snap.Transactions[1].Timestamp)
		assert.Greater(t, snap.Transactions[2].ID, snap.Transactions[1].ID)

		// buy 10@70 = 700, sell 6@80 → 220, buy 8@77.76 → 842.08
		pos := snap.Positions["X"]
		assert.Equal(t, int64(12), pos.TotalQuantity)
		assert.InDelta(t, 842.08, pos.TotalCost, 1e-9)
	})

	t.Run("batch that would oversell adds nothing", func(t *testing.T) {
		s, repo, _ := newTestStore(t, january)

		_, err := s.BulkImport(ctx, text, "X")
		assert.ErrorIs(t, err, ports.ErrInsufficientShares)
		assert.Empty(t, s.Snapshot().Transactions)
		assert.Zero(t, repo.saves)
	})

	t.Run("nothing recognized", func(t *testing.T) {
		s, _, _ := newTestStore(t, january)
		_, err := s.BulkImport(ctx, "hello\nworld", "X")
		assert.ErrorIs(t, err, ports.ErrNoTransactions)
	})

	t.Run("stock name required", func(t *testing.T) {
		s, _, _ := newTestStore(t, january)
		_, err := s.BulkImport(ctx, text, " ")
		assert.ErrorIs(t, err, ports.ErrValidation)
	})
}

func TestClearAll_KeepsPolicy(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestStore(t, october)
	require.NoError(t, s.SetCostBasisPolicy(ctx, domain.ExcludeRealizedPnl))
	_, err := s.AddTransaction(ctx, "AAPL", 1, 1, domain.Buy)
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))
	snap := s.Snapshot()
	assert.Empty(t, snap.Positions)
	assert.Empty(t, snap.Transactions)
	assert.Equal(t, domain.ExcludeRealizedPnl, snap.Policy)
	assert.Empty(t, repo.state.Transactions)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _, _ := newTestStore(t, october)
	_, err := src.AddTransaction(ctx, "AAPL", 2, 200, domain.Buy)
	require.NoError(t, err)
	_, err = src.AddTransaction(ctx, "AAPL", 1, 100, domain.Sell)
	require.NoError(t, err)
	_, err = src.AddTransaction(ctx, "MSFT", 4, 310.5, domain.Buy)
	require.NoError(t, err)
	require.NoError(t, src.SetCurrentPrice(ctx, "MSFT", 333.25))

	var buf bytes.Buffer
	require.NoError(t, src.Export(&buf))
	assert.NotContains(t, buf.String(), "includeRealizedPnl")

	dst, _, _ := newTestStore(t, october)
	n, err := dst.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, src.Snapshot(), dst.Snapshot())
}

func TestImport_MalformedKeepsState(t *testing.T) {
	ctx := context.Background()
	s, _, logger := newTestStore(t, october)
	_, err := s.AddTransaction(ctx, "AAPL", 1, 10, domain.Buy)
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.Import(ctx, bytes.NewBufferString(`{"portfolio": "nope"`))
	assert.ErrorIs(t, err, ports.ErrParse)
	assert.Equal(t, before, s.Snapshot())
	assert.NotEmpty(t, logger.errorMsgs)

	oversold := `{"portfolio":[],"transactions":[{"id":1,"stockName":"A","quantity":1,"price":1,"type":"sell","date":"2024-01-01T00:00:00.000Z"}]}`
	_, err = s.Import(ctx, bytes.NewBufferString(oversold))
	assert.ErrorIs(t, err, ports.ErrParse)
	assert.Equal(t, before, s.Snapshot())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("first run starts empty", func(t *testing.T) {
		s, _, _ := newTestStore(t, october)
		require.NoError(t, s.Load(ctx))
		assert.Empty(t, s.Snapshot().Transactions)
		assert.Equal(t, domain.IncludeRealizedPnl, s.Snapshot().Policy)
	})

	t.Run("restores log, overlay and policy", func(t *testing.T) {
		s, repo, _ := newTestStore(t, october)
		ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		repo.state = &domain.State{
			Holdings: map[string]domain.Holding{"AAPL": {Quantity: 99}},
			Prices:   map[string]float64{"AAPL": 180, "GONE": 5},
			Transactions: []domain.Transaction{
				{ID: 1, StockName: "AAPL", Quantity: 2, Price: 200, Type: domain.Buy, Timestamp: ts},
				{ID: 2, StockName: "AAPL", Quantity: 1, Price: 100, Type: domain.Sell, Timestamp: ts.Add(time.Hour)},
			},
			Policy: domain.ExcludeRealizedPnl,
		}

		require.NoError(t, s.Load(ctx))
		snap := s.Snapshot()
		assert.Equal(t, domain.ExcludeRealizedPnl, snap.Policy)
		require.Len(t, snap.Positions, 1)
		pos := snap.Positions["AAPL"]
		assert.Equal(t, int64(1), pos.TotalQuantity)
		assert.InDelta(t, 200.0, pos.TotalCost, 1e-9)
		assert.InDelta(t, 180.0, pos.CurrentPrice, 1e-9)

		next, err := s.AddTransaction(ctx, "AAPL", 1, 1, domain.Buy)
		require.NoError(t, err)
		assert.Greater(t, next.ID, int64(2))
	})

	t.Run("repository failure keeps current state", func(t *testing.T) {
		s, repo, logger := newTestStore(t, october)
		_, err := s.AddTransaction(ctx, "AAPL", 1, 10, domain.Buy)
		require.NoError(t, err)
		before := s.Snapshot()

		repo.loadErr = ports.ErrParse
		assert.ErrorIs(t, s.Load(ctx), ports.ErrParse)
		assert.Equal(t, before, s.Snapshot())
		assert.NotEmpty(t, logger.errorMsgs)
	})

	t.Run("inconsistent history is rejected", func(t *testing.T) {
		s, repo, _ := newTestStore(t, october)
		repo.state = &domain.State{
			Transactions: []domain.Transaction{
				{ID: 1, StockName: "AAPL", Quantity: 1, Price: 1, Type: domain.Sell, Timestamp: october},
			},
		}
		assert.ErrorIs(t, s.Load(ctx), ports.ErrParse)
		assert.Empty(t, s.Snapshot().Transactions)
	})
}

func TestPersistenceFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s, repo, logger := newTestStore(t, october)
	_, err := s.AddTransaction(ctx, "AAPL", 1, 10, domain.Buy)
	require.NoError(t, err)
	before := s.Snapshot()

	repo.saveErr = errors.New("disk full")
	_, err = s.AddTransaction(ctx, "AAPL", 1, 12, domain.Buy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, before, s.Snapshot())
	assert.Contains(t, logger.errorMsgs, "Failed to persist portfolio")

	assert.Error(t, s.ClearAll(ctx))
	assert.Equal(t, before, s.Snapshot())
}

func TestListenersNotifiedAfterCommit(t *testing.T) {
	ctx := context.Background()
	var got []ports.Snapshot
	listener := ports.ChangeListenerFunc(func(ctx context.Context, snap ports.Snapshot) {
		got = append(got, snap)
	})
	s, _, _ := newTestStore(t, october, WithListener(listener))

	var late int
	s.Subscribe(ports.ChangeListenerFunc(func(ctx context.Context, snap ports.Snapshot) {
		// Reading back from the store must not deadlock.
		_ = s.Snapshot()
		late++
	}))

	_, err := s.AddTransaction(ctx, "AAPL", 1, 10, domain.Buy)
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "AAPL", 5, 10, domain.Sell)
	require.Error(t, err)
	require.NoError(t, s.SetCurrentPrice(ctx, "AAPL", 11))

	require.Len(t, got, 2)
	assert.Equal(t, 2, late)
	assert.InDelta(t, 10.0, got[0].Positions["AAPL"].CurrentPrice, 1e-9)
	assert.InDelta(t, 11.0, got[1].Positions["AAPL"].CurrentPrice, 1e-9)
}

func TestStockHistory_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, october)
	a, err := s.AddTransaction(ctx, "AAPL", 1, 10, domain.Buy)
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "MSFT", 1, 10, domain.Buy)
	require.NoError(t, err)
	b, err := s.AddTransaction(ctx, "AAPL", 1, 11, domain.Buy)
	require.NoError(t, err)

	assert.Equal(t, []domain.Transaction{b, a}, s.StockHistory("AAPL"))
	assert.Empty(t, s.StockHistory("NOPE"))
}
