// Package jsoncodec reads and writes the portfolio JSON document.
//
// The persisted document and the export file share one shape:
//
//	{ "portfolio":    [[stockName, {totalQuantity, totalCost, averagePrice, currentPrice}], ...],
//	  "transactions": [{id, stockName, quantity, price, type, date}, ...],
//	  "includeRealizedPnlInAvgCost": bool }
//
// The export file omits the policy flag.
package jsoncodec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"stockCalculator/internal/domain"
	"stockCalculator/internal/ports"
)

// DateLayout is the ISO-8601 layout used for transaction dates.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// PositionRecord is the wire form of a position.
type PositionRecord struct {
	TotalQuantity int64   `json:"totalQuantity"`
	TotalCost     float64 `json:"totalCost"`
	AveragePrice  float64 `json:"averagePrice"`
	CurrentPrice  float64 `json:"currentPrice"`
}

// TransactionRecord is the wire form of a transaction.
type TransactionRecord struct {
	ID        int64   `json:"id"`
	StockName string  `json:"stockName"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	Type      string  `json:"type"`
	Date      string  `json:"date"`
}

type document struct {
	Portfolio    []json.RawMessage   `json:"portfolio"`
	Transactions []TransactionRecord `json:"transactions"`
	IncludePnl   *bool               `json:"includeRealizedPnlInAvgCost,omitempty"`
}

// EncodeState encodes the state as the persisted document, policy included.
func EncodeState(state *domain.State) ([]byte, error) {
	doc, err := toDocument(state)
	if err != nil {
		return nil, err
	}
	include := state.Policy.IncludesRealizedPnl()
	doc.IncludePnl = &include
	return json.Marshal(doc)
}

// DecodeState decodes a persisted document. A missing policy flag decodes
// as ExcludeRealizedPnl.
func DecodeState(data []byte) (*domain.State, error) {
	doc, err := parseDocument(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	include := doc.IncludePnl != nil && *doc.IncludePnl
	return fromDocument(doc, domain.PolicyFromFlag(include))
}

// WriteExport writes the export file form of state (no policy flag),
// indented by two spaces.
func WriteExport(w io.Writer, state *domain.State) error {
	doc, err := toDocument(state)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// ReadExport reads an export file. The returned state carries the given
// policy; a flag present in the file is ignored.
func ReadExport(r io.Reader, policy domain.CostBasisPolicy) (*domain.State, error) {
	doc, err := parseDocument(r)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc, policy)
}

// ExportFileName suggests a file name for an export made at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("my_portfolio_%s.json", now.UTC().Format("2006-01-02"))
}

// FormatDate renders t the way transaction dates are stored.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func toDocument(state *domain.State) (*document, error) {
	if state == nil {
		return nil, errors.New("nil state")
	}
	positions := state.Positions()
	names := make([]string, 0, len(positions))
	for name := range positions {
		names = append(names, name)
	}
	slices.Sort(names)

	doc := &document{
		Portfolio:    make([]json.RawMessage, 0, len(names)),
		Transactions: make([]TransactionRecord, 0, len(state.Transactions)),
	}
	for _, name := range names {
		p := positions[name]
		entry, err := json.Marshal([]interface{}{name, PositionRecord{
			TotalQuantity: p.TotalQuantity,
			TotalCost:     p.TotalCost,
			AveragePrice:  p.AveragePrice,
			CurrentPrice:  p.CurrentPrice,
		}})
		if err != nil {
			return nil, fmt.Errorf("failed to encode position %s: %w", name, err)
		}
		doc.Portfolio = append(doc.Portfolio, entry)
	}
	for _, t := range state.Transactions {
		doc.Transactions = append(doc.Transactions, TransactionRecord{
			ID:        t.ID,
			StockName: t.StockName,
			Quantity:  t.Quantity,
			Price:     t.Price,
			Type:      string(t.Type),
			Date:      FormatDate(t.Timestamp),
		})
	}
	return doc, nil
}

func parseDocument(r io.Reader) (*document, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrParse, err)
	}
	return &doc, nil
}

func fromDocument(doc *document, policy domain.CostBasisPolicy) (*domain.State, error) {
	state := domain.NewState(policy)

	for i, raw := range doc.Portfolio {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: portfolio entry %d is not a [name, position] pair", ports.ErrParse, i)
		}
		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil || name == "" {
			return nil, fmt.Errorf("%w: portfolio entry %d has no stock name", ports.ErrParse, i)
		}
		var rec PositionRecord
		if err := json.Unmarshal(pair[1], &rec); err != nil {
			return nil, fmt.Errorf("%w: portfolio entry %s: %w", ports.ErrParse, name, err)
		}
		state.Holdings[name] = domain.Holding{
			Quantity:     rec.TotalQuantity,
			TotalCost:    rec.TotalCost,
			AveragePrice: rec.AveragePrice,
			SeedPrice:    rec.CurrentPrice,
		}
		state.Prices[name] = rec.CurrentPrice
	}

	seen := make(map[int64]bool, len(doc.Transactions))
	for i, rec := range doc.Transactions {
		t, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %w", ports.ErrParse, i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate transaction id %d", ports.ErrParse, t.ID)
		}
		seen[t.ID] = true
		state.Transactions = append(state.Transactions, t)
	}
	return state, nil
}

func (rec TransactionRecord) toDomain() (domain.Transaction, error) {
	typ, err := domain.ParseTransactionType(rec.Type)
	if err != nil {
		return domain.Transaction{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, rec.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid date %q: %w", rec.Date, err)
	}
	t := domain.Transaction{
		ID:        rec.ID,
		StockName: rec.StockName,
		Quantity:  rec.Quantity,
		Price:     rec.Price,
		Type:      typ,
		Timestamp: ts.UTC(),
	}
	if t.ID <= 0 {
		return domain.Transaction{}, fmt.Errorf("invalid id %d", t.ID)
	}
	if err := t.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}
