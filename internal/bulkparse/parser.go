// Package bulkparse turns pasted brokerage history text into transactions.
//
// The expected input is newest-first, grouped by day:
//
//	8.19
//	구매 8주
//	주당 $77.76
//	8.18
//	판매 6주
//	주당 $80.00
//
// A "month.day" line sets the date for the lines below it. A trade line
// (keyword, whitespace, share count, unit) must be followed directly by a
// unit-price line. Anything else is ignored.
package bulkparse

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"stockCalculator/internal/domain"
)

// Keywords are the localized words recognized by the parser.
type Keywords struct {
	Buy       string // e.g. "구매"
	Sell      string // e.g. "판매"
	Unit      string // share unit suffix, e.g. "주"
	UnitPrice string // per-share price label, e.g. "주당"
}

// DefaultKeywords matches Korean brokerage app exports.
var DefaultKeywords = Keywords{
	Buy:       "구매",
	Sell:      "판매",
	Unit:      "주",
	UnitPrice: "주당",
}

var dateLine = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})$`)

// Parser parses bulk transaction text. The zero value is not usable; use New.
type Parser struct {
	keywords  Keywords
	tradeLine *regexp.Regexp
	priceLine *regexp.Regexp
	now       func() time.Time
	loc       *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock used to pick the implicit year.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLocation sets the time zone of parsed dates. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) { p.loc = loc }
}

// New builds a parser for the given keywords.
func New(kw Keywords, opts ...Option) (*Parser, error) {
	if kw.Buy == "" || kw.Sell == "" || kw.UnitPrice == "" {
		return nil, fmt.Errorf("buy, sell and unit price keywords are required")
	}
	if kw.Buy == kw.Sell {
		return nil, fmt.Errorf("buy and sell keywords must differ, both are %q", kw.Buy)
	}

	p := &Parser{
		keywords: kw,
		tradeLine: regexp.MustCompile(fmt.Sprintf(`(%s|%s)\s+(\d+)%s`,
			regexp.QuoteMeta(kw.Sell), regexp.QuoteMeta(kw.Buy), regexp.QuoteMeta(kw.Unit))),
		priceLine: regexp.MustCompile(fmt.Sprintf(`%s\s*\$([\d.]+)`, regexp.QuoteMeta(kw.UnitPrice))),
		now:       time.Now,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse extracts transactions for stockName from text, oldest first.
// Returned transactions have no ID; the caller assigns them.
// A text without any complete trade yields an empty slice.
func (p *Parser) Parse(text, stockName string) []domain.Transaction {
	lines := splitLines(text)
	year := p.now().In(p.loc).Year()

	var (
		out     []domain.Transaction
		current time.Time
		hasDate bool
	)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if d, ok := p.parseDate(line, year); ok {
			current, hasDate = d, true
			continue
		}

		typ, qty, ok := p.parseTrade(line)
		if !ok {
			continue
		}
		if i+1 >= len(lines) || !hasDate {
			continue
		}
		price, ok := p.parsePrice(lines[i+1])
		if !ok {
			continue
		}
		out = append(out, domain.Transaction{
			StockName: stockName,
			Quantity:  qty,
			Price:     price,
			Type:      typ,
			Timestamp: current,
		})
		i++ // price line consumed
	}

	slices.Reverse(out)
	return out
}

func (p *Parser) parseDate(line string, year int) (time.Time, bool) {
	m := dateLine.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.loc)
	// time.Date normalizes out-of-range values; reject instead of rolling over.
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func (p *Parser) parseTrade(line string) (domain.TransactionType, int64, bool) {
	m := p.tradeLine.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	qty, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || qty <= 0 {
		return "", 0, false
	}
	if m[1] == p.keywords.Buy {
		return domain.Buy, qty, true
	}
	return domain.Sell, qty, true
}

func (p *Parser) parsePrice(line string) (float64, bool) {
	m := p.priceLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
