package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"stockCalculator/internal/adapters/jsoncodec"
	"stockCalculator/internal/domain"
)

// TransactionsCSVHeader is the first record written by WriteTransactionsCSV.
var TransactionsCSVHeader = []string{"id", "date", "stock", "type", "quantity", "price", "amount"}

// WriteTransactionsCSV writes txs as CSV in the order given.
func WriteTransactionsCSV(w io.Writer, txs []domain.Transaction) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(TransactionsCSVHeader); err != nil {
		return err
	}
	for _, t := range txs {
		err := writer.Write([]string{
			strconv.FormatInt(t.ID, 10),
			jsoncodec.FormatDate(t.Timestamp),
			t.StockName,
			string(t.Type),
			strconv.FormatInt(t.Quantity, 10),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.Amount(), 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTransactionsCSVFile creates filename and writes txs into it.
func WriteTransactionsCSVFile(filename string, txs []domain.Transaction) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	if err := WriteTransactionsCSV(file, txs); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return file.Close()
}
