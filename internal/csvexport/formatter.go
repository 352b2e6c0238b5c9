// Package csvexport формирует CSV-выгрузку транзакций.
package csvexport

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// Header — фиксированная строка заголовков выгрузки.
const Header = "id,date,amount_cents,amount,account_id,payee_id,category_id,notes,imported_id,transfer_id"

// ContentType — MIME-тип выгрузки.
const ContentType = "text/csv; charset=utf-8"

// Format возвращает CSV: заголовок и по строке на транзакцию, через "\n".
//
// Текстовые поля всегда в кавычках, amount_cents и amount — без кавычек.
func Format(txs []domain.Transaction) string {
	lines := make([]string, 0, len(txs)+1)
	lines = append(lines, Header)
	for i := range txs {
		lines = append(lines, Row(&txs[i]))
	}
	return strings.Join(lines, "\n")
}

// Row форматирует одну транзакцию.
func Row(tx *domain.Transaction) string {
	var cents int64
	centsCol := ""
	if tx.Amount != nil {
		cents = *tx.Amount
		centsCol = strconv.FormatInt(cents, 10)
	}

	fields := []string{
		quote(tx.ID),
		quote(tx.Date),
		centsCol,
		FormatAmount(cents),
		quotePtr(tx.Account),
		quotePtr(tx.Payee),
		quotePtr(tx.Category),
		quotePtr(tx.Notes),
		quotePtr(tx.ImportedID),
		quotePtr(tx.TransferID),
	}
	return strings.Join(fields, ",")
}

// FormatAmount переводит центы в сумму с двумя знаками после точки.
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quotePtr(s *string) string {
	if s == nil {
		return `""`
	}
	return quote(*s)
}
