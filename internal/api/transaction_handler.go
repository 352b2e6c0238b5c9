package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/actual-bridge/internal/csvexport"
	"github.com/shaiso/actual-bridge/internal/domain"
	"github.com/shaiso/actual-bridge/internal/telemetry"
)

// transactionsQuery — проверенные параметры /transactions.
type transactionsQuery struct {
	account string
	start   string
	end     string
	csv     bool
}

// parseTransactionsQuery проверяет параметры запроса.
// Возвращает текст ошибки для 400 или пустую строку.
func parseTransactionsQuery(r *http.Request) (transactionsQuery, string) {
	q := r.URL.Query()
	tq := transactionsQuery{
		account: q.Get("account"),
		start:   q.Get("start"),
		end:     q.Get("end"),
		csv:     q.Get("format") == "csv",
	}

	if tq.account == "" || tq.start == "" || tq.end == "" {
		return tq, "account, start and end query parameters are required"
	}
	if _, err := time.Parse(time.DateOnly, tq.start); err != nil {
		return tq, "start must be a date in YYYY-MM-DD format"
	}
	if _, err := time.Parse(time.DateOnly, tq.end); err != nil {
		return tq, "end must be a date in YYYY-MM-DD format"
	}
	return tq, ""
}

// ListTransactions возвращает транзакции счёта за период [start, end].
// GET /transactions?account=...&start=YYYY-MM-DD&end=YYYY-MM-DD[&format=csv]
//
// account — ID или точное имя счёта.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	// Параметры проверяются до любых обращений к клиенту
	tq, msg := parseTransactionsQuery(r)
	if msg != "" {
		BadRequest(w, msg)
		return
	}

	if HandleError(w, logger, h.ready(r.Context())) {
		return
	}

	accounts, err := h.data.ListAccounts(r.Context())
	if HandleError(w, logger, err) {
		return
	}

	account, err := domain.FindAccount(accounts, tq.account)
	if err != nil {
		NotFound(w, fmt.Sprintf("account %q not found", tq.account))
		return
	}

	txs, err := h.data.ListTransactions(r.Context(), account.ID, tq.start, tq.end)
	if HandleError(w, logger, err) {
		return
	}

	if tq.csv {
		filename := fmt.Sprintf("transactions_%s_%s_%s.csv", account.ID, tq.start, tq.end)
		w.Header().Set("Content-Type", csvexport.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, csvexport.Format(txs))
		return
	}

	Success(w, TransactionsResponse{
		Account:      *account,
		Start:        tq.start,
		End:          tq.end,
		Count:        len(txs),
		Transactions: txs,
	})
}
