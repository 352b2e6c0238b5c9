package actual

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/shaiso/actual-bridge/internal/domain"
)

// Replica — локальная SQLite-копия бюджета (db.sqlite).
type Replica struct {
	db   *sql.DB
	path string

	// columns — кэш колонок таблиц (dataset → column → есть).
	columns map[string]map[string]bool
}

// OpenReplica открывает db.sqlite локальной копии.
func OpenReplica(path string) (*Replica, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open replica: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping replica: %w", err)
	}

	// Таблица есть в любом файле Actual; создаём на случай пустой копии
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages_crdt (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL UNIQUE,
			dataset TEXT NOT NULL,
			row TEXT NOT NULL,
			column TEXT NOT NULL,
			value BLOB NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure messages_crdt: %w", err)
	}

	return &Replica{
		db:      db,
		path:    path,
		columns: make(map[string]map[string]bool),
	}, nil
}

// Close закрывает соединение.
func (r *Replica) Close() error {
	return r.db.Close()
}

// Accounts возвращает не удалённые счета.
func (r *Replica) Accounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(offbudget, 0), COALESCE(closed, 0)
		FROM accounts
		WHERE COALESCE(tombstone, 0) = 0
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		var a domain.Account
		var offbudget, closed int64
		if err := rows.Scan(&a.ID, &a.Name, &offbudget, &closed); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.OffBudget = offbudget != 0
		a.Closed = closed != 0
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Transactions возвращает транзакции счёта за период [start, end] включительно.
// start и end — даты YYYY-MM-DD. Дочерние части split-транзакций не включаются.
func (r *Replica) Transactions(ctx context.Context, accountID, start, end string) ([]domain.Transaction, error) {
	from, err := toDBDate(start)
	if err != nil {
		return nil, err
	}
	to, err := toDBDate(end)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.date, t.amount, t.acct,
		       COALESCE(pm.targetId, t.description),
		       COALESCE(cm.transferId, t.category),
		       t.notes, t.financial_id, t.transferred_id,
		       COALESCE(t.cleared, 0)
		FROM transactions t
		LEFT JOIN payee_mapping pm ON pm.id = t.description
		LEFT JOIN category_mapping cm ON cm.id = t.category
		WHERE t.acct = ?
		  AND t.date >= ? AND t.date <= ?
		  AND COALESCE(t.tombstone, 0) = 0
		  AND COALESCE(t.isChild, 0) = 0
		ORDER BY t.date DESC, t.sort_order DESC, t.id
	`, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		var (
			tx                                       domain.Transaction
			date                                     sql.NullInt64
			amount                                   sql.NullInt64
			acct, payee, category, notes, imp, xfer sql.NullString
			cleared                                  int64
		)
		if err := rows.Scan(&tx.ID, &date, &amount, &acct, &payee, &category, &notes, &imp, &xfer, &cleared); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		if date.Valid {
			tx.Date = fromDBDate(date.Int64)
		}
		if amount.Valid {
			v := amount.Int64
			tx.Amount = &v
		}
		tx.Account = nullString(acct)
		tx.Payee = nullString(payee)
		tx.Category = nullString(category)
		tx.Notes = nullString(notes)
		tx.ImportedID = nullString(imp)
		tx.TransferID = nullString(xfer)
		tx.Cleared = cleared != 0

		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Apply применяет сообщения синхронизации в одной транзакции.
//
// Сообщение применяется, только если оно новее последнего сообщения
// для той же ячейки (dataset, row, column). Сообщения для неизвестных
// таблиц и колонок записываются в messages_crdt, но не применяются.
// Возвращает количество применённых сообщений.
func (r *Replica) Apply(ctx context.Context, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	sorted := make([]Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, m := range sorted {
		ok, err := r.applyOne(ctx, tx, m)
		if err != nil {
			return 0, fmt.Errorf("apply %s.%s.%s: %w", m.Dataset, m.Row, m.Column, err)
		}
		if ok {
			applied++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return applied, nil
}

func (r *Replica) applyOne(ctx context.Context, tx *sql.Tx, m Message) (bool, error) {
	var latest sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM messages_crdt
		WHERE dataset = ? AND row = ? AND column = ?
	`, m.Dataset, m.Row, m.Column).Scan(&latest)
	if err != nil {
		return false, fmt.Errorf("check crdt: %w", err)
	}
	if latest.Valid && latest.String >= m.Timestamp {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages_crdt (timestamp, dataset, row, column, value)
		VALUES (?, ?, ?, ?, ?)
	`, m.Timestamp, m.Dataset, m.Row, m.Column, m.Value); err != nil {
		return false, fmt.Errorf("insert crdt: %w", err)
	}

	known, err := r.hasColumn(ctx, tx, m.Dataset, m.Column)
	if err != nil {
		return false, err
	}
	if !known {
		return false, nil
	}

	value, err := decodeValue(m.Value)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s" (id, "%s") VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET "%s" = excluded."%s"`,
		m.Dataset, m.Column, m.Column, m.Column,
	)
	if _, err := tx.ExecContext(ctx, query, m.Row, value); err != nil {
		return false, fmt.Errorf("upsert: %w", err)
	}
	return true, nil
}

// hasColumn проверяет, что dataset — таблица реплики с колонкой column.
func (r *Replica) hasColumn(ctx context.Context, tx *sql.Tx, dataset, column string) (bool, error) {
	if !identRe.MatchString(dataset) || !identRe.MatchString(column) {
		return false, nil
	}

	cols, ok := r.columns[dataset]
	if !ok {
		rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, dataset))
		if err != nil {
			return false, fmt.Errorf("table info %s: %w", dataset, err)
		}
		cols = make(map[string]bool)
		for rows.Next() {
			var (
				cid       int
				name, typ string
				notnull   int
				dflt      sql.NullString
				pk        int
			)
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
				rows.Close()
				return false, fmt.Errorf("scan table info: %w", err)
			}
			cols[name] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return false, fmt.Errorf("table info %s: %w", dataset, err)
		}
		r.columns[dataset] = cols
	}

	return cols["id"] && cols[column], nil
}

// toDBDate переводит YYYY-MM-DD в целое YYYYMMDD, как даты хранятся в реплике.
func toDBDate(s string) (int64, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day()), nil
}

// fromDBDate переводит YYYYMMDD в YYYY-MM-DD.
func fromDBDate(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) != 8 {
		return s
	}
	return strings.Join([]string{s[0:4], s[4:6], s[6:8]}, "-")
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
