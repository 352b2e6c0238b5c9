package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvBody = "id,date,amount_cents,amount,account_id,payee_id,category_id,notes,imported_id,transfer_id\n" +
	`"tx-1","2024-01-01",-1050,-10.50,"acc-1","Shop","","","",""`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("GET /budgets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Home","id":"My-Finances-1a2b3c4","groupId":"g-1","cloudFileId":"f-1","state":"synced"},
			{"name":"Remote","id":null,"groupId":"g-2","cloudFileId":"f-2","state":"remote"}]`))
	})
	mux.HandleFunc("GET /accounts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"acc-1","name":"Checking","offbudget":false,"closed":false}]`))
	})
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("account") != "acc-1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"account \"` + q.Get("account") + `\" not found"}}`))
			return
		}
		if q.Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="transactions_acc-1_2024-01-01_2024-01-31.csv"`)
			w.Write([]byte(csvBody))
			return
		}
		w.Write([]byte(`{"account":{"id":"acc-1","name":"Checking","offbudget":false,"closed":false},
			"start":"2024-01-01","end":"2024-01-31","count":1,
			"transactions":[{"id":"tx-1","date":"2024-01-01","amount":-1050,"payee":"Shop","category":null,"notes":null,"cleared":true}]}`))
	})
	mux.HandleFunc("POST /sync", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"UPSTREAM_ERROR","message":"network-failure"}}`))
	})
	mux.HandleFunc("GET /sync/history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":[{"id":"r-1","budget_id":"b-1","trigger":"manual","status":"succeeded","messages":3,
			"started_at":"2024-01-01T00:00:00Z","finished_at":"2024-01-01T00:00:01Z","duration_ms":1000}],"total":7}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// run выполняет команду и возвращает stdout и stderr.
func run(t *testing.T, srv *httptest.Server, jsonMode bool, newCmd func(func() *Client, func() *Output) *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newCmd(
		func() *Client { return NewClient(srv.URL) },
		func() *Output { return NewOutputTo(jsonMode, &stdout, &stderr) },
	)
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestHealthCmd(t *testing.T) {
	srv := newTestServer(t)

	_, stderr, err := run(t, srv, false, NewHealthCmd)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", stderr)
}

func TestBudgetList(t *testing.T) {
	srv := newTestServer(t)

	stdout, _, err := run(t, srv, false, NewBudgetCmd, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "CLOUD_FILE_ID")
	assert.Contains(t, lines[2], "My-Finances-1a2b3c4")
	assert.Regexp(t, `Remote\s+-\s+g-2`, lines[3])
}

func TestBudgetList_JSON(t *testing.T) {
	srv := newTestServer(t)

	stdout, _, err := run(t, srv, true, NewBudgetCmd, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"id": null`)
}

func TestAccountCmd(t *testing.T) {
	srv := newTestServer(t)

	stdout, _, err := run(t, srv, false, NewAccountCmd)
	require.NoError(t, err)
	assert.Regexp(t, `acc-1\s+Checking\s+false\s+false`, stdout)
}

func TestTransactionCmd_Table(t *testing.T) {
	srv := newTestServer(t)

	stdout, _, err := run(t, srv, false, NewTransactionCmd,
		"--account", "acc-1", "--start", "2024-01-01", "--end", "2024-01-31")
	require.NoError(t, err)
	assert.Regexp(t, `2024-01-01\s+-10.50\s+Shop\s+-\s+-\s+x`, stdout)
}

func TestTransactionCmd_CSVToStdout(t *testing.T) {
	srv := newTestServer(t)

	stdout, _, err := run(t, srv, false, NewTransactionCmd,
		"--account", "acc-1", "--start", "2024-01-01", "--end", "2024-01-31", "--csv")
	require.NoError(t, err)
	assert.Equal(t, csvBody, stdout)
}

func TestTransactionCmd_CSVToSuggestedFile(t *testing.T) {
	srv := newTestServer(t)
	t.Chdir(t.TempDir())

	_, stderr, err := run(t, srv, false, NewTransactionCmd,
		"--account", "acc-1", "--start", "2024-01-01", "--end", "2024-01-31", "-o", ".")
	require.NoError(t, err)

	name := "transactions_acc-1_2024-01-01_2024-01-31.csv"
	assert.Contains(t, stderr, name)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(data))
}

func TestTransactionCmd_SuggestedNameStaysInCwd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="../../evil.csv"`)
		w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "work")
	require.NoError(t, os.Mkdir(dir, 0o755))
	t.Chdir(dir)

	_, _, err := run(t, srv, false, NewTransactionCmd,
		"--account", "acc-1", "--start", "2024-01-01", "--end", "2024-01-31", "-o", ".")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "evil.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "..", "..", "evil.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestSuggestedFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"transactions_a_2024-01-01_2024-01-31.csv", "transactions_a_2024-01-01_2024-01-31.csv"},
		{"../../etc/passwd", "passwd"},
		{"/abs/path/x.csv", "x.csv"},
		{"..", "transactions.csv"},
		{"", "transactions.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, suggestedFileName(tt.in), "input %q", tt.in)
	}
}

func TestTransactionCmd_CSVToFile(t *testing.T) {
	srv := newTestServer(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	_, _, err := run(t, srv, false, NewTransactionCmd,
		"--account", "acc-1", "--start", "2024-01-01", "--end", "2024-01-31", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(data))
}

func TestTransactionCmd_Errors(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := run(t, srv, false, NewTransactionCmd,
		"--account", "missing", "--start", "2024-01-01", "--end", "2024-01-31")
	require.Error(t, err)
	assert.Equal(t, `NOT_FOUND: account "missing" not found`, err.Error())

	_, _, err = run(t, srv, false, NewTransactionCmd, "--account", "acc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestSyncCmd_UpstreamError(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := run(t, srv, false, NewSyncCmd)
	require.Error(t, err)
	assert.Equal(t, "UPSTREAM_ERROR: network-failure", err.Error())
}

func TestSyncHistoryCmd(t *testing.T) {
	srv := newTestServer(t)

	stdout, stderr, err := run(t, srv, false, NewSyncCmd, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Regexp(t, `r-1\s+manual\s+succeeded\s+3\s+1000ms`, stdout)
	assert.Equal(t, "Showing 1 of 7\n", stderr)
}

func TestCheckError_NonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Health()
	require.Error(t, err)
	assert.Equal(t, "API error: HTTP 502", err.Error())
}

func TestFormatCents(t *testing.T) {
	amount := int64(-1050)
	assert.Equal(t, "-10.50", formatCents(&amount))
	assert.Equal(t, "-", formatCents(nil))
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "a.csv", attachmentName(`attachment; filename="a.csv"`))
	assert.Equal(t, "", attachmentName(""))
}

func TestOutput_EmptyTable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutputTo(false, &stdout, &stderr)

	out.Print([]string{"ID"}, nil, []string{})
	assert.Empty(t, stdout.String())
	assert.Equal(t, "Nothing found\n", stderr.String())

	stdout.Reset()
	NewOutputTo(true, &stdout, &stderr).Print([]string{"ID"}, nil, []string{})
	assert.Equal(t, "[]\n", stdout.String())
}
