package actual

import (
	"archive/zip"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE accounts (
	id TEXT PRIMARY KEY, name TEXT, offbudget INTEGER DEFAULT 0, closed INTEGER DEFAULT 0,
	sort_order REAL, tombstone INTEGER DEFAULT 0
);
CREATE TABLE transactions (
	id TEXT PRIMARY KEY, isParent INTEGER DEFAULT 0, isChild INTEGER DEFAULT 0,
	acct TEXT, category TEXT, amount INTEGER, description TEXT, notes TEXT, date INTEGER,
	financial_id TEXT, transferred_id TEXT, cleared INTEGER DEFAULT 1, sort_order REAL,
	tombstone INTEGER DEFAULT 0, parent_id TEXT
);
CREATE TABLE payee_mapping (id TEXT PRIMARY KEY, targetId TEXT);
CREATE TABLE category_mapping (id TEXT PRIMARY KEY, transferId TEXT);

INSERT INTO accounts (id, name, offbudget, closed, sort_order) VALUES
	('acc-1', 'Checking', 0, 0, 1),
	('acc-2', 'Savings', 1, 0, 2),
	('acc-3', 'Old card', 0, 1, 3);
INSERT INTO accounts (id, name, tombstone, sort_order) VALUES ('acc-x', 'Deleted', 1, 4);

INSERT INTO payee_mapping VALUES ('payee-merged', 'payee-1'), ('payee-1', 'payee-1');
INSERT INTO category_mapping VALUES ('cat-old', 'cat-1'), ('cat-1', 'cat-1');

INSERT INTO transactions (id, acct, category, amount, description, notes, date, financial_id, transferred_id, cleared, sort_order) VALUES
	('tx-1', 'acc-1', 'cat-1', -1050, 'payee-1', NULL, 20240101, NULL, NULL, 1, 1),
	('tx-2', 'acc-1', 'cat-old', 250000, 'payee-merged', 'salary', 20240115, 'bank-123', NULL, 0, 2),
	('tx-3', 'acc-1', NULL, -500, NULL, NULL, 20240201, NULL, 'tx-9', 1, 3),
	('tx-4', 'acc-2', NULL, 100, NULL, NULL, 20240110, NULL, NULL, 1, 4);
INSERT INTO transactions (id, acct, amount, date, isChild, parent_id) VALUES
	('tx-1/child', 'acc-1', -1050, 20240101, 1, 'tx-1');
INSERT INTO transactions (id, acct, amount, date, tombstone) VALUES
	('tx-dead', 'acc-1', -1, 20240105, 1);
`

// newTestDB создаёт db.sqlite с минимальной схемой Actual.
func newTestDB(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
}

// openTestReplica создаёт и открывает реплику во временном каталоге.
func openTestReplica(t *testing.T) *Replica {
	t.Helper()

	path := filepath.Join(t.TempDir(), databaseFile)
	newTestDB(t, path)

	r, err := OpenReplica(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// buildArchive упаковывает db.sqlite и metadata.json в zip, как это делает сервер.
func buildArchive(t *testing.T, meta map[string]any) []byte {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), databaseFile)
	newTestDB(t, dbPath)
	dbBytes, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	metaBytes, err := json.Marshal(meta)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string][]byte{databaseFile: dbBytes, metadataFile: metaBytes} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// encryptForTest шифрует данные AES-256-GCM, возвращая iv, authTag и шифротекст.
func encryptForTest(t *testing.T, key, plain []byte) (iv, tag, data []byte) {
	t.Helper()

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	iv = make([]byte, gcm.NonceSize())
	_, err = io.ReadFull(rand.Reader, iv)
	require.NoError(t, err)

	sealed := gcm.Seal(nil, iv, plain, nil)
	cut := len(sealed) - gcm.Overhead()
	return iv, sealed[cut:], sealed[:cut]
}

// fakeServer — минимальный сервер синхронизации Actual.
type fakeServer struct {
	t        *testing.T
	password string
	token    string

	files   []map[string]any
	archive []byte

	encryptMeta map[string]any
	keySalt     string
	keyID       string
	keyTest     string

	mu           sync.Mutex
	syncRequests []*syncRequest
	syncResponse *syncResponse
	syncStatus   int
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{
		t:        t,
		password: "secret",
		token:    "token-1",
		files: []map[string]any{
			{"deleted": 0, "fileId": "file-1", "groupId": "group-1", "name": "My Finances"},
			{"deleted": 1, "fileId": "file-gone", "groupId": "group-gone", "name": "Gone"},
		},
	}
}

func (s *fakeServer) start() *httptest.Server {
	mux := http.NewServeMux()

	ok := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "data": data})
	}
	fail := func(w http.ResponseWriter, status int, reason string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"status": "error", "reason": reason})
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(headerToken) != s.token {
				fail(w, http.StatusForbidden, "unauthorized")
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /account/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != s.password {
			fail(w, http.StatusBadRequest, "invalid-password")
			return
		}
		ok(w, map[string]string{"token": s.token})
	})

	mux.HandleFunc("GET /sync/list-user-files", authed(func(w http.ResponseWriter, _ *http.Request) {
		ok(w, s.files)
	}))

	mux.HandleFunc("GET /sync/get-user-file-info", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerFileID) != "file-1" {
			fail(w, http.StatusBadRequest, "file-not-found")
			return
		}
		ok(w, map[string]any{
			"deleted": 0, "fileId": "file-1", "groupId": "group-1", "name": "My Finances",
			"encryptMeta": s.encryptMeta,
		})
	}))

	mux.HandleFunc("GET /sync/download-user-file", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerFileID) != "file-1" {
			fail(w, http.StatusBadRequest, "file-not-found")
			return
		}
		s.mu.Lock()
		archive := s.archive
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(archive)
	}))

	mux.HandleFunc("POST /sync/user-get-key", authed(func(w http.ResponseWriter, _ *http.Request) {
		ok(w, map[string]string{"id": s.keyID, "salt": s.keySalt, "test": s.keyTest})
	}))

	mux.HandleFunc("POST /sync/sync", authed(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		req, err := unmarshalSyncRequest(body)
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}

		s.mu.Lock()
		s.syncRequests = append(s.syncRequests, req)
		resp := s.syncResponse
		status := s.syncStatus
		s.mu.Unlock()

		if status != 0 {
			fail(w, status, "internal-error")
			return
		}
		if resp == nil {
			resp = &syncResponse{}
		}
		w.Header().Set("Content-Type", syncContentType)
		w.Write(resp.marshal())
	}))

	srv := httptest.NewServer(mux)
	s.t.Cleanup(srv.Close)
	return srv
}

func (s *fakeServer) respondSync(resp *syncResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncResponse = resp
}

func (s *fakeServer) lastSyncRequest() *syncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.syncRequests) == 0 {
		return nil
	}
	return s.syncRequests[len(s.syncRequests)-1]
}

func b64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
