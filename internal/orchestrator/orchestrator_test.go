package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shaiso/actual-bridge/internal/budget"
	"github.com/shaiso/actual-bridge/internal/domain"
)

// --- fakes ---

type fakeClient struct {
	mu sync.Mutex

	budgets     []domain.Budget
	listErr     error
	initErr     error
	downloadErr map[string]error
	loadErr     error
	syncErr     error

	calls []string
}

func (c *fakeClient) call(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *fakeClient) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == name {
			n++
		}
	}
	return n
}

func (c *fakeClient) Init(_ context.Context, _, _, _ string) error {
	c.call("init")
	return c.initErr
}

func (c *fakeClient) ListBudgets(_ context.Context) ([]domain.Budget, error) {
	c.call("list")
	return c.budgets, c.listErr
}

func (c *fakeClient) Download(_ context.Context, remoteID, _ string) (string, error) {
	c.call("download:" + remoteID)
	if err := c.downloadErr[remoteID]; err != nil {
		return "", err
	}
	return "local-" + remoteID, nil
}

func (c *fakeClient) Load(_ context.Context, localID, _ string) error {
	c.call("load:" + localID)
	return c.loadErr
}

func (c *fakeClient) Sync(_ context.Context) (*domain.SyncResult, error) {
	c.call("sync")
	if c.syncErr != nil {
		return nil, c.syncErr
	}
	return &domain.SyncResult{Applied: 3}, nil
}

func (c *fakeClient) Shutdown(_ context.Context) error {
	c.call("shutdown")
	return nil
}

type fakeJournal struct {
	records []*domain.SyncRecord
	err     error
}

func (j *fakeJournal) Record(_ context.Context, rec *domain.SyncRecord) error {
	j.records = append(j.records, rec)
	return j.err
}

type fakePublisher struct {
	published int
	err       error
}

func (p *fakePublisher) PublishBudgetSynced(_ context.Context, _ *domain.SyncRecord) error {
	p.published++
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, client *fakeClient) *Orchestrator {
	t.Helper()
	return New(Config{
		Client:    client,
		ServerURL: "http://actual.local",
		Password:  "secret",
		DataDir:   t.TempDir(),
		Logger:    testLogger(),
	})
}

// --- EnsureInit ---

func TestEnsureInit_Once(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client)

	for i := 0; i < 3; i++ {
		if err := o.EnsureInit(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n := client.count("init"); n != 1 {
		t.Errorf("expected 1 init call, got %d", n)
	}
	if o.State() != StateSDKReady {
		t.Errorf("expected sdk_ready, got %s", o.State())
	}
}

func TestEnsureInit_MissingConfig(t *testing.T) {
	client := &fakeClient{}
	o := New(Config{Client: client, DataDir: t.TempDir(), Logger: testLogger()})

	err := o.EnsureInit(context.Background())
	if !errors.Is(err, ErrInit) {
		t.Fatalf("expected ErrInit, got %v", err)
	}
	if client.count("init") != 0 {
		t.Error("client should not be initialized without config")
	}
	if o.State() != StateUninitialized {
		t.Errorf("state should stay uninitialized, got %s", o.State())
	}
}

func TestEnsureInit_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	o := New(Config{
		Client:    &fakeClient{},
		ServerURL: "http://actual.local",
		Password:  "secret",
		DataDir:   dir,
		Logger:    testLogger(),
	})

	if err := o.EnsureInit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dirExists(dir) {
		t.Error("data dir should be created")
	}
}

func TestEnsureInit_ClientError(t *testing.T) {
	client := &fakeClient{initErr: errors.New("boom")}
	o := newTestOrchestrator(t, client)

	err := o.EnsureInit(context.Background())
	if !errors.Is(err, ErrInit) {
		t.Fatalf("expected ErrInit, got %v", err)
	}

	client.initErr = nil
	if err := o.EnsureInit(context.Background()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if n := client.count("init"); n != 2 {
		t.Errorf("expected 2 init calls, got %d", n)
	}
}

// --- EnsureReady ---

func TestEnsureReady_DownloadsOnce(t *testing.T) {
	client := &fakeClient{
		budgets: []domain.Budget{{Name: "Home", GroupID: "g1", CloudFileID: "f1"}},
	}
	o := newTestOrchestrator(t, client)

	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}

	if n := client.count("download:g1"); n != 1 {
		t.Errorf("expected 1 download, got %d", n)
	}
	if n := client.count("load:local-g1"); n != 1 {
		t.Errorf("expected 1 load, got %d", n)
	}
	if n := client.count("sync"); n != 1 {
		t.Errorf("expected 1 sync, got %d", n)
	}
	if o.State() != StateFullyReady {
		t.Errorf("expected fully_ready, got %s", o.State())
	}
	if active := o.Active(); active == nil || active.ID != "local-g1" {
		t.Errorf("unexpected active budget: %+v", active)
	}
}

func TestEnsureReady_LoadsLocalCopy(t *testing.T) {
	client := &fakeClient{
		budgets: []domain.Budget{
			{Name: "Remote", GroupID: "g1"},
			{Name: "Local", ID: "my-budget", GroupID: "g2"},
		},
	}
	o := newTestOrchestrator(t, client)
	if err := os.MkdirAll(filepath.Join(o.dataDir, "my-budget"), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.count("load:my-budget") != 1 {
		t.Errorf("expected local load, calls: %v", client.calls)
	}
	if client.count("download:g2") != 0 {
		t.Error("local budget should not be downloaded")
	}
}

func TestEnsureReady_NoBudgets(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client)

	err := o.EnsureReady(context.Background())
	if !errors.Is(err, budget.ErrNoBudgetsFound) {
		t.Fatalf("expected ErrNoBudgetsFound, got %v", err)
	}
	if o.State() != StateSDKReady {
		t.Errorf("expected sdk_ready after failure, got %s", o.State())
	}
}

func TestEnsureReady_PreferredBudget(t *testing.T) {
	client := &fakeClient{
		budgets: []domain.Budget{
			{Name: "First", GroupID: "g1"},
			{Name: "Wanted", GroupID: "g2"},
		},
	}
	o := New(Config{
		Client:    client,
		ServerURL: "http://actual.local",
		Password:  "secret",
		DataDir:   t.TempDir(),
		BudgetID:  "g2",
		Logger:    testLogger(),
	})

	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.count("download:g2") != 1 || client.count("download:g1") != 0 {
		t.Errorf("expected preferred budget download, calls: %v", client.calls)
	}
}

func TestEnsureReady_SyncFailureRetries(t *testing.T) {
	client := &fakeClient{
		budgets: []domain.Budget{{Name: "Home", GroupID: "g1"}},
		syncErr: errors.New("server down"),
	}
	o := newTestOrchestrator(t, client)

	if err := o.EnsureReady(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if o.State() == StateFullyReady {
		t.Fatal("should not be ready after failed sync")
	}

	client.syncErr = nil
	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if o.State() != StateFullyReady {
		t.Errorf("expected fully_ready, got %s", o.State())
	}
}

func TestEnsureReady_Concurrent(t *testing.T) {
	client := &fakeClient{
		budgets: []domain.Budget{{Name: "Home", GroupID: "g1"}},
	}
	o := newTestOrchestrator(t, client)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.EnsureReady(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := client.count("download:g1"); n != 1 {
		t.Errorf("expected single download, got %d", n)
	}
}

// --- Sync ---

func TestSync_NotReady(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{})

	_, err := o.Sync(context.Background(), domain.SyncTriggerManual)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestSync_JournalAndPublisher(t *testing.T) {
	client := &fakeClient{budgets: []domain.Budget{{Name: "Home", GroupID: "g1"}}}
	journal := &fakeJournal{}
	publisher := &fakePublisher{}
	o := New(Config{
		Client:    client,
		Journal:   journal,
		Publisher: publisher,
		ServerURL: "http://actual.local",
		Password:  "secret",
		DataDir:   t.TempDir(),
		Logger:    testLogger(),
	})

	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := o.Sync(context.Background(), domain.SyncTriggerManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied != 3 {
		t.Errorf("expected 3 applied, got %d", result.Applied)
	}

	if len(journal.records) != 2 {
		t.Fatalf("expected 2 journal records, got %d", len(journal.records))
	}
	if journal.records[0].Trigger != domain.SyncTriggerStartup {
		t.Errorf("first record should be startup, got %s", journal.records[0].Trigger)
	}
	last := journal.records[1]
	if last.Trigger != domain.SyncTriggerManual || last.Status != domain.SyncStatusSucceeded {
		t.Errorf("unexpected record: %+v", last)
	}
	if last.BudgetID != "local-g1" || last.Messages != 3 {
		t.Errorf("unexpected record: %+v", last)
	}
	if publisher.published != 2 {
		t.Errorf("expected 2 events, got %d", publisher.published)
	}
}

func TestSync_SideEffectFailuresIgnored(t *testing.T) {
	client := &fakeClient{budgets: []domain.Budget{{Name: "Home", GroupID: "g1"}}}
	o := New(Config{
		Client:    client,
		Journal:   &fakeJournal{err: errors.New("db down")},
		Publisher: &fakePublisher{err: errors.New("mq down")},
		ServerURL: "http://actual.local",
		Password:  "secret",
		DataDir:   t.TempDir(),
		Logger:    testLogger(),
	})

	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatalf("journal/publisher errors must not fail readiness: %v", err)
	}
}

func TestSync_FailureRecorded(t *testing.T) {
	client := &fakeClient{budgets: []domain.Budget{{Name: "Home", GroupID: "g1"}}}
	journal := &fakeJournal{}
	publisher := &fakePublisher{}
	o := New(Config{
		Client:    client,
		Journal:   journal,
		Publisher: publisher,
		ServerURL: "http://actual.local",
		Password:  "secret",
		DataDir:   t.TempDir(),
		Logger:    testLogger(),
	})
	if err := o.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}

	client.syncErr = errors.New("timeout")
	if _, err := o.Sync(context.Background(), domain.SyncTriggerSchedule); err == nil {
		t.Fatal("expected error")
	}

	last := journal.records[len(journal.records)-1]
	if last.Status != domain.SyncStatusFailed || last.Error != "timeout" {
		t.Errorf("unexpected record: %+v", last)
	}
	if publisher.published != 1 {
		t.Errorf("failed sync should not be published, got %d events", publisher.published)
	}
}

// --- Shutdown ---

func TestShutdown(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client)

	if err := o.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.count("shutdown") != 0 {
		t.Error("uninitialized client should not be shut down")
	}

	if err := o.EnsureInit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := o.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.count("shutdown") != 1 {
		t.Error("expected client shutdown")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateUninitialized: "uninitialized",
		StateSDKReady:      "sdk_ready",
		StateFullyReady:    "fully_ready",
		State(42):          "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
