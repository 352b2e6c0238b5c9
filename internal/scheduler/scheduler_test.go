package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/actual-bridge/internal/domain"
)

type fakeSyncer struct {
	mu       sync.Mutex
	readyErr error
	syncErr  error
	panicMsg string
	syncs    int
	triggers []domain.SyncTrigger
	synced   chan struct{}
}

func (f *fakeSyncer) EnsureReady(context.Context) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.readyErr
}

func (f *fakeSyncer) Sync(_ context.Context, trigger domain.SyncTrigger) (*domain.SyncResult, error) {
	f.mu.Lock()
	f.syncs++
	f.triggers = append(f.triggers, trigger)
	f.mu.Unlock()

	if f.synced != nil {
		select {
		case f.synced <- struct{}{}:
		default:
		}
	}
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return &domain.SyncResult{BudgetID: "b-1", Applied: 1}, nil
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncs
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseSchedule(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 7, 30, 0, time.UTC)

	tests := []struct {
		name     string
		interval time.Duration
		cron     string
		want     time.Time
		wantErr  bool
	}{
		{"interval", 15 * time.Minute, "", from.Add(15 * time.Minute), false},
		{"cron every 10 minutes", 0, "*/10 * * * *", time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC), false},
		{"cron wins over interval", time.Minute, "0 3 * * *", time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC), false},
		{"invalid cron", 0, "every day", time.Time{}, true},
		{"six fields rejected", 0, "0 */5 * * * *", time.Time{}, true},
		{"sub-second interval", 500 * time.Millisecond, "", time.Time{}, true},
		{"nothing set", 0, "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := ParseSchedule(tt.interval, tt.cron)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := schedule.Next(from); !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_NoSchedule(t *testing.T) {
	_, err := New(Config{Syncer: &fakeSyncer{}})
	if !errors.Is(err, ErrNoSchedule) {
		t.Fatalf("expected ErrNoSchedule, got %v", err)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("30 2 * * 1-5"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("invalid minute accepted")
	}
}

func TestTick(t *testing.T) {
	s := &fakeSyncer{}
	sched, err := New(Config{Syncer: s, Interval: time.Minute, Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if len(s.triggers) != 1 || s.triggers[0] != domain.SyncTriggerSchedule {
		t.Errorf("triggers = %v, want [schedule]", s.triggers)
	}
}

func TestTick_Errors(t *testing.T) {
	tests := []struct {
		name      string
		syncer    *fakeSyncer
		wantSyncs int
	}{
		{"not ready", &fakeSyncer{readyErr: errors.New("no budgets")}, 0},
		{"sync failed", &fakeSyncer{syncErr: errors.New("server down")}, 1},
		{"panic", &fakeSyncer{panicMsg: "boom"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := New(Config{Syncer: tt.syncer, Interval: time.Minute, Logger: testLogger()})
			if err != nil {
				t.Fatal(err)
			}

			if err := sched.Tick(context.Background()); err == nil {
				t.Error("expected error")
			}
			if got := tt.syncer.count(); got != tt.wantSyncs {
				t.Errorf("syncs = %d, want %d", got, tt.wantSyncs)
			}
		})
	}
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	s := &fakeSyncer{synced: make(chan struct{}, 1)}
	sched, err := New(Config{Syncer: s, Interval: time.Second, Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-s.synced:
	case <-time.After(5 * time.Second):
		t.Fatal("no tick within 5s")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
