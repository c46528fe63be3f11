package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/persistence"
)

func newTestCollections(logCap int) (*Collections, *persistence.MemoryStore) {
	store := persistence.NewMemoryStore()
	return NewCollections(store, "test_", logCap, zap.NewNop()), store
}

func TestAbsentKeysUseDefaults(t *testing.T) {
	c, _ := newTestCollections(0)
	ctx := context.Background()

	users, err := c.Users(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != len(SeedUsers()) {
		t.Fatalf("expected seed users, got %d", len(users))
	}
	sales, err := c.Sales(ctx)
	if err != nil || sales == nil || len(sales) != 0 {
		t.Fatalf("expected empty sales, got %v (%v)", sales, err)
	}
	attendance, err := c.Attendance(ctx)
	if err != nil || attendance == nil || len(attendance) != 0 {
		t.Fatalf("expected empty attendance, got %v (%v)", attendance, err)
	}
}

func TestMalformedJSONFallsBack(t *testing.T) {
	c, store := newTestCollections(0)
	ctx := context.Background()
	_ = store.Set(ctx, "test_sales", "{not json")
	_ = store.Set(ctx, "test_users", "[1,2,")

	sales, err := c.Sales(ctx)
	if err != nil || len(sales) != 0 {
		t.Fatalf("expected empty sales fallback, got %v (%v)", sales, err)
	}
	users, err := c.Users(ctx)
	if err != nil || len(users) != len(SeedUsers()) {
		t.Fatalf("expected seed fallback, got %d (%v)", len(users), err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	c, store := newTestCollections(0)
	ctx := context.Background()

	users := []domain.User{{ID: "A1", EmployeeID: "A1", Username: "a.one", Role: domain.RoleManager}}
	if err := c.SaveUsers(ctx, users); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, ok, _ := store.Get(ctx, "test_users")
	if !ok || raw == "" {
		t.Fatal("expected users under namespaced key")
	}
	got, err := c.Users(ctx)
	if err != nil || len(got) != 1 || got[0].ID != "A1" || got[0].Manager != nil {
		t.Fatalf("unexpected round trip %+v (%v)", got, err)
	}
	if got[0].IsActive != nil {
		t.Fatal("absent isActive must stay absent after a round trip")
	}
}

func TestAppendLogIsBounded(t *testing.T) {
	c, _ := newTestCollections(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := c.AppendSyncLog(ctx, domain.SyncLogEntry{DataType: "sales", RecordCount: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	entries, err := c.SyncLog(ctx)
	if err != nil {
		t.Fatalf("sync log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 retained entries, got %d", len(entries))
	}
	if entries[0].RecordCount != 2 || entries[2].RecordCount != 4 {
		t.Fatalf("expected oldest entries dropped first, got %+v", entries)
	}
}

func TestConcurrentAppendsKeepEveryEntry(t *testing.T) {
	c, _ := newTestCollections(0)
	ctx := context.Background()
	const writers = 40

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.AppendSalesLog(ctx, domain.SalesLogEntry{Action: "create", Amount: float64(i)}); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := loadList(ctx, c, KeySalesLog, emptyList[domain.SalesLogEntry])
	if err != nil {
		t.Fatalf("sales log: %v", err)
	}
	if len(entries) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(entries))
	}
}

func TestUpsertTargetReplacesSameMonth(t *testing.T) {
	c, _ := newTestCollections(0)
	ctx := context.Background()

	for _, tgt := range []domain.Target{
		{UserID: "EMP002", Month: "2024-03", Amount: 100},
		{UserID: "EMP001", Month: "2024-03", Amount: 200},
		{UserID: "EMP001", Month: "2024-02", Amount: 50},
		{UserID: "EMP002", Month: "2024-03", Amount: 150},
	} {
		if err := c.UpsertTarget(ctx, tgt); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	targets, err := c.Targets(ctx)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %+v", targets)
	}
	if targets[0].Month != "2024-02" || targets[1].UserID != "EMP001" || targets[2].Amount != 150 {
		t.Fatalf("unexpected target order or values %+v", targets)
	}
}

func TestCurrentUserSlot(t *testing.T) {
	c, _ := newTestCollections(0)
	ctx := context.Background()

	if u, err := c.CurrentUser(ctx); err != nil || u != nil {
		t.Fatalf("expected empty session, got %+v (%v)", u, err)
	}
	if err := c.SetCurrentUser(ctx, &domain.User{ID: "E1", Name: "E"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	u, err := c.CurrentUser(ctx)
	if err != nil || u == nil || u.ID != "E1" {
		t.Fatalf("unexpected session user %+v (%v)", u, err)
	}
	if err := c.SetCurrentUser(ctx, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if u, _ := c.CurrentUser(ctx); u != nil {
		t.Fatal("expected cleared session")
	}
}

func TestBootstrapDoesNotOverwrite(t *testing.T) {
	c, _ := newTestCollections(0)
	ctx := context.Background()

	if err := c.SaveUsers(ctx, []domain.User{{ID: "ONLY"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	users, _ := c.Users(ctx)
	if len(users) != 1 {
		t.Fatalf("bootstrap overwrote existing users: %d", len(users))
	}
	products, _ := c.Products(ctx)
	if len(products) != len(SeedProducts()) {
		t.Fatalf("expected seeded products, got %d", len(products))
	}
}

type failingStore struct{ persistence.MemoryStore }

func (f *failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func TestReadErrorsAreReturned(t *testing.T) {
	c := NewCollections(&failingStore{}, "test_", 0, zap.NewNop())
	if _, err := c.Sales(context.Background()); err == nil {
		t.Fatal("expected store read error to propagate")
	}
}
