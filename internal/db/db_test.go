package db

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/kv"
	"github.com/marcus/tally/internal/models"
)

func TestInitialize(t *testing.T) {
	dir := t.TempDir()

	db, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(Path(dir)); os.IsNotExist(err) {
		t.Error("Database file not created")
	}

	v, err := db.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("schema version = %d, want %d", v, SchemaVersion)
	}

	ok, err := db.columnExists("completions", "clock_skew")
	if err != nil || !ok {
		t.Errorf("completions.clock_skew missing: ok=%v err=%v", ok, err)
	}
}

func TestOpenRequiresInit(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := db.Set(ctx, "streak:tasks", []byte(`{"current_streak":2}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	v, ok, err := db.Get(ctx, "streak:tasks")
	if err != nil || !ok {
		t.Fatalf("Get = ok:%v err:%v", ok, err)
	}
	if string(v) != `{"current_streak":2}` {
		t.Errorf("value = %s", v)
	}
}

func TestMigrateFromVersion2(t *testing.T) {
	dir := t.TempDir()

	db, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Rebuild a version 2 database: completions without clock_skew.
	if _, err := db.conn.Exec(`DROP TABLE completions`); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := db.conn.Exec(Migrations[1].SQL); err != nil {
		t.Fatalf("recreate v2 table: %v", err)
	}
	if err := db.setSchemaVersion(2); err != nil {
		t.Fatalf("setSchemaVersion: %v", err)
	}

	n, err := db.RunMigrations()
	if err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if n != 1 {
		t.Errorf("migrations run = %d, want 1", n)
	}
	ok, _ := db.columnExists("completions", "clock_skew")
	if !ok {
		t.Error("clock_skew column not added")
	}

	// Running again is a no-op.
	if n, err := db.RunMigrations(); err != nil || n != 0 {
		t.Errorf("second RunMigrations = %d, %v", n, err)
	}
	db.Close()
}

func TestSettingsStorageFull(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	// Pin the database to its current size so any growth fails with SQLITE_FULL.
	if _, err := db.conn.Exec(`PRAGMA max_page_count = 1`); err != nil {
		t.Fatalf("max_page_count: %v", err)
	}

	big := []byte(strings.Repeat("x", 256*1024))
	err = db.Set(ctx, "streak:tasks", big)
	if !errors.Is(err, kv.ErrStorageFull) {
		t.Fatalf("expected kv.ErrStorageFull, got %v", err)
	}
}

func TestSettingKeys(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	for _, k := range []string{"streak:tasks", "streak:notes", "theme"} {
		if err := db.Set(ctx, k, []byte("{}")); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	keys, err := db.SettingKeys(ctx, "streak:")
	if err != nil {
		t.Fatalf("SettingKeys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "streak:notes" || keys[1] != "streak:tasks" {
		t.Errorf("SettingKeys = %v", keys)
	}
}

func TestCompletionHistory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	rows := []models.Completion{
		{StreakKey: "tasks", Day: calendar.Of(base), RecordedAt: base, CurrentStreak: 1},
		{StreakKey: "tasks", Day: calendar.Of(base), RecordedAt: base.Add(time.Hour), CurrentStreak: 1},
		{StreakKey: "tasks", Day: calendar.Of(base.AddDate(0, 0, 1)), RecordedAt: base.AddDate(0, 0, 1), CurrentStreak: 2},
		{StreakKey: "notes", Day: calendar.Of(base), RecordedAt: base, CurrentStreak: 1},
		{StreakKey: "tasks", Day: calendar.Of(base), RecordedAt: base.AddDate(0, 0, 2), CurrentStreak: 2, ClockSkew: true},
	}
	for i := range rows {
		if err := db.AppendCompletion(ctx, &rows[i]); err != nil {
			t.Fatalf("AppendCompletion failed: %v", err)
		}
		if rows[i].ID == 0 {
			t.Errorf("row %d: ID not set", i)
		}
	}

	got, err := db.ListCompletions(ctx, "tasks", 0)
	if err != nil {
		t.Fatalf("ListCompletions failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if !got[0].ClockSkew {
		t.Error("newest row should be the skewed one")
	}
	if got[1].Day.String() != "2026-04-02" || got[1].CurrentStreak != 2 {
		t.Errorf("second row = %+v", got[1])
	}

	limited, err := db.ListCompletions(ctx, "", 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("limited list = %d, %v", len(limited), err)
	}

	days, err := db.CountCompletionDays(ctx, "tasks")
	if err != nil {
		t.Fatalf("CountCompletionDays failed: %v", err)
	}
	if days != 2 {
		t.Errorf("distinct days = %d, want 2", days)
	}
}

func TestUpdateIsAtomicAcrossHandles(t *testing.T) {
	dir := t.TempDir()
	initDB, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	initDB.Close()

	const perHandle = 25
	ctx := context.Background()
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		h, err := Open(dir)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer h.Close()

		go func(h *DB) {
			for n := 0; n < perHandle; n++ {
				err := h.Update(ctx, "counter", func(old []byte, found bool) ([]byte, error) {
					count := 0
					if found {
						count, _ = strconv.Atoi(string(old))
					}
					return []byte(strconv.Itoa(count + 1)), nil
				})
				if err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(h)
	}
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	h, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	raw, ok, err := h.Get(ctx, "counter")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(raw) != strconv.Itoa(2*perHandle) {
		t.Errorf("counter = %s, want %d", raw, 2*perHandle)
	}
}

func TestUpdateNilValueSkipsWrite(t *testing.T) {
	db, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := db.Set(ctx, "k", []byte("keep")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err = db.Update(ctx, "k", func(old []byte, found bool) ([]byte, error) {
		if !found || string(old) != "keep" {
			t.Errorf("Update saw old=%q found=%v", old, found)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	boom := errors.New("boom")
	if err := db.Update(ctx, "k", func([]byte, bool) ([]byte, error) { return []byte("x"), boom }); !errors.Is(err, boom) {
		t.Errorf("Update error = %v, want boom", err)
	}

	raw, _, _ := db.Get(ctx, "k")
	if string(raw) != "keep" {
		t.Errorf("value = %q, want keep", raw)
	}
}
