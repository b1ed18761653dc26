package infra

import "testing"

func TestPendingMigrationsSkipsApplied(t *testing.T) {
	all, err := pendingMigrations(map[string]bool{})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(all) != 2 || all[0] != "001_kv_entries.sql" || all[1] != "002_activity_events.sql" {
		t.Fatalf("unexpected migrations: %v", all)
	}

	rest, err := pendingMigrations(map[string]bool{"001_kv_entries.sql": true})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(rest) != 1 || rest[0] != "002_activity_events.sql" {
		t.Fatalf("expected only activity migration, got %v", rest)
	}
}
