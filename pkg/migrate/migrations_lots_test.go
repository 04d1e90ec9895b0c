package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLotsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_lots.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS lots",
		"FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE",
		"status lot_status NOT NULL DEFAULT 'available'",
		"version BIGINT NOT NULL DEFAULT 0",
		"CHECK (version >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_lots_project_code",
		"DROP TABLE IF EXISTS lots",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReservationsMigrationEnforcesSingleActiveHold(t *testing.T) {
	content := readMigration(t, "*_create_reservations.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS reservations",
		"status reservation_status NOT NULL DEFAULT 'active'",
		"due_at TIMESTAMPTZ NOT NULL",
		"idx_reservations_active_lot",
		"WHERE status = 'active'",
		"DROP TABLE IF EXISTS reservations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSalesMigrationGuardsBalance(t *testing.T) {
	content := readMigration(t, "*_create_sales_payments.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS sales",
		"CHECK (balance >= 0)",
		"CHECK (balance <= total_price)",
		"CREATE TABLE IF NOT EXISTS payments",
		"CHECK (amount > 0)",
		"DROP TABLE IF EXISTS sales",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
