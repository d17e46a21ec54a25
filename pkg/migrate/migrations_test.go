package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/tradein-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestOrdersMigrationCarriesVersionAndIndexes(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"),
		"CREATE TABLE IF NOT EXISTS orders",
		"version bigint NOT NULL DEFAULT 1",
		"CREATE UNIQUE INDEX IF NOT EXISTS orders_order_number_key ON orders (order_number)",
		"orders (created_at DESC, id DESC)",
		"DROP TABLE IF EXISTS orders",
	)
}

func TestWebhookEventsAreUniquePerProvider(t *testing.T) {
	assertContains(t, readMigration(t, "create_webhook_events"),
		"UNIQUE (provider, event_id)",
		"processed_at timestamptz",
	)
}

func TestCountersAreSeeded(t *testing.T) {
	assertContains(t, readMigration(t, "create_order_counters"),
		"('orders', 0), ('wholesale_orders', 0)",
		"ON CONFLICT (name) DO NOTHING",
	)
}

func TestWholesaleMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_wholesale"),
		"CREATE TABLE IF NOT EXISTS wholesale_inventory",
		"CHECK (stock >= 0)",
		"CONSTRAINT wholesale_orders_payment_intent_key UNIQUE (payment_intent_id)",
		"DROP TABLE IF EXISTS wholesale_inventory",
	)
}

func TestAuditLogHasNoOrderForeignKey(t *testing.T) {
	content := readMigration(t, "create_admin_audit_logs")
	if strings.Contains(content, "REFERENCES orders") {
		t.Fatalf("audit logs must survive order deletion")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Return Labels!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_return_labels.sql") {
		t.Fatalf("unexpected file name %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatalf("expected empty name error")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_orders.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected filename error")
	}
}
