package testsupport

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"corral/internal/config"
)

// BackdateItem rewrites an item's created_at so age-based behavior can be
// tested without sleeping. It opens its own connection; the store's WAL mode
// tolerates the second writer.
func BackdateItem(t testing.TB, cfg *config.Config, id int64, createdAt time.Time) {
	t.Helper()

	db, err := sql.Open("sqlite", cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("open queue db: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(
		`UPDATE queue_items SET created_at = ? WHERE id = ?`,
		createdAt.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		t.Fatalf("backdate item %d: %v", id, err)
	}
}
