package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/ontoreg/internal/errs"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Create database
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	// Reopen database
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	// Verify we can query it
	var count int
	err = s2.db.QueryRow("SELECT COUNT(*) FROM statements").Scan(&count)
	if err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open multiple times
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	// Final open should work
	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	// Verify schema is intact
	tables := []string{"contexts", "statements", "identities", "versions", "import_edges"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// Try to open in non-existent directory
	path := "/nonexistent/dir/test.db"

	_, err := Open(path)
	if err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
	if !errs.Is(err, errs.CodeStoreUnavailable) {
		t.Errorf("expected STORE_UNAVAILABLE, got %v", err)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	err := s.Close()
	if err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	// First close should succeed
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	// Second close should not panic (though may error)
	// We just verify it doesn't panic
	_ = s.Close()
}

func TestView_DoesNotWaitForOpenUpdate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	before := readSeq(t, s)

	w, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer w.Rollback()
	if _, err := w.NextSeq(ctx); err != nil {
		t.Fatalf("NextSeq() failed: %v", err)
	}

	// The write connection is held; a read on it would block until timeout.
	if got := readSeq(t, s); got != before {
		t.Errorf("uncommitted sequence visible to View: got %d, want %d", got, before)
	}

	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if got := readSeq(t, s); got != before+1 {
		t.Errorf("committed sequence = %d, want %d", got, before+1)
	}
}

func TestView_RejectsWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.View(ctx, func(tx *Tx) error {
		_, err := tx.NextSeq(ctx)
		return err
	})
	if err == nil {
		t.Fatal("expected write through View to fail")
	}
}

func TestOpen_MemoryReadsThroughWriter(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if s.read != s.db {
		t.Error("in-memory store must read through the write connection")
	}
	if got := readSeq(t, s); got != 0 {
		t.Errorf("sequence = %d, want 0", got)
	}
}

func TestReaderDSN(t *testing.T) {
	const params = "_query_only=true&_busy_timeout=5000&_foreign_keys=true"
	tests := []struct {
		path string
		want string
	}{
		{"/var/lib/ontoreg.db", "file:/var/lib/ontoreg.db?" + params},
		{"data/reg#1?.db", "file:data/reg%231%3f.db?" + params},
		{"file:reg.db", "file:reg.db?" + params},
		{"file:reg.db?cache=private", "file:reg.db?cache=private&" + params},
	}
	for _, tt := range tests {
		if got := readerDSN(tt.path); got != tt.want {
			t.Errorf("readerDSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Schema table tests

func TestSchema_StatementsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "statements")

	expected := []string{
		"context", "s_kind", "s_value", "p_value",
		"o_kind", "o_value", "o_datatype", "o_lang",
	}

	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("statements table missing column %q", col)
		}
	}
}

func TestSchema_VersionsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "versions")

	expected := []string{
		"version", "identity", "concrete", "inferred", "status", "seq", "hash", "label", "removed",
	}

	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("versions table missing column %q", col)
		}
	}
}

func TestSchema_CatalogTables(t *testing.T) {
	s := createTestStore(t)

	tables := []string{"contexts", "statements", "sequence", "identities", "versions", "import_edges"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

// Index tests

func TestSchema_StatementsIndexes(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "statements")

	expected := []string{
		"idx_statements_predicate",
		"idx_statements_object",
	}

	for _, idx := range expected {
		if !contains(indexes, idx) {
			t.Errorf("statements table missing index %q", idx)
		}
	}
}

// Constraint tests

func TestConstraint_IdentityKindChecked(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO identities (iri, kind, state, label, created_seq)
		VALUES ('http://example.org/x', 'dataset', 'ACTIVE', '', 1)
	`)
	if err == nil {
		t.Error("expected CHECK constraint violation on kind, got nil")
	}
}

func TestConstraint_ForeignKeyVersionToIdentity(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO versions (version, identity, concrete, status, seq)
		VALUES ('http://example.org/x/1', 'http://example.org/nonexistent', 'http://example.org/x/1', 'CONSISTENT', 1)
	`)
	if err == nil {
		t.Error("expected foreign key constraint violation, got nil")
	}
}

func TestConstraint_ForeignKeyStatementToContext(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO statements (context, s_kind, s_value, p_value, o_kind, o_value)
		VALUES ('urn:nowhere', 'iri', 'http://example.org/a', 'http://example.org/p', 'iri', 'http://example.org/b')
	`)
	if err == nil {
		t.Error("expected foreign key constraint violation, got nil")
	}
}

func TestConstraint_SequenceSingleRow(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO sequence (id, value) VALUES (2, 0)`)
	if err == nil {
		t.Error("expected CHECK constraint violation on sequence id, got nil")
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify user_version is set to currentSchemaVersion
	var version int
	err = s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}

	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_V1DependentsIndexExists(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "import_edges")
	if !contains(indexes, "idx_import_edges_target") {
		t.Errorf("import_edges table missing index idx_import_edges_target, indexes: %v", indexes)
	}
}

func TestMigration_IdempotentUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open and close multiple times - migrations should be idempotent
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}

		// Verify version is correct each time
		var version int
		err = s.db.QueryRow("PRAGMA user_version").Scan(&version)
		if err != nil {
			t.Fatalf("failed to get user_version: %v", err)
		}

		if version != currentSchemaVersion {
			t.Errorf("iteration %d: user_version = %d, want %d", i, version, currentSchemaVersion)
		}

		s.Close()
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	// Simulate a pre-migration database (version 0)
	path := filepath.Join(t.TempDir(), "test.db")

	// Create database manually without migration
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	// Apply schema without the v1 index (simulates pre-migration state)
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("DROP INDEX idx_import_edges_target"); err != nil {
		t.Fatalf("failed to drop index: %v", err)
	}

	// Set version to 0 explicitly (pre-migration)
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	// Now open through our normal path - should trigger migration
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify version was upgraded
	var version int
	err = s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}

	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}

	indexes := getTableIndexes(t, s.db, "import_edges")
	if !contains(indexes, "idx_import_edges_target") {
		t.Errorf("expected idx_import_edges_target after migration, got indexes: %v", indexes)
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
