//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"review_enricher/internal/domain"
	mysqlrepo "review_enricher/internal/storage/mysql"
)

// ---------- small helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "reviews")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func seedReview(t *testing.T, db *sql.DB, id, text string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO reviews (id, review_text) VALUES (?, ?)`, id, text); err != nil {
		t.Fatalf("seed review %s: %v", id, err)
	}
}

// ---------- the tests ----------

func TestRepo_MySQL_EnrichmentLifecycle(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	id := domain.ReviewID("000000000000000000000001")
	seedReview(t, db, id.String(), "Great product, fast shipping!")
	seedReview(t, db, "000000000000000000000002", "Arrived broken, would not buy again.")

	// point lookup before annotation
	rv, err := repo.GetReview(ctx, id)
	if err != nil {
		t.Fatalf("GetReview: %v", err)
	}
	if rv.Text != "Great product, fast shipping!" || rv.Annotated() {
		t.Fatalf("unexpected review: %+v", rv)
	}

	// both unannotated records show up in the scan
	var scanned []domain.ReviewID
	if err := repo.ScanUnannotated(ctx, func(r domain.Review) error {
		scanned = append(scanned, r.ID)
		return nil
	}); err != nil {
		t.Fatalf("ScanUnannotated: %v", err)
	}
	if len(scanned) != 2 {
		t.Fatalf("expected 2 pending, got %v", scanned)
	}

	// annotate one; the pair lands atomically
	if err := repo.UpdateAnnotation(ctx, id, "POSITIVE", 0.97); err != nil {
		t.Fatalf("UpdateAnnotation: %v", err)
	}
	rv, err = repo.GetReview(ctx, id)
	if err != nil {
		t.Fatalf("GetReview after update: %v", err)
	}
	if rv.Sentiment == nil || *rv.Sentiment != "POSITIVE" || rv.Confidence == nil || *rv.Confidence != 0.97 {
		t.Fatalf("annotation not persisted: %+v", rv)
	}

	// repeating the identical write is a no-op, not a NotFound
	// (MySQL reports 0 changed rows for it)
	if err := repo.UpdateAnnotation(ctx, id, "POSITIVE", 0.97); err != nil {
		t.Fatalf("idempotent UpdateAnnotation: %v", err)
	}

	// the annotated record drops out of the scan
	scanned = scanned[:0]
	if err := repo.ScanUnannotated(ctx, func(r domain.Review) error {
		scanned = append(scanned, r.ID)
		return nil
	}); err != nil {
		t.Fatalf("ScanUnannotated after update: %v", err)
	}
	if len(scanned) != 1 || scanned[0] != "000000000000000000000002" {
		t.Fatalf("expected only the second review pending, got %v", scanned)
	}
}

func TestRepo_MySQL_NotFound(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	missing := domain.ReviewID("0000000000000000000000ff")

	if _, err := repo.GetReview(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetReview: expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateAnnotation(ctx, missing, "POSITIVE", 0.9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateAnnotation: expected ErrNotFound, got %v", err)
	}
}
