package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"library-service/backend/internal/db"
)

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
		err  bool
	}{
		{"up", Up, false},
		{"DOWN", Down, false},
		{" up ", Up, false},
		{"", "", true},
		{"sideways", "", true},
	}
	for _, tc := range cases {
		got, err := ParseDirection(tc.in)
		if (err != nil) != tc.err || got != tc.want {
			t.Errorf("ParseDirection(%q) = (%q, %v), want (%q, err=%v)", tc.in, got, err, tc.want, tc.err)
		}
	}
}

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, Up)
		if err == nil {
			t.Fatalf("Run(%q) should return error", dsn)
		}
		if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
			t.Errorf("error = %q, want DATABASE_URL message", err.Error())
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	err := Run("postgres://localhost/test", Direction("left"))
	if err == nil || !strings.Contains(err.Error(), "direction must be up or down") {
		t.Errorf("Run invalid direction: got %v", err)
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "://localhost/test", "postgres://localhost with spaces/test"} {
		if err := Run(dsn, Up); err == nil {
			t.Errorf("Run(%q) should return error", dsn)
		}
	}
}

func TestMigrationFS_PairsUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
}
