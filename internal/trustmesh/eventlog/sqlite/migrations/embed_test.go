package migrations

import (
	"io/fs"
	"sort"
	"strings"
	"testing"
)

func TestLogMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(FS, "log")
	if err != nil {
		t.Fatalf("read log migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected embedded migrations")
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			t.Fatalf("unexpected file %s", entry.Name())
		}
		names = append(names, entry.Name())
	}
	if !sort.StringsAreSorted(names) {
		t.Fatalf("migrations not in lexical order: %v", names)
	}
	if names[0] != "0001_events.sql" {
		t.Fatalf("first migration = %s", names[0])
	}
}
