package main

import (
	"testing"

	"github.com/starkeep/starkeep/migrations"
)

func TestApplyOrder_embeddedMigrations(t *testing.T) {
	files, err := applyOrder(migrations.Files)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no embedded migrations found")
	}
	if files[0] != "001_blocks.up.sql" {
		t.Errorf("first migration: got %q, want 001_blocks.up.sql", files[0])
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("migrations out of order: %q before %q", files[i-1], files[i])
		}
	}
	for _, f := range files {
		if _, err := versionFromFile(f); err != nil {
			t.Errorf("version from %s: %v", f, err)
		}
	}
}

func TestVersionFromFile(t *testing.T) {
	ver, err := versionFromFile("001_blocks.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if ver != 1 {
		t.Errorf("got %d, want 1", ver)
	}

	if _, err := versionFromFile("no-prefix.sql"); err == nil {
		t.Error("filename without a numeric prefix must be rejected")
	}
}
