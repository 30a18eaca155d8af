package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMigrationFileOrder(t *testing.T) {
	wantUp := []string{"migrations/001_maps.up.sql", "migrations/002_places.up.sql"}
	if diff := cmp.Diff(wantUp, upFiles()); diff != "" {
		t.Errorf("up order (-want +got):\n%s", diff)
	}
	wantDown := []string{"migrations/002_places.down.sql", "migrations/001_maps.down.sql"}
	if diff := cmp.Diff(wantDown, downFiles()); diff != "" {
		t.Errorf("down order (-want +got):\n%s", diff)
	}
}

func TestMigrationFilesExist(t *testing.T) {
	for _, f := range append(upFiles(), downFiles()...) {
		if _, err := os.Stat(filepath.Join("..", "..", f)); err != nil {
			t.Errorf("missing migration %s: %v", f, err)
		}
	}
}
