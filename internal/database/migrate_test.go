package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(MigrationFS, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations embedded")
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(MigrationFS, down); err != nil {
			t.Errorf("%s has no matching %s", up, down)
		}
	}
}

func TestSessionsCascadeWithUsers(t *testing.T) {
	data, err := fs.ReadFile(MigrationFS, "migrations/000002_create_sessions.up.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "ON DELETE CASCADE") {
		t.Fatal("sessions must be removed together with their user")
	}
}

func TestMigrateRejectsBadInput(t *testing.T) {
	if err := Migrate("", MigrateUp); err == nil {
		t.Error("empty dsn accepted")
	}
	if err := Migrate("postgres://localhost/auth", "sideways"); err == nil {
		t.Error("unknown direction accepted")
	}
}
