package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lectern.yaml")
	cfg := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "lectern.db") + "\n"
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDBCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Database management") {
		t.Errorf("expected help to mention 'Database management', got: %s", out)
	}
	for _, sub := range []string{"migrate", "seed"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestDBMigrateCmd(t *testing.T) {
	path := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "migrate", "--config", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db migrate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Migrated") {
		t.Errorf("output = %s, want migration report", buf.String())
	}
}

func TestDBSeedCmd(t *testing.T) {
	path := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "seed", "--config", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db seed failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Demo course seeded") {
		t.Errorf("output = %s, want seed confirmation", buf.String())
	}
}

func TestDBMigrateCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"db", "migrate", "--config", "does-not-exist.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("db migrate with missing config succeeded, want error")
	}
}
