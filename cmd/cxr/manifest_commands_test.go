package main

import (
	"context"
	"path/filepath"
	"testing"

	"cxr/internal/labels"
	"cxr/internal/manifest"
)

func TestManifestCommandsOnEmptyJournal(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"manifest", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("manifest list: %v", err)
	}
	requireContains(t, out, "No journaled subjects")

	out, err = runCLI(t, []string{"manifest", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("manifest status: %v", err)
	}
	requireContains(t, out, "Total")
}

func TestManifestListShowsJournaledSubjects(t *testing.T) {
	env := setupCLITestEnv(t)

	journal, err := manifest.Open(filepath.Join(env.baseDir, "arrays"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	ctx := context.Background()
	rec := labels.Record{SubjectID: "subject-1", Target: 1}
	if err := journal.Enqueue(ctx, rec, labels.SplitTrain); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := journal.SetStatus(ctx, "subject-1", manifest.StatusFailed, "", "decode failed"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	out, err := runCLI(t, []string{"manifest", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("manifest list: %v", err)
	}
	requireContains(t, out, "subject-1")
	requireContains(t, out, "decode failed")

	out, err = runCLI(t, []string{"manifest", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("manifest clear: %v", err)
	}
	requireContains(t, out, "Journal cleared")

	out, err = runCLI(t, []string{"manifest", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("manifest list after clear: %v", err)
	}
	requireContains(t, out, "No journaled subjects")
}

func TestUnknownStatusRejected(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"manifest", "list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}
