package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"garland/internal/importer"
	"garland/internal/services"
)

func writeEmptyPlan(t *testing.T) string {
	t.Helper()

	plan := importer.NewPlan(&importer.Batch{
		ID:     "batch-test",
		UserID: "user-1",
		Candidates: []importer.Candidate{
			{Row: importer.Row{Index: 0, Title: "Unknown Movie"}, Status: importer.StatusUnmatched},
		},
	})
	path := filepath.Join(t.TempDir(), "plan.json")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	defer file.Close()
	if err := importer.WritePlan(file, plan); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestImportCommitSkipsUnselectedRows(t *testing.T) {
	configPath := writeTestConfig(t)
	planPath := writeEmptyPlan(t)

	out, _, err := runCLI(t, []string{"import", "commit", planPath}, configPath)
	if err != nil {
		t.Fatalf("import commit: %v", err)
	}
	requireContains(t, out, "Imported 0, failed 0, skipped 1")
}

func TestImportCommitMissingPlanReportsNotFound(t *testing.T) {
	configPath := writeTestConfig(t)
	planPath := filepath.Join(t.TempDir(), "missing.json")

	_, _, err := runCLI(t, []string{"import", "commit", planPath}, configPath)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestImportCommitRejectsWrongUser(t *testing.T) {
	configPath := writeTestConfig(t)
	planPath := writeEmptyPlan(t)

	_, _, err := runCLI(t, []string{"import", "commit", planPath, "--user", "someone-else"}, configPath)
	if err == nil {
		t.Fatal("expected error for mismatched plan owner")
	}
}

func TestImportScanRequiresUserFlag(t *testing.T) {
	configPath := writeTestConfig(t)
	csvPath := filepath.Join(t.TempDir(), "movies.csv")
	if err := os.WriteFile(csvPath, []byte("Title\nElf\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, _, err := runCLI(t, []string{"import", "scan", csvPath}, configPath); err == nil {
		t.Fatal("expected error when --user is missing")
	}
}
