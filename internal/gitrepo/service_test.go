package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"binder/api/internal/outline"
)

func strPtr(s string) *string { return &s }

func baseline() []outline.Record {
	return []outline.Record{
		{ID: "root", Name: "Handbook", Order: 0, Level: 0},
		{ID: "a", Name: "Intro", Order: 0, Level: 1, ParentID: strPtr("root")},
		{ID: "b", Name: "Setup", Order: 1, Level: 1, ParentID: strPtr("root")},
	}
}

func TestOutlineRepoLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	if err := svc.EnsureOutlineRepo("doc-1", baseline(), "Avery"); err != nil {
		t.Fatalf("EnsureOutlineRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "doc-1", outlineFile)); err != nil {
		t.Fatalf("outline file missing: %v", err)
	}

	swapped := baseline()
	swapped[1].Order, swapped[2].Order = 1, 0
	commit, err := svc.CommitOutline("doc-1", swapped, "Avery", "Resequence 2 nodes")
	if err != nil {
		t.Fatalf("CommitOutline() error = %v", err)
	}
	if commit.Hash == "" || commit.Author != "Avery" {
		t.Fatalf("unexpected commit: %+v", commit)
	}

	history, err := svc.History("doc-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Hash != commit.Hash {
		t.Fatalf("history not newest first: %+v", history)
	}

	records, info, err := svc.GetOutlineByHash("doc-1", commit.Hash)
	if err != nil {
		t.Fatalf("GetOutlineByHash() error = %v", err)
	}
	if info.Hash != commit.Hash {
		t.Fatalf("GetOutlineByHash() hash = %s, want %s", info.Hash, commit.Hash)
	}
	if len(records) != 3 || records[1].Order != 1 || records[2].Order != 0 {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[1].ParentID == nil || *records[1].ParentID != "root" {
		t.Fatalf("parent lost in round trip: %+v", records[1])
	}

	older, _, err := svc.GetOutlineByHash("doc-1", history[1].Hash)
	if err != nil {
		t.Fatalf("GetOutlineByHash(baseline) error = %v", err)
	}
	if older[1].Order != 0 {
		t.Fatalf("baseline changed: %+v", older)
	}
}

func TestEnsureOutlineRepoIsIdempotent(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureOutlineRepo("doc-1", baseline(), "Avery"); err != nil {
		t.Fatalf("EnsureOutlineRepo() error = %v", err)
	}
	if err := svc.EnsureOutlineRepo("doc-1", nil, "Jamie"); err != nil {
		t.Fatalf("EnsureOutlineRepo() second call error = %v", err)
	}
	history, err := svc.History("doc-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Author != "Avery" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestCommitOutlineWithoutChangesReturnsHead(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureOutlineRepo("doc-1", baseline(), "Avery"); err != nil {
		t.Fatalf("EnsureOutlineRepo() error = %v", err)
	}
	history, _ := svc.History("doc-1", 0)

	commit, err := svc.CommitOutline("doc-1", baseline(), "Avery", "Nothing")
	if err != nil {
		t.Fatalf("CommitOutline() error = %v", err)
	}
	if commit.Hash != history[0].Hash {
		t.Fatalf("expected head %s, got %s", history[0].Hash, commit.Hash)
	}
	after, _ := svc.History("doc-1", 0)
	if len(after) != 1 {
		t.Fatalf("expected no new commit, got %d entries", len(after))
	}
}

func TestHistoryMissingRepo(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.History("missing", 10); err == nil {
		t.Fatal("expected error for missing repository")
	}
}

func TestDiffRecords(t *testing.T) {
	from := baseline()
	to := baseline()
	to[2].ParentID = strPtr("a")
	to[2].Level = 2
	to[2].Order = 0
	to = append(to, outline.Record{ID: "c", Name: "New", Order: 1, Level: 1, ParentID: strPtr("root")})

	got := DiffRecords(from, to)
	if strings.Join(got, ",") != "b,c" {
		t.Fatalf("DiffRecords() = %v, want [b c]", got)
	}
	if HasChanges(from, baseline()) {
		t.Fatal("expected no changes for identical records")
	}
	if got := DiffRecords(to, from); strings.Join(got, ",") != "b,c" {
		t.Fatalf("DiffRecords(reversed) = %v, want [b c]", got)
	}
}

func TestSanitizeEmail(t *testing.T) {
	cases := map[string]string{
		"Avery Quinn": "Avery.Quinn",
		"jamie_o-k":   "jamie.o.k",
		"!!!":         "user",
	}
	for input, want := range cases {
		if got := sanitizeEmail(input); got != want {
			t.Errorf("sanitizeEmail(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestConcurrentCommitOutline(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureOutlineRepo("doc-1", baseline(), "Avery"); err != nil {
		t.Fatalf("EnsureOutlineRepo() error = %v", err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := baseline()
			next[1].Name = fmt.Sprintf("intro-%02d", idx)
			if _, err := svc.CommitOutline("doc-1", next, "Avery", fmt.Sprintf("Commit %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("CommitOutline() concurrent error = %v", err)
		}
	}

	history, err := svc.History("doc-1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers+1 {
		t.Fatalf("expected %d commits in history, got %d", writers+1, len(history))
	}

	records, _, err := svc.GetOutlineByHash("doc-1", history[0].Hash)
	if err != nil {
		t.Fatalf("GetOutlineByHash() error = %v", err)
	}
	if !strings.HasPrefix(records[1].Name, "intro-") {
		t.Fatalf("unexpected head outline after concurrent commits: %+v", records)
	}
}
