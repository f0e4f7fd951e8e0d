package gitblame

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func initRepoWithFile(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")

	path = filepath.Join(dir, "strings.json")
	if err := os.WriteFile(path, []byte("line one\nline two\nline three\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	runGit(t, dir, "add", "strings.json")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	return dir, path
}

func TestInWorkTree(t *testing.T) {
	dir, _ := initRepoWithFile(t)
	if !InWorkTree(context.Background(), dir) {
		t.Fatalf("expected %s to be detected as a git work tree", dir)
	}
	if InWorkTree(context.Background(), t.TempDir()) {
		t.Fatalf("expected a fresh temp dir not to be a git work tree")
	}
}

func TestLinesReturnsBlameForEveryRequestedLine(t *testing.T) {
	_, path := initRepoWithFile(t)
	c := NewCache()
	info, err := c.Lines(context.Background(), path, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	for _, line := range []int{1, 2, 3} {
		got, ok := info[line]
		if !ok {
			t.Fatalf("missing blame info for line %d", line)
		}
		if got.Author != "Test" {
			t.Fatalf("line %d author = %q, want Test", line, got.Author)
		}
		if got.When.IsZero() {
			t.Fatalf("line %d has zero timestamp", line)
		}
	}
}

func TestLinesCachesAcrossCalls(t *testing.T) {
	_, path := initRepoWithFile(t)
	c := NewCache()
	if _, err := c.Lines(context.Background(), path, []int{1}); err != nil {
		t.Fatalf("first Lines: %v", err)
	}
	if len(c.data[path]) != 1 {
		t.Fatalf("expected 1 cached line, got %d", len(c.data[path]))
	}
	if _, err := c.Lines(context.Background(), path, []int{1, 2}); err != nil {
		t.Fatalf("second Lines: %v", err)
	}
	if len(c.data[path]) != 2 {
		t.Fatalf("expected 2 cached lines after second call, got %d", len(c.data[path]))
	}
}
