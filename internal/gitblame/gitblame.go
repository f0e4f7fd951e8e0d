// Package gitblame implements the Git Blame Cache (spec.md §4.3 component
// E): per-line (author, timestamp) lookup batched into one `git blame`
// invocation per file, memoized for the process lifetime. The batching
// and blame-invocation idiom is adapted from the android-translations
// example's getLastModifiedTime (a shell `git blame -p -L a,+b | grep
// committer-time` pipeline); here the porcelain output is parsed directly
// in Go instead of shelling out to grep/awk, and exec.CommandContext
// (the HelixCode idiom for subprocess calls) threads cancellation through.
package gitblame

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/algebras-go/algebras/internal/errs"
	"github.com/algebras-go/algebras/internal/logging"
)

// BlameInfo is one line's git-blame result.
type BlameInfo struct {
	Author string
	When   time.Time
}

// Cache memoizes git blame results per file for the lifetime of the
// process (spec.md §4.3), since the Diff Engine may query the same
// file's blame for several candidate keys across a run.
type Cache struct {
	mu   sync.Mutex
	data map[string]map[int]BlameInfo
}

func NewCache() *Cache {
	return &Cache{data: make(map[string]map[int]BlameInfo)}
}

// Lines returns blame info for the requested line numbers in path,
// fetching any not already cached with a single batched `git blame`
// invocation covering every missing line as consecutive -L ranges.
// A git failure degrades to errs.KindGitUnavailable (spec.md §4.3: "a
// git error degrades to 'cannot determine outdated' for that key, not a
// fatal error") — callers should treat that Kind as "no blame data" and
// keep going, not abort the run.
func (c *Cache) Lines(ctx context.Context, path string, lineNumbers []int) (map[int]BlameInfo, error) {
	if len(lineNumbers) == 0 {
		return map[int]BlameInfo{}, nil
	}

	c.mu.Lock()
	cached := c.data[path]
	if cached == nil {
		cached = make(map[int]BlameInfo)
		c.data[path] = cached
	}
	var missing []int
	for _, l := range lineNumbers {
		if _, ok := cached[l]; !ok {
			missing = append(missing, l)
		}
	}
	c.mu.Unlock()

	if len(missing) > 0 {
		fetched, err := runBlame(ctx, path, missing)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		for line, info := range fetched {
			cached[line] = info
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]BlameInfo, len(lineNumbers))
	for _, l := range lineNumbers {
		if info, ok := cached[l]; ok {
			out[l] = info
		}
	}
	return out, nil
}

// InWorkTree reports whether dir sits inside a git work tree, per spec.md
// §4.3's "if check_git_outdated and the file is inside a git work tree"
// guard.
func InWorkTree(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// runBlame invokes one `git blame --porcelain -L a,b [-L c,d ...]` call
// covering every line in lineNumbers, grouped into consecutive ranges so
// adjacent candidate keys share a single -L flag (spec.md §4.3: "batch a
// single git blame -L invocation per file covering consecutive line
// ranges").
func runBlame(ctx context.Context, path string, lineNumbers []int) (map[int]BlameInfo, error) {
	sorted := append([]int(nil), lineNumbers...)
	sort.Ints(sorted)

	args := []string{"blame", "--porcelain"}
	for _, r := range consecutiveRanges(sorted) {
		args = append(args, "-L", fmt.Sprintf("%d,%d", r[0], r[1]))
	}
	args = append(args, "--", filepath.Base(path))

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = filepath.Dir(path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		wrapped := logging.Wrap(err, fmt.Sprintf("git blame: %s", strings.TrimSpace(stderr.String())))
		return nil, errs.New(errs.KindGitUnavailable, path, wrapped)
	}
	return parsePorcelain(stdout.Bytes())
}

// consecutiveRanges groups sorted line numbers into inclusive [start,end]
// runs of consecutive integers.
func consecutiveRanges(sorted []int) [][2]int {
	var out [][2]int
	for i := 0; i < len(sorted); {
		start, end := sorted[i], sorted[i]
		j := i + 1
		for j < len(sorted) && sorted[j] == end+1 {
			end = sorted[j]
			j++
		}
		out = append(out, [2]int{start, end})
		i = j
	}
	return out
}

// parsePorcelain extracts (line number -> author, author-time) from
// `git blame --porcelain` output. A commit's full header/metadata block
// is only emitted the first time that commit is seen; every following
// content line ("\t...") belongs to whichever commit header most recently
// preceded it, so we track the most recent author/time and attach it to
// each content line as it arrives.
func parsePorcelain(data []byte) (map[int]BlameInfo, error) {
	out := make(map[int]BlameInfo)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var curLine int
	var curAuthor string
	var curTime time.Time
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case len(line) > 0 && line[0] == '\t':
			out[curLine] = BlameInfo{Author: curAuthor, When: curTime}
		case strings.HasPrefix(line, "author "):
			curAuthor = strings.TrimPrefix(line, "author ")
		case strings.HasPrefix(line, "author-time "):
			if ts, err := strconv.ParseInt(strings.TrimPrefix(line, "author-time "), 10, 64); err == nil {
				curTime = time.Unix(ts, 0).UTC()
			}
		default:
			fields := strings.Fields(line)
			if len(fields) >= 3 && looksLikeSHA(fields[0]) {
				if n, err := strconv.Atoi(fields[2]); err == nil {
					curLine = n
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func looksLikeSHA(s string) bool {
	if len(s) < 4 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
