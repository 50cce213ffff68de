// Package gitsel selects the set of Python files a scan should cover,
// either by walking the target directory or by asking git which files
// changed.
package gitsel

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/FanZDStar/oss-2025/internal/errors"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

// Mode chooses how the file set is built.
type Mode int

const (
	// ModeAll walks the target directory.
	ModeAll Mode = iota
	// ModeWorkingTree selects uncommitted changes (staged, unstaged
	// and untracked files).
	ModeWorkingTree
	// ModeSince selects files that differ between a git reference and
	// the working tree.
	ModeSince
)

// Selector resolves scan targets to concrete file lists.
type Selector struct {
	Root     string
	Excludes []string
	// FallbackToAll makes change-based modes degrade to a full walk
	// when the target is not a git repository.
	FallbackToAll bool

	log *logrus.Logger
}

func New(root string, excludes []string, fallbackToAll bool, log *logrus.Logger) *Selector {
	return &Selector{Root: root, Excludes: excludes, FallbackToAll: fallbackToAll, log: log}
}

// Select returns the sorted, deduplicated list of Python files for the
// given mode. ref is only consulted in ModeSince.
func (s *Selector) Select(mode Mode, ref string) ([]string, error) {
	switch mode {
	case ModeAll:
		return s.walkAll()
	case ModeWorkingTree, ModeSince:
		top, err := s.repoTopLevel()
		if err != nil {
			if s.FallbackToAll {
				if s.log != nil {
					s.log.WithField("root", s.Root).
						Warn("not a git repository, scanning all files")
				}
				return s.walkAll()
			}
			return nil, err
		}
		if mode == ModeSince {
			return s.sinceRef(ref, top)
		}
		return s.workingTree(top)
	default:
		return nil, errors.SelectorError(nil, "unknown selection mode")
	}
}

// repoTopLevel resolves the repository root. Git reports changed files
// relative to the toplevel, not to the directory the command ran in.
func (s *Selector) repoTopLevel() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = s.Root
	output, err := cmd.Output()
	if err != nil {
		return "", errors.SelectorError(err, "not a git repository")
	}
	return filepath.Clean(strings.TrimSpace(string(output))), nil
}

// workingTree unions unstaged, staged and untracked files.
func (s *Selector) workingTree(top string) ([]string, error) {
	set := map[string]bool{}

	for _, args := range [][]string{
		{"diff", "--name-only", "--diff-filter=ACMR"},
		{"diff", "--cached", "--name-only", "--diff-filter=ACMR"},
		{"ls-files", "--others", "--exclude-standard"},
	} {
		files, err := s.gitLines(top, args...)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			set[f] = true
		}
	}

	return s.finish(set, top), nil
}

// sinceRef lists files that differ between ref and the working tree.
func (s *Selector) sinceRef(ref, top string) ([]string, error) {
	verify := exec.Command("git", "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	verify.Dir = s.Root
	if err := verify.Run(); err != nil {
		return nil, errors.InvalidReference(ref)
	}

	files, err := s.gitLines(top, "diff", "--name-only", "--diff-filter=ACMR", ref, "--")
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}
	for _, f := range files {
		set[f] = true
	}
	return s.finish(set, top), nil
}

// gitLines runs a git listing command from the repo toplevel so every
// reported path is toplevel-relative (ls-files output is cwd-relative).
func (s *Selector) gitLines(dir string, args ...string) ([]string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, errors.SelectorError(err, "git "+strings.Join(args, " "))
	}

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// finish maps toplevel-relative git output to existing, non-excluded
// Python files under the scan root and returns sorted absolute paths.
// Files changed elsewhere in the repository are dropped.
func (s *Selector) finish(set map[string]bool, top string) []string {
	root := s.Root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	var files []string
	for topRel := range set {
		abs := filepath.Join(top, filepath.FromSlash(topRel))
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if !parser.Supported(abs) || s.excluded(rel) {
			continue
		}
		if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
			// deleted since the diff was taken
			continue
		}
		files = append(files, abs)
	}
	sort.Strings(files)
	return files
}

// walkAll traverses the root directory collecting Python files.
func (s *Selector) walkAll() ([]string, error) {
	info, err := os.Stat(s.Root)
	if err != nil {
		return nil, errors.SelectorError(err, "target does not exist")
	}
	if !info.IsDir() {
		if parser.Supported(s.Root) {
			return []string{s.Root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if s.log != nil {
				s.log.WithError(err).WithField("path", path).Warn("skipping unreadable path")
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(s.Root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path != s.Root && (isHiddenDir(d.Name()) || s.excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.Supported(path) && !s.excluded(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.SelectorError(err, "directory walk failed")
	}
	sort.Strings(files)
	return files, nil
}

// excluded matches the relative path and each of its segments against
// the configured exclude patterns.
func (s *Selector) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range s.Excludes {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		for _, seg := range strings.Split(rel, "/") {
			if ok, _ := filepath.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}

func isHiddenDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// ReadBlob returns the contents of path as stored at ref. Used to show
// what changed when reporting on a revision range.
func (s *Selector) ReadBlob(ref, rel string) ([]byte, error) {
	cmd := exec.Command("git", "show", ref+":"+filepath.ToSlash(rel))
	cmd.Dir = s.Root
	output, err := cmd.Output()
	if err != nil {
		return nil, errors.SelectorError(err, "git show "+ref+":"+rel)
	}
	return output, nil
}
