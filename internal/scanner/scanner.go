// Package scanner finds C source files in a directory tree. It respects
// .cfcignore files with gitignore-style patterns.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string // Relative path from root, slash separated
	FullPath string // Absolute path
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	DefaultExcludes []string // Directory names that are never entered
	IgnoreFileName  string   // Name of the ignore file (default: .cfcignore)
	Extensions      []string // File extensions to report (default: .c)
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		IgnoreFileName: ".cfcignore",
		Extensions:     []string{".c"},
		DefaultExcludes: []string{
			".git",
			".hg",
			".svn",
			"CVS",
			"build",
			"cmake-build-debug",
			"cmake-build-release",
			"vendor",
			"third_party",
			"node_modules",
			"dist",
			"out",
			"bin",
			"obj",
			".idea",
			".vscode",
		},
	}
}

// matcher applies one ignore file to paths below its directory.
type matcher struct {
	base string // slash separated directory relative to root, "" for root
	gi   *ignore.GitIgnore
}

func (m matcher) matches(rel string, isDir bool) bool {
	if m.base != "" {
		if !strings.HasPrefix(rel, m.base+"/") {
			return false
		}
		rel = strings.TrimPrefix(rel, m.base+"/")
	}
	if isDir {
		rel += "/"
	}
	return m.gi.MatchesPath(rel)
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = ".cfcignore"
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".c"}
	}
	return &Scanner{opts: opts}
}

// Scan recursively scans the directory at root and returns the matching
// files sorted by relative path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("reading root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var matchers []matcher
	if m, err := s.loadIgnore(absRoot, ""); err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	} else if m != nil {
		matchers = append(matchers, *m)
	}

	var files []FileInfo

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		rel := filepath.ToSlash(relPath)

		if s.opts.SkipHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if s.isDefaultExcluded(info.Name()) || ignored(matchers, rel, true) {
				return filepath.SkipDir
			}
			if m, err := s.loadIgnore(path, rel); err == nil && m != nil {
				matchers = append(matchers, *m)
			}
			return nil
		}

		if !info.Mode().IsRegular() || !s.wanted(info.Name()) || ignored(matchers, rel, false) {
			return nil
		}

		files = append(files, FileInfo{
			Path:     rel,
			FullPath: path,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func ignored(matchers []matcher, rel string, isDir bool) bool {
	for _, m := range matchers {
		if m.matches(rel, isDir) {
			return true
		}
	}
	return false
}

func (s *Scanner) wanted(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range s.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// isDefaultExcluded checks if the name matches default exclusion patterns.
func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// loadIgnore compiles the ignore file in dir, if there is one.
func (s *Scanner) loadIgnore(dir, rel string) (*matcher, error) {
	path := filepath.Join(dir, s.opts.IgnoreFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	return &matcher{base: rel, gi: gi}, nil
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}

// ScanWithOptions scans a directory with custom options.
func ScanWithOptions(root string, opts Options) ([]FileInfo, error) {
	return New(opts).Scan(root)
}
