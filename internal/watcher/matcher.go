package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Matcher decides which files under a root are watched, using glob
// patterns relative to the root.
type Matcher struct {
	rootDir        string
	patterns       []compiledPattern
	ignorePatterns []compiledPattern
}

// NewMatcher compiles watch and ignore patterns for rootDir.
func NewMatcher(rootDir string, patterns, ignorePatterns []string) (*Matcher, error) {
	m := &Matcher{
		rootDir: rootDir,
	}

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, compiledPattern{pattern: pattern, glob: g})
	}

	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		m.ignorePatterns = append(m.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return m, nil
}

// Root returns the directory patterns are relative to.
func (m *Matcher) Root() string {
	return m.rootDir
}

// Match reports whether the file at path is watched.
func (m *Matcher) Match(path string) bool {
	relPath, ok := m.rel(path)
	if !ok || m.shouldIgnore(relPath) {
		return false
	}
	return matchesAnyPattern(relPath, m.patterns)
}

// SkipDir reports whether the directory at path is ignored entirely.
func (m *Matcher) SkipDir(path string) bool {
	relPath, ok := m.rel(path)
	if !ok || relPath == "." {
		return false
	}
	return m.shouldIgnore(relPath)
}

// Discover walks the root and returns every watched file.
func (m *Matcher) Discover() ([]string, error) {
	files := []string{}

	err := filepath.Walk(m.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if m.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if m.Match(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// rel returns path relative to the root with forward slashes.
func (m *Matcher) rel(path string) (string, bool) {
	relPath, err := filepath.Rel(m.rootDir, path)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(relPath), true
}

// shouldIgnore checks if a path matches any ignore pattern.
func (m *Matcher) shouldIgnore(relPath string) bool {
	// Always ignore the configuration directory
	if strings.HasPrefix(relPath, ".gams-ide/") || relPath == ".gams-ide" {
		return true
	}

	if matchesAnyPattern(relPath, m.ignorePatterns) {
		return true
	}

	// A directory matches its "dir/**" pattern
	return matchesAnyPattern(relPath+"/**", m.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Files in the root also match "**/" patterns, so "**/*.lst" matches
	// both "model.lst" and "out/model.lst".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}
