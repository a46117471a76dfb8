package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// CasesFromPaths builds profile-less cases, one per document found in args.
// Their verdicts report the record read from each document.
func CasesFromPaths(args []string, recursive bool, includePatterns, excludePatterns []string) ([]Case, error) {
	f := nameFilter{include: includePatterns, exclude: excludePatterns}
	files, err := f.discover(args, recursive)
	if err != nil {
		return nil, err
	}
	cases := make([]Case, len(files))
	for i, p := range files {
		cases[i] = Case{ID: p, Front: p}
	}
	return cases, nil
}

// nameFilter selects files by glob patterns on their base name. Exclusion
// wins; an empty include list accepts everything not excluded.
type nameFilter struct {
	include []string
	exclude []string
}

func (f nameFilter) accepts(path string) bool {
	base := filepath.Base(path)
	if matchAny(base, f.exclude) {
		return false
	}
	return len(f.include) == 0 || matchAny(base, f.include)
}

func matchAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// discover expands args into document paths in argument order, each path at
// most once. Files named explicitly skip the extension check; files found
// in directories must be images or PDFs.
func (f nameFilter) discover(args []string, recursive bool) ([]string, error) {
	var docs []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			docs = append(docs, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if f.accepts(arg) {
				add(filepath.Clean(arg))
			}
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && (!recursive || strings.HasPrefix(d.Name(), ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if isDocument(path) && f.accepts(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
	}
	return docs, nil
}

func isDocument(path string) bool {
	return utils.IsSupportedImage(path) || strings.EqualFold(filepath.Ext(path), ".pdf")
}
