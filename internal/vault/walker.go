package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/pkg/types"
)

// WalkOptions controls vault discovery.
type WalkOptions struct {
	ExcludedDirs   []string // directory names skipped anywhere in the tree
	ExcludedFiles  []string // file names skipped
	FileExtensions []string // default: .md
	IncludeFolders []string // when non-empty, only these top-level folders
	ExcludeFolders []string // vault-relative folder prefixes to skip
}

// DefaultWalkOptions returns the conventional Obsidian exclusions.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		ExcludedDirs:   []string{".obsidian", ".trash", ".git", "templates"},
		FileExtensions: []string{".md"},
	}
}

// Walker discovers and parses every note in a vault directory tree.
type Walker struct {
	parser *Parser
	logger *zap.Logger
}

// NewWalker creates a vault walker.
func NewWalker(logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{parser: NewParser(), logger: logger}
}

// Walk parses every matching note under root. Malformed notes are logged
// and skipped; the walk continues and the skip count is returned.
// Results are ordered by path so the document list is deterministic.
func (w *Walker) Walk(root string, opts WalkOptions) ([]*types.Document, int, error) {
	if len(opts.FileExtensions) == 0 {
		opts.FileExtensions = []string{".md"}
	}

	var docs []*types.Document
	skipped := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walk error", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || contains(opts.ExcludedDirs, d.Name()) {
				return filepath.SkipDir
			}
			if folderExcluded(rel, opts, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if contains(opts.ExcludedFiles, d.Name()) {
			return nil
		}
		if !hasExtension(d.Name(), opts.FileExtensions) {
			return nil
		}
		if folderExcluded(rel, opts, false) {
			return nil
		}

		doc, parseErr := w.parseFile(path, rel)
		if parseErr != nil {
			w.logger.Warn("skipping malformed note", zap.String("path", rel), zap.Error(parseErr))
			skipped++
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, skipped, nil
}

func (w *Walker) parseFile(absPath, relPath string) (*types.Document, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}

	doc, err := w.parser.Parse(relPath, raw)
	if err != nil {
		return nil, err
	}
	doc.ModTime = info.ModTime()
	doc.SizeBytes = info.Size()
	return doc, nil
}

// folderExcluded applies include/exclude folder filters to a vault-relative
// path. Directories are kept while they could still contain an included
// folder deeper in the tree.
func folderExcluded(rel string, opts WalkOptions, isDir bool) bool {
	for _, ex := range opts.ExcludeFolders {
		ex = strings.Trim(ex, "/")
		if ex != "" && (rel == ex || strings.HasPrefix(rel, ex+"/")) {
			return true
		}
	}
	if len(opts.IncludeFolders) == 0 {
		return false
	}
	for _, in := range opts.IncludeFolders {
		in = strings.Trim(in, "/")
		if in == "" {
			continue
		}
		if rel == in || strings.HasPrefix(rel, in+"/") {
			return false
		}
		if isDir && strings.HasPrefix(in, rel+"/") {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
