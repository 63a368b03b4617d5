package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/vaultlens/vaultlens/pkg/types"
)

// frontMatter holds the YAML header fields the parser understands.
// Unknown fields are ignored.
type frontMatter struct {
	Title   string      `yaml:"title"`
	Tags    interface{} `yaml:"tags"`
	Aliases []string    `yaml:"aliases"`
}

var (
	frontMatterDelim = []byte("---")
	wikilinkPattern  = regexp.MustCompile(`\[\[([^\]|]+)(\|[^\]]+)?\]\]`)
	inlineTagPattern = regexp.MustCompile(`(^|\s)#([\p{L}\p{N}/_-]+)`)
)

// Parser converts raw Markdown note bytes into Documents.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a Markdown note parser.
func NewParser() *Parser {
	return &Parser{md: goldmark.New()}
}

// Parse builds a Document from raw file bytes. relPath is the vault-relative
// path used as the stable document identifier.
func (p *Parser) Parse(relPath string, raw []byte) (*types.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("parse %s: empty note", relPath)
	}

	hash := sha256.Sum256(raw)

	fm, body := splitFrontMatter(raw)

	var meta frontMatter
	if len(fm) > 0 {
		// Malformed front matter is not fatal; the body still indexes.
		_ = yaml.Unmarshal(fm, &meta)
	}

	// Wikilinks keep their display text so the link target stays searchable.
	body = wikilinkPattern.ReplaceAll(body, []byte("$1"))

	content, err := p.renderPlainText(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}

	title := meta.Title
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = titleFromPath(relPath)
	}

	tags := collectTags(meta.Tags, body)

	return &types.Document{
		Path:        relPath,
		Title:       title,
		Content:     content,
		Tags:        tags,
		WordCount:   len(strings.Fields(content)),
		ContentHash: hex.EncodeToString(hash[:]),
		Encoded:     true,
	}, nil
}

// renderPlainText walks the goldmark AST and collects text content,
// dropping Markdown syntax, code fences kept as-is.
func (p *Parser) renderPlainText(body []byte) (string, error) {
	reader := text.NewReader(body)
	root := p.md.Parser().Parse(reader)

	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(body))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			for i := 0; i < v.Lines().Len(); i++ {
				line := v.Lines().At(i)
				sb.Write(line.Value(body))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			for i := 0; i < v.Lines().Len(); i++ {
				line := v.Lines().At(i)
				sb.Write(line.Value(body))
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			sb.Write(v.URL(body))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return normalizeWhitespace(sb.String()), nil
}

// splitFrontMatter separates a leading YAML block from the note body.
func splitFrontMatter(raw []byte) (fm, body []byte) {
	if !bytes.HasPrefix(raw, frontMatterDelim) {
		return nil, raw
	}
	rest := raw[len(frontMatterDelim):]
	if len(rest) == 0 || (rest[0] != '\n' && !bytes.HasPrefix(rest, []byte("\r\n"))) {
		return nil, raw
	}
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, raw
	}
	fm = rest[:end]
	body = rest[end+len("\n---"):]
	// Drop the delimiter's trailing newline if present.
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))
	return fm, body
}

// collectTags merges front-matter tags with inline #tags, unique and in
// first-occurrence order.
func collectTags(metaTags interface{}, body []byte) []string {
	seen := make(map[string]bool)
	tags := make([]string, 0, 4)

	add := func(tag string) {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	switch v := metaTags.(type) {
	case string:
		for _, t := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			add(t)
		}
	case []interface{}:
		for _, t := range v {
			if s, ok := t.(string); ok {
				add(s)
			}
		}
	}

	for _, m := range inlineTagPattern.FindAllSubmatch(body, -1) {
		add(string(m[2]))
	}

	return tags
}

// firstHeading returns the text of the first ATX heading in the body.
func firstHeading(body []byte) string {
	for _, line := range bytes.Split(body, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("#")) {
			return string(bytes.TrimSpace(bytes.TrimLeft(trimmed, "#")))
		}
	}
	return ""
}

// titleFromPath derives a title from the file name.
func titleFromPath(relPath string) string {
	base := relPath
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// normalizeWhitespace collapses runs of blank lines and trims the result.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
