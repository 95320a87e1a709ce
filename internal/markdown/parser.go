// Package markdown turns help pages into HTML along with the metadata the
// help index and the page outline are built from.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/frontmatter"
)

// Meta is the frontmatter a help page may carry.
type Meta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
}

// Heading is a second-level section of a page, used for its outline.
type Heading struct {
	ID   string
	Text string
}

// Document is a parsed help page.
type Document struct {
	Meta    Meta
	HTML    []byte
	Outline []Heading
}

// Parser renders help pages. Raw HTML in the source is dropped, and links
// to sibling pages ("evidence.md#formats") are rewritten to where they are
// served (linkBase + "/evidence#formats").
type Parser struct {
	md goldmark.Markdown
}

func NewParser(linkBase string) *Parser {
	links := pageLinks{base: strings.TrimSuffix(linkBase, "/")}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(links, 100)),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
		),
	)

	return &Parser{md: md}
}

func (p *Parser) Parse(source []byte) (*Document, error) {
	ctx := parser.NewContext()
	root := p.md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))

	doc := &Document{Outline: outline(root, source)}

	if data := frontmatter.Get(ctx); data != nil {
		err := data.Decode(&doc.Meta)
		if err != nil {
			return nil, fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	var buf bytes.Buffer
	err := p.md.Renderer().Render(&buf, source, root)
	if err != nil {
		return nil, err
	}
	doc.HTML = buf.Bytes()

	return doc, nil
}

type pageLinks struct {
	base string
}

func (l pageLinks) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		link, ok := n.(*ast.Link)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}

		page, fragment, hasFragment := strings.Cut(string(link.Destination), "#")
		if !strings.HasSuffix(page, ".md") || strings.ContainsAny(page, ":/") {
			return ast.WalkContinue, nil
		}

		dest := l.base + "/" + strings.TrimSuffix(page, ".md")
		if hasFragment {
			dest += "#" + fragment
		}
		link.Destination = []byte(dest)
		return ast.WalkContinue, nil
	})
}

func outline(root ast.Node, source []byte) []Heading {
	var headings []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		if h.Level == 2 {
			id, _ := h.AttributeString("id")
			idBytes, _ := id.([]byte)
			headings = append(headings, Heading{ID: string(idBytes), Text: plainText(h, source)})
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
