package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// PageChunk is one retrievable section of a plan page.
type PageChunk struct {
	Index     int    // Position in the page (0, 1, 2...)
	Header    string // Section heading text, empty for a header-less page
	AnchorID  string // Auto-generated heading anchor, empty for a header-less page
	ChunkType string // "overview", "faq", or "section"
	Content   string // Section markdown, heading line included
}

// Page is a chunked plan page with the anchor ids shared by all its chunks.
type Page struct {
	SectionIDs []string
	Chunks     []PageChunk
}

// PageChunker splits plan pages at heading boundaries. The first section of a
// page is its overview; sections titled as FAQs are tagged so the reranker
// can treat them differently.
type PageChunker struct {
	parser goldmark.Markdown
}

// NewPageChunker creates a chunker configured with a goldmark parser that
// auto-generates heading ids, matching the anchor ids on the rendered pages.
func NewPageChunker() *PageChunker {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &PageChunker{
		parser: md,
	}
}

// ChunkPage splits a page at H1 and H2 boundaries. Pages without headings
// become a single overview chunk with no anchor.
func (c *PageChunker) ChunkPage(source []byte) (*Page, error) {
	reader := text.NewReader(source)
	doc := c.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	sections := flattenItems(tree.Items)
	if len(sections) == 0 {
		return &Page{
			Chunks: []PageChunk{
				{
					Index:     0,
					ChunkType: "overview",
					Content:   strings.TrimSpace(string(source)),
				},
			},
		}, nil
	}

	page := &Page{}
	for i, item := range sections {
		header := findHeadingByID(doc, string(item.ID))
		if header == nil {
			continue
		}

		start := lineStart(source, header.Lines().At(0).Start)
		end := len(source)
		if i+1 < len(sections) {
			if next := findHeadingByID(doc, string(sections[i+1].ID)); next != nil {
				end = lineStart(source, next.Lines().At(0).Start)
			}
		}

		title := string(item.Title)
		chunk := PageChunk{
			Index:     len(page.Chunks),
			Header:    title,
			AnchorID:  string(item.ID),
			ChunkType: classifySection(len(page.Chunks), title),
			Content:   strings.TrimSpace(string(source[start:end])),
		}
		page.Chunks = append(page.Chunks, chunk)
		page.SectionIDs = append(page.SectionIDs, chunk.AnchorID)
	}

	return page, nil
}

// classifySection tags the first section of a page as its overview and
// FAQ-titled sections as faq.
func classifySection(index int, title string) string {
	titleLower := strings.ToLower(title)
	if strings.Contains(titleLower, "faq") || strings.Contains(titleLower, "frequently asked") {
		return "faq"
	}
	if index == 0 {
		return "overview"
	}
	return "section"
}

// flattenItems walks the TOC tree into document order, depth first.
func flattenItems(items toc.Items) []*toc.Item {
	var flat []*toc.Item
	for _, item := range items {
		flat = append(flat, item)
		flat = append(flat, flattenItems(item.Items)...)
	}
	return flat
}

// lineStart walks back from pos to the start of its line, so a chunk begins
// at the heading marker rather than the heading text.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

// findHeadingByID locates a heading node by its auto-generated id.
func findHeadingByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}
