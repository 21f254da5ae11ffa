package consistency

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// Claim sources
const (
	SourceDeclared = "declared"
	SourceContent  = "content"
)

// Claim is one numeric statement found in an artifact.
type Claim struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Source    string  `json:"source"`
}

var (
	assignmentPattern = regexp.MustCompile(`(?i)\b([a-z][a-z0-9_]*)\s*(?:=|:|≈|~)\s*(-?\d+(?:\.\d+)?(?:e[-+]?\d+)?)`)
	numberPattern     = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)
)

// ExtractClaims walks the markdown AST of content and returns "name = value"
// statements from paragraphs, list items and headings, plus two-column
// table rows of the form | name | value |. Only names in known are kept.
func ExtractClaims(content string, known map[string]bool) []Claim {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := markdown.Parse([]byte(content), p)

	var claims []Claim
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.TableRow:
			cells := n.GetChildren()
			if len(cells) < 2 {
				return ast.SkipChildren
			}
			name := normalizeName(collectText(cells[0]))
			if !known[name] {
				return ast.SkipChildren
			}
			if m := numberPattern.FindStringSubmatch(collectText(cells[1])); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					claims = append(claims, Claim{Parameter: name, Value: v, Source: SourceContent})
				}
			}
			return ast.SkipChildren
		case *ast.ListItem, *ast.Paragraph, *ast.Heading, *ast.CodeBlock:
			claims = append(claims, scanText(collectText(n), known)...)
			return ast.SkipChildren
		}
		return ast.GoToNext
	})
	return claims
}

func scanText(text string, known map[string]bool) []Claim {
	var out []Claim
	for _, m := range assignmentPattern.FindAllStringSubmatch(text, -1) {
		name := normalizeName(m[1])
		if !known[name] {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out = append(out, Claim{Parameter: name, Value: v, Source: SourceContent})
	}
	return out
}

// collectText concatenates the literal text under node.
func collectText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil {
			b.Write(leaf.Literal)
			if _, ok := n.(*ast.Softbreak); ok {
				b.WriteByte(' ')
			}
		}
		return ast.GoToNext
	})
	return b.String()
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "`*")
	return strings.ReplaceAll(s, " ", "_")
}
