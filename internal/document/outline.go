package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading represents a parsed heading.
type Heading struct {
	Level int
	Text  string
	Line  int // 1-indexed, relative to the body
}

// Outline extracts the headings of a markdown body using goldmark.
func Outline(body string) []Heading {
	var headings []Heading

	src := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	lineStarts := computeLineStarts(body)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
			}
		}
		headingText := strings.TrimSpace(sb.String())
		if headingText == "" {
			return ast.WalkContinue, nil
		}

		line := 1
		if heading.Lines().Len() > 0 {
			line = offsetToLine(lineStarts, heading.Lines().At(0).Start) + 1
		}
		headings = append(headings, Heading{Level: heading.Level, Text: headingText, Line: line})
		return ast.WalkSkipChildren, nil
	})

	return headings
}

// Title returns the text of the first level-1 heading, or "".
func Title(body string) string {
	for _, h := range Outline(body) {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

func computeLineStarts(content string) []int {
	starts := []int{0}
	for i, c := range content {
		if c == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func offsetToLine(lineStarts []int, offset int) int {
	for i := len(lineStarts) - 1; i >= 0; i-- {
		if lineStarts[i] <= offset {
			return i
		}
	}
	return 0
}
