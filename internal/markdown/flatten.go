// Package markdown post-processes rustdoc doc text for rendered output.
package markdown

import (
	"regexp"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
)

// FlattenLinks strips intra-doc link syntax from markdown, leaving the
// link text as plain text. Absolute http(s) links are kept as-is; rustdoc
// path references ("Vec::push", "crate::foo") point into graphs that may
// not be loaded, so they are demoted rather than left dangling. Inline
// links go through the markdown AST; reference links are resolved from
// their definition lines, which are dropped from the output.
func FlattenLinks(src string) string {
	lines := strings.Split(src, "\n")
	labels := make(map[string]bool)
	kept := lines[:0]
	for _, line := range lines {
		if label, ok := refDefinition(strings.TrimSpace(line)); ok {
			labels[label] = true
			continue
		}
		kept = append(kept, line)
	}
	result := strings.Join(kept, "\n")

	doc := gm.Parse([]byte(result), gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))

	type flattening struct {
		text string
		dest string
	}
	seen := make(map[string]bool)
	var found []flattening

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		link, ok := node.(*ast.Link)
		if !ok {
			return ast.GoToNext
		}
		dest := string(link.Destination)
		if strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://") {
			return ast.GoToNext
		}
		text := linkText(link)
		key := text + "\x00" + dest
		if text != "" && !seen[key] {
			seen[key] = true
			found = append(found, flattening{text: text, dest: dest})
		}
		return ast.GoToNext
	})

	for _, f := range found {
		result = strings.ReplaceAll(result, "["+f.text+"]("+f.dest+")", f.text)
	}

	// Reference forms survive the AST pass because their definitions are
	// already gone: [text][label] keeps the text, [label] drops brackets.
	for label := range labels {
		re := regexp.MustCompile(`\[([^\[\]]+)\]\[` + regexp.QuoteMeta(label) + `\]`)
		result = re.ReplaceAllString(result, "$1")
		result = strings.ReplaceAll(result, "["+label+"]", label)
	}
	return result
}

func linkText(link *ast.Link) string {
	var b strings.Builder
	for _, child := range link.GetChildren() {
		switch n := child.(type) {
		case *ast.Text:
			b.Write(n.Literal)
		case *ast.Code:
			b.WriteString("`")
			b.Write(n.Literal)
			b.WriteString("`")
		}
	}
	return b.String()
}

// refDefinition matches "[label]: target" lines whose target is not an
// absolute URL, returning the label.
func refDefinition(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") {
		return "", false
	}
	sep := strings.Index(line, "]:")
	if sep < 0 {
		return "", false
	}
	target := strings.TrimSpace(line[sep+2:])
	if target == "" {
		return "", false
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return "", false
	}
	return line[1:sep], true
}

// FirstSentence returns the first sentence of doc text, used as the
// one-line summary in listings and search results.
func FirstSentence(docs string) string {
	docs = strings.TrimSpace(docs)
	if docs == "" {
		return ""
	}
	line := docs
	if i := strings.IndexByte(docs, '\n'); i >= 0 {
		line = docs[:i]
	}
	if i := strings.Index(line, ". "); i >= 0 {
		line = line[:i+1]
	}
	return strings.TrimSpace(line)
}
