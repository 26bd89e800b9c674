// Package textnorm prepares chunk text for embedding: markdown is reduced to
// plain text, tokenized, stripped of stop words and lowercased.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Normalizer turns markdown chunk content into the token string sent to the
// embedding provider.
type Normalizer struct {
	markdown  goldmark.Markdown
	stopwords map[string]struct{}
}

// New creates a Normalizer with the default English stop word list.
func New() *Normalizer {
	return NewWithStopwords(englishStopwords)
}

// NewWithStopwords creates a Normalizer with a custom stop word list.
func NewWithStopwords(words []string) *Normalizer {
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Normalizer{
		markdown:  goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		stopwords: stop,
	}
}

// Normalize runs plain-text extraction, tokenization, stop word removal and
// lowercasing, and joins the surviving tokens with single spaces.
func (n *Normalizer) Normalize(content string) string {
	tokens := Tokenize(n.PlainText(content))
	kept := tokens[:0]
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// PlainText renders markdown to its text content, one line per block.
func (n *Normalizer) PlainText(content string) string {
	source := []byte(content)
	doc := n.markdown.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock && sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.AutoLink:
			sb.Write(v.URL(source))
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String())
}

// Tokenize splits text into word tokens. Letters and digits form words, each CJK
// code point is a token of its own, and everything else separates tokens.
func Tokenize(s string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' && word.Len() > 0:
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
