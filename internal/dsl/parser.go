package dsl

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// section is the block of the file the parser is currently collecting lines for
type section int

const (
	sectionGenerator section = iota
	sectionDatasource
	sectionModels
)

// Parser reads schema file text into a Schema
type Parser struct {
	logger *zap.Logger
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithLogger sets the logger that receives dropped-field warnings
func WithLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a parser
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads a whole schema file with a default parser
func Parse(r io.Reader) (*Schema, error) {
	return NewParser().Parse(r)
}

// ParseString parses schema file text with a default parser
func ParseString(text string) (*Schema, error) {
	return NewParser().Parse(strings.NewReader(text))
}

// Parse reads a whole schema file.
//
// Field lines that cannot be tokenized are dropped and parsing continues. A
// @relation attribute with an unrecognized argument fails the whole parse.
func (p *Parser) Parse(r io.Reader) (*Schema, error) {
	var generatorText, datasourceText, modelsText strings.Builder

	current := sectionGenerator
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.HasPrefix(line, "generator"):
			current = sectionGenerator
		case strings.HasPrefix(line, "datasource"):
			current = sectionDatasource
		case strings.HasPrefix(line, "model"):
			current = sectionModels
		}

		var buf *strings.Builder
		switch current {
		case sectionGenerator:
			buf = &generatorText
		case sectionDatasource:
			buf = &datasourceText
		case sectionModels:
			buf = &modelsText
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read schema")
	}

	s := &Schema{}
	s.Generator.Name, s.Generator.Provider = parseBlockHeader(generatorText.String(), "generator")
	s.Datasource.Name, s.Datasource.Provider = parseBlockHeader(datasourceText.String(), "datasource")

	for _, fragment := range splitModels(modelsText.String()) {
		m, ok, err := p.parseModel(fragment)
		if err != nil {
			return nil, err
		}
		if ok {
			s.Models = append(s.Models, m)
		}
	}

	return s, nil
}

// parseBlockHeader returns the block name and its provider setting
func parseBlockHeader(text, keyword string) (name, provider string) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, keyword); ok && name == "" {
			name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "{"))
			continue
		}
		if key, value, ok := strings.Cut(trimmed, "="); ok && strings.TrimSpace(key) == "provider" {
			provider = unquote(strings.TrimSpace(value))
		}
	}
	return name, provider
}

// splitModels cuts the models text at every line starting with "model "
func splitModels(text string) []string {
	var fragments []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		if rest, ok := strings.CutPrefix(line, "model "); ok {
			if current.Len() > 0 {
				fragments = append(fragments, current.String())
			}
			current.Reset()
			line = rest
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		fragments = append(fragments, current.String())
	}
	return fragments
}

// parseModel parses "Name {\n...fields...\n}\n". ok is false when the fragment
// has no model name.
func (p *Parser) parseModel(fragment string) (Model, bool, error) {
	header, body, _ := strings.Cut(fragment, "{")
	name := strings.ReplaceAll(strings.TrimSpace(header), " ", "")
	if name == "" {
		return Model{}, false, nil
	}

	m := Model{Name: name}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "", trimmed == "}", strings.HasPrefix(trimmed, "//"):
			continue
		case strings.HasPrefix(trimmed, "@@"):
			m.Directives = append(m.Directives, line)
			continue
		}

		f, ok, err := parseField(trimmed)
		if err != nil {
			return Model{}, false, errors.Wrapf(err, "model %s", name)
		}
		if !ok {
			p.logger.Warn("dropping unparseable field",
				zap.String("model", name),
				zap.String("line", trimmed))
			continue
		}
		m.Fields = append(m.Fields, f)
	}

	m.RecomputeWidths()
	return m, true, nil
}

// parseField tokenizes one field line. ok is false when the line is not a usable
// field; err is set only for a malformed @relation attribute.
func parseField(line string) (Field, bool, error) {
	line, unique, ok := extractUnique(line)
	if !ok {
		return Field{}, false, nil
	}

	tokens := tokenize(line)
	if len(tokens) < 2 {
		return Field{}, false, nil
	}

	typ := tokens[1].text(line)
	f := Field{
		Name:       tokens[0].text(line),
		Type:       typ,
		IsArray:    strings.Contains(typ, "[]"),
		IsRequired: !strings.Contains(typ, "?"),
		Unique:     unique,
	}

	attr := attributeBuffer{line: line}
	for _, tok := range tokens[2:] {
		text := tok.text(line)
		if attr.empty() && !strings.ContainsAny(text, "([{") {
			switch {
			case text == "@id":
				f.IsID = true
			case strings.HasPrefix(text, "@db."):
				f.DBType = strings.TrimPrefix(text, "@db.")
			}
			continue
		}

		attr.add(tok)
		if !attr.balanced() {
			continue
		}

		text = attr.take()
		switch {
		case strings.HasPrefix(text, "@db."):
			f.DBType = strings.TrimPrefix(text, "@db.")
		case strings.HasPrefix(text, "@relation"):
			rel, err := ParseRelation(text)
			if err != nil {
				return Field{}, false, errors.Wrapf(err, "field %s", f.Name)
			}
			f.Relation = rel
		case strings.HasPrefix(text, "@default(") && strings.HasSuffix(text, ")"):
			expr := text[len("@default(") : len(text)-1]
			f.Default = &expr
		case strings.HasPrefix(text, "@id("):
			f.IsID = true
		}
	}
	if !attr.empty() {
		return Field{}, false, nil
	}

	return f, true, nil
}

// token is a whitespace-delimited span of a field line
type token struct {
	start, end int
}

func (t token) text(line string) string {
	return line[t.start:t.end]
}

func tokenize(line string) []token {
	var tokens []token
	start := -1
	for i := 0; i < len(line); i++ {
		space := line[i] == ' ' || line[i] == '\t'
		switch {
		case space && start >= 0:
			tokens = append(tokens, token{start, i})
			start = -1
		case !space && start < 0:
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start, len(line)})
	}
	return tokens
}

// extractUnique removes a @unique attribute from line and parses it separately,
// since its bare and parenthesised forms cannot be told apart after splitting on
// whitespace. ok is false when the attribute is malformed.
func extractUnique(line string) (string, *UniqueFlag, bool) {
	start := findUnique(line)
	if start == -1 {
		return line, nil, true
	}

	end := start + len("@unique")
	rest := line[end:]
	if open := len(rest) - len(strings.TrimLeft(rest, " ")); open < len(rest) && rest[open] == '(' {
		closing := matchingParen(rest[open:])
		if closing == -1 {
			return line, nil, false
		}
		end += open + closing + 1
	}

	flag, err := parseUniqueFlag(line[start:end])
	if err != nil {
		return line, nil, false
	}
	return line[:start] + line[end:], flag, true
}

// findUnique returns the offset of a top-level @unique attribute, skipping
// @@unique, quoted text and the arguments of other attributes
func findUnique(line string) int {
	const attr = "@unique"
	depth := 0
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case inQuote && c == '\\':
			i++
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case depth == 0 && strings.HasPrefix(line[i:], attr):
			if i > 0 && line[i-1] == '@' {
				continue
			}
			if next := i + len(attr); next == len(line) || strings.IndexByte(" \t(", line[next]) >= 0 {
				return i
			}
		}
	}
	return -1
}

// matchingParen returns the index of the parenthesis closing s[0], or -1
func matchingParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// attributeBuffer accumulates the tokens of one attribute until its
// parentheses, brackets and braces balance
type attributeBuffer struct {
	line     string
	first    token
	last     token
	n        int
	parens   int
	brackets int
	braces   int
}

func (a *attributeBuffer) empty() bool {
	return a.n == 0
}

func (a *attributeBuffer) add(tok token) {
	if a.n == 0 {
		a.first = tok
	}
	a.last = tok
	a.n++
	for _, c := range tok.text(a.line) {
		switch c {
		case '(':
			a.parens++
		case ')':
			a.parens--
		case '[':
			a.brackets++
		case ']':
			a.brackets--
		case '{':
			a.braces++
		case '}':
			a.braces--
		}
	}
}

func (a *attributeBuffer) balanced() bool {
	return a.parens == 0 && a.brackets == 0 && a.braces == 0
}

// take returns the accumulated attribute as it appears in the line and resets
// the buffer
func (a *attributeBuffer) take() string {
	text := a.line[a.first.start:a.last.end]
	*a = attributeBuffer{line: a.line}
	return text
}
