// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package expression

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Identifier length bounds from the SCTID format.
const (
	minIDDigits = 6
	maxIDDigits = 18
)

// Parse parses a compositional grammar expression. Malformed input fails
// with a syntax error carrying the line, column and byte offset.
func Parse(s string) (*Expression, error) {
	p := &parser{src: s}
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	return e, nil
}

// MustParse is Parse for expressions known to be valid. It panics on error.
func MustParse(s string) *Expression {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// parser is a recursive descent parser over the raw input. pos is a byte
// offset.
type parser struct {
	src string
	pos int
}

func (p *parser) fail(msg string) error {
	line, col := 1, 0
	for _, r := range p.src[:p.pos] {
		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	near := p.src[p.pos:]
	if utf8.RuneCountInString(near) > 20 {
		near = string([]rune(near)[:20])
	}
	return sigilerr.New(sigilerr.CodeExpressionParseSyntax, msg,
		sigilerr.Field("offset", p.pos),
		sigilerr.Field("line", line),
		sigilerr.Field("column", col),
		sigilerr.Field("near", near))
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

// skip consumes whitespace and /* */ comments.
func (p *parser) skip() error {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return p.fail("unterminated comment")
			}
			p.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

// accept consumes tok if it comes next, after optional whitespace.
func (p *parser) accept(tok string) (bool, error) {
	if err := p.skip(); err != nil {
		return false, err
	}
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true, nil
	}
	return false, nil
}

func (p *parser) expect(tok string) error {
	ok, err := p.accept(tok)
	if err != nil {
		return err
	}
	if !ok {
		return p.fail("expected " + strconv.Quote(tok))
	}
	return nil
}

func (p *parser) expression() (*Expression, error) {
	e := &Expression{}
	if ok, err := p.accept("==="); err != nil {
		return nil, err
	} else if ok {
		e.DefinitionStatus = EquivalentTo
	} else if ok, err := p.accept("<<<"); err != nil {
		return nil, err
	} else if ok {
		e.DefinitionStatus = SubtypeOf
	}

	sub, err := p.subExpression()
	if err != nil {
		return nil, err
	}
	e.SubExpression = *sub

	if err := p.skip(); err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.fail("unexpected input after expression")
	}
	return e, nil
}

func (p *parser) subExpression() (*SubExpression, error) {
	s := &SubExpression{}
	for {
		ref, err := p.conceptReference()
		if err != nil {
			return nil, err
		}
		s.Focus = append(s.Focus, ref)
		ok, err := p.accept("+")
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}

	ok, err := p.accept(":")
	if err != nil {
		return nil, err
	}
	if ok {
		if err := p.refinement(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// refinement parses an optional leading attribute set followed by groups,
// separated by optional commas.
func (p *parser) refinement(s *SubExpression) error {
	if err := p.skip(); err != nil {
		return err
	}
	if p.peek() != '{' {
		attrs, err := p.attributeSet()
		if err != nil {
			return err
		}
		s.Attributes = attrs
	}
	for {
		if _, err := p.accept(","); err != nil {
			return err
		}
		ok, err := p.accept("{")
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		group, err := p.attributeSet()
		if err != nil {
			return err
		}
		if err := p.expect("}"); err != nil {
			return err
		}
		s.Groups = append(s.Groups, group)
	}
	if len(s.Attributes) == 0 && len(s.Groups) == 0 {
		return p.fail("empty refinement")
	}
	return nil
}

func (p *parser) attributeSet() ([]Attribute, error) {
	var attrs []Attribute
	for {
		a, err := p.attribute()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)

		// A comma followed by '{' starts a group, not another attribute.
		save := p.pos
		ok, err := p.accept(",")
		if err != nil {
			return nil, err
		}
		if !ok {
			return attrs, nil
		}
		if err := p.skip(); err != nil {
			return nil, err
		}
		if p.peek() == '{' {
			p.pos = save
			return attrs, nil
		}
	}
}

func (p *parser) attribute() (Attribute, error) {
	name, err := p.conceptReference()
	if err != nil {
		return Attribute{}, err
	}
	if err := p.expect("="); err != nil {
		return Attribute{}, err
	}
	value, err := p.attributeValue()
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{Name: name, Value: value}, nil
}

func (p *parser) attributeValue() (AttributeValue, error) {
	if err := p.skip(); err != nil {
		return AttributeValue{}, err
	}
	switch p.peek() {
	case '(':
		p.pos++
		nested, err := p.subExpression()
		if err != nil {
			return AttributeValue{}, err
		}
		if err := p.expect(")"); err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Kind: NestedValue, Nested: nested}, nil
	case '#':
		p.pos++
		n, err := p.number()
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Kind: NumericValue, Number: n}, nil
	case '"':
		s, err := p.quoted()
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Kind: StringValue, String: s}, nil
	default:
		ref, err := p.conceptReference()
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Kind: ConceptValue, Concept: &ref}, nil
	}
}

func (p *parser) conceptReference() (ConceptReference, error) {
	if err := p.skip(); err != nil {
		return ConceptReference{}, err
	}
	start := p.pos
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		p.pos++
	}
	digits := p.src[start:p.pos]
	switch {
	case digits == "":
		return ConceptReference{}, p.fail("expected concept id")
	case digits[0] == '0':
		p.pos = start
		return ConceptReference{}, p.fail("concept id must not start with 0")
	case len(digits) < minIDDigits || len(digits) > maxIDDigits:
		p.pos = start
		return ConceptReference{}, p.fail("concept id must have 6 to 18 digits")
	}
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		p.pos = start
		return ConceptReference{}, p.fail("concept id out of range")
	}

	ref := ConceptReference{ID: id}
	ok, err := p.accept("|")
	if err != nil {
		return ConceptReference{}, err
	}
	if ok {
		end := strings.IndexByte(p.src[p.pos:], '|')
		if end < 0 {
			return ConceptReference{}, p.fail("unterminated term")
		}
		ref.Term = strings.TrimSpace(p.src[p.pos : p.pos+end])
		p.pos += end + 1
	}
	return ref, nil
}

func (p *parser) number() (string, error) {
	start := p.pos
	if p.peek() == '-' || p.peek() == '+' {
		p.pos++
	}
	for !p.eof() && (p.peek() >= '0' && p.peek() <= '9' || p.peek() == '.') {
		p.pos++
	}
	lit := p.src[start:p.pos]
	if _, err := strconv.ParseFloat(lit, 64); err != nil || strings.HasSuffix(lit, ".") {
		p.pos = start
		return "", p.fail("invalid number")
	}
	return lit, nil
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			if p.pos+1 < len(p.src) && (p.src[p.pos+1] == '"' || p.src[p.pos+1] == '\\') {
				b.WriteByte(p.src[p.pos+1])
				p.pos += 2
				continue
			}
		}
		b.WriteByte(c)
		p.pos++
	}
	p.pos = start
	return "", p.fail("unterminated string")
}
