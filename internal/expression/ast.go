// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package expression parses SNOMED CT compositional grammar expressions
// such as
//
//	=== 64572001 |Disease| : { 363698007 |Finding site| = 39057004 |Pulmonary valve| }
//
// The supported subset covers definition status, focus concepts, ungrouped
// and grouped refinements, nested expressions as attribute values, and
// numeric and string concrete values.
package expression

import (
	"strconv"
	"strings"
)

// DefinitionStatus is the optional leading "===" or "<<<".
type DefinitionStatus int

const (
	// Unspecified means no definition status was written.
	Unspecified DefinitionStatus = iota
	// EquivalentTo is "===".
	EquivalentTo
	// SubtypeOf is "<<<".
	SubtypeOf
)

func (d DefinitionStatus) String() string {
	switch d {
	case EquivalentTo:
		return "==="
	case SubtypeOf:
		return "<<<"
	default:
		return ""
	}
}

// Expression is a parsed compositional grammar expression.
type Expression struct {
	DefinitionStatus DefinitionStatus `json:"definitionStatus,omitempty" yaml:"definitionStatus,omitempty"`
	SubExpression    `yaml:",inline"`
}

// SubExpression is one or more focus concepts with an optional refinement.
type SubExpression struct {
	Focus []ConceptReference `json:"focusConcepts" yaml:"focusConcepts"`
	// Attributes are the ungrouped refinement attributes.
	Attributes []Attribute   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Groups     [][]Attribute `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// ConceptReference is a concept id with an optional term.
type ConceptReference struct {
	ID   uint64 `json:"conceptId" yaml:"conceptId"`
	Term string `json:"term,omitempty" yaml:"term,omitempty"`
}

// Attribute is "name = value" in a refinement.
type Attribute struct {
	Name  ConceptReference `json:"name" yaml:"name"`
	Value AttributeValue   `json:"value" yaml:"value"`
}

// ValueKind says which field of an AttributeValue is set.
type ValueKind int

const (
	ConceptValue ValueKind = iota
	NestedValue
	NumericValue
	StringValue
)

// AttributeValue is a concept, a nested expression, a number or a string.
type AttributeValue struct {
	Kind    ValueKind         `json:"kind" yaml:"kind"`
	Concept *ConceptReference `json:"concept,omitempty" yaml:"concept,omitempty"`
	Nested  *SubExpression    `json:"expression,omitempty" yaml:"expression,omitempty"`
	// Number keeps the decimal literal as written, without the '#'.
	Number string `json:"number,omitempty" yaml:"number,omitempty"`
	String string `json:"string,omitempty" yaml:"string,omitempty"`
}

// Concepts returns every concept id mentioned in the expression, in order of
// appearance, without repeats.
func (e *Expression) Concepts() []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	add := func(id uint64) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	var walk func(s *SubExpression)
	walkAttrs := func(attrs []Attribute) {
		for _, a := range attrs {
			add(a.Name.ID)
			switch a.Value.Kind {
			case ConceptValue:
				add(a.Value.Concept.ID)
			case NestedValue:
				walk(a.Value.Nested)
			}
		}
	}
	walk = func(s *SubExpression) {
		for _, f := range s.Focus {
			add(f.ID)
		}
		walkAttrs(s.Attributes)
		for _, g := range s.Groups {
			walkAttrs(g)
		}
	}
	walk(&e.SubExpression)
	return out
}

// String renders the expression in a canonical spacing. Parsing the result
// yields an equal Expression.
func (e *Expression) String() string {
	var b strings.Builder
	if e.DefinitionStatus != Unspecified {
		b.WriteString(e.DefinitionStatus.String())
		b.WriteByte(' ')
	}
	e.SubExpression.write(&b)
	return b.String()
}

func (s *SubExpression) String() string {
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s *SubExpression) write(b *strings.Builder) {
	for i, f := range s.Focus {
		if i > 0 {
			b.WriteString(" + ")
		}
		f.write(b)
	}
	if len(s.Attributes) == 0 && len(s.Groups) == 0 {
		return
	}
	b.WriteString(" : ")
	writeAttributes(b, s.Attributes)
	for i, g := range s.Groups {
		if i > 0 || len(s.Attributes) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("{ ")
		writeAttributes(b, g)
		b.WriteString(" }")
	}
}

func writeAttributes(b *strings.Builder, attrs []Attribute) {
	for i, a := range attrs {
		if i > 0 {
			b.WriteString(", ")
		}
		a.Name.write(b)
		b.WriteString(" = ")
		a.Value.write(b)
	}
}

func (c ConceptReference) String() string {
	var b strings.Builder
	c.write(&b)
	return b.String()
}

func (c ConceptReference) write(b *strings.Builder) {
	b.WriteString(strconv.FormatUint(c.ID, 10))
	if c.Term != "" {
		b.WriteString(" |")
		b.WriteString(c.Term)
		b.WriteByte('|')
	}
}

func (v AttributeValue) write(b *strings.Builder) {
	switch v.Kind {
	case ConceptValue:
		v.Concept.write(b)
	case NestedValue:
		b.WriteByte('(')
		v.Nested.write(b)
		b.WriteByte(')')
	case NumericValue:
		b.WriteByte('#')
		b.WriteString(v.Number)
	case StringValue:
		b.WriteByte('"')
		b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v.String))
		b.WriteByte('"')
	}
}
