// Etiquette
// Copyright (c) 2026 The Etiquette Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Etiquette.
//
// Etiquette is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etiquette is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Etiquette.  If not, see <http://www.gnu.org/licenses/>.

// Package expr parses boolean expressions over AND, OR, NOT, parentheses and
// free-form atoms into a binary tree, and evaluates them with short-circuit
// semantics against a caller-provided atom matcher. The search engine uses
// these trees for both tag expressions and filename expressions.
package expr

import (
	"fmt"
	"strings"
)

// Op identifies a node kind.
type Op int

const (
	// OpAtom is a leaf carrying an atom string.
	OpAtom Op = iota
	// OpAnd is a binary conjunction.
	OpAnd
	// OpOr is a binary disjunction.
	OpOr
	// OpNot is a unary negation; only Right is set.
	OpNot
)

// Node is one node of a parsed expression tree.
type Node struct {
	Left  *Node
	Right *Node
	Atom  string
	Op    Op
}

type token struct {
	text   string
	quoted bool
}

func (t token) isOpenParen() bool  { return !t.quoted && t.text == "(" }
func (t token) isCloseParen() bool { return !t.quoted && t.text == ")" }

func (t token) operator() (Op, bool) {
	if t.quoted {
		return 0, false
	}
	switch strings.ToUpper(t.text) {
	case "AND":
		return OpAnd, true
	case "OR":
		return OpOr, true
	case "NOT":
		return OpNot, true
	default:
		return 0, false
	}
}

// tokenize splits an expression into parens, keywords and atoms.
// Whitespace and hyphens separate tokens; quoted atoms keep both.
func tokenize(s string) ([]token, error) {
	var tokens []token
	var current strings.Builder
	inQuote := false

	flush := func(quoted bool) {
		if current.Len() == 0 && !quoted {
			return
		}
		tokens = append(tokens, token{text: current.String(), quoted: quoted})
		current.Reset()
	}

	for _, r := range s {
		switch {
		case inQuote:
			if r == '"' {
				inQuote = false
				flush(true)
				continue
			}
			current.WriteRune(r)
		case r == '"':
			flush(false)
			inQuote = true
		case r == '(' || r == ')':
			flush(false)
			tokens = append(tokens, token{text: string(r)})
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '-':
			flush(false)
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in expression %q", s)
	}
	flush(false)
	return tokens, nil
}

// injectImplicitAnd inserts AND between adjacent operands, so that
// `apple banana` means `apple AND banana`.
func injectImplicitAnd(tokens []token) []token {
	endsOperand := func(t token) bool {
		if t.quoted || t.isCloseParen() {
			return true
		}
		if _, ok := t.operator(); ok {
			return false
		}
		return !t.isOpenParen()
	}
	startsOperand := func(t token) bool {
		if t.quoted || t.isOpenParen() {
			return true
		}
		op, ok := t.operator()
		return (ok && op == OpNot) || (!ok && !t.isCloseParen())
	}

	out := make([]token, 0, len(tokens))
	for i, t := range tokens {
		if i > 0 && endsOperand(tokens[i-1]) && startsOperand(t) {
			out = append(out, token{text: "AND"})
		}
		out = append(out, t)
	}
	return out
}

func precedence(op Op) int {
	switch op {
	case OpNot:
		return 3
	case OpAnd:
		return 2
	case OpOr:
		return 1
	default:
		return 0
	}
}

// Parse builds an expression tree. A string with no tokens yields a nil tree
// and no error; callers treat a nil tree as matching everything.
func Parse(s string) (*Node, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil //nolint:nilnil // empty expression is a valid nil tree
	}
	tokens = injectImplicitAnd(tokens)

	// shunting yard: operands to the output stack, operators held until a
	// lower-precedence operator or a paren boundary pops them
	var output []*Node
	var operators []Op
	var parenMarker = Op(-1)

	popOperator := func() error {
		if len(operators) == 0 {
			return fmt.Errorf("malformed expression %q", s)
		}
		op := operators[len(operators)-1]
		operators = operators[:len(operators)-1]
		if op == OpNot {
			if len(output) < 1 {
				return fmt.Errorf("NOT missing operand in expression %q", s)
			}
			operand := output[len(output)-1]
			output = output[:len(output)-1]
			output = append(output, &Node{Op: OpNot, Right: operand})
			return nil
		}
		if len(output) < 2 {
			return fmt.Errorf("operator missing operands in expression %q", s)
		}
		right := output[len(output)-1]
		left := output[len(output)-2]
		output = output[:len(output)-2]
		output = append(output, &Node{Op: op, Left: left, Right: right})
		return nil
	}

	for _, t := range tokens {
		switch {
		case t.isOpenParen():
			operators = append(operators, parenMarker)
		case t.isCloseParen():
			for len(operators) > 0 && operators[len(operators)-1] != parenMarker {
				if err := popOperator(); err != nil {
					return nil, err
				}
			}
			if len(operators) == 0 {
				return nil, fmt.Errorf("unbalanced parentheses in expression %q", s)
			}
			operators = operators[:len(operators)-1]
		default:
			if op, ok := t.operator(); ok {
				// NOT is right-associative; AND/OR are left-associative
				for len(operators) > 0 && operators[len(operators)-1] != parenMarker {
					top := operators[len(operators)-1]
					if precedence(top) > precedence(op) ||
						(precedence(top) == precedence(op) && op != OpNot) {
						if err := popOperator(); err != nil {
							return nil, err
						}
						continue
					}
					break
				}
				operators = append(operators, op)
				continue
			}
			output = append(output, &Node{Op: OpAtom, Atom: t.text})
		}
	}
	for len(operators) > 0 {
		if operators[len(operators)-1] == parenMarker {
			return nil, fmt.Errorf("unbalanced parentheses in expression %q", s)
		}
		if err := popOperator(); err != nil {
			return nil, err
		}
	}
	if len(output) != 1 {
		return nil, fmt.Errorf("malformed expression %q", s)
	}
	return output[0], nil
}

// LowerAtoms lowercases every atom in the tree in place.
func (n *Node) LowerAtoms() {
	if n == nil {
		return
	}
	if n.Op == OpAtom {
		n.Atom = strings.ToLower(n.Atom)
		return
	}
	n.Left.LowerAtoms()
	n.Right.LowerAtoms()
}

// Atoms returns every atom in the tree, left to right.
func (n *Node) Atoms() []string {
	if n == nil {
		return nil
	}
	if n.Op == OpAtom {
		return []string{n.Atom}
	}
	return append(n.Left.Atoms(), n.Right.Atoms()...)
}

// Evaluate runs the tree against a matcher. AND and OR short-circuit: the
// right subtree is skipped when the left decides the outcome. A nil tree
// evaluates to true.
func (n *Node) Evaluate(match func(atom string) bool) bool {
	if n == nil {
		return true
	}
	switch n.Op {
	case OpAtom:
		return match(n.Atom)
	case OpNot:
		return !n.Right.Evaluate(match)
	case OpAnd:
		return n.Left.Evaluate(match) && n.Right.Evaluate(match)
	case OpOr:
		return n.Left.Evaluate(match) || n.Right.Evaluate(match)
	default:
		return false
	}
}

// String renders the tree back to a parenthesized expression, mostly for
// logging and tests.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Op {
	case OpAtom:
		if strings.ContainsAny(n.Atom, " \t()-") {
			return fmt.Sprintf("%q", n.Atom)
		}
		return n.Atom
	case OpNot:
		return fmt.Sprintf("(NOT %s)", n.Right)
	case OpAnd:
		return fmt.Sprintf("(%s AND %s)", n.Left, n.Right)
	case OpOr:
		return fmt.Sprintf("(%s OR %s)", n.Left, n.Right)
	default:
		return "?"
	}
}
