// Package rule implements the auto-approve predicate grammar evaluated at
// approval-request creation time:
//
//	rule      = condition { "&&" condition }
//	condition = field op literal
//	op        = "==" | "!=" | ">" | ">=" | "<" | "<="
//	literal   = quoted string | number | true | false
//
// Fields address the request payload; dots descend into nested maps. A
// condition on a missing field is false, so an empty or partial payload
// never slips past review.
package rule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/toolbox"
)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpGt Op = ">"
	OpGe Op = ">="
	OpLt Op = "<"
	OpLe Op = "<="
)

// Condition compares one payload field against a literal.
type Condition struct {
	Field string
	Op    Op
	Value interface{} // string, float64 or bool
}

// Rule is a conjunction of conditions.
type Rule struct {
	source     string
	conditions []Condition
}

// Source returns the original rule text.
func (r *Rule) Source() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Conditions returns the parsed conditions.
func (r *Rule) Conditions() []Condition {
	if r == nil {
		return nil
	}
	return r.conditions
}

// Parse parses rule text. Blank input yields a nil rule, meaning no
// auto-approval.
func Parse(text string) (*Rule, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	cursor := parsly.NewCursor("", []byte(text), 0)
	ret := &Rule{source: text}
	for {
		condition, err := parseCondition(cursor)
		if err != nil {
			return nil, err
		}
		ret.conditions = append(ret.conditions, *condition)

		matched := cursor.MatchAfterOptional(whitespaceToken, andToken)
		if matched.Code != andToken.Code {
			break
		}
	}
	cursor.MatchOne(whitespaceToken)
	if cursor.Pos < cursor.InputSize {
		return nil, fmt.Errorf("unexpected input at position %d: %s", cursor.Pos, text[cursor.Pos:])
	}
	return ret, nil
}

func parseCondition(cursor *parsly.Cursor) (*Condition, error) {
	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	condition := &Condition{Field: matched.Text(cursor)}

	matched = cursor.MatchAfterOptional(whitespaceToken, eqToken, neToken, geToken, leToken, gtToken, ltToken)
	switch matched.Code {
	case eqToken.Code:
		condition.Op = OpEq
	case neToken.Code:
		condition.Op = OpNe
	case geToken.Code:
		condition.Op = OpGe
	case leToken.Code:
		condition.Op = OpLe
	case gtToken.Code:
		condition.Op = OpGt
	case ltToken.Code:
		condition.Op = OpLt
	default:
		return nil, cursor.NewError(eqToken)
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, stringToken, numberToken, boolToken)
	switch matched.Code {
	case stringToken.Code:
		text := matched.Text(cursor)
		condition.Value = text[1 : len(text)-1]
	case numberToken.Code:
		value, err := strconv.ParseFloat(matched.Text(cursor), 64)
		if err != nil {
			return nil, err
		}
		condition.Value = value
	case boolToken.Code:
		condition.Value = matched.Text(cursor) == "true"
	default:
		return nil, cursor.NewError(stringToken)
	}
	return condition, nil
}

// Eval reports whether every condition holds against the payload.
func (r *Rule) Eval(payload map[string]interface{}) bool {
	if r == nil || len(r.conditions) == 0 {
		return false
	}
	for _, condition := range r.conditions {
		actual, ok := lookup(payload, condition.Field)
		if !ok {
			return false
		}
		if !condition.holds(actual) {
			return false
		}
	}
	return true
}

func (c *Condition) holds(actual interface{}) bool {
	switch expect := c.Value.(type) {
	case bool:
		got := toolbox.AsBoolean(actual)
		switch c.Op {
		case OpEq:
			return got == expect
		case OpNe:
			return got != expect
		}
		return false
	case float64:
		got := toolbox.AsFloat(actual)
		switch c.Op {
		case OpEq:
			return got == expect
		case OpNe:
			return got != expect
		case OpGt:
			return got > expect
		case OpGe:
			return got >= expect
		case OpLt:
			return got < expect
		case OpLe:
			return got <= expect
		}
	case string:
		got := toolbox.AsString(actual)
		switch c.Op {
		case OpEq:
			return got == expect
		case OpNe:
			return got != expect
		case OpGt:
			return got > expect
		case OpGe:
			return got >= expect
		case OpLt:
			return got < expect
		case OpLe:
			return got <= expect
		}
	}
	return false
}

// lookup resolves a possibly dotted field path in nested maps.
func lookup(payload map[string]interface{}, field string) (interface{}, bool) {
	if payload == nil {
		return nil, false
	}
	parts := strings.Split(field, ".")
	var current interface{} = payload
	for _, part := range parts {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
