/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package mock

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// evalEnv carries the substitution maps and the item a condition is
// evaluated against. The item may be nil for conditions on absent items.
type evalEnv struct {
	names  map[string]string
	values map[string]types.AttributeValue
	item   map[string]types.AttributeValue
}

var (
	betweenRe = regexp.MustCompile(`^(\S+)\s+BETWEEN\s+(\S+)\s+AND\s+(\S+)$`)
	existsRe  = regexp.MustCompile(`^(attribute_exists|attribute_not_exists)\s*\(\s*([^)]+?)\s*\)$`)
	funcRe    = regexp.MustCompile(`^(begins_with|contains)\s*\(\s*([^,]+?)\s*,\s*([^)]+?)\s*\)$`)
	compareRe = regexp.MustCompile(`^(\S+)\s*(<>|<=|>=|=|<|>)\s*(\S+)$`)
)

// evalCondition interprets the subset of DynamoDB condition syntax produced
// by the expression builder and by the store's hand-written key guards:
// comparators, BETWEEN, begins_with, contains, attribute_exists,
// attribute_not_exists, and parenthesized AND/OR/NOT composites.
func evalCondition(expr string, env evalEnv) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	if inner, ok := stripOuterParens(expr); ok {
		return evalCondition(inner, env)
	}
	if parts := splitTopLevel(expr, " OR "); len(parts) > 1 {
		for _, part := range parts {
			ok, err := evalCondition(part, env)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	// A bare BETWEEN owns its AND; check before splitting composites.
	if m := betweenRe.FindStringSubmatch(expr); m != nil {
		return evalBetween(m[1], m[2], m[3], env)
	}
	if parts := splitTopLevel(expr, " AND "); len(parts) > 1 {
		for _, part := range parts {
			ok, err := evalCondition(part, env)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if rest, ok := strings.CutPrefix(expr, "NOT "); ok {
		matched, err := evalCondition(rest, env)
		return !matched, err
	}
	if m := existsRe.FindStringSubmatch(expr); m != nil {
		name, err := resolveName(m[2], env)
		if err != nil {
			return false, err
		}
		_, present := env.item[name]
		if m[1] == "attribute_exists" {
			return present, nil
		}
		return !present, nil
	}
	if m := funcRe.FindStringSubmatch(expr); m != nil {
		return evalFunc(m[1], m[2], m[3], env)
	}
	if m := compareRe.FindStringSubmatch(expr); m != nil {
		return evalCompare(m[1], m[2], m[3], env)
	}
	return false, fmt.Errorf("unsupported condition expression: %q", expr)
}

func stripOuterParens(s string) (string, bool) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return "", false
			}
		}
	}
	return strings.TrimSpace(s[1 : len(s)-1]), true
}

// splitTopLevel splits on sep occurrences outside any parentheses.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, strings.TrimSpace(s[start:i]))
			i += len(sep) - 1
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

func resolveName(token string, env evalEnv) (string, error) {
	if !strings.HasPrefix(token, "#") {
		return token, nil
	}
	name, ok := env.names[token]
	if !ok {
		return "", fmt.Errorf("undefined name placeholder %q", token)
	}
	return name, nil
}

func resolveValue(token string, env evalEnv) (types.AttributeValue, error) {
	if !strings.HasPrefix(token, ":") {
		return nil, fmt.Errorf("expected value placeholder, got %q", token)
	}
	value, ok := env.values[token]
	if !ok {
		return nil, fmt.Errorf("undefined value placeholder %q", token)
	}
	return value, nil
}

func evalCompare(lhs, op, rhs string, env evalEnv) (bool, error) {
	name, err := resolveName(lhs, env)
	if err != nil {
		return false, err
	}
	value, err := resolveValue(rhs, env)
	if err != nil {
		return false, err
	}
	attr, ok := env.item[name]
	if !ok {
		return false, nil
	}
	switch op {
	case "=":
		return attrEqual(attr, value), nil
	case "<>":
		return !attrEqual(attr, value), nil
	}
	c, comparable := compareAttr(attr, value)
	if !comparable {
		return false, nil
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unsupported comparator %q", op)
}

func evalBetween(lhs, lo, hi string, env evalEnv) (bool, error) {
	name, err := resolveName(lhs, env)
	if err != nil {
		return false, err
	}
	loVal, err := resolveValue(lo, env)
	if err != nil {
		return false, err
	}
	hiVal, err := resolveValue(hi, env)
	if err != nil {
		return false, err
	}
	attr, ok := env.item[name]
	if !ok {
		return false, nil
	}
	cLo, okLo := compareAttr(attr, loVal)
	cHi, okHi := compareAttr(attr, hiVal)
	return okLo && okHi && cLo >= 0 && cHi <= 0, nil
}

func evalFunc(fn, lhs, rhs string, env evalEnv) (bool, error) {
	name, err := resolveName(lhs, env)
	if err != nil {
		return false, err
	}
	value, err := resolveValue(rhs, env)
	if err != nil {
		return false, err
	}
	attr, ok := env.item[name]
	if !ok {
		return false, nil
	}
	switch fn {
	case "begins_with":
		s, okS := attr.(*types.AttributeValueMemberS)
		prefix, okP := value.(*types.AttributeValueMemberS)
		return okS && okP && strings.HasPrefix(s.Value, prefix.Value), nil
	case "contains":
		switch v := attr.(type) {
		case *types.AttributeValueMemberS:
			sub, okSub := value.(*types.AttributeValueMemberS)
			return okSub && strings.Contains(v.Value, sub.Value), nil
		case *types.AttributeValueMemberSS:
			member, okM := value.(*types.AttributeValueMemberS)
			if !okM {
				return false, nil
			}
			for _, s := range v.Value {
				if s == member.Value {
					return true, nil
				}
			}
			return false, nil
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported function %q", fn)
}

// compareAttr orders two attribute values of the same scalar type. Numbers
// compare numerically, strings and binary lexicographically.
func compareAttr(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Value, bv.Value), true
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		af, errA := strconv.ParseFloat(av.Value, 64)
		bf, errB := strconv.ParseFloat(bv.Value, 64)
		if errA != nil || errB != nil {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av.Value, bv.Value), true
	}
	return 0, false
}

func attrEqual(a, b types.AttributeValue) bool {
	if c, ok := compareAttr(a, b); ok {
		return c == 0
	}
	switch av := a.(type) {
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	}
	return false
}
