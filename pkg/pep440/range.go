package pep440

import (
	"fmt"
	"strings"
	"unicode"
)

type op int

const (
	_ op = iota
	opMatch
	opExclusion
	opLTE
	opGTE
	opLT
	opGT
)

func (o op) String() string {
	switch o {
	case opMatch:
		return "=="
	case opExclusion:
		return "!="
	case opLTE:
		return "<="
	case opGTE:
		return ">="
	case opLT:
		return "<"
	case opGT:
		return ">"
	default:
		return "?"
	}
}

type criterion struct {
	V  Version
	Op op
}

func (c *criterion) Match(v *Version) bool {
	cmp := v.Compare(&c.V)
	switch c.Op {
	case opMatch:
		return cmp == 0
	case opExclusion:
		return cmp != 0
	case opLTE:
		return cmp != +1
	case opGTE:
		return cmp != -1
	case opLT:
		return cmp == -1
	case opGT:
		return cmp == +1
	default:
		panic("pep440: unknown operator")
	}
}

// Range is a conjunction of criteria corresponding to a PEP 440 version
// specifier set (everything joined by commas matches).
type Range []criterion

func (r Range) String() string {
	var b strings.Builder
	for i, c := range r {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Op.String())
		b.WriteString(c.V.String())
	}
	return b.String()
}

// Match reports whether v satisfies every criterion in the Range.
func (r Range) Match(v *Version) bool {
	for _, c := range r {
		if !c.Match(v) {
			return false
		}
	}
	return true
}

// ParseRange parses a PEP 440 version specifier set. Wildcard ("==1.2.*")
// and arbitrary equality ("===") matches are not implemented; BazBOM has not
// observed either in advisory affected-range data in practice.
func ParseRange(r string) (Range, error) {
	const ops = `~=!<>`
	r = strings.Map(stripSpace, r)
	if r == "" {
		return nil, nil
	}

	var ret []criterion
	for _, clause := range strings.Split(r, ",") {
		i := strings.LastIndexAny(clause, ops) + 1
		o := clause[:i]
		v, err := Parse(clause[i:])
		if err != nil {
			return nil, err
		}
		switch o {
		case "==":
			ret = append(ret, criterion{Op: opMatch, V: v})
		case "!=":
			ret = append(ret, criterion{Op: opExclusion, V: v})
		case "<=":
			ret = append(ret, criterion{Op: opLTE, V: v})
		case ">=":
			ret = append(ret, criterion{Op: opGTE, V: v})
		case "<":
			ret = append(ret, criterion{Op: opLT, V: v})
		case ">":
			ret = append(ret, criterion{Op: opGT, V: v})
		case "~=":
			if len(v.Release) < 2 {
				return nil, fmt.Errorf("pep440: ~= requires at least two release components in %q", clause)
			}
			uv := Version{Epoch: v.Epoch}
			l := len(v.Release) - 1
			uv.Release = make([]int, l)
			copy(uv.Release, v.Release[:l])
			uv.Release[l-1]++
			ret = append(ret,
				criterion{Op: opGTE, V: v},
				criterion{Op: opLT, V: uv},
			)
		default:
			return nil, fmt.Errorf("pep440: unknown range operator %q", o)
		}
	}
	return Range(ret), nil
}

func stripSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return -1
	}
	return r
}
