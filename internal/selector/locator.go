// Package selector describes how elements are found. Locators are plain data
// so that adapting to markup drift is a profile edit rather than a code change.
package selector

import (
	"fmt"
	"strings"
)

// Kind is the locator strategy of a single candidate.
type Kind string

const (
	KindCSS         Kind = "css"
	KindXPath       Kind = "xpath"
	KindID          Kind = "id"
	KindName        Kind = "name"
	KindPlaceholder Kind = "placeholder"
	KindText        Kind = "text"
	KindAriaLabel   Kind = "aria_label"
)

// Engine is the query language a Locator compiles to.
type Engine string

const (
	EngineCSS   Engine = "css"
	EngineXPath Engine = "xpath"
)

// Locator is one selector candidate: a strategy and its parameters. Tag
// optionally narrows attribute and text strategies to one element name.
type Locator struct {
	Kind  Kind   `yaml:"kind" json:"kind"`
	Value string `yaml:"value" json:"value"`
	Tag   string `yaml:"tag,omitempty" json:"tag,omitempty"`
}

// Query is a compiled locator ready for a driver.
type Query struct {
	Engine Engine
	Expr   string
}

func (l Locator) String() string {
	if l.Tag != "" {
		return fmt.Sprintf("%s(%s)=%q", l.Kind, l.Tag, l.Value)
	}
	return fmt.Sprintf("%s=%q", l.Kind, l.Value)
}

// Compile translates the locator into a CSS or XPath query. Everything but
// raw CSS compiles to XPath so the same query works against a live page and
// an offline HTML snapshot.
func (l Locator) Compile() (Query, error) {
	if strings.TrimSpace(l.Value) == "" {
		return Query{}, fmt.Errorf("selector: %s locator has an empty value", l.Kind)
	}
	tag := l.Tag
	if tag == "" {
		tag = "*"
	}

	switch l.Kind {
	case KindCSS:
		return Query{Engine: EngineCSS, Expr: l.Value}, nil
	case KindXPath:
		return Query{Engine: EngineXPath, Expr: l.Value}, nil
	case KindID:
		return attrQuery(tag, "id", l.Value), nil
	case KindName:
		return attrQuery(tag, "name", l.Value), nil
	case KindPlaceholder:
		return Query{Engine: EngineXPath, Expr: fmt.Sprintf("//%s[contains(translate(@placeholder, %s, %s), %s)]",
			tag, xpathLiteral(upper), xpathLiteral(lower), xpathLiteral(strings.ToLower(l.Value)))}, nil
	case KindAriaLabel:
		return Query{Engine: EngineXPath, Expr: fmt.Sprintf("//%s[contains(@aria-label, %s)]", tag, xpathLiteral(l.Value))}, nil
	case KindText:
		// Match on the element's own text nodes so ancestors like <body> do
		// not match as well.
		return Query{Engine: EngineXPath, Expr: fmt.Sprintf("//%s[text()[contains(normalize-space(.), %s)]]", tag, xpathLiteral(l.Value))}, nil
	default:
		return Query{}, fmt.Errorf("selector: unknown locator kind %q", l.Kind)
	}
}

const (
	upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower = "abcdefghijklmnopqrstuvwxyz"
)

func attrQuery(tag, attr, value string) Query {
	return Query{Engine: EngineXPath, Expr: fmt.Sprintf("//%s[@%s=%s]", tag, attr, xpathLiteral(value))}
}

// Relative rewrites an absolute XPath so it is evaluated from a context node
// instead of the document root. CSS queries are already scoped by the
// element they run on.
func (q Query) Relative() Query {
	if q.Engine != EngineXPath {
		return q
	}
	return Query{Engine: EngineXPath, Expr: relativeUnion(q.Expr)}
}

func relativeUnion(expr string) string {
	parts := splitUnion(expr)
	for i, p := range parts {
		parts[i] = relativePath(p)
	}
	return strings.Join(parts, " | ")
}

// relativePath anchors one union member at the context node. A
// parenthesized group such as (//h5)[1] is rewritten inside the parentheses.
func relativePath(p string) string {
	p = strings.TrimSpace(p)
	switch {
	case strings.HasPrefix(p, "("):
		if end := closingParen(p); end > 0 {
			return "(" + relativeUnion(p[1:end]) + ")" + p[end+1:]
		}
	case strings.HasPrefix(p, "/"):
		return "." + p
	}
	return p
}

// closingParen returns the index of the ')' matching the '(' at expr[0],
// or -1 when the group is unbalanced.
func closingParen(expr string) int {
	var (
		depth int
		quote rune
	)
	for i, r := range expr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
			if depth == 0 {
				if r == ')' {
					return i
				}
				return -1
			}
		}
	}
	return -1
}

// splitUnion splits an XPath on top-level '|' operators, ignoring those
// inside string literals, predicates or parentheses.
func splitUnion(expr string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range expr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		case r == '|' && depth == 0:
			parts = append(parts, expr[start:i])
			start = i + 1
		}
	}
	return append(parts, expr[start:])
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	segments := strings.Split(s, "'")
	quoted := make([]string, 0, len(segments)*2)
	for i, seg := range segments {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if seg != "" {
			quoted = append(quoted, "'"+seg+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// Target is a named, ordered chain of candidates describing one logical
// element. Lookups try candidates in order and use the first that matches.
type Target struct {
	Name       string    `yaml:"name" json:"name"`
	Candidates []Locator `yaml:"candidates" json:"candidates"`
}

func (t Target) String() string {
	if t.Name != "" {
		return t.Name
	}
	if len(t.Candidates) > 0 {
		return t.Candidates[0].String()
	}
	return "<empty target>"
}

// IsZero reports whether the target has no candidates.
func (t Target) IsZero() bool { return len(t.Candidates) == 0 }

// Validate checks that every candidate compiles.
func (t Target) Validate() error {
	if t.IsZero() {
		return fmt.Errorf("selector: target %q has no candidates", t.Name)
	}
	for i, c := range t.Candidates {
		if _, err := c.Compile(); err != nil {
			return fmt.Errorf("selector: target %q candidate %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// Named returns a copy of t carrying the given name.
func (t Target) Named(name string) Target {
	t.Name = name
	return t
}

// Of builds an anonymous target from candidates.
func Of(candidates ...Locator) Target {
	return Target{Candidates: candidates}
}

// Shorthand constructors used by tests and code-defined profiles.

func CSS(v string) Locator         { return Locator{Kind: KindCSS, Value: v} }
func XPath(v string) Locator       { return Locator{Kind: KindXPath, Value: v} }
func ID(v string) Locator          { return Locator{Kind: KindID, Value: v} }
func Name(v string) Locator        { return Locator{Kind: KindName, Value: v} }
func Placeholder(v string) Locator { return Locator{Kind: KindPlaceholder, Value: v} }
func Text(tag, v string) Locator   { return Locator{Kind: KindText, Value: v, Tag: tag} }
