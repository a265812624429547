package selector

import (
	"fmt"
	"io"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Finding is the offline evaluation of one candidate against a snapshot.
type Finding struct {
	Target  string
	Locator Locator
	Matches int
	// Skipped is set for CSS candidates, which have no offline evaluator.
	Skipped bool
	Err     error
}

// Report summarises an inspection run.
type Report struct {
	Profile  string
	Findings []Finding
	// ContentFrames counts iframes accepted as activity content frames.
	ContentFrames int
	RelayFrames   int
}

// Unmatched returns the targets for which no candidate matched and at least
// one candidate could be evaluated.
func (r Report) Unmatched() []string {
	matched := make(map[string]bool)
	evaluated := make(map[string]bool)
	var order []string
	for _, f := range r.Findings {
		if _, seen := evaluated[f.Target]; !seen {
			order = append(order, f.Target)
			evaluated[f.Target] = false
		}
		if f.Skipped || f.Err != nil {
			continue
		}
		evaluated[f.Target] = true
		if f.Matches > 0 {
			matched[f.Target] = true
		}
	}
	var out []string
	for _, t := range order {
		if evaluated[t] && !matched[t] {
			out = append(out, t)
		}
	}
	return out
}

// ParseSnapshot parses a saved HTML document.
func ParseSnapshot(r io.Reader) (*html.Node, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("selector: parsing snapshot: %w", err)
	}
	return doc, nil
}

// Inspect evaluates every locator of p against doc. It is a diagnostic for
// markup drift and never mutates the document.
func Inspect(doc *html.Node, p Profile) Report {
	report := Report{Profile: p.Ref()}

	for _, t := range p.Targets() {
		for _, loc := range t.Candidates {
			report.Findings = append(report.Findings, evaluate(doc, t.Name, loc))
		}
	}

	content, relay := classifyFrames(doc, p.Frame)
	report.ContentFrames = content
	report.RelayFrames = relay
	return report
}

func evaluate(doc *html.Node, target string, loc Locator) Finding {
	f := Finding{Target: target, Locator: loc}
	q, err := loc.Compile()
	if err != nil {
		f.Err = err
		return f
	}
	if q.Engine == EngineCSS {
		f.Skipped = true
		return f
	}
	nodes, err := htmlquery.QueryAll(doc, q.Expr)
	if err != nil {
		f.Err = fmt.Errorf("evaluating %s: %w", q.Expr, err)
		return f
	}
	f.Matches = len(nodes)
	return f
}

// classifyFrames applies the frame rules to every iframe in the snapshot.
func classifyFrames(doc *html.Node, rules FrameRules) (content, relay int) {
	contentRe, err := rules.ContentSrcPattern()
	if err != nil {
		return 0, 0
	}
	relayRe, _ := rules.RelaySrcPattern()

	for _, n := range htmlquery.Find(doc, "//iframe[@src]") {
		src := htmlquery.SelectAttr(n, "src")
		class := htmlquery.SelectAttr(n, "class")
		if IsRelayFrame(rules, relayRe, src, class) {
			relay++
			continue
		}
		if contentRe.MatchString(src) {
			content++
		}
	}
	return content, relay
}
