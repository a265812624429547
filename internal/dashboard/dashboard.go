// internal/dashboard/dashboard.go
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/action"
	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/module"
	"github.com/xkilldash9x/climber/internal/selector"
)

// ErrDashboardRecoveryFailed is returned when the dashboard could not be
// reloaded after an assignment. It ends ProcessAll early.
var ErrDashboardRecoveryFailed = errors.New("dashboard recovery failed")

// ModuleWalker walks the module page the driver is on.
type ModuleWalker interface {
	Walk(ctx context.Context) (module.Report, error)
}

// Entry is one assignment card in document order. Element is only valid
// until the next navigation.
type Entry struct {
	Index int
	Title string
	// ID is a stable identifier read from the card (data id or link target).
	// Empty when the card carries none.
	ID      string
	Element browser.Element

	untitled bool
}

// identityAttrs are read from the card, then from its open control, to
// identify an entry across re-scans.
var identityAttrs = []string{"data-assignment-id", "data-id", "href"}

// Assignment is the result of one opened assignment.
type Assignment struct {
	Title      string        `json:"title"`
	ID         string        `json:"id,omitempty"`
	Occurrence int           `json:"occurrence,omitempty"`
	Module     module.Report `json:"module"`
	Error      string        `json:"error,omitempty"`
}

// Summary is the result of ProcessAll.
type Summary struct {
	Assignments []Assignment `json:"assignments"`
	// Remaining counts unprocessed entries left when the assignment cap
	// was reached.
	Remaining int `json:"remaining,omitempty"`
}

// Activities totals the activities processed across assignments.
func (s Summary) Activities() int {
	n := 0
	for _, a := range s.Assignments {
		n += a.Module.Processed
	}
	return n
}

// Walker processes every assignment listed on the dashboard.
type Walker struct {
	actor   *action.Actor
	modules ModuleWalker
	sel     selector.PlatformSelectors
	url     string
	cfg     config.WalkerConfig
	logger  *zap.Logger
}

// New creates a dashboard Walker for the dashboard at url.
func New(actor *action.Actor, modules ModuleWalker, sel selector.PlatformSelectors, url string, cfg config.WalkerConfig, logger *zap.Logger) *Walker {
	return &Walker{
		actor:   actor,
		modules: modules,
		sel:     sel,
		url:     url,
		cfg:     cfg,
		logger:  logger.Named("dashboard"),
	}
}

// Scan lists the assignment entries currently shown. It queries the page on
// every call and never reuses handles from a previous scan.
func (w *Walker) Scan(ctx context.Context) ([]Entry, error) {
	if err := w.topLevel(ctx); err != nil {
		return nil, err
	}
	els, err := browser.FindFirst(ctx, w.actor.Driver(), w.sel.AssignmentEntry)
	if err != nil {
		return nil, fmt.Errorf("dashboard: scan assignments: %w", err)
	}
	entries := make([]Entry, 0, len(els))
	for i, el := range els {
		title, titled := w.title(ctx, el)
		e := Entry{Index: i, Title: title, ID: w.identity(ctx, el), Element: el, untitled: !titled}
		if !titled {
			e.Title = fmt.Sprintf("assignment #%d", i+1)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (w *Walker) identity(ctx context.Context, el browser.Element) string {
	candidates := []browser.Element{el}
	if open := w.openControl(ctx, el); open != el {
		candidates = append(candidates, open)
	}
	for _, c := range candidates {
		for _, attr := range identityAttrs {
			if v, ok, err := c.Attribute(ctx, attr); err == nil && ok && strings.TrimSpace(v) != "" {
				return attr + "=" + strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// openControl returns the entry's open control, or the entry itself.
func (w *Walker) openControl(ctx context.Context, el browser.Element) browser.Element {
	if !w.sel.AssignmentOpen.IsZero() {
		if found, err := browser.FindFirstIn(ctx, el, w.sel.AssignmentOpen); err == nil && len(found) > 0 {
			return found[0]
		}
	}
	return el
}

// title derives a label for an entry: the title element, else the first
// line of the entry's text. It reports false when neither yields text.
func (w *Walker) title(ctx context.Context, el browser.Element) (string, bool) {
	if !w.sel.AssignmentTitle.IsZero() {
		if found, err := browser.FindFirstIn(ctx, el, w.sel.AssignmentTitle); err == nil {
			for _, t := range found {
				if text, err := t.Text(ctx); err == nil && strings.TrimSpace(text) != "" {
					return strings.TrimSpace(text), true
				}
			}
		}
	}
	if text, err := el.Text(ctx); err == nil {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line, true
			}
		}
	}
	return "", false
}

// ProcessAll opens the dashboard and processes each assignment once. The
// list is re-scanned before every assignment since completing one may
// remove or reorder entries; see progress for how entries are matched.
// Failures inside an assignment are recorded and the dashboard is reloaded.
func (w *Walker) ProcessAll(ctx context.Context) (Summary, error) {
	var summary Summary
	if err := w.open(ctx); err != nil {
		return summary, fmt.Errorf("dashboard: %w", err)
	}

	done := newProgress()
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		entries, err := w.rescan(ctx)
		if err != nil {
			return summary, err
		}
		done.reconcile(entries)
		entry, occurrence, pending := done.next(entries)
		if pending == 0 {
			break
		}
		if len(summary.Assignments) >= w.cfg.MaxAssignments {
			summary.Remaining = pending
			w.logger.Warn("Assignment cap reached.", zap.Int("max_assignments", w.cfg.MaxAssignments), zap.Int("remaining", pending))
			break
		}
		done.mark(entry, occurrence)

		result := w.process(ctx, entry, occurrence)
		summary.Assignments = append(summary.Assignments, result)

		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := w.open(ctx); err != nil {
			w.logger.Error("Could not return to dashboard.", zap.Error(err))
			return summary, fmt.Errorf("%w: %v", ErrDashboardRecoveryFailed, err)
		}
	}

	w.logger.Info("All assignments processed.",
		zap.Int("assignments", len(summary.Assignments)),
		zap.Int("activities", summary.Activities()))
	return summary, nil
}

// rescan lists the entries, reloading the dashboard once if the lookup
// fails. A second failure ends the walk as a failed recovery.
func (w *Walker) rescan(ctx context.Context) ([]Entry, error) {
	entries, err := w.Scan(ctx)
	if err == nil {
		return entries, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	w.logger.Warn("Dashboard scan failed, reloading.", zap.Error(err))
	if err := w.open(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDashboardRecoveryFailed, err)
	}
	if entries, err = w.Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDashboardRecoveryFailed, err)
	}
	return entries, nil
}

// progress remembers processed entries across re-scans. Entries with an ID
// are matched by it. The rest are grouped by title (untitled cards form one
// group) and matched by occurrence within the group. When a group shrinks
// between scans, the missing cards are taken to be the most recently
// processed ones and the occurrences after them shift down.
type progress struct {
	ids    map[string]bool
	groups map[string]*titleGroup
}

type titleGroup struct {
	seen int   // cards in the group at the last scan
	done []int // processed occurrences, oldest first
}

func newProgress() *progress {
	return &progress{ids: make(map[string]bool), groups: make(map[string]*titleGroup)}
}

func groupKey(e Entry) string {
	if e.untitled {
		return ""
	}
	return "title:" + e.Title
}

// reconcile adjusts the recorded occurrences to a fresh scan.
func (p *progress) reconcile(entries []Entry) {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.ID == "" {
			counts[groupKey(e)]++
		}
	}
	for k, g := range p.groups {
		c := counts[k]
		for removed := g.seen - c; removed > 0 && len(g.done) > 0; removed-- {
			last := g.done[len(g.done)-1]
			g.done = g.done[:len(g.done)-1]
			for i, o := range g.done {
				if o > last {
					g.done[i] = o - 1
				}
			}
		}
		g.seen = c
	}
	for k, c := range counts {
		if _, ok := p.groups[k]; !ok {
			p.groups[k] = &titleGroup{seen: c}
		}
	}
}

// next returns the first entry not yet processed, its occurrence within its
// title group (0 for entries with an ID) and how many entries are pending.
func (p *progress) next(entries []Entry) (Entry, int, int) {
	var (
		first      Entry
		firstOcc   int
		pending    int
		occurrence = make(map[string]int)
	)
	for _, e := range entries {
		occ := 0
		if e.ID != "" {
			if p.ids[e.ID] {
				continue
			}
		} else {
			k := groupKey(e)
			occurrence[k]++
			occ = occurrence[k]
			if p.isDone(k, occ) {
				continue
			}
		}
		if pending == 0 {
			first, firstOcc = e, occ
		}
		pending++
	}
	return first, firstOcc, pending
}

func (p *progress) isDone(k string, occ int) bool {
	g, ok := p.groups[k]
	if !ok {
		return false
	}
	for _, o := range g.done {
		if o == occ {
			return true
		}
	}
	return false
}

func (p *progress) mark(e Entry, occ int) {
	if e.ID != "" {
		p.ids[e.ID] = true
		return
	}
	k := groupKey(e)
	g, ok := p.groups[k]
	if !ok {
		g = &titleGroup{}
		p.groups[k] = g
	}
	g.done = append(g.done, occ)
}

func (w *Walker) process(ctx context.Context, e Entry, occurrence int) (result Assignment) {
	result = Assignment{Title: e.Title, ID: e.ID}
	if occurrence > 1 {
		result.Occurrence = occurrence
	}
	log := w.logger.With(zap.String("assignment", e.Title), zap.Int("index", e.Index))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Assignment panicked.", zap.Any("panic", r))
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	log.Info("Opening assignment.")
	target := w.openControl(ctx, e.Element)
	if res := w.actor.ClickElement(ctx, target, e.Title); !res.OK {
		log.Warn("Could not open assignment.", zap.Error(res.Err))
		result.Error = fmt.Sprintf("open: %v", res.Err)
		return result
	}
	if err := browser.WaitSettled(ctx, w.actor.Driver(), w.cfg.SettleTimeout, w.cfg.SettleQuiet); err != nil {
		log.Debug("Module page did not settle.", zap.Error(err))
	}

	report, err := w.modules.Walk(ctx)
	result.Module = report
	if err != nil {
		log.Warn("Module walk failed.", zap.Error(err), zap.Int("processed", report.Processed))
		result.Error = err.Error()
		return result
	}
	log.Info("Assignment finished.", zap.Int("processed", report.Processed), zap.Int("completed", report.Completed()))
	return result
}

// open navigates to the dashboard from the top-level context and waits for
// its marker.
func (w *Walker) open(ctx context.Context) error {
	if err := w.topLevel(ctx); err != nil {
		return err
	}
	if err := w.actor.Driver().Navigate(ctx, w.url); err != nil {
		return fmt.Errorf("navigate %s: %w", w.url, err)
	}
	if _, err := w.actor.Find(ctx, w.sel.DashboardMarker, w.cfg.MarkerTimeout); err != nil {
		return fmt.Errorf("dashboard marker: %w", err)
	}
	if !w.sel.LoadingOverlay.IsZero() && !w.actor.WaitGone(ctx, w.sel.LoadingOverlay, w.cfg.MarkerTimeout) {
		w.logger.Debug("Loading overlay still visible.")
	}
	return nil
}

func (w *Walker) topLevel(ctx context.Context) error {
	d := w.actor.Driver()
	if !d.InFrame() {
		return nil
	}
	if err := d.ExitFrame(ctx); err != nil {
		return fmt.Errorf("return to top level: %w", err)
	}
	return nil
}
