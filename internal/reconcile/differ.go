package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nicolagi/specdiff/internal/fragment"
	"github.com/nicolagi/specdiff/internal/remote"
	"github.com/nicolagi/specdiff/internal/section"
)

// SectionDiff is the reconciled output for one section. When reconciliation
// failed, HTML is empty and Message explains; a failed section never fails
// the batch.
type SectionDiff struct {
	ID    string
	Num   string
	Title string
	HTML  string

	// Net change counts, from the paired-change markers.
	Inserted int
	Deleted  int

	Message string
}

// Result is the output container of one invocation. An aborted invocation
// produces no sections: partial output is discarded, and aborting is not an
// error.
type Result struct {
	Aborted  bool
	Sections []SectionDiff
}

type invocation struct {
	abortFlag  atomic.Bool
	finishFlag atomic.Bool
}

func (inv *invocation) abort()         { inv.abortFlag.Store(true) }
func (inv *invocation) aborted() bool  { return inv.abortFlag.Load() }
func (inv *invocation) finish()        { inv.finishFlag.Store(true) }
func (inv *invocation) finished() bool { return inv.finishFlag.Load() }

// DifferOption follows the functional options pattern to pass options to NewDiffer.
type DifferOption func(*Differ)

// WithPollInterval overrides how often a new invocation polls an old one for
// completion after raising its abort flag.
func WithPollInterval(d time.Duration) DifferOption {
	return func(differ *Differ) {
		differ.pollInterval = d
	}
}

// A Differ runs diff invocations over a pair of section sources. At most one
// invocation is ever reconciling: a newly started invocation aborts the
// in-flight one and waits for it to finish before touching anything.
type Differ struct {
	client *remote.Client
	left   section.Source
	right  section.Source

	pollInterval time.Duration

	mu      sync.Mutex
	current *invocation
}

func NewDiffer(client *remote.Client, left, right section.Source, options ...DifferOption) *Differ {
	d := &Differ{
		client:       client,
		left:         left,
		right:        right,
		pollInterval: 100 * time.Millisecond,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Run reconciles the given sections and returns their annotated diffs. The
// abort flag is checked once per section, between engine calls: a section
// already submitted to the engine always completes, only the remaining ones
// are skipped.
func (d *Differ) Run(ctx context.Context, ids []string) (*Result, error) {
	inv := new(invocation)
	d.mu.Lock()
	prev := d.current
	d.current = inv
	d.mu.Unlock()
	if prev != nil && !prev.finished() {
		prev.abort()
		ticker := time.NewTicker(d.pollInterval)
		for !prev.finished() {
			<-ticker.C
		}
		ticker.Stop()
	}
	defer inv.finish()

	result := new(Result)
	for _, id := range ids {
		if inv.aborted() || ctx.Err() != nil {
			return &Result{Aborted: true}, nil
		}
		result.Sections = append(result.Sections, d.diffSection(ctx, id))
	}
	if inv.aborted() {
		return &Result{Aborted: true}, nil
	}
	return result, nil
}

func (d *Differ) diffSection(ctx context.Context, id string) SectionDiff {
	out := SectionDiff{ID: id}
	left, right, err := d.fetch(ctx, id)
	if err != nil {
		log.WithFields(log.Fields{"section": id, "cause": err}).Warning("Section data unavailable")
		out.Message = "Section data could not be loaded."
		return out
	}
	out.Num = right.Num
	out.Title = right.Title
	if out.Title == "" {
		out.Num = left.Num
		out.Title = left.Title
	}
	merged, err := d.diffFragment(ctx, left.HTML, right.HTML)
	if err != nil {
		log.WithFields(log.Fields{"section": id, "cause": err}).Warning("Reconciliation failed")
		out.Message = "This section could not be reconciled."
		return out
	}
	merged = annotateListMarkers(merged)
	out.Inserted, out.Deleted = countChanges(merged)
	out.HTML = merged.InnerHTML()
	return out
}

// fetch loads both sides of a section. On any failure it refreshes both
// sources and retries exactly once; a second failure is surfaced, never
// retried again.
func (d *Differ) fetch(ctx context.Context, id string) (section.Section, section.Section, error) {
	get := func() (section.Section, section.Section, error) {
		var left, right section.Section
		g, _ := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			left, err = d.left.Section(id)
			return
		})
		g.Go(func() (err error) {
			right, err = d.right.Section(id)
			return
		})
		err := g.Wait()
		return left, right, err
	}
	left, right, err := get()
	if err == nil {
		return left, right, nil
	}
	if err := d.left.Refresh(); err != nil {
		return left, right, err
	}
	if err := d.right.Refresh(); err != nil {
		return left, right, err
	}
	return get()
}

// Engine request payloads. The engine is an opaque collaborator; these
// structs are this side's rendering of its wire contract.
type textPayload struct {
	S1   string `json:"s1"`
	S2   string `json:"s2"`
	Type string `json:"type"`
}

type treePayload struct {
	NodeObj1 *fragment.Wire `json:"nodeObj1"`
	NodeObj2 *fragment.Wire `json:"nodeObj2"`
}

const (
	typeSplitForDiff = "splitForDiff"
	typeDiff         = "diff"
)

// diffFragment runs the whole per-section pipeline: number, pre-split,
// pre-combine, serialize, remote diff, deserialize, post-combine, order
// normalization, strip.
func (d *Differ) diffFragment(ctx context.Context, leftHTML, rightHTML string) (*fragment.Fragment, error) {
	f1, err := fragment.Parse(leftHTML)
	if err != nil {
		return nil, err
	}
	f2, err := fragment.Parse(rightHTML)
	if err != nil {
		return nil, err
	}
	f1 = number(f1, leftSide)
	f2 = number(f2, rightSide)

	// Pre-split: the whole-tree diff is poor at within-node moves (an item
	// split in two, two paragraphs merged); text-level pre-alignment gives
	// it matching anchor points.
	var split [2]string
	err = d.client.CallJSON(ctx, textPayload{S1: f1.InnerHTML(), S2: f2.InnerHTML(), Type: typeSplitForDiff}, &split)
	if err != nil {
		return nil, errors.Wrap(err, "pre-split")
	}
	if f1, err = reparse(f1, split[0]); err != nil {
		return nil, errors.Wrap(err, "pre-split left")
	}
	if f2, err = reparse(f2, split[1]); err != nil {
		return nil, errors.Wrap(err, "pre-split right")
	}

	f1 = combineListItems(f1)
	f2 = combineListItems(f2)

	w1 := fragment.Serialize(f1)
	w2 := fragment.Serialize(f2)

	var merged *fragment.Fragment
	if textOnly(w1) && textOnly(w2) {
		// No structure on either side; the text diff is cheaper and its
		// annotated output is already merged markup.
		var annotated string
		err = d.client.CallJSON(ctx, textPayload{S1: f1.InnerHTML(), S2: f2.InnerHTML(), Type: typeDiff}, &annotated)
		if err != nil {
			return nil, errors.Wrap(err, "text diff")
		}
		if merged, err = reparse(f2, annotated); err != nil {
			return nil, errors.Wrap(err, "text diff result")
		}
	} else {
		var result fragment.WireChild
		err = d.client.CallJSON(ctx, treePayload{NodeObj1: w1, NodeObj2: w2}, &result)
		if err != nil {
			return nil, errors.Wrap(err, "tree diff")
		}
		if result.IsText() {
			merged = f2.CloneHeader()
			merged.Children = []fragment.Child{fragment.Text(result.Text)}
		} else {
			merged = fragment.Deserialize(result.Node)
		}
	}

	merged = combineTopLevel(merged)
	merged = normalizeOrder(merged)
	merged = strip(merged)
	return merged, nil
}

// reparse replaces a container's content with freshly parsed markup, keeping
// the container's own identity.
func reparse(container *fragment.Fragment, markup string) (*fragment.Fragment, error) {
	parsed, err := fragment.Parse(markup)
	if err != nil {
		return nil, err
	}
	out := container.CloneHeader()
	out.Children = parsed.Children
	return out, nil
}

func textOnly(w *fragment.Wire) bool {
	for _, c := range w.ChildNodes {
		if !c.IsText() {
			return false
		}
	}
	return true
}
