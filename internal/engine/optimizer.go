package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/piwi3910/platecut/internal/model"
)

// State is the progress of a packing run.
type State int

const (
	StateIdle        State = iota
	StatePacking           // filling plate after plate
	StateDone              // every item of the sequence is placed
	StateOutOfPlates       // the plate budget ran out first
	StateStalled           // the next item fits on no empty plate
)

func (s State) String() string {
	switch s {
	case StatePacking:
		return "packing"
	case StateDone:
		return "done"
	case StateOutOfPlates:
		return "out of plates"
	case StateStalled:
		return "stalled"
	default:
		return "idle"
	}
}

// Request describes one packing run.
type Request struct {
	Problem  *model.Problem
	Sequence []int // item ids; nil packs Problem.DefaultSequence()
	Start    int   // sequence offset of the first item to pack

	// Previous is an earlier solution of the same problem, packed with the
	// same Params and Options. When Options.EarlyCancel is set, plates that
	// cannot be affected by the differences between the two sequences are
	// copied from it instead of being packed again.
	Previous *model.Solution
}

// Stats reports how a run ended.
type Stats struct {
	State     State
	Placed    int // items placed by this run
	Remaining int // items of the sequence left unplaced
	Packed    int // plates computed
	Reused    int // plates copied from the previous solution
}

// Packer packs item sequences onto plates. A Packer holds no state between
// calls and may be used from several goroutines.
type Packer struct {
	Params  model.Params
	Options model.Options

	log *slog.Logger
}

// New creates a Packer that logs through the current engine logger.
func New(params model.Params, options model.Options) *Packer {
	return &Packer{Params: params, Options: options, log: Logger()}
}

// Pack places the items of the request sequence, in order, onto as few
// plates as it can. Plates are filled one at a time; the context is checked
// between plates.
func (p *Packer) Pack(ctx context.Context, req Request) (sol *model.Solution, stats Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			sol, stats, err = nil, Stats{State: StateIdle}, p.abort(r)
		}
	}()

	if err := p.Params.Validate(); err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %v", model.ErrInvalidProblem, err)
	}
	if req.Problem == nil {
		return nil, Stats{}, fmt.Errorf("%w: no problem given", model.ErrInvalidProblem)
	}
	seq := req.Sequence
	if seq == nil {
		seq = req.Problem.DefaultSequence()
	}
	if err := req.Problem.ValidateSequence(seq); err != nil {
		return nil, Stats{}, err
	}
	if req.Start < 0 || req.Start > len(seq) {
		return nil, Stats{}, fmt.Errorf("%w: start offset %d outside sequence of %d items", model.ErrInvalidProblem, req.Start, len(seq))
	}

	items := make([]model.Item, len(seq))
	for i, id := range seq {
		items[i], _ = req.Problem.Item(id)
	}

	r := p.newRun(req.Problem, items)
	sol = model.NewSolution(seq, req.Start)
	stats.State = StatePacking

	prev, begin, end := p.reusable(req, seq)
	offset := req.Start
	n := len(seq)

	for len(sol.Plates) < len(prev) {
		pp := prev[len(sol.Plates)]
		if pp.Horizon >= begin || pp.First != offset {
			break
		}
		sol.Plates = append(sol.Plates, pp)
		offset += pp.Count
		stats.Reused++
	}

	for offset < n {
		if len(sol.Plates) >= p.Params.PlateCount {
			stats.State = StateOutOfPlates
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		idx := len(sol.Plates)
		ps := r.packPlate(idx, offset)
		if ps.Count == 0 {
			// Defects may block this plate only; a later clean plate can
			// still take the item.
			if len(r.problem.DefectsOn(idx)) == 0 || !r.fitsCleanPlate(offset) {
				p.log.Debug("no item fits on an empty plate", "plate", idx, "offset", offset, "item", seq[offset])
				stats.State = StateStalled
				break
			}
			if !r.wastePlate(&ps) {
				p.log.Debug("defects leave no cut tiling", "plate", idx)
				stats.State = StateStalled
				break
			}
			p.log.Debug("plate skipped", "plate", idx, "offset", offset, "item", seq[offset])
		}
		sol.Plates = append(sol.Plates, ps)
		stats.Packed++
		offset += ps.Count
		p.log.Debug("plate packed", "plate", idx, "items", ps.Count, "first", ps.First, "horizon", ps.Horizon)

		// Once a recomputed plate ends where its previous version ended and
		// the changed part of the sequence is behind us, the remaining
		// plates are unchanged.
		if idx < len(prev) && offset >= end && prev[idx].First+prev[idx].Count == offset {
			for _, pp := range prev[idx+1:] {
				sol.Plates = append(sol.Plates, pp)
				offset += pp.Count
				stats.Reused++
			}
			prev = nil
		}
	}

	if stats.State == StatePacking {
		stats.State = StateDone
	}
	stats.Placed = offset - req.Start
	stats.Remaining = n - offset
	return sol, stats, nil
}

// abort logs a recovered invariant violation and returns it. Any other
// panic value is re-raised.
func (p *Packer) abort(r any) error {
	var ie *InvariantError
	e, ok := r.(error)
	if !ok || !errors.As(e, &ie) {
		panic(r)
	}
	p.log.Error("packing aborted", "layer", ie.Layer, "error", ie.Msg)
	return ie
}

// reusable returns the plates of the previous solution that may be reused
// and the range [begin, end) of sequence offsets that differ from it.
func (p *Packer) reusable(req Request, seq []int) ([]model.PlateSolution, int, int) {
	prev := req.Previous
	if !p.Options.EarlyCancel || prev == nil || prev.Start != req.Start || len(prev.Sequence) != len(seq) {
		return nil, 0, 0
	}
	begin, end := diffRange(prev.Sequence, seq)
	return prev.Plates, begin, end
}

// diffRange returns the smallest range [begin, end) outside of which a and b
// are equal. Equal slices give begin == end == len(a).
func diffRange(a, b []int) (begin, end int) {
	begin = len(a)
	for i := range a {
		if a[i] != b[i] {
			begin = i
			break
		}
	}
	end = begin
	for i := len(a) - 1; i >= begin; i-- {
		if a[i] != b[i] {
			end = i + 1
			break
		}
	}
	return begin, end
}

// run owns the solvers of one Pack call.
type run struct {
	params  model.Params
	problem *model.Problem
	row     *rowSolver
	plate   *plateSolver
	n       int
}

func (p *Packer) newRun(problem *model.Problem, items []model.Item) *run {
	row := newRowSolver(p.Params, p.Options.RowMode, items, p.log)
	cut := newCutSolver(p.Params, p.Options.CutMode, row, p.Options.TraceFronts, p.log)
	plate := newPlateSolver(p.Params, p.Options.PlateMode, cut, p.Options.TraceFronts, p.log)
	return &run{params: p.Params, problem: problem, row: row, plate: plate, n: len(items)}
}

// packPlate fills plate idx with the items starting at offset.
func (r *run) packPlate(idx, offset int) model.PlateSolution {
	var defects []model.Rect
	for _, d := range r.problem.DefectsOn(idx) {
		defects = append(defects, d.Rect)
	}
	r.plate.reset(defects)
	r.row.horizon = offset - 1

	ps := r.plate.pack(offset, r.n-offset)
	ps.Index = idx
	ps.First = offset
	ps.Horizon = r.row.horizon
	invariant(ps.ItemCount() == ps.Count, "plate", "plate %d lists %d items, counted %d", idx, ps.ItemCount(), ps.Count)
	return ps
}

// fitsCleanPlate reports whether the item at offset fits on a plate
// without defects.
func (r *run) fitsCleanPlate(offset int) bool {
	r.plate.reset(nil)
	return r.plate.pack(offset, 1).Count > 0
}

// wastePlate turns an empty plate into a plate of empty cuts. It reports
// false when the plate defects admit no such tiling.
func (r *run) wastePlate(ps *model.PlateSolution) bool {
	defects := make([]model.Rect, 0, len(r.problem.DefectsOn(ps.Index)))
	for _, d := range r.problem.DefectsOn(ps.Index) {
		defects = append(defects, d.Rect)
	}
	r.plate.reset(defects)

	x := 0
	ps.Cuts = nil
	for _, b := range r.plate.wasteTiling(0) {
		ps.Cuts = append(ps.Cuts, r.plate.wasteCut(x, b))
		x = b
	}
	if x != r.params.PlateWidth {
		return false
	}
	ps.Rect = model.Rect{MaxX: x, MaxY: r.params.PlateHeight}
	// The plate was decided by the item at its first offset.
	ps.Horizon = max(ps.Horizon, ps.First)
	return true
}
