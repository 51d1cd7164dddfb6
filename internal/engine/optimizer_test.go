package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/piwi3910/platecut/internal/checker"
	"github.com/piwi3910/platecut/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustProblem(t *testing.T, items []model.Item, defects []model.Defect, params model.Params) *model.Problem {
	t.Helper()
	p, err := model.NewProblem(items, defects, params)
	require.NoError(t, err)
	return p
}

// randomItems returns n items with sides in [lo, hi], one stack per item.
func randomItems(rng *rand.Rand, n, lo, hi int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			ID:     i + 1,
			Width:  lo + rng.Intn(hi-lo+1),
			Height: lo + rng.Intn(hi-lo+1),
			Stack:  i + 1,
		}
	}
	return items
}

func testDefects() []model.Defect {
	return []model.Defect{
		{ID: 1, Plate: 0, Rect: model.NewRect(1200, 800, 150, 90)},
		{ID: 2, Plate: 0, Rect: model.NewRect(4100, 2500, 60, 300)},
		{ID: 3, Plate: 1, Rect: model.NewRect(2950, 0, 120, 120)},
		{ID: 4, Plate: 2, Rect: model.NewRect(500, 1500, 40, 40)},
	}
}

func requireValid(t *testing.T, problem *model.Problem, params model.Params, sol *model.Solution) {
	t.Helper()
	violations := checker.Check(problem, params, sol)
	for _, v := range violations {
		t.Errorf("violation: %s", v)
	}
}

func TestPack_SingleItem(t *testing.T) {
	params := model.DefaultParams()
	problem := mustProblem(t, []model.Item{{ID: 7, Width: 500, Height: 300}}, nil, params)

	sol, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)

	assert.Equal(t, StateDone, stats.State)
	assert.Equal(t, 1, stats.Placed)
	assert.Equal(t, 0, stats.Remaining)
	require.Len(t, sol.Plates, 1)
	assert.Equal(t, 1, sol.Plates[0].Count)
	assert.Equal(t, 300, sol.Plates[0].Rect.MaxX)
	assert.Equal(t, 7, sol.Placements()[0].ItemID)

	residual, ok := sol.Residual(params)
	require.True(t, ok)
	assert.Equal(t, 300, residual.MinX)
	requireValid(t, problem, params, sol)
}

func TestPack_OversizedItemsLeaveNoPlates(t *testing.T) {
	params := model.DefaultParams()
	items := make([]model.Item, 200)
	for i := range items {
		items[i] = model.Item{ID: i, Width: 4000, Height: 4000, Stack: i}
	}
	problem := mustProblem(t, items, nil, params)

	sol, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)

	assert.Empty(t, sol.Plates)
	assert.Equal(t, StateStalled, stats.State)
	assert.Equal(t, 0, stats.Placed)
	assert.Equal(t, 200, stats.Remaining)
}

func TestPack_DefectivePlateIsSkipped(t *testing.T) {
	// The defect leaves no room for the full-height item on plate 0; the
	// clean plate 1 takes both items.
	params := model.DefaultParams()
	items := []model.Item{
		{ID: 1, Width: 3000, Height: 3210, Stack: 1},
		{ID: 2, Width: 500, Height: 500, Stack: 2},
	}
	defects := []model.Defect{{ID: 1, Plate: 0, Rect: model.NewRect(2900, 1500, 200, 100)}}
	problem := mustProblem(t, items, defects, params)

	sol, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)

	assert.Equal(t, StateDone, stats.State)
	assert.Equal(t, 2, stats.Placed)
	assert.Equal(t, 0, stats.Remaining)
	require.Len(t, sol.Plates, 2)

	skipped := sol.Plates[0]
	assert.Equal(t, 0, skipped.Count)
	assert.Equal(t, 0, skipped.First)
	assert.Equal(t, params.PlateWidth, skipped.Rect.MaxX)
	assert.NotEmpty(t, skipped.Cuts)
	for _, cut := range skipped.Cuts {
		assert.Empty(t, cut.Rows)
	}
	assert.Equal(t, 2, sol.Plates[1].Count)
	assert.Equal(t, 0, sol.Plates[1].First)
	requireValid(t, problem, params, sol)

	// The skipped plate is reused like any other.
	again, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem, Previous: sol})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Reused)
	assert.Equal(t, sol.Plates, again.Plates)
}

func TestPack_DefectsDoNotHideOversizedItems(t *testing.T) {
	params := model.DefaultParams()
	problem := mustProblem(t,
		[]model.Item{{ID: 1, Width: 4000, Height: 4000, Stack: 1}},
		[]model.Defect{{ID: 1, Plate: 0, Rect: model.NewRect(100, 100, 50, 50)}},
		params)

	sol, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)
	assert.Equal(t, StateStalled, stats.State)
	assert.Empty(t, sol.Plates)
	assert.Equal(t, 1, stats.Remaining)
}

func TestPack_RandomInstancesAreValid(t *testing.T) {
	params := model.DefaultParams()
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		items := randomItems(rng, 60, 150, 1600)
		problem := mustProblem(t, items, testDefects(), params)

		sol, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem})
		require.NoError(t, err)

		assert.Equal(t, StateDone, stats.State)
		assert.Equal(t, len(items), sol.ItemCount())
		requireValid(t, problem, params, sol)

		for i, plate := range sol.Plates {
			assert.Equal(t, i, plate.Index)
			assert.GreaterOrEqual(t, plate.Horizon, plate.First+plate.Count-1)
			if i < len(sol.Plates)-1 {
				assert.Equal(t, params.PlateWidth, plate.Rect.MaxX, "only the last plate may stop early")
				assert.GreaterOrEqual(t, plate.Horizon, plate.First+plate.Count, "a full plate has looked at the next item")
			}
		}
	}
}

func TestPack_PlateBudget(t *testing.T) {
	params := model.DefaultParams()
	params.PlateCount = 1
	rng := rand.New(rand.NewSource(3))
	problem := mustProblem(t, randomItems(rng, 80, 800, 1500), nil, params)

	sol, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)

	assert.Equal(t, StateOutOfPlates, stats.State)
	require.Len(t, sol.Plates, 1)
	assert.Equal(t, 80, stats.Placed+stats.Remaining)
	assert.Positive(t, stats.Remaining)
	requireValid(t, problem, params, sol)
}

func TestPack_StartOffset(t *testing.T) {
	params := model.DefaultParams()
	problem := mustProblem(t, squareItems(12, 1000), nil, params)
	seq := problem.DefaultSequence()

	sol, stats, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem, Sequence: seq, Start: 5})
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Placed)
	assert.Equal(t, 5, sol.Start)
	require.NotEmpty(t, sol.Plates)
	assert.Equal(t, 5, sol.Plates[0].First)
	assert.Equal(t, seq[5], sol.Placements()[0].ItemID)
	requireValid(t, problem, params, sol)
}

func TestPack_Deterministic(t *testing.T) {
	params := model.DefaultParams()
	rng := rand.New(rand.NewSource(11))
	problem := mustProblem(t, randomItems(rng, 50, 200, 1400), testDefects(), params)
	packer := New(params, model.DefaultOptions())

	a, _, err := packer.Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)
	b, _, err := packer.Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)

	assert.Equal(t, a.Plates, b.Plates)
}

func TestPack_EarlyCancelMatchesFullRun(t *testing.T) {
	params := model.DefaultParams()
	rng := rand.New(rand.NewSource(5))
	problem := mustProblem(t, randomItems(rng, 70, 300, 1500), testDefects(), params)
	base := problem.DefaultSequence()

	packer := New(params, model.DefaultOptions())
	prev, _, err := packer.Pack(context.Background(), Request{Problem: problem, Sequence: base})
	require.NoError(t, err)
	require.Greater(t, len(prev.Plates), 2)

	swaps := [][2]int{{68, 69}, {0, 1}, {30, 40}, {10, 60}}
	for _, sw := range swaps {
		seq := append([]int(nil), base...)
		seq[sw[0]], seq[sw[1]] = seq[sw[1]], seq[sw[0]]

		full, _, err := packer.Pack(context.Background(), Request{Problem: problem, Sequence: seq})
		require.NoError(t, err)
		reused, stats, err := packer.Pack(context.Background(), Request{Problem: problem, Sequence: seq, Previous: prev})
		require.NoError(t, err)

		assert.Equal(t, full.Plates, reused.Plates, "swap %v", sw)
		assert.Equal(t, len(reused.Plates), stats.Packed+stats.Reused)
		if sw[0] == 68 {
			assert.Positive(t, stats.Reused, "plates before the change are reused")
		}
		requireValid(t, problem, params, reused)
	}
}

func TestPack_EarlyCancelIdenticalSequenceReusesEverything(t *testing.T) {
	params := model.DefaultParams()
	rng := rand.New(rand.NewSource(9))
	problem := mustProblem(t, randomItems(rng, 40, 300, 1500), nil, params)
	packer := New(params, model.DefaultOptions())

	prev, _, err := packer.Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)
	again, stats, err := packer.Pack(context.Background(), Request{Problem: problem, Previous: prev})
	require.NoError(t, err)

	assert.Equal(t, prev.Plates, again.Plates)
	assert.Equal(t, 0, stats.Packed)
	assert.Equal(t, len(prev.Plates), stats.Reused)
}

func TestPack_EarlyCancelDisabled(t *testing.T) {
	params := model.DefaultParams()
	rng := rand.New(rand.NewSource(9))
	problem := mustProblem(t, randomItems(rng, 30, 300, 1500), nil, params)
	opts := model.DefaultOptions()
	opts.EarlyCancel = false
	packer := New(params, opts)

	prev, _, err := packer.Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)
	_, stats, err := packer.Pack(context.Background(), Request{Problem: problem, Previous: prev})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Reused)
}

func TestPack_ContextCanceled(t *testing.T) {
	params := model.DefaultParams()
	problem := mustProblem(t, squareItems(5, 1000), nil, params)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, _, err := New(params, model.DefaultOptions()).Pack(ctx, Request{Problem: problem})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, sol)
}

func TestPack_InvalidRequests(t *testing.T) {
	params := model.DefaultParams()
	problem := mustProblem(t, squareItems(3, 1000), nil, params)
	packer := New(params, model.DefaultOptions())

	_, _, err := packer.Pack(context.Background(), Request{Problem: problem, Sequence: []int{0, 0}})
	assert.ErrorIs(t, err, model.ErrInvalidProblem)

	_, _, err = packer.Pack(context.Background(), Request{Problem: problem, Sequence: []int{0, 99}})
	assert.ErrorIs(t, err, model.ErrInvalidProblem)

	_, _, err = packer.Pack(context.Background(), Request{Problem: problem, Start: 4})
	assert.ErrorIs(t, err, model.ErrInvalidProblem)

	_, _, err = packer.Pack(context.Background(), Request{})
	assert.ErrorIs(t, err, model.ErrInvalidProblem)

	bad := params
	bad.MaxXX = bad.MinXX
	_, _, err = New(bad, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem})
	assert.ErrorIs(t, err, model.ErrInvalidProblem)
}

func TestPack_StackOrderIsEnforced(t *testing.T) {
	params := model.DefaultParams()
	items := []model.Item{
		{ID: 1, Width: 500, Height: 500, Stack: 1, Seq: 1},
		{ID: 2, Width: 500, Height: 500, Stack: 1, Seq: 2},
	}
	problem := mustProblem(t, items, nil, params)

	_, _, err := New(params, model.DefaultOptions()).Pack(context.Background(), Request{Problem: problem, Sequence: []int{2, 1}})
	assert.ErrorIs(t, err, model.ErrInvalidProblem)
}

// smallParams keeps the exact algorithms fast enough for unit tests.
func smallParams() model.Params {
	return model.Params{
		PlateWidth:  120,
		PlateHeight: 80,
		MinXX:       10,
		MaxXX:       60,
		MinYY:       10,
		MinWaste:    2,
		PlateCount:  20,
	}
}

func TestPack_ExactModesProduceValidSolutions(t *testing.T) {
	params := smallParams()
	rng := rand.New(rand.NewSource(21))
	items := randomItems(rng, 18, 8, 40)
	defects := []model.Defect{{ID: 1, Plate: 0, Rect: model.NewRect(30, 30, 5, 5)}}
	problem := mustProblem(t, items, defects, params)

	opts := model.Options{RowMode: model.ModeExact, CutMode: model.ModeExact, PlateMode: model.ModeExact}
	sol, stats, err := New(params, opts).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)

	assert.Equal(t, StateDone, stats.State)
	assert.Equal(t, len(items), sol.ItemCount())
	requireValid(t, problem, params, sol)
}

func TestPack_DiagnoseReturnsExactResult(t *testing.T) {
	params := smallParams()
	rng := rand.New(rand.NewSource(4))
	problem := mustProblem(t, randomItems(rng, 30, 8, 40), nil, params)

	exact := model.Options{RowMode: model.ModeExact, CutMode: model.ModeExact}
	diag := model.Options{RowMode: model.ModeDiagnose, CutMode: model.ModeDiagnose}

	a, _, err := New(params, exact).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)
	b, _, err := New(params, diag).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)

	// The approximate passes may look further ahead, so horizons can differ.
	assert.Equal(t, withoutHorizons(a.Plates), withoutHorizons(b.Plates))
	requireValid(t, problem, params, b)
}

func TestInvariantError_Message(t *testing.T) {
	var err error = &InvariantError{Layer: "row", Msg: "item overlaps"}
	assert.Equal(t, "packing invariant violated in row layer: item overlaps", err.Error())
}

func withoutHorizons(plates []model.PlateSolution) []model.PlateSolution {
	out := make([]model.PlateSolution, len(plates))
	for i, p := range plates {
		p.Horizon = 0
		out[i] = p
	}
	return out
}

func TestDiffRange(t *testing.T) {
	b, e := diffRange([]int{1, 2, 3, 4}, []int{1, 2, 3, 4})
	assert.Equal(t, 4, b)
	assert.Equal(t, 4, e)

	b, e = diffRange([]int{1, 2, 3, 4}, []int{1, 3, 2, 4})
	assert.Equal(t, 1, b)
	assert.Equal(t, 3, e)

	b, e = diffRange([]int{1, 2, 3, 4}, []int{4, 2, 3, 1})
	assert.Equal(t, 0, b)
	assert.Equal(t, 4, e)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "stalled", StateStalled.String())
	assert.Equal(t, "out of plates", StateOutOfPlates.String())
	assert.Equal(t, "idle", StateIdle.String())
}
