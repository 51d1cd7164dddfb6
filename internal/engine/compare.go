package engine

import (
	"context"
	"sync"

	"github.com/piwi3910/platecut/internal/model"
)

// ComparisonScenario defines a named set of options to compare.
type ComparisonScenario struct {
	Name    string
	Options model.Options
}

// ComparisonResult holds the packing result and computed statistics for a
// single scenario.
type ComparisonResult struct {
	Scenario   ComparisonScenario
	Solution   *model.Solution
	Stats      Stats
	PlatesUsed int
	Efficiency float64
	Err        error
}

// CompareScenarios packs the same sequence once per scenario, concurrently,
// and returns the results in scenario order. Each scenario gets its own
// Packer; nothing is shared between the runs except the read-only problem.
func CompareScenarios(ctx context.Context, params model.Params, problem *model.Problem, sequence []int, scenarios []ComparisonScenario) []ComparisonResult {
	results := make([]ComparisonResult, len(scenarios))

	var wg sync.WaitGroup
	for i, scenario := range scenarios {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opt := scenario.Options
			opt.EarlyCancel = false
			sol, stats, err := New(params, opt).Pack(ctx, Request{Problem: problem, Sequence: sequence})
			res := ComparisonResult{Scenario: scenario, Solution: sol, Stats: stats, Err: err}
			if sol != nil {
				res.PlatesUsed = len(sol.Plates)
				res.Efficiency = sol.Efficiency()
			}
			results[i] = res
		}()
	}
	wg.Wait()

	return results
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current options, switching the cheaper layers to their exact
// algorithms one at a time.
func BuildDefaultScenarios(base model.Options) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:    "Current Options",
			Options: base,
		},
	}

	approx := base
	approx.RowMode = model.ModeApproximate
	approx.CutMode = model.ModeApproximate
	approx.PlateMode = model.ModeApproximate
	if approx != base {
		scenarios = append(scenarios, ComparisonScenario{
			Name:    "Approximate",
			Options: approx,
		})
	}

	if base.RowMode != model.ModeExact {
		exactRows := base
		exactRows.RowMode = model.ModeExact
		scenarios = append(scenarios, ComparisonScenario{
			Name:    "Exact Rows",
			Options: exactRows,
		})
	}

	if base.CutMode != model.ModeExact {
		exactCuts := base
		exactCuts.CutMode = model.ModeExact
		scenarios = append(scenarios, ComparisonScenario{
			Name:    "Exact Cuts",
			Options: exactCuts,
		})
	}

	return scenarios
}
