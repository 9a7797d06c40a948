package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

func scenarioRules() []Rule {
	return []Rule{
		{
			ID: "coherence", Weight: 0.5,
			Predicate: Predicate{Kind: KindThreshold, Properties: []string{"coherence_time"}, Op: ">", Value: 1e-3, Unit: "s"},
		},
		{
			ID: "subharmonic", Weight: 0.5,
			Predicate: Predicate{Kind: KindIntegerRatio, Properties: []string{"subharmonic_ratio"}, Min: 2},
		},
	}
}

func scenarioSet(t *testing.T) *RuleSet {
	t.Helper()
	rs, err := NewRuleSet("scenario", scenarioRules())
	require.NoError(t, err)
	return rs
}

func TestOneOfTwoRulesIsNotACandidate(t *testing.T) {
	e := catalog.NewEntity("chain", catalog.ScaleQuantum, "Spin chain", map[string]any{
		"coherence_time":    "5 ms",
		"subharmonic_ratio": "1.0",
	})

	rep, err := Evaluate(e, scenarioSet(t), 0.6)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rep.Score)
	assert.False(t, rep.Candidate)
	assert.Equal(t, "not a candidate", rep.Verdict())
	assert.Equal(t, []string{"coherence"}, rep.Matched)
	assert.Equal(t, []string{"subharmonic"}, rep.Unmatched)

	require.Len(t, rep.Outcomes, 2)
	missed := rep.Outcomes[1]
	assert.Equal(t, "subharmonic", missed.RuleID)
	assert.False(t, missed.Matched)
	require.NotNil(t, missed.Margin)
	assert.InDelta(t, 0.95, *missed.Margin, 1e-9)
	assert.Contains(t, missed.Rationale, "subharmonic_ratio")
	assert.Contains(t, rep.Summary, "subharmonic")
	assert.Contains(t, rep.Summary, "not a candidate")
}

func TestBothRulesMatch(t *testing.T) {
	e := catalog.NewEntity("crystal", catalog.ScaleQuantum, "Driven crystal", map[string]any{
		"coherence_time":    "0.1 s",
		"subharmonic_ratio": 2.02,
	})

	rep, err := Evaluate(e, scenarioSet(t), 0.6)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rep.Score)
	assert.True(t, rep.Candidate)
	assert.Equal(t, BandVeryHigh, rep.Band)
	for _, o := range rep.Outcomes {
		assert.Nil(t, o.Margin)
	}
}

func TestThresholdShortfallInRuleUnit(t *testing.T) {
	e := catalog.NewEntity("qubit", catalog.ScaleQuantum, "Qubit", map[string]any{
		"coherence_time": "200 μs",
	})

	rep, err := Evaluate(e, scenarioSet(t), 0.6)
	require.NoError(t, err)
	coherence := rep.Outcomes[0]
	assert.False(t, coherence.Matched)
	require.NotNil(t, coherence.Margin)
	assert.InDelta(t, 8e-4, *coherence.Margin, 1e-12)
	assert.Contains(t, coherence.Rationale, "short by 0.0008 s")

	missing := rep.Outcomes[1]
	assert.Nil(t, missing.Margin)
	assert.Contains(t, missing.Rationale, "subharmonic_ratio missing")
}

func TestThresholdRejectsOtherDimensions(t *testing.T) {
	e := catalog.NewEntity("odd", catalog.ScaleHuman, "Odd", map[string]any{"coherence_time": "3 kg"})
	rep, err := Evaluate(e, scenarioSet(t), 0.6)
	require.NoError(t, err)
	assert.False(t, rep.Outcomes[0].Matched)
	assert.Contains(t, rep.Outcomes[0].Rationale, "mass")
}

func TestThresholdReadsBareNumbersInRuleUnit(t *testing.T) {
	rs, err := NewRuleSet("ms", []Rule{{
		ID: "coherence", Weight: 1,
		Predicate: Predicate{Kind: KindThreshold, Properties: []string{"coherence_time"}, Op: ">", Value: 10, Unit: "ms"},
	}})
	require.NoError(t, err)

	long := catalog.NewEntity("long", catalog.ScaleQuantum, "Long", map[string]any{"coherence_time": 20})
	rep, err := Evaluate(long, rs, 0.5)
	require.NoError(t, err)
	assert.True(t, rep.Outcomes[0].Matched)

	short := catalog.NewEntity("short", catalog.ScaleQuantum, "Short", map[string]any{"coherence_time": 5})
	rep, err = Evaluate(short, rs, 0.5)
	require.NoError(t, err)
	assert.False(t, rep.Outcomes[0].Matched)
	require.NotNil(t, rep.Outcomes[0].Margin)
	assert.InDelta(t, 5, *rep.Outcomes[0].Margin, 1e-9)

	withUnit := catalog.NewEntity("unit", catalog.ScaleQuantum, "Unit", map[string]any{"coherence_time": "0.02 s"})
	rep, err = Evaluate(withUnit, rs, 0.5)
	require.NoError(t, err)
	assert.True(t, rep.Outcomes[0].Matched)
}

func TestIntegerRatioTolerance(t *testing.T) {
	exact := 0.0
	rs, err := NewRuleSet("ratios", []Rule{
		{ID: "default", Weight: 1, Predicate: Predicate{Kind: KindIntegerRatio, Properties: []string{"ratio"}, Min: 2}},
		{ID: "exact", Weight: 1, Predicate: Predicate{Kind: KindIntegerRatio, Properties: []string{"ratio"}, Min: 2, Tolerance: &exact}},
	})
	require.NoError(t, err)

	outcome := func(rep Report, id string) Outcome {
		for _, o := range rep.Outcomes {
			if o.RuleID == id {
				return o
			}
		}
		t.Fatalf("no outcome for %s", id)
		return Outcome{}
	}

	near := catalog.NewEntity("near", catalog.ScaleQuantum, "Near", map[string]any{"ratio": 2.03})
	rep, err := Evaluate(near, rs, 0.5)
	require.NoError(t, err)
	assert.True(t, outcome(rep, "default").Matched)
	assert.False(t, outcome(rep, "exact").Matched)

	whole := catalog.NewEntity("whole", catalog.ScaleQuantum, "Whole", map[string]any{"ratio": 2})
	rep, err = Evaluate(whole, rs, 0.5)
	require.NoError(t, err)
	assert.True(t, outcome(rep, "default").Matched)
	assert.True(t, outcome(rep, "exact").Matched)
}

func TestScoreIgnoresDeclarationOrder(t *testing.T) {
	rules := append(scenarioRules(), Rule{
		ID: "spin", Weight: 0.3,
		Predicate: Predicate{Kind: KindOneOf, Properties: []string{"spin"}, Values: []string{"1/2", "1"}},
	})
	reversed := []Rule{rules[2], rules[1], rules[0]}

	a, err := NewRuleSet("forward", rules)
	require.NoError(t, err)
	b, err := NewRuleSet("reversed", reversed)
	require.NoError(t, err)

	e := catalog.NewEntity("electron", catalog.ScaleQuantum, "Electron", map[string]any{
		"coherence_time": "2 ms",
		"spin":           "1/2",
	})
	ra, err := Evaluate(e, a, 0.6)
	require.NoError(t, err)
	rb, err := Evaluate(e, b, 0.6)
	require.NoError(t, err)

	assert.Equal(t, ra.Score, rb.Score)
	assert.Equal(t, ra.Matched, rb.Matched)
	assert.Equal(t, []string{"coherence", "spin"}, ra.Matched)
}

func TestEditedPropertyNeverYieldsStaleScore(t *testing.T) {
	store := catalog.NewStore(nil)
	store.Replace([]*catalog.Entity{
		catalog.NewEntity("chain", catalog.ScaleQuantum, "Spin chain", map[string]any{
			"coherence_time":    "5 ms",
			"subharmonic_ratio": 1.0,
		}),
	})
	rs := scenarioSet(t)

	before, err := EvaluateAll(context.Background(), store.Current(), rs, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 0.5, before[0].Score)

	_, err = store.EditProperties("chain", map[string]any{"subharmonic_ratio": 3.0})
	require.NoError(t, err)

	after, err := EvaluateAll(context.Background(), store.Current(), rs, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 1.0, after[0].Score)
	assert.True(t, after[0].Candidate)
	assert.Equal(t, before[0].CatalogVersion+1, after[0].CatalogVersion)
}

func TestEvaluateAllOrdering(t *testing.T) {
	cat := catalog.New(1, []*catalog.Entity{
		catalog.NewEntity("b", catalog.ScaleQuantum, "B", map[string]any{"coherence_time": "1 s"}),
		catalog.NewEntity("a", catalog.ScaleQuantum, "A", map[string]any{"coherence_time": "1 s"}),
		catalog.NewEntity("c", catalog.ScaleQuantum, "C", map[string]any{"coherence_time": "1 s", "subharmonic_ratio": 2}),
		catalog.NewEntity("d", catalog.ScaleQuantum, "D", nil),
	})

	reports, err := EvaluateAll(context.Background(), cat, scenarioSet(t), 0.6)
	require.NoError(t, err)
	var order []string
	for _, r := range reports {
		order = append(order, r.EntityID)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, order)
	assert.Len(t, Candidates(reports), 1)
}

func TestEvaluateRejectsBadThreshold(t *testing.T) {
	e := catalog.NewEntity("x", catalog.ScaleQuantum, "X", nil)
	for _, th := range []float64{-0.1, 1.5} {
		_, err := Evaluate(e, scenarioSet(t), th)
		assert.True(t, errors.IsInvalidRequestError(err))
	}
	_, err := EvaluateAll(context.Background(), catalog.New(1, nil), scenarioSet(t), 2)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestEvaluateAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cat := catalog.New(1, []*catalog.Entity{catalog.NewEntity("x", catalog.ScaleQuantum, "X", nil)})

	reports, err := EvaluateAll(ctx, cat, scenarioSet(t), 0.6)
	assert.Nil(t, reports)
	assert.True(t, errors.Is(err, errors.ErrCanceled))
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandVeryHigh, BandFor(0.95))
	assert.Equal(t, BandHigh, BandFor(0.7))
	assert.Equal(t, BandMedium, BandFor(0.5))
	assert.Equal(t, BandLow, BandFor(0.2))
	assert.Equal(t, BandVeryLow, BandFor(0.1))
}
