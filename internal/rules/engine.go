package rules

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// DefaultThreshold is the customary candidacy cutoff. Callers pass the
// threshold explicitly; this is only the value front ends fall back to.
const DefaultThreshold = 0.6

// Outcome is the verdict of one rule on one entity.
type Outcome struct {
	RuleID      string  `json:"rule_id"`
	Description string  `json:"description,omitempty"`
	Weight      float64 `json:"weight"`
	Matched     bool    `json:"matched"`
	Property    string  `json:"property,omitempty"`
	Observed    string  `json:"observed,omitempty"`
	// Margin is the shortfall of a failed numeric rule, in the rule's unit.
	Margin    *float64 `json:"margin,omitempty"`
	Rationale string   `json:"rationale"`
}

// Report is the auditable candidacy verdict for one entity. It lists every
// rule, matched or not.
type Report struct {
	EntityID       string        `json:"entity_id"`
	Name           string        `json:"name"`
	Scale          catalog.Scale `json:"scale"`
	RuleSet        string        `json:"rule_set"`
	CatalogVersion uint64        `json:"catalog_version,omitempty"`
	Score          float64       `json:"score"`
	Threshold      float64       `json:"threshold"`
	Candidate      bool          `json:"candidate"`
	Band           Band          `json:"band"`
	Matched        []string      `json:"matched"`
	Unmatched      []string      `json:"unmatched"`
	Outcomes       []Outcome     `json:"outcomes"`
	Summary        string        `json:"summary"`
}

// Verdict renders the candidate flag as text.
func (r Report) Verdict() string {
	if r.Candidate {
		return "candidate"
	}
	return "not a candidate"
}

// Band is a coarse confidence level derived from the score.
type Band string

const (
	BandVeryHigh Band = "very high"
	BandHigh     Band = "high"
	BandMedium   Band = "medium"
	BandLow      Band = "low"
	BandVeryLow  Band = "very low"
)

// BandFor maps a score in [0, 1] to its confidence band.
func BandFor(score float64) Band {
	switch {
	case score >= 0.9:
		return BandVeryHigh
	case score >= 0.7:
		return BandHigh
	case score >= 0.4:
		return BandMedium
	case score >= 0.2:
		return BandLow
	default:
		return BandVeryLow
	}
}

// ValidateThreshold rejects cutoffs outside [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return errors.NewInvalidRequestError("candidacy threshold must be in [0, 1], got %g", threshold)
	}
	return nil
}

// Evaluate scores one entity. It is a pure function of the entity's current
// properties and the rule set: nothing is cached between calls.
func Evaluate(e *catalog.Entity, rs *RuleSet, threshold float64) (Report, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return Report{}, err
	}
	if rs == nil {
		return Report{}, errors.NewInvalidRequestError("no rule set given")
	}
	return rs.report(e, threshold), nil
}

func (rs *RuleSet) report(e *catalog.Entity, threshold float64) Report {
	rep := Report{
		EntityID:  e.ID,
		Name:      e.Name,
		Scale:     e.Scale,
		RuleSet:   rs.Name,
		Threshold: threshold,
		Matched:   []string{},
		Unmatched: []string{},
		Outcomes:  make([]Outcome, 0, len(rs.Rules)),
	}

	// Rules are held in id order, so the sum is independent of declaration order.
	matched := 0.0
	for _, r := range rs.Rules {
		c := rs.evaluate(r, e)
		rep.Outcomes = append(rep.Outcomes, Outcome{
			RuleID:      r.ID,
			Description: r.Description,
			Weight:      r.Weight,
			Matched:     c.matched,
			Property:    c.property,
			Observed:    c.observed,
			Margin:      c.margin,
			Rationale:   c.rationale,
		})
		if c.matched {
			matched += r.Weight
			rep.Matched = append(rep.Matched, r.ID)
		} else {
			rep.Unmatched = append(rep.Unmatched, r.ID)
		}
	}
	if rs.total > 0 {
		rep.Score = math.Min(1, matched/rs.total)
	}
	rep.Candidate = rep.Score >= threshold
	rep.Band = BandFor(rep.Score)
	rep.Summary = summarize(rep)
	return rep
}

func summarize(rep Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: score %.2f (%s confidence), %s at threshold %.2f",
		rep.Name, rep.Score, rep.Band, rep.Verdict(), rep.Threshold)
	var missed []string
	for _, o := range rep.Outcomes {
		if !o.Matched {
			missed = append(missed, fmt.Sprintf("%s (%s)", o.RuleID, o.Rationale))
		}
	}
	if len(missed) > 0 {
		b.WriteString("; unmatched: ")
		b.WriteString(strings.Join(missed, "; "))
	}
	return b.String()
}

// EvaluateAll scores every entity of cat, highest score first with ties by
// id. A cancelled context stops the sweep between entities and discards the
// reports gathered so far.
func EvaluateAll(ctx context.Context, cat *catalog.Catalog, rs *RuleSet, threshold float64) ([]Report, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, errors.NewInvalidRequestError("no rule set given")
	}

	reports := make([]Report, 0, cat.Len())
	for _, e := range cat.Entities() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCanceledError(err, "candidacy sweep")
		}
		rep := rs.report(e, threshold)
		rep.CatalogVersion = cat.Version()
		reports = append(reports, rep)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Score != reports[j].Score {
			return reports[i].Score > reports[j].Score
		}
		return reports[i].EntityID < reports[j].EntityID
	})

	logger.Debugw("Candidacy sweep complete",
		logger.FieldCount, len(reports),
		logger.FieldCatalogVersion, cat.Version(),
		"rule_set", rs.Name)
	return reports, nil
}

// Candidates keeps the reports flagged as candidates.
func Candidates(reports []Report) []Report {
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Candidate {
			out = append(out, r)
		}
	}
	return out
}
