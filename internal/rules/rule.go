// Package rules evaluates entities against a declarative, weighted rule set
// and produces an auditable candidacy report for time-crystal-like behavior.
package rules

import (
	"sort"
	"strings"

	"github.com/coregx/ahocorasick"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

// Kind selects the predicate a rule applies.
type Kind string

const (
	// KindThreshold compares a numeric property against a value in a unit.
	KindThreshold Kind = "threshold"
	// KindIntegerRatio requires a ratio within tolerance of an integer >= Min.
	KindIntegerRatio Kind = "integer_ratio"
	// KindExists requires any of the properties to be present.
	KindExists Kind = "exists"
	// KindPattern requires a property's text to contain Pattern.
	KindPattern Kind = "pattern"
	// KindOneOf requires a property value to equal one of Values.
	KindOneOf Kind = "one_of"
	// KindNameHint requires a present property whose name contains one of Terms.
	KindNameHint Kind = "name_hint"
	// KindScale requires the entity to sit on one of Scales.
	KindScale Kind = "scale"
)

// Predicate is the condition of a rule. Which fields apply depends on Kind.
type Predicate struct {
	Kind       Kind     `json:"kind" toml:"kind" yaml:"kind"`
	Properties []string `json:"properties,omitempty" toml:"properties" yaml:"properties,omitempty"`
	Op         string   `json:"op,omitempty" toml:"op" yaml:"op,omitempty"`
	Value      float64  `json:"value,omitempty" toml:"value" yaml:"value,omitempty"`
	// Unit is the unit Value is written in. Property values with a unit are
	// converted to it; unit-less property values are read as already in it.
	Unit string `json:"unit,omitempty" toml:"unit" yaml:"unit,omitempty"`
	Min  int    `json:"min,omitempty" toml:"min" yaml:"min,omitempty"`
	// Tolerance is the allowed distance from the integer. Nil means 0.05;
	// an explicit 0 demands an exact integer.
	Tolerance *float64 `json:"tolerance,omitempty" toml:"tolerance" yaml:"tolerance,omitempty"`
	Pattern    string   `json:"pattern,omitempty" toml:"pattern" yaml:"pattern,omitempty"`
	Values     []string `json:"values,omitempty" toml:"values" yaml:"values,omitempty"`
	Terms      []string `json:"terms,omitempty" toml:"terms" yaml:"terms,omitempty"`
	Scales     []string `json:"scales,omitempty" toml:"scales" yaml:"scales,omitempty"`
}

// Rule is one weighted predicate. Weight is contributed to the score on match.
type Rule struct {
	ID          string    `json:"id" toml:"id" yaml:"id"`
	Description string    `json:"description,omitempty" toml:"description" yaml:"description,omitempty"`
	Weight      float64   `json:"weight" toml:"weight" yaml:"weight"`
	Predicate   Predicate `json:"predicate" toml:"predicate" yaml:"predicate"`
}

// RuleSet is a validated, compiled collection of rules. Rules are kept in id
// order so evaluation does not depend on declaration order.
type RuleSet struct {
	Name  string `json:"name"`
	Rules []Rule `json:"rules"`

	total    float64
	automata map[string]*ahocorasick.Automaton
}

// NewRuleSet validates rules and compiles their name-hint automata.
func NewRuleSet(name string, rules []Rule) (*RuleSet, error) {
	sorted := append([]Rule(nil), rules...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	rs := &RuleSet{Name: name, Rules: sorted, automata: make(map[string]*ahocorasick.Automaton)}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	for _, r := range rs.Rules {
		rs.total += r.Weight
		if r.Predicate.Kind != KindNameHint {
			continue
		}
		ac, err := buildAutomaton(r.Predicate.Terms)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %q: failed to compile name hints", r.ID)
		}
		rs.automata[r.ID] = ac
	}
	return rs, nil
}

// TotalWeight is the sum of all rule weights.
func (rs *RuleSet) TotalWeight() float64 {
	return rs.total
}

// Rule looks up a rule by id.
func (rs *RuleSet) Rule(id string) (Rule, bool) {
	i := sort.Search(len(rs.Rules), func(i int) bool { return rs.Rules[i].ID >= id })
	if i < len(rs.Rules) && rs.Rules[i].ID == id {
		return rs.Rules[i], true
	}
	return Rule{}, false
}

// Validate rejects empty sets, duplicate ids, non-positive weights and
// predicates missing the fields their kind needs.
func (rs *RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return errors.NewInvalidRequestError("rule set %q has no rules", rs.Name)
	}
	seen := make(map[string]bool, len(rs.Rules))
	for _, r := range rs.Rules {
		if strings.TrimSpace(r.ID) == "" {
			return errors.NewInvalidRequestError("rule with empty id")
		}
		if seen[r.ID] {
			return errors.NewInvalidRequestError("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
		if r.Weight <= 0 {
			return errors.NewInvalidRequestError("rule %q: weight must be positive, got %g", r.ID, r.Weight)
		}
		if err := r.Predicate.validate(); err != nil {
			return errors.Wrapf(err, "rule %q", r.ID)
		}
	}
	return nil
}

func (p Predicate) validate() error {
	needsProperties := func() error {
		if len(p.Properties) == 0 {
			return errors.NewInvalidRequestError("%s predicate needs properties", p.Kind)
		}
		return nil
	}
	switch p.Kind {
	case KindThreshold:
		if err := needsProperties(); err != nil {
			return err
		}
		if _, ok := comparators[p.Op]; !ok {
			return errors.NewInvalidRequestError("unknown comparison %q", p.Op)
		}
		if p.Unit != "" {
			if _, ok := units.Lookup(p.Unit); !ok {
				return errors.NewInvalidRequestError("unknown unit %q", p.Unit)
			}
		}
	case KindIntegerRatio:
		if err := needsProperties(); err != nil {
			return err
		}
		if t := p.Tolerance; t != nil && (*t < 0 || *t >= 0.5) {
			return errors.NewInvalidRequestError("tolerance must be in [0, 0.5), got %g", *t)
		}
	case KindExists:
		return needsProperties()
	case KindPattern:
		if err := needsProperties(); err != nil {
			return err
		}
		if strings.TrimSpace(p.Pattern) == "" {
			return errors.NewInvalidRequestError("pattern predicate needs a pattern")
		}
	case KindOneOf:
		if err := needsProperties(); err != nil {
			return err
		}
		if len(p.Values) == 0 {
			return errors.NewInvalidRequestError("one_of predicate needs values")
		}
	case KindNameHint:
		if len(p.Terms) == 0 {
			return errors.NewInvalidRequestError("name_hint predicate needs terms")
		}
	case KindScale:
		if len(p.Scales) == 0 {
			return errors.NewInvalidRequestError("scale predicate needs scales")
		}
		for _, s := range p.Scales {
			if _, err := catalog.ParseScale(s); err != nil {
				return err
			}
		}
	default:
		return errors.NewInvalidRequestError("unknown predicate kind %q", p.Kind)
	}
	return nil
}

func buildAutomaton(terms []string) (*ahocorasick.Automaton, error) {
	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			patterns = append(patterns, t)
		}
	}
	return ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
}
