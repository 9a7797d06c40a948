// Package export flattens analysis results into key/value records for
// report collaborators and writes them as CSV.
package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/features"
	"github.com/DrNicoArt/scaleviewer/internal/rules"
	"github.com/DrNicoArt/scaleviewer/internal/similarity"
)

// Kind names the result type a record was flattened from.
type Kind string

const (
	KindFeatures   Kind = "features"
	KindSimilarity Kind = "similarity"
	KindCandidacy  Kind = "candidacy"
)

// leading columns come first in every CSV, in this order.
var leading = []string{"id", "scale", "name"}

// Record is one flat row. Absent values are empty strings.
type Record struct {
	Kind           Kind              `json:"kind"`
	CatalogVersion uint64            `json:"catalog_version"`
	EntityID       string            `json:"entity_id"`
	Fields         map[string]string `json:"fields"`
}

func newRecord(kind Kind, version uint64, e *catalog.Entity, id string) Record {
	r := Record{Kind: kind, CatalogVersion: version, EntityID: id, Fields: map[string]string{"id": id}}
	if e != nil {
		r.Fields["scale"] = string(e.Scale)
		r.Fields["name"] = e.Name
	}
	return r
}

// Keys lists the record's field names: id, scale and name first, the rest
// sorted.
func (r Record) Keys() []string {
	return orderKeys(r.Fields)
}

func orderKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for _, k := range leading {
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}
	rest := make([]string, 0, len(fields))
	for k := range fields {
		if !isLeading(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func isLeading(k string) bool {
	for _, l := range leading {
		if k == l {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FromMatrix flattens feature vectors, one record per entity, one column per
// schema property.
func FromMatrix(cat *catalog.Catalog, m *features.Matrix) []Record {
	names := m.Schema.Names()
	out := make([]Record, 0, len(m.Vectors))
	for _, v := range m.Vectors {
		e, _ := cat.Get(v.EntityID)
		r := newRecord(KindFeatures, m.CatalogVersion, e, v.EntityID)
		for i, name := range names {
			if v.Present[i] {
				r.Fields[name] = formatFloat(v.Values[i])
			} else {
				r.Fields[name] = ""
			}
		}
		r.Fields["present"] = strconv.Itoa(v.PresentCount())
		out = append(out, r)
	}
	return out
}

// FromSimilarity flattens a ranked list, one record per match.
func FromSimilarity(cat *catalog.Catalog, res similarity.Result) []Record {
	out := make([]Record, 0, len(res.Matches))
	for i, m := range res.Matches {
		e, _ := cat.Get(m.ID)
		r := newRecord(KindSimilarity, res.CatalogVersion, e, m.ID)
		r.Fields["query_id"] = res.QueryID
		r.Fields["metric"] = string(res.Metric)
		r.Fields["rank"] = strconv.Itoa(i + 1)
		r.Fields["score"] = formatFloat(m.Score)
		r.Fields["overlap"] = strconv.Itoa(m.Overlap)
		out = append(out, r)
	}
	return out
}

// FromReport flattens one candidacy report. Every rule gets a rule.<id>
// column with its verdict and rationale.
func FromReport(e *catalog.Entity, rep rules.Report) Record {
	r := newRecord(KindCandidacy, rep.CatalogVersion, e, rep.EntityID)
	if e == nil {
		r.Fields["scale"] = string(rep.Scale)
		r.Fields["name"] = rep.Name
	}
	r.Fields["score"] = formatFloat(rep.Score)
	r.Fields["threshold"] = formatFloat(rep.Threshold)
	r.Fields["candidate"] = strconv.FormatBool(rep.Candidate)
	r.Fields["band"] = string(rep.Band)
	r.Fields["rule_set"] = rep.RuleSet
	r.Fields["matched"] = strings.Join(rep.Matched, ";")
	r.Fields["unmatched"] = strings.Join(rep.Unmatched, ";")
	r.Fields["rationale"] = rep.Summary
	for _, o := range rep.Outcomes {
		verdict := "unmatched"
		if o.Matched {
			verdict = "matched"
		}
		r.Fields["rule."+o.RuleID] = verdict + ": " + o.Rationale
	}
	return r
}

// FromReports flattens reports in order, resolving entities from cat when
// given.
func FromReports(cat *catalog.Catalog, reports []rules.Report) []Record {
	out := make([]Record, 0, len(reports))
	for _, rep := range reports {
		var e *catalog.Entity
		if cat != nil {
			e, _ = cat.Get(rep.EntityID)
		}
		out = append(out, FromReport(e, rep))
	}
	return out
}
