package models

import (
	"github.com/DrNicoArt/scaleviewer/internal/rules"
	"github.com/DrNicoArt/scaleviewer/internal/similarity"
)

// SimilarResponse wraps a ranking with a human-readable notice when the
// catalog had too few eligible entities
type SimilarResponse struct {
	similarity.Result
	Message string `json:"message,omitempty"`
}

// NewSimilarResponse fills Message from the result's notice
func NewSimilarResponse(res similarity.Result) SimilarResponse {
	out := SimilarResponse{Result: res}
	if res.Notice != nil {
		out.Message = res.Notice.Error()
	}
	return out
}

// CandidatesResponse for /api/candidates
type CandidatesResponse struct {
	CatalogVersion uint64         `json:"catalog_version"`
	RuleSet        string         `json:"rule_set"`
	Threshold      float64        `json:"threshold"`
	Count          int            `json:"count"`
	Candidates     int            `json:"candidates"`
	Reports        []rules.Report `json:"reports"`
}

// NewCandidatesResponse counts the flagged reports
func NewCandidatesResponse(version uint64, ruleSet string, threshold float64, reports []rules.Report) CandidatesResponse {
	return CandidatesResponse{
		CatalogVersion: version,
		RuleSet:        ruleSet,
		Threshold:      threshold,
		Count:          len(reports),
		Candidates:     len(rules.Candidates(reports)),
		Reports:        reports,
	}
}
