package carnet

import (
	"fmt"
	"strings"
)

type Outcome string

const (
	// OutcomeApproved auto-verifies the record
	OutcomeApproved Outcome = "approved"
	// OutcomeManualReview leaves the record pending for an admin
	OutcomeManualReview Outcome = "manual_review"
	// OutcomeRetry rejects the photo and asks for a clearer one
	OutcomeRetry Outcome = "retry"
)

type Decision struct {
	Outcome Outcome `json:"outcome"`
	Note    string  `json:"note"`
}

// Policy turns a scored scan into a decision. Uncertain scans go to a human
// instead of blocking the registration.
type Policy struct {
	// Valid matches scoring strictly above this are approved
	AutoApproveAbove int
	// Scores strictly below this may be sent back for a retry
	RetryBelow int
	// Retry is only offered when the engine itself was this sure it read the
	// photo correctly
	MinEngineConfidence float64
	// After this many uploads every low score goes to manual review
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{
		AutoApproveAbove:    60,
		RetryBelow:          20,
		MinEngineConfidence: 30,
		MaxAttempts:         3,
	}
}

// Scan is what the pipeline learned about one photo
type Scan struct {
	Text             string  `json:"text"`
	EngineConfidence float64 `json:"engine_confidence"`
	Match            Match   `json:"validation"`
	// Err is set when OCR could not run at all
	Err error `json:"-"`
}

// Decide maps a scan to an outcome. attempts counts uploads so far,
// including the one being decided.
func (p Policy) Decide(s Scan, attempts int) Decision {
	if s.Err != nil {
		return Decision{
			Outcome: OutcomeManualReview,
			Note:    "Automatic check unavailable, waiting for manual review",
		}
	}

	m := s.Match

	if m.Valid && m.Confidence > p.AutoApproveAbove {
		return Decision{
			Outcome: OutcomeApproved,
			Note:    fmt.Sprintf("Auto-verified with %d%% confidence", m.Confidence),
		}
	}

	ocrSucceeded := strings.TrimSpace(s.Text) != "" && s.EngineConfidence >= p.MinEngineConfidence
	if m.Confidence < p.RetryBelow && ocrSucceeded && attempts < p.MaxAttempts {
		return Decision{
			Outcome: OutcomeRetry,
			Note:    fmt.Sprintf("The photo doesn't look like a carnet (%d%%), please upload a clearer photo. Not found: %s", m.Confidence, strings.Join(m.Missing, ", ")),
		}
	}

	note := fmt.Sprintf("Automatic check confidence %d%%, waiting for manual review", m.Confidence)
	if len(m.Missing) > 0 {
		note += ". Not found: " + strings.Join(m.Missing, ", ")
	}

	return Decision{Outcome: OutcomeManualReview, Note: note}
}
