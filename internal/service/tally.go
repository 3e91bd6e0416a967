package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"utmcouncil/vote-api/internal/model"

	"gorm.io/gorm"
)

// Percent renders with one decimal in JSON
type Percent float64

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(p), 'f', 1, 64)), nil
}

func percentOf(n, total int64) Percent {
	if total == 0 {
		return 0
	}

	return Percent(math.Round(float64(n)*1000/float64(total)) / 10)
}

type CandidateResult struct {
	Count      int64   `json:"count"`
	Percentage Percent `json:"percentage"`
}

type Results struct {
	TotalVotes int64                                 `json:"total_votes"`
	Positions  map[string]map[string]CandidateResult `json:"results"`
}

type candidateCount struct {
	Candidate string
	Count     int64
}

// Tally counts votes per candidate for every position. Configured candidates
// without votes show up with zero.
func Tally(ctx context.Context, db *gorm.DB, candidates Candidates) (*Results, error) {
	db = db.WithContext(ctx)

	res := &Results{Positions: make(map[string]map[string]CandidateResult, len(model.Positions))}

	if err := db.Model(&model.Vote{}).Count(&res.TotalVotes).Error; err != nil {
		return nil, fmt.Errorf("failed to count votes, %w", err)
	}

	for _, pos := range model.Positions {
		var rows []candidateCount

		// pos is one of the fixed column names in model.Positions
		err := db.Model(&model.Vote{}).
			Select(pos + " AS candidate, COUNT(*) AS count").
			Group(pos).
			Scan(&rows).
			Error
		if err != nil {
			return nil, fmt.Errorf("failed to tally %s, %w", pos, err)
		}

		var total int64
		for _, r := range rows {
			total += r.Count
		}

		out := make(map[string]CandidateResult, len(rows))
		for _, name := range candidates[pos] {
			out[name] = CandidateResult{}
		}
		for _, r := range rows {
			out[r.Candidate] = CandidateResult{
				Count:      r.Count,
				Percentage: percentOf(r.Count, total),
			}
		}

		res.Positions[pos] = out
	}

	return res, nil
}
