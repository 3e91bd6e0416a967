package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"utmcouncil/vote-api/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ballot maps each position to the chosen candidate
type Ballot map[string]string

// Candidates lists the allowed names per position. Positions without a list
// accept any non-empty name.
type Candidates map[string][]string

// Validate trims the ballot in place and checks it against the candidate lists
func (b Ballot) Validate(candidates Candidates) error {
	for pos := range b {
		if !slices.Contains(model.Positions, pos) {
			return fmt.Errorf("%w: %s", ErrUnknownPosition, pos)
		}
	}

	for _, pos := range model.Positions {
		name := strings.TrimSpace(b[pos])
		if name == "" {
			return fmt.Errorf("%w: %s", ErrBallotIncomplete, pos)
		}
		b[pos] = name

		if allowed := candidates[pos]; len(allowed) > 0 && !slices.Contains(allowed, name) {
			return fmt.Errorf("%w for %s: %s", ErrUnknownCandidate, pos, name)
		}
	}

	return nil
}

func (b Ballot) vote(userID string) *model.Vote {
	return &model.Vote{
		UserID:                 userID,
		President:              b[model.PositionPresident],
		VicePresident:          b[model.PositionVicePresident],
		CultureMinister:        b[model.PositionCultureMinister],
		AdministrationMinister: b[model.PositionAdministrationMinister],
		SocialMediaMinister:    b[model.PositionSocialMediaMinister],
	}
}

// CastVote records the user's only vote. Eligibility is read from the
// carnet inside the same transaction and the unique index on votes.user_id
// settles concurrent submissions.
func CastVote(ctx context.Context, db *gorm.DB, userID string, b Ballot) (*model.Vote, error) {
	v := b.vote(userID)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Carnet

		if err := lockCarnet(tx, userID, &c); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotVerified
			}
			return err
		}

		if c.Status != model.CarnetApproved {
			return ErrNotVerified
		}

		return tx.Create(v).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAlreadyVoted
		case errors.Is(err, ErrNotVerified):
			return nil, err
		}

		return nil, fmt.Errorf("failed to save vote, %w", err)
	}

	zap.L().Info("Vote recorded", zap.String("user_id", userID))

	return v, nil
}
