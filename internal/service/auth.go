package service

import (
	"context"
	"errors"
	"fmt"

	"utmcouncil/vote-api/internal/model"
	"utmcouncil/vote-api/pkg/security"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Authenticate checks a stored account's credentials and returns the user
// with its carnet loaded
func Authenticate(ctx context.Context, db *gorm.DB, argon *security.Argon, email, password string) (*model.User, error) {
	var user model.User

	err := db.WithContext(ctx).Preload("Carnet").Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}

		return nil, fmt.Errorf("failed to load user, %w", err)
	}

	ok, err := argon.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrBadCredentials
	}

	return &user, nil
}

// Status is what an authenticated client learns about itself
type Status struct {
	Authenticated bool           `json:"authenticated"`
	Verified      bool           `json:"verified"`
	HasVoted      bool           `json:"has_voted"`
	User          model.Profile  `json:"user"`
	Carnet        *CarnetSummary `json:"carnet,omitempty"`
}

// CarnetSummary is the owner's view of their verification record
type CarnetSummary struct {
	Status                model.CarnetStatus `json:"status"`
	AutoVerified          bool               `json:"auto_verified"`
	RejectReason          string             `json:"reject_reason,omitempty"`
	AdminNote             string             `json:"admin_note,omitempty"`
	ResubmissionRequested bool               `json:"resubmission_requested"`
	Attempts              int                `json:"attempts"`
	MatchConfidence       int                `json:"match_confidence"`
	MissingFields         []string           `json:"missing_fields"`
}

func summarize(c *model.Carnet) *CarnetSummary {
	if c == nil {
		return nil
	}

	return &CarnetSummary{
		Status:                c.Status,
		AutoVerified:          c.AutoVerified(),
		RejectReason:          c.RejectReason,
		AdminNote:             c.AdminNote,
		ResubmissionRequested: c.ResubmissionRequested,
		Attempts:              c.Attempts,
		MatchConfidence:       c.MatchConfidence,
		MissingFields:         c.MissingFields,
	}
}

// UserStatus reads verification and voting state from the store, never from
// the session token
func UserStatus(ctx context.Context, db *gorm.DB, userID string) (*Status, error) {
	var user model.User

	err := db.WithContext(ctx).Preload("Carnet").Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load user, %w", err)
	}

	var votes int64
	if err := db.WithContext(ctx).Model(&model.Vote{}).Where("user_id = ?", userID).Count(&votes).Error; err != nil {
		return nil, fmt.Errorf("failed to count votes, %w", err)
	}

	return &Status{
		Authenticated: true,
		Verified:      user.Verified(),
		HasVoted:      votes > 0,
		User:          user.Profile(),
		Carnet:        summarize(user.Carnet),
	}, nil
}

// SuperAdminStatus describes the environment configured administrator
func SuperAdminStatus(email string) *Status {
	return &Status{
		Authenticated: true,
		Verified:      true,
		User: model.Profile{
			ID:       security.SuperAdminID,
			Email:    email,
			Name:     "Administrator",
			IsAdmin:  true,
			Verified: true,
		},
	}
}

// lockCarnet loads a user's record for update. SQLite ignores the lock and
// relies on its single writer instead.
func lockCarnet(tx *gorm.DB, userID string, c *model.Carnet) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	return err
}
