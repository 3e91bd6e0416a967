package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"utmcouncil/vote-api/internal/model"

	"gorm.io/gorm"
)

type Stats struct {
	TotalUsers           int64   `json:"totalUsers"`
	VerifiedUsers        int64   `json:"verifiedUsers"`
	TotalVotes           int64   `json:"totalVotes"`
	PendingVerifications int64   `json:"pendingVerifications"`
	ParticipationRate    Percent `json:"participationRate"`
}

func GetStats(ctx context.Context, db *gorm.DB) (*Stats, error) {
	db = db.WithContext(ctx)

	var s Stats

	if err := db.Model(&model.User{}).Count(&s.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users, %w", err)
	}
	if err := db.Model(&model.Carnet{}).Where("status = ?", model.CarnetApproved).Count(&s.VerifiedUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count verified users, %w", err)
	}
	if err := db.Model(&model.Vote{}).Count(&s.TotalVotes).Error; err != nil {
		return nil, fmt.Errorf("failed to count votes, %w", err)
	}
	if err := db.Model(&model.Carnet{}).Where("status = ?", model.CarnetPending).Count(&s.PendingVerifications).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending verifications, %w", err)
	}

	// A vote kept through a resubmission request doesn't count towards participation
	var verifiedVotes int64
	err := db.Model(&model.Vote{}).
		Joins("JOIN carnets ON carnets.user_id = votes.user_id").
		Where("carnets.status = ?", model.CarnetApproved).
		Count(&verifiedVotes).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to count votes of verified users, %w", err)
	}

	s.ParticipationRate = percentOf(verifiedVotes, s.VerifiedUsers)
	return &s, nil
}

// ReviewItem is a record waiting for an admin together with its owner
type ReviewItem struct {
	UserID         string        `json:"id"`
	VerificationID uint          `json:"verification_id"`
	Email          string        `json:"email"`
	Name           string        `json:"name"`
	CarnetNumber   string        `json:"carnet_number"`
	Class          string        `json:"class"`
	Carnet         *model.Carnet `json:"carnet"`
	// Served by GET /api/admin/carnets/:id/photo
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingReviews lists pending records, newest first
func PendingReviews(ctx context.Context, db *gorm.DB) ([]ReviewItem, error) {
	var carnets []model.Carnet

	err := db.WithContext(ctx).
		Where("status = ?", model.CarnetPending).
		Order("created_at DESC").
		Find(&carnets).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending carnets, %w", err)
	}

	if len(carnets) == 0 {
		return []ReviewItem{}, nil
	}

	ids := make([]string, len(carnets))
	for i, c := range carnets {
		ids[i] = c.UserID
	}

	var users []model.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users, %w", err)
	}

	byID := make(map[string]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	items := make([]ReviewItem, 0, len(carnets))
	for i := range carnets {
		c := &carnets[i]

		u, ok := byID[c.UserID]
		if !ok {
			continue
		}

		items = append(items, ReviewItem{
			UserID:         u.ID,
			VerificationID: c.ID,
			Email:          u.Email,
			Name:           u.Name,
			CarnetNumber:   c.CarnetNumber,
			Class:          u.Class,
			Carnet:         c,
			PhotoURL:       fmt.Sprintf("/api/admin/carnets/%d/photo", c.ID),
			CreatedAt:      c.CreatedAt,
		})
	}

	return items, nil
}

// UserRow is one line of the admin user list
type UserRow struct {
	model.Profile
	Status    model.CarnetStatus `json:"status"`
	HasVoted  bool               `json:"has_voted"`
	CreatedAt time.Time          `json:"created_at"`
}

func AllUsers(ctx context.Context, db *gorm.DB) ([]UserRow, error) {
	var users []model.User

	err := db.WithContext(ctx).
		Preload("Carnet").
		Preload("Vote").
		Order("created_at DESC").
		Find(&users).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users, %w", err)
	}

	rows := make([]UserRow, len(users))
	for i := range users {
		u := &users[i]

		rows[i] = UserRow{
			Profile:   u.Profile(),
			HasVoted:  u.Vote != nil,
			CreatedAt: u.CreatedAt,
		}
		if u.Carnet != nil {
			rows[i].Status = u.Carnet.Status
		}
	}

	return rows, nil
}

// ExportRow is a vote next to the voter's identity
type ExportRow struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	CarnetNumber string `json:"carnet_number"`
	Class        string `json:"class"`
	model.Vote
}

func ExportVotes(ctx context.Context, db *gorm.DB) ([]ExportRow, error) {
	var votes []model.Vote

	err := db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Find(&votes).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to export votes, %w", err)
	}

	rows := make([]ExportRow, 0, len(votes))
	for _, v := range votes {
		row := ExportRow{Vote: v}
		if v.User != nil {
			row.Email = v.User.Email
			row.Name = v.User.Name
			row.CarnetNumber = v.User.CarnetNumber
			row.Class = v.User.Class
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// CarnetPhoto returns the stored photo of the record with the given ID
func CarnetPhoto(ctx context.Context, db *gorm.DB, id uint) (key, contentType string, err error) {
	var c model.Carnet

	err = db.WithContext(ctx).Select("photo_key", "photo_type").Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrNotFound
		}

		return "", "", fmt.Errorf("failed to load carnet, %w", err)
	}

	return c.PhotoKey, c.PhotoType, nil
}
