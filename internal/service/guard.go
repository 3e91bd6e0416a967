package service

import (
	"context"
	"errors"
	"fmt"

	"utmcouncil/vote-api/internal/model"

	"github.com/cespare/xxhash/v2"
	"gorm.io/gorm"
)

// PhotoHash fingerprints a photo for duplicate detection. It is not a
// security boundary.
func PhotoHash(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// Submission is what the duplicate guard looks at. OwnerID is set on
// resubmissions so a user doesn't collide with their own record.
type Submission struct {
	Email        string
	CarnetNumber string
	PhotoHash    string
	OwnerID      string
}

// CheckDuplicates runs before any OCR work. The unique indexes are the real
// guarantee, this only turns the common cases into specific errors early.
func CheckDuplicates(ctx context.Context, db *gorm.DB, s Submission) error {
	db = db.WithContext(ctx)

	if s.Email != "" {
		var n int64
		if err := db.Model(&model.User{}).Where("email = ?", s.Email).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to look up email, %w", err)
		}
		if n > 0 {
			return ErrEmailTaken
		}
	}

	if s.CarnetNumber != "" {
		var holder model.Carnet

		q := db.Where("carnet_number = ? AND status <> ?", s.CarnetNumber, model.CarnetRejected)
		if s.OwnerID != "" {
			q = q.Where("user_id <> ?", s.OwnerID)
		}

		err := q.First(&holder).Error
		switch {
		case err == nil:
			if holder.Status == model.CarnetApproved {
				return ErrCarnetApproved
			}
			return ErrCarnetPending
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up carnet number, %w", err)
		}
	}

	if s.PhotoHash != "" {
		var n int64

		q := db.Model(&model.Carnet{}).Where("photo_hash = ?", s.PhotoHash)
		if s.OwnerID != "" {
			q = q.Where("user_id <> ?", s.OwnerID)
		}

		if err := q.Count(&n).Error; err != nil {
			return fmt.Errorf("failed to look up photo hash, %w", err)
		}
		if n > 0 {
			return ErrPhotoDuplicate
		}
	}

	return nil
}

// explainDuplicate turns a unique index violation into the matching guard
// error. Falls back to ErrDuplicate when the conflicting row is gone again.
func explainDuplicate(ctx context.Context, db *gorm.DB, s Submission) error {
	if err := CheckDuplicates(ctx, db, s); err != nil {
		return err
	}

	return ErrDuplicate
}
