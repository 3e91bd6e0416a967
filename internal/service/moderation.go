package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"utmcouncil/vote-api/internal/model"
	"utmcouncil/vote-api/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultResubmissionNote is used when the admin didn't write one
const DefaultResubmissionNote = "The photo is unclear or incomplete. Please upload a clear photo of your carnet."

// Moderator applies admin decisions to carnet records
type Moderator struct {
	DB       *gorm.DB
	Photos   storage.PhotoStore
	Notifier Notifier

	now func() time.Time
}

func NewModerator(db *gorm.DB, photos storage.PhotoStore, n Notifier) *Moderator {
	return &Moderator{DB: db, Photos: photos, Notifier: n, now: time.Now}
}

// update runs fn on the locked record of userID and saves it
func (m *Moderator) update(ctx context.Context, userID string, fn func(tx *gorm.DB, c *model.Carnet) error) (*model.Carnet, error) {
	var c model.Carnet

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCarnet(tx, userID, &c); err != nil {
			return err
		}

		if err := fn(tx, &c); err != nil {
			return err
		}

		return tx.Save(&c).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, model.ErrInvalidTransition):
			return nil, err
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// Re-opening collides with another active record for the number
			return nil, explainDuplicate(ctx, m.DB, Submission{CarnetNumber: c.CarnetNumber, OwnerID: userID})
		}

		return nil, fmt.Errorf("failed to update carnet, %w", err)
	}

	m.notify(ctx, &c)
	return &c, nil
}

func (m *Moderator) notify(ctx context.Context, c *model.Carnet) {
	var email string
	if err := m.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", c.UserID).Select("email").Scan(&email).Error; err != nil {
		zap.L().Warn("Failed to look up email for notification", zap.Error(err))
		return
	}

	notifyDecision(m.Notifier, email, c)
}

// Verify approves or rejects a pending record
func (m *Moderator) Verify(ctx context.Context, userID, reviewer string, approve bool, reason string) (*model.Carnet, error) {
	return m.update(ctx, userID, func(_ *gorm.DB, c *model.Carnet) error {
		if approve {
			return c.Approve(reviewer, m.now())
		}

		if reason == "" {
			reason = "Rejected by an administrator"
		}

		return c.Reject(reviewer, reason, m.now())
	})
}

// RequestResubmission re-opens a record of any state. The owner loses
// verification until a new photo is approved.
func (m *Moderator) RequestResubmission(ctx context.Context, userID, note string) (*model.Carnet, error) {
	if note == "" {
		note = DefaultResubmissionNote
	}

	return m.update(ctx, userID, func(_ *gorm.DB, c *model.Carnet) error {
		c.RequestResubmission(note)
		return nil
	})
}

// Disconnect revokes an approval and removes the user's vote if any
func (m *Moderator) Disconnect(ctx context.Context, userID, reviewer, reason string) (*model.Carnet, error) {
	if reason == "" {
		reason = "Verification revoked by an administrator"
	}

	return m.update(ctx, userID, func(tx *gorm.DB, c *model.Carnet) error {
		if err := c.Disconnect(reviewer, reason, m.now()); err != nil {
			return err
		}

		return tx.Where("user_id = ?", userID).Delete(&model.Vote{}).Error
	})
}

// DeleteUser removes the account with its record, vote and photo
func (m *Moderator) DeleteUser(ctx context.Context, userID string) error {
	var photoKey string

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Preload("Carnet").Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if user.Carnet != nil {
			photoKey = user.Carnet.PhotoKey
		}

		if err := tx.Where("user_id = ?", userID).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Carnet{}).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}

		return fmt.Errorf("failed to delete user, %w", err)
	}

	if photoKey != "" {
		if err := m.Photos.Delete(ctx, photoKey); err != nil {
			zap.L().Warn("Failed to delete photo of removed user", zap.Error(err), zap.String("key", photoKey))
		}
	}

	zap.L().Info("User deleted", zap.String("user_id", userID))
	return nil
}

// ResetVotes deletes every vote and returns how many there were
func (m *Moderator) ResetVotes(ctx context.Context) (int64, error) {
	res := m.DB.WithContext(ctx).Where("1 = 1").Delete(&model.Vote{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset votes, %w", res.Error)
	}

	zap.L().Warn("All votes were reset", zap.Int64("deleted", res.RowsAffected))
	return res.RowsAffected, nil
}
