package service

import (
	"context"
	"fmt"
	"time"

	"utmcouncil/vote-api/internal/model"
	"utmcouncil/vote-api/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RejectedCleanup deletes, every t, accounts whose carnet has been rejected
// for longer than maxAge. Stops when ctx is cancelled.
func RejectedCleanup(ctx context.Context, t, maxAge time.Duration, db *gorm.DB, photos storage.PhotoStore) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Rejected account cleanup attached", zap.Duration("tick_every", t), zap.Duration("max_age", maxAge))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := CleanupRejected(ctx, db, photos, time.Now().Add(-maxAge))
				if err != nil {
					zap.L().Error("Rejected account cleanup failed", zap.Error(err))
					continue
				}

				if n > 0 {
					zap.L().Info("Rejected accounts cleaned up", zap.Int("deleted", n))
				}
			}
		}
	}()
}

// CleanupRejected deletes users whose record was rejected before cutoff and
// returns how many were removed
func CleanupRejected(ctx context.Context, db *gorm.DB, photos storage.PhotoStore, cutoff time.Time) (int, error) {
	var keys []string
	deleted := 0

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []model.Carnet

		err := tx.
			Select("id", "user_id", "photo_key").
			Where("status = ? AND updated_at < ?", model.CarnetRejected, cutoff).
			Find(&stale).
			Error
		if err != nil || len(stale) == 0 {
			return err
		}

		userIDs := make([]string, len(stale))
		for i, c := range stale {
			userIDs[i] = c.UserID
			if c.PhotoKey != "" {
				keys = append(keys, c.PhotoKey)
			}
		}

		if err := tx.Where("user_id IN ?", userIDs).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id IN ?", userIDs).Delete(&model.Carnet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", userIDs).Delete(&model.User{}).Error; err != nil {
			return err
		}

		deleted = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete rejected accounts, %w", err)
	}

	if len(keys) > 0 {
		if err := photos.Delete(ctx, keys...); err != nil {
			zap.L().Error("Failed to delete photos of rejected accounts", zap.Error(err))
		}
	}

	return deleted, nil
}
