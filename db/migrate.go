package db

import (
	"errors"
	"fmt"

	"utmcouncil/vote-api/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type migration struct {
	name string
	up   func(tx *gorm.DB) error
}

// Constraints AutoMigrate can't express. Both Postgres and SQLite support partial indexes.
var migrations = []migration{
	{
		name: "carnets_active_number_unique",
		up: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_carnets_active_number ON carnets (carnet_number) WHERE status <> 'rejected'`).Error
		},
	},
	{
		name: "carnets_status_created_index",
		up: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_carnets_status_created ON carnets (status, created_at)`).Error
		},
	},
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		model.User{},
		model.Carnet{},
		model.Vote{},
		model.Issue{},
		model.Photo{},
		model.Migration{},
	)
	if err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	for _, m := range migrations {
		err := db.Transaction(func(tx *gorm.DB) error {
			var applied model.Migration

			err := tx.Where("name = ?", m.name).First(&applied).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			if err := m.up(tx); err != nil {
				return err
			}

			zap.L().Debug("Applied migration", zap.String("name", m.name))
			return tx.Create(&model.Migration{Name: m.name}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s, %w", m.name, err)
		}
	}

	return nil
}
