package storage

import (
	"context"
	"errors"

	"utmcouncil/vote-api/internal/model"

	"gorm.io/gorm"
)

// Database stores photos as blobs next to the records that reference them
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) Put(ctx context.Context, key, contentType string, data []byte) error {
	return d.db.WithContext(ctx).Create(&model.Photo{
		Key:         key,
		ContentType: contentType,
		Data:        data,
	}).Error
}

func (d *Database) Get(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", ErrNotFound
	}

	var p model.Photo

	err := d.db.WithContext(ctx).Where(&model.Photo{Key: key}).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}

		return nil, "", err
	}

	return p.Data, p.ContentType, nil
}

func (d *Database) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return d.db.WithContext(ctx).Where(map[string]any{"key": keys}).Delete(&model.Photo{}).Error
}
