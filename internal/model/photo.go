package model

import "time"

// Photo holds carnet images when storage.type is "database"
type Photo struct {
	Key         string    `gorm:"primaryKey"`
	ContentType string    `gorm:"not null"`
	Data        []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
