// Package internal holds the dependency bag shared by every handler
package internal

import (
	"utmcouncil/vote-api/internal/carnet"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/internal/storage"
	"utmcouncil/vote-api/pkg/security"

	"github.com/chenyahui/gin-cache/persist"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Argon    *security.Argon
	Sessions *security.Sessions
	Admin    security.AdminCredentials
	Photos   storage.PhotoStore
	OCRQueue *carnet.Queue
	Pipeline *carnet.Pipeline
	// Response cache for public endpoints, memory backed when nil
	Cache persist.CacheStore

	Registrar *service.Registrar
	Moderator *service.Moderator

	Candidates    service.Candidates
	PublicResults bool
	MaxPhotoSize  int64
}
