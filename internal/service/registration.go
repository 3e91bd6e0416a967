package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"utmcouncil/vote-api/internal/carnet"
	"utmcouncil/vote-api/internal/model"
	"utmcouncil/vote-api/internal/storage"
	"utmcouncil/vote-api/pkg/security"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registrar creates accounts and runs carnet photos through verification
type Registrar struct {
	DB       *gorm.DB
	Argon    *security.Argon
	Photos   storage.PhotoStore
	Pipeline *carnet.Pipeline
	Notifier Notifier

	now func() time.Time
}

func NewRegistrar(db *gorm.DB, argon *security.Argon, photos storage.PhotoStore, pipeline *carnet.Pipeline, n Notifier) *Registrar {
	return &Registrar{
		DB:       db,
		Argon:    argon,
		Photos:   photos,
		Pipeline: pipeline,
		Notifier: n,
		now:      time.Now,
	}
}

// Registration is validated and normalized input from the register endpoint
type Registration struct {
	Email        string
	Password     string
	Name         string
	CarnetNumber string
	Class        string
	Photo        []byte
	PhotoType    string
}

type Outcome struct {
	User     *model.User
	Carnet   *model.Carnet
	Decision carnet.Decision
	Scan     carnet.Scan
}

// Register creates the user and its carnet record in one transaction. The
// account exists whatever the pipeline decided; a rejected photo can be
// replaced with Resubmit.
func (r *Registrar) Register(ctx context.Context, in Registration) (*Outcome, error) {
	sub := Submission{
		Email:        in.Email,
		CarnetNumber: in.CarnetNumber,
		PhotoHash:    PhotoHash(in.Photo),
	}

	if err := CheckDuplicates(ctx, r.DB, sub); err != nil {
		return nil, err
	}

	res := r.Pipeline.Verify(ctx, in.Photo, in.CarnetNumber, 1)

	passwordHash, err := r.Argon.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	userID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	key, err := storage.NewKey()
	if err != nil {
		return nil, err
	}

	if err := r.Photos.Put(ctx, key, in.PhotoType, in.Photo); err != nil {
		return nil, fmt.Errorf("failed to store photo, %w", err)
	}

	user := &model.User{
		ID:           userID,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Name:         in.Name,
		CarnetNumber: in.CarnetNumber,
		Class:        in.Class,
	}

	c := &model.Carnet{
		UserID:       userID,
		CarnetNumber: in.CarnetNumber,
		PhotoHash:    sub.PhotoHash,
		PhotoKey:     key,
		PhotoType:    in.PhotoType,
		Status:       model.CarnetPending,
		Attempts:     1,
	}

	if err := applyResult(c, res, r.now()); err != nil {
		r.dropPhoto(key)
		return nil, err
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		return tx.Create(c).Error
	})
	if err != nil {
		r.dropPhoto(key)

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, explainDuplicate(ctx, r.DB, sub)
		}

		return nil, fmt.Errorf("failed to save registration, %w", err)
	}

	user.Carnet = c

	zap.L().Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("status", string(c.Status)),
		zap.Int("match_confidence", c.MatchConfidence))

	return &Outcome{User: user, Carnet: c, Decision: res.Decision, Scan: res.Scan}, nil
}

// Resubmit replaces the photo of a record that isn't approved yet and runs
// verification again
func (r *Registrar) Resubmit(ctx context.Context, userID string, photo []byte, photoType string) (*Outcome, error) {
	var user model.User

	err := r.DB.WithContext(ctx).Preload("Carnet").Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load user, %w", err)
	}

	if user.Carnet == nil {
		return nil, ErrNotFound
	}

	if user.Carnet.Status == model.CarnetApproved {
		return nil, ErrAlreadyApproved
	}

	sub := Submission{
		CarnetNumber: user.Carnet.CarnetNumber,
		PhotoHash:    PhotoHash(photo),
		OwnerID:      user.ID,
	}

	if err := CheckDuplicates(ctx, r.DB, sub); err != nil {
		return nil, err
	}

	res := r.Pipeline.Verify(ctx, photo, user.Carnet.CarnetNumber, user.Carnet.Attempts+1)

	key, err := storage.NewKey()
	if err != nil {
		return nil, err
	}

	if err := r.Photos.Put(ctx, key, photoType, photo); err != nil {
		return nil, fmt.Errorf("failed to store photo, %w", err)
	}

	var (
		c      model.Carnet
		oldKey string
	)

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCarnet(tx, userID, &c); err != nil {
			return err
		}

		oldKey = c.PhotoKey

		if err := c.Resubmit(sub.PhotoHash, key, photoType); err != nil {
			return ErrAlreadyApproved
		}

		if err := applyResult(&c, res, r.now()); err != nil {
			return err
		}

		return tx.Save(&c).Error
	})
	if err != nil {
		r.dropPhoto(key)

		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, explainDuplicate(ctx, r.DB, sub)
		case errors.Is(err, ErrAlreadyApproved), errors.Is(err, ErrNotFound):
			return nil, err
		}

		return nil, fmt.Errorf("failed to save resubmission, %w", err)
	}

	if oldKey != "" && oldKey != key {
		r.dropPhoto(oldKey)
	}

	user.Carnet = &c
	notifyDecision(r.Notifier, user.Email, &c)

	return &Outcome{User: &user, Carnet: &c, Decision: res.Decision, Scan: res.Scan}, nil
}

// dropPhoto removes an orphaned photo. Failures leave garbage but no
// inconsistency, so they're only logged.
func (r *Registrar) dropPhoto(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.Photos.Delete(ctx, key); err != nil {
		zap.L().Warn("Failed to delete photo", zap.Error(err), zap.String("key", key))
	}
}

// applyResult copies the scan onto a pending record and moves it to the
// state the decision asks for
func applyResult(c *model.Carnet, res carnet.Result, now time.Time) error {
	s := res.Scan

	c.OCRText = s.Text
	c.OCRConfidence = s.EngineConfidence
	c.MatchConfidence = s.Match.Confidence
	c.MatchScores = model.ScoreMap(s.Match.Scores)
	c.MissingFields = model.StringSlice(s.Match.Missing)
	c.AdminNote = res.Decision.Note

	switch res.Decision.Outcome {
	case carnet.OutcomeApproved:
		return c.Approve(model.AutoReviewer, now)
	case carnet.OutcomeRetry:
		return c.Reject(model.AutoReviewer, res.Decision.Note, now)
	}

	return nil
}
