package model

import (
	"errors"
	"time"
)

type CarnetStatus string

const (
	CarnetPending  CarnetStatus = "pending"
	CarnetApproved CarnetStatus = "approved"
	CarnetRejected CarnetStatus = "rejected"
)

// AutoReviewer is written into ReviewedBy when the OCR pipeline made the decision
const AutoReviewer = "auto"

var ErrInvalidTransition = errors.New("invalid verification status transition")

// Carnet is the verification record of a user's student card. There is exactly
// one per user; resubmissions reuse the row.
type Carnet struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`
	// Only one non-rejected record may hold a number, see db/migrate.go
	CarnetNumber string `gorm:"index;not null" json:"carnet_number"`

	PhotoHash string `gorm:"uniqueIndex;not null" json:"-"`
	PhotoKey  string `gorm:"not null" json:"-"`
	PhotoType string `json:"-"`

	Status       CarnetStatus `gorm:"size:16;not null;index;default:pending" json:"status"`
	ReviewedBy   string       `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time   `json:"verified_at,omitempty"`
	RejectReason string       `json:"reject_reason,omitempty"`
	AdminNote    string       `json:"admin_note,omitempty"`

	// Set when an admin asked for a new photo, cleared on the next upload
	ResubmissionRequested bool `json:"resubmission_requested"`
	Attempts              int  `gorm:"default:1" json:"attempts"`

	OCRText         string      `gorm:"type:text" json:"-"`
	OCRConfidence   float64     `json:"ocr_confidence"`
	MatchConfidence int         `json:"match_confidence"`
	MatchScores     ScoreMap    `gorm:"type:text" json:"match_scores"`
	MissingFields   StringSlice `gorm:"type:text" json:"missing_fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Carnet) AutoVerified() bool {
	return c.Status == CarnetApproved && c.ReviewedBy == AutoReviewer
}

// Approve moves a pending record to approved
func (c *Carnet) Approve(by string, at time.Time) error {
	if c.Status != CarnetPending {
		return ErrInvalidTransition
	}

	c.Status = CarnetApproved
	c.ReviewedBy = by
	c.ReviewedAt = &at
	c.RejectReason = ""
	c.ResubmissionRequested = false
	return nil
}

// Reject moves a pending record to rejected. Approved records can only be
// rejected through Disconnect.
func (c *Carnet) Reject(by, reason string, at time.Time) error {
	if c.Status != CarnetPending {
		return ErrInvalidTransition
	}

	c.Status = CarnetRejected
	c.ReviewedBy = by
	c.ReviewedAt = &at
	c.RejectReason = reason
	return nil
}

// Disconnect revokes an approval
func (c *Carnet) Disconnect(by, reason string, at time.Time) error {
	if c.Status != CarnetApproved {
		return ErrInvalidTransition
	}

	c.Status = CarnetRejected
	c.ReviewedBy = by
	c.ReviewedAt = &at
	c.RejectReason = reason
	return nil
}

// RequestResubmission re-opens a record and asks the owner for a new photo
func (c *Carnet) RequestResubmission(note string) {
	c.Status = CarnetPending
	c.ReviewedBy = ""
	c.ReviewedAt = nil
	c.RejectReason = ""
	c.AdminNote = note
	c.ResubmissionRequested = true
}

// Resubmit swaps in a newly uploaded photo. Approved records are final from the
// owner's point of view.
func (c *Carnet) Resubmit(hash, key, contentType string) error {
	if c.Status == CarnetApproved {
		return ErrInvalidTransition
	}

	c.PhotoHash = hash
	c.PhotoKey = key
	c.PhotoType = contentType
	c.Status = CarnetPending
	c.ReviewedBy = ""
	c.ReviewedAt = nil
	c.RejectReason = ""
	c.ResubmissionRequested = false
	c.Attempts++
	return nil
}
