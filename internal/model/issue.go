package model

import "time"

type IssueStatus string

const (
	IssueOpen     IssueStatus = "open"
	IssueResolved IssueStatus = "resolved"
)

// Issue is a technical problem reported from the public support form
type Issue struct {
	ID           string      `gorm:"primaryKey" json:"id"`
	Email        string      `gorm:"not null" json:"email"`
	Name         string      `gorm:"not null" json:"name"`
	Phone        string      `gorm:"not null" json:"phone"`
	CarnetNumber *string     `json:"carnet_number,omitempty"`
	Class        *string     `json:"class,omitempty"`
	IssueType    string      `gorm:"not null" json:"issue_type"`
	Description  string      `gorm:"type:text;not null" json:"description"`
	Status       IssueStatus `gorm:"size:16;not null;index;default:open" json:"status"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
