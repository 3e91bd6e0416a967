// Package model defines database models
package model

import "time"

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `gorm:"not null" json:"name"`
	// Claimed number, copied onto the verification record at registration
	CarnetNumber string    `gorm:"index;not null" json:"carnet_number"`
	Class        string    `json:"class"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`

	Carnet *Carnet `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"carnet,omitempty"`
	Vote   *Vote   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Verified is derived from the verification record. Users don't carry a flag
// of their own so the two can't drift apart.
func (u *User) Verified() bool {
	return u.Carnet != nil && u.Carnet.Status == CarnetApproved
}

// Profile is the public view of a user returned to clients
type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	CarnetNumber string `json:"carnet_number"`
	Class        string `json:"class"`
	IsAdmin      bool   `json:"is_admin"`
	Verified     bool   `json:"verified"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		CarnetNumber: u.CarnetNumber,
		Class:        u.Class,
		IsAdmin:      u.IsAdmin,
		Verified:     u.Verified(),
	}
}
