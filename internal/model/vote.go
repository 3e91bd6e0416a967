package model

import "time"

const (
	PositionPresident              = "president"
	PositionVicePresident          = "vice_president"
	PositionCultureMinister        = "culture_minister"
	PositionAdministrationMinister = "administration_minister"
	PositionSocialMediaMinister    = "social_media_minister"
)

// Positions lists every elected position in ballot order
var Positions = []string{
	PositionPresident,
	PositionVicePresident,
	PositionCultureMinister,
	PositionAdministrationMinister,
	PositionSocialMediaMinister,
}

type Vote struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"-"`

	President              string `gorm:"not null" json:"president"`
	VicePresident          string `gorm:"not null" json:"vice_president"`
	CultureMinister        string `gorm:"not null" json:"culture_minister"`
	AdministrationMinister string `gorm:"not null" json:"administration_minister"`
	SocialMediaMinister    string `gorm:"not null" json:"social_media_minister"`

	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Selection returns the candidate chosen for a position
func (v *Vote) Selection(position string) string {
	switch position {
	case PositionPresident:
		return v.President
	case PositionVicePresident:
		return v.VicePresident
	case PositionCultureMinister:
		return v.CultureMinister
	case PositionAdministrationMinister:
		return v.AdministrationMinister
	case PositionSocialMediaMinister:
		return v.SocialMediaMinister
	}

	return ""
}
