package model

import (
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName    string    `gorm:"not null"                 json:"firstName"`
	LastName     string    `gorm:"not null"                 json:"lastName"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         Role      `gorm:"not null"                 json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RefreshToken is the revocation record behind an issued refresh token.
// Its ID travels inside the token as the jti claim.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"userId"`
	ExpiresAt time.Time `gorm:"index;not null"           json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type TokenPair struct {
	AccessToken    string
	RefreshToken   string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	UserID         uint
	RefreshTokenID uint
}
