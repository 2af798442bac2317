package models

import (
	"time"
)

const (
	RoleUser       = "user"
	RoleStoreOwner = "store_owner"
	RoleAdmin      = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Address      *string   `json:"address"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Store struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null"                 json:"name"`
	Email     string    `gorm:"unique;not null"          json:"email"`
	Address   *string   `json:"address"`
	OwnerID   *uint     `gorm:"index"                    json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rating carries a unique (user, store) index: a resubmission updates the
// existing row instead of inserting a second one.
type Rating struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_store"        json:"user_id"`
	StoreID   uint      `gorm:"not null;uniqueIndex:idx_user_store"        json:"store_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	JTI       string `gorm:"index"           json:"jti"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}
