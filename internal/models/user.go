package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the platform identity record. Users are soft-deleted only.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string         `gorm:"size:100;not null;uniqueIndex:idx_users_username" json:"username"`
	Email          string         `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	EmailVerified  *time.Time     `json:"email_verified"`
	Image          string         `gorm:"size:500" json:"image"`
	Role           string         `gorm:"size:20;default:'user'" json:"role"`
	FollowerCount  int            `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int            `gorm:"not null;default:0" json:"following_count"`
	ApprovedAt     *time.Time     `json:"approved_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
