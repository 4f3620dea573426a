package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProviderCredentials marks the first-party password account.
const ProviderCredentials = "credentials"

// Account is one linked authentication method for a user. OAuth fields are
// set for federated accounts, password fields for the credentials account;
// the two sets are mutually exclusive.
type Account struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider          string    `gorm:"size:50;not null;uniqueIndex:idx_accounts_provider_account" json:"provider"`
	ProviderAccountID string    `gorm:"size:255;not null;uniqueIndex:idx_accounts_provider_account" json:"provider_account_id"`

	AccessToken  *string    `gorm:"size:2048" json:"-"`
	RefreshToken *string    `gorm:"size:2048" json:"-"`
	ExpiresAt    *time.Time `json:"-"`
	Scope        *string    `gorm:"size:500" json:"-"`
	TokenType    *string    `gorm:"size:50" json:"-"`

	PasswordHash *string `gorm:"size:255" json:"-"`
	PasswordSalt *string `gorm:"size:64" json:"-"`

	// Profile keeps the last normalized provider profile snapshot.
	Profile datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
