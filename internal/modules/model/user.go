package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username     string    `gorm:"type:text;not null" json:"username"`
	Email        string    `gorm:"type:text;not null;uniqueIndex:uq_user_email" json:"email"`
	PhoneNumber  string    `gorm:"type:text;not null;default:''" json:"phoneNumber"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
