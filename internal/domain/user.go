package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a directory entry. IsOnline is a cached hint only; live
// reachability is answered by the presence registry.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	ProfilePic   string    `json:"profile_pic"`
	IsOnline     bool      `json:"is_online"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const DefaultBio = "Hi Everyone, I am Using QuickChat"

type ProfileUpdate struct {
	FullName   *string
	Bio        *string
	ProfilePic *string
}
