package domain

import "time"

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UserInfo an account record (user_info table)
type UserInfo struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	APIKey      *string   `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}
