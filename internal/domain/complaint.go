package domain

import (
	"strings"
	"time"
)

// Complaint statuses
const (
	ComplaintUnverified = "unverified"
	ComplaintVerified   = "verified"
)

// Complaint a user-filed noise report
type Complaint struct {
	ComplaintID string     `json:"complaintId"`
	AuthorID    string     `json:"authorId"`
	AuthorName  string     `json:"authorName"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Comments    []*Comment `json:"comments,omitempty"`
}

// Comment nested under a complaint
type Comment struct {
	CommentID   string    `json:"commentId"`
	ComplaintID string    `json:"complaintId"`
	AuthorID    string    `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NormalizeComplaintStatus(status string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case ComplaintVerified:
		return ComplaintVerified, true
	case ComplaintUnverified:
		return ComplaintUnverified, true
	default:
		return "", false
	}
}
