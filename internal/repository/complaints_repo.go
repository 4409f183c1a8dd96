package repository

import (
	"context"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
)

// ComplaintsRepository complaints and their comment threads
type ComplaintsRepository interface {
	ListComplaints(ctx context.Context, status string) ([]*domain.Complaint, error)
	GetComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error)
	CreateComplaint(ctx context.Context, c *domain.Complaint) error
	UpdateComplaintStatus(ctx context.Context, complaintID, status string) error
	// DeleteComplaint removes the complaint; comments go with it (ON DELETE CASCADE).
	DeleteComplaint(ctx context.Context, complaintID string) error

	AddComment(ctx context.Context, c *domain.Comment) error
	ListComments(ctx context.Context, complaintID string) ([]*domain.Comment, error)
}
