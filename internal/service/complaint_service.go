package service

import (
	"context"
	"strings"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/auth"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ComplaintService noise complaints and their comment threads.
// Status changes and deletion are limited to the author and moderators.
type ComplaintService interface {
	ListComplaints(ctx context.Context, status string) ([]*domain.Complaint, error)
	GetComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error)
	CreateComplaint(ctx context.Context, p *auth.Principal, req CreateComplaintRequest) (*domain.Complaint, error)
	SetComplaintStatus(ctx context.Context, p *auth.Principal, complaintID, status string) (*domain.Complaint, error)
	DeleteComplaint(ctx context.Context, p *auth.Principal, complaintID string) error

	AddComment(ctx context.Context, p *auth.Principal, complaintID, body string) (*domain.Comment, error)
	ListComments(ctx context.Context, complaintID string) ([]*domain.Comment, error)
}

type complaintService struct {
	complaintsRepo repository.ComplaintsRepository
	logger         *zap.Logger
}

func NewComplaintService(complaintsRepo repository.ComplaintsRepository, logger *zap.Logger) ComplaintService {
	return &complaintService{
		complaintsRepo: complaintsRepo,
		logger:         logger,
	}
}

// CreateComplaintRequest new complaint
type CreateComplaintRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (s *complaintService) ListComplaints(ctx context.Context, status string) ([]*domain.Complaint, error) {
	filter := ""
	if status != "" {
		normalized, ok := domain.NormalizeComplaintStatus(status)
		if !ok {
			return nil, domain.InvalidInputf("invalid status: %s", status)
		}
		filter = normalized
	}
	list, err := s.complaintsRepo.ListComplaints(ctx, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Complaint{}
	}
	return list, nil
}

// GetComplaint includes the comment thread
func (s *complaintService) GetComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	c, err := s.complaintsRepo.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	comments, err := s.complaintsRepo.ListComments(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	c.Comments = comments
	return c, nil
}

func (s *complaintService) CreateComplaint(ctx context.Context, p *auth.Principal, req CreateComplaintRequest) (*domain.Complaint, error) {
	if !p.IsUser() {
		return nil, domain.Forbiddenf("only users can file complaints")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.InvalidInputf("title is required")
	}

	c := &domain.Complaint{
		ComplaintID: uuid.NewString(),
		AuthorID:    p.ID,
		AuthorName:  p.Name,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Status:      domain.ComplaintUnverified,
	}
	if err := s.complaintsRepo.CreateComplaint(ctx, c); err != nil {
		s.logger.Error("CreateComplaint failed", zap.String("author_id", p.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Complaint filed",
		zap.String("complaint_id", c.ComplaintID),
		zap.String("author_id", p.ID),
	)
	return c, nil
}

func (s *complaintService) SetComplaintStatus(ctx context.Context, p *auth.Principal, complaintID, status string) (*domain.Complaint, error) {
	normalized, ok := domain.NormalizeComplaintStatus(status)
	if !ok {
		return nil, domain.InvalidInputf("invalid status: %s (must be verified or unverified)", status)
	}
	c, err := s.authorize(ctx, p, complaintID)
	if err != nil {
		return nil, err
	}

	if err := s.complaintsRepo.UpdateComplaintStatus(ctx, complaintID, normalized); err != nil {
		return nil, err
	}
	c.Status = normalized

	s.logger.Info("Complaint status changed",
		zap.String("complaint_id", complaintID),
		zap.String("status", normalized),
		zap.String("by", p.ID),
	)
	return c, nil
}

func (s *complaintService) DeleteComplaint(ctx context.Context, p *auth.Principal, complaintID string) error {
	if _, err := s.authorize(ctx, p, complaintID); err != nil {
		return err
	}
	if err := s.complaintsRepo.DeleteComplaint(ctx, complaintID); err != nil {
		return err
	}
	s.logger.Info("Complaint deleted", zap.String("complaint_id", complaintID), zap.String("by", p.ID))
	return nil
}

func (s *complaintService) AddComment(ctx context.Context, p *auth.Principal, complaintID, body string) (*domain.Comment, error) {
	if !p.IsUser() {
		return nil, domain.Forbiddenf("only users can comment")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.InvalidInputf("comment body is required")
	}

	c := &domain.Comment{
		CommentID:   uuid.NewString(),
		ComplaintID: complaintID,
		AuthorID:    p.ID,
		AuthorName:  p.Name,
		Body:        body,
	}
	if err := s.complaintsRepo.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *complaintService) ListComments(ctx context.Context, complaintID string) ([]*domain.Comment, error) {
	if _, err := s.complaintsRepo.GetComplaint(ctx, complaintID); err != nil {
		return nil, err
	}
	list, err := s.complaintsRepo.ListComments(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Comment{}
	}
	return list, nil
}

// authorize loads the complaint and checks p is its author or a moderator
func (s *complaintService) authorize(ctx context.Context, p *auth.Principal, complaintID string) (*domain.Complaint, error) {
	c, err := s.complaintsRepo.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !p.CanModerate() && !p.IsAuthor(c.AuthorID) {
		return nil, domain.Forbiddenf("only the author or a moderator may change this complaint")
	}
	return c, nil
}
