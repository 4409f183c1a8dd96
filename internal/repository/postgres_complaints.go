package repository

import (
	"context"
	"database/sql"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"

	"go.uber.org/zap"
)

const complaintColumns = `complaint_id, author_id, author_name, title, description, location,
	latitude, longitude, status, created_at, updated_at`

// PostgresComplaintsRepo complaints + complaint_comments tables
type PostgresComplaintsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresComplaintsRepo(db *sql.DB, logger *zap.Logger) *PostgresComplaintsRepo {
	return &PostgresComplaintsRepo{db: db, logger: logger}
}

func scanComplaint(s rowScanner) (*domain.Complaint, error) {
	var (
		c        domain.Complaint
		lat, lng sql.NullFloat64
	)
	if err := s.Scan(&c.ComplaintID, &c.AuthorID, &c.AuthorName, &c.Title, &c.Description, &c.Location,
		&lat, &lng, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Latitude = floatPtr(lat)
	c.Longitude = floatPtr(lng)
	return &c, nil
}

// ListComplaints newest first; empty status returns all
func (r *PostgresComplaintsRepo) ListComplaints(ctx context.Context, status string) ([]*domain.Complaint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC`,
		status,
	)
	if err != nil {
		return nil, domain.Upstream("failed to list complaints", err)
	}
	defer rows.Close()

	var out []*domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, domain.Upstream("failed to scan complaint", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Upstream("failed to list complaints", err)
	}
	return out, nil
}

func (r *PostgresComplaintsRepo) GetComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	c, err := scanComplaint(r.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE complaint_id = $1`, complaintID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("complaint not found: %s", complaintID)
		}
		return nil, domain.Upstream("failed to query complaint", err)
	}
	return c, nil
}

// CreateComplaint inserts c; CreatedAt/UpdatedAt are filled from the database
func (r *PostgresComplaintsRepo) CreateComplaint(ctx context.Context, c *domain.Complaint) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO complaints (
			complaint_id, author_id, author_name, title, description, location,
			latitude, longitude, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`,
		c.ComplaintID, c.AuthorID, c.AuthorName, c.Title, c.Description, c.Location,
		nullFloat(c.Latitude), nullFloat(c.Longitude), c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Upstream("failed to insert complaint", err)
	}
	return nil
}

func (r *PostgresComplaintsRepo) UpdateComplaintStatus(ctx context.Context, complaintID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET status = $2, updated_at = NOW() WHERE complaint_id = $1`,
		complaintID, status,
	)
	if err != nil {
		return domain.Upstream("failed to update complaint", err)
	}
	return requireAffected(res, "complaint not found: "+complaintID)
}

func (r *PostgresComplaintsRepo) DeleteComplaint(ctx context.Context, complaintID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM complaints WHERE complaint_id = $1`, complaintID)
	if err != nil {
		return domain.Upstream("failed to delete complaint", err)
	}
	return requireAffected(res, "complaint not found: "+complaintID)
}

// AddComment inserts c; a missing parent complaint is reported as ErrNotFound
func (r *PostgresComplaintsRepo) AddComment(ctx context.Context, c *domain.Comment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO complaint_comments (comment_id, complaint_id, author_id, author_name, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING created_at`,
		c.CommentID, c.ComplaintID, c.AuthorID, c.AuthorName, c.Body,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NotFoundf("complaint not found: %s", c.ComplaintID)
		}
		return domain.Upstream("failed to insert comment", err)
	}
	return nil
}

// ListComments oldest first
func (r *PostgresComplaintsRepo) ListComments(ctx context.Context, complaintID string) ([]*domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT comment_id, complaint_id, author_id, author_name, body, created_at
		 FROM complaint_comments WHERE complaint_id = $1
		 ORDER BY created_at`,
		complaintID,
	)
	if err != nil {
		return nil, domain.Upstream("failed to list comments", err)
	}
	defer rows.Close()

	var out []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.CommentID, &c.ComplaintID, &c.AuthorID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, domain.Upstream("failed to scan comment", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Upstream("failed to list comments", err)
	}
	return out, nil
}
