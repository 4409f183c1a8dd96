package service

import (
	"context"
	"testing"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/auth"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	alice  = &auth.Principal{ID: "u-alice", Kind: auth.KindUser, Role: domain.RoleUser, Name: "Alice"}
	bob    = &auth.Principal{ID: "u-bob", Kind: auth.KindUser, Role: domain.RoleUser, Name: "Bob"}
	admin  = &auth.Principal{ID: "u-admin", Kind: auth.KindUser, Role: domain.RoleAdmin, Name: "Admin"}
	sensor = &auth.Principal{ID: "3", Kind: auth.KindDevice, DeviceID: "3"}
)

func newComplaintService(t *testing.T) (ComplaintService, *memComplaints) {
	t.Helper()
	repo := newMemComplaints()
	return NewComplaintService(repo, zap.NewNop()), repo
}

func TestComplaintService_CreateAndGet(t *testing.T) {
	svc, _ := newComplaintService(t)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, alice, CreateComplaintRequest{Title: " Night drilling ", Description: "after 11pm"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ComplaintID)
	assert.Equal(t, "Night drilling", c.Title)
	assert.Equal(t, domain.ComplaintUnverified, c.Status)
	assert.Equal(t, "u-alice", c.AuthorID)
	assert.Equal(t, "Alice", c.AuthorName)

	_, err = svc.AddComment(ctx, bob, c.ComplaintID, "same here")
	require.NoError(t, err)

	got, err := svc.GetComplaint(ctx, c.ComplaintID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "same here", got.Comments[0].Body)
	assert.Equal(t, "u-bob", got.Comments[0].AuthorID)
}

func TestComplaintService_CreateValidation(t *testing.T) {
	svc, _ := newComplaintService(t)
	ctx := context.Background()

	_, err := svc.CreateComplaint(ctx, alice, CreateComplaintRequest{Title: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateComplaint(ctx, sensor, CreateComplaintRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.CreateComplaint(ctx, nil, CreateComplaintRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestComplaintService_StatusAuthorization(t *testing.T) {
	svc, _ := newComplaintService(t)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, alice, CreateComplaintRequest{Title: "Horns"})
	require.NoError(t, err)

	_, err = svc.SetComplaintStatus(ctx, bob, c.ComplaintID, "verified")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SetComplaintStatus(ctx, alice, c.ComplaintID, "closed")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := svc.SetComplaintStatus(ctx, admin, c.ComplaintID, "Verified")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintVerified, updated.Status)

	updated, err = svc.SetComplaintStatus(ctx, alice, c.ComplaintID, "unverified")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintUnverified, updated.Status)

	_, err = svc.SetComplaintStatus(ctx, admin, "missing", "verified")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComplaintService_Delete(t *testing.T) {
	svc, repo := newComplaintService(t)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, alice, CreateComplaintRequest{Title: "Music"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, bob, c.ComplaintID, "+1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteComplaint(ctx, bob, c.ComplaintID), domain.ErrForbidden)
	require.NoError(t, svc.DeleteComplaint(ctx, alice, c.ComplaintID))

	assert.Empty(t, repo.comments)
	_, err = svc.GetComplaint(ctx, c.ComplaintID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComplaintService_ListAndComments(t *testing.T) {
	svc, _ := newComplaintService(t)
	ctx := context.Background()

	a, err := svc.CreateComplaint(ctx, alice, CreateComplaintRequest{Title: "A"})
	require.NoError(t, err)
	_, err = svc.CreateComplaint(ctx, bob, CreateComplaintRequest{Title: "B"})
	require.NoError(t, err)
	_, err = svc.SetComplaintStatus(ctx, admin, a.ComplaintID, "verified")
	require.NoError(t, err)

	all, err := svc.ListComplaints(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	verified, err := svc.ListComplaints(ctx, "verified")
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, "A", verified[0].Title)

	_, err = svc.ListComplaints(ctx, "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	comments, err := svc.ListComments(ctx, a.ComplaintID)
	require.NoError(t, err)
	assert.NotNil(t, comments)
	assert.Empty(t, comments)

	_, err = svc.ListComments(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AddComment(ctx, sensor, a.ComplaintID, "beep")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.AddComment(ctx, alice, a.ComplaintID, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.AddComment(ctx, alice, "missing", "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
