// Package auth resolves request credentials to principals.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"

	"go.uber.org/zap"
)

// Principal kinds
const (
	KindDevice = "device"
	KindUser   = "user"
)

// Principal the authenticated caller
type Principal struct {
	ID       string
	Kind     string
	Role     string
	DeviceID string // set for device principals
	Name     string
}

// CanManageDevice users and admins may manage any device; a device only itself
func (p *Principal) CanManageDevice(deviceID string) bool {
	if p == nil {
		return false
	}
	if p.Kind == KindDevice {
		return p.DeviceID == deviceID
	}
	return p.Role == domain.RoleAdmin || p.Role == domain.RoleUser
}

// CanModerate admin only
func (p *Principal) CanModerate() bool {
	return p != nil && p.Kind == KindUser && p.Role == domain.RoleAdmin
}

func (p *Principal) IsAuthor(authorID string) bool {
	return p != nil && p.Kind == KindUser && authorID != "" && p.ID == authorID
}

// IsUser reports a human caller (not a device key)
func (p *Principal) IsUser() bool {
	return p != nil && p.Kind == KindUser
}

// Authenticator resolves a request to a principal or ErrUnauthorized
type Authenticator interface {
	Authenticate(r *http.Request) (*Principal, error)
}

// KeyAuthenticator looks the API key up in the store: devices first, then users.
// devKey, when non-empty, is accepted as an admin key without a lookup.
type KeyAuthenticator struct {
	devices repository.DevicesRepository
	users   repository.UsersRepository
	devKey  string
	logger  *zap.Logger
}

func NewKeyAuthenticator(devices repository.DevicesRepository, users repository.UsersRepository, devKey string, logger *zap.Logger) *KeyAuthenticator {
	return &KeyAuthenticator{devices: devices, users: users, devKey: devKey, logger: logger}
}

func (a *KeyAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	key := CredentialFromRequest(r)
	if key == "" {
		return nil, domain.Unauthorizedf("API key required")
	}
	ctx := r.Context()

	if a.devKey != "" && key == a.devKey {
		return &Principal{ID: "dev", Kind: KindUser, Role: domain.RoleAdmin, Name: "development"}, nil
	}

	d, err := a.devices.GetDeviceByAPIKey(ctx, key)
	switch {
	case err == nil:
		return &Principal{ID: d.DeviceID, Kind: KindDevice, DeviceID: d.DeviceID, Name: d.Name}, nil
	case !errors.Is(err, domain.ErrNotFound):
		a.logger.Error("API key lookup failed", zap.String("source", "devices"), zap.Error(err))
		return nil, err
	}

	u, err := a.users.GetUserByAPIKey(ctx, key)
	switch {
	case err == nil:
		role := u.Role
		if role != domain.RoleAdmin {
			role = domain.RoleUser
		}
		return &Principal{ID: u.UserID, Kind: KindUser, Role: role, Name: u.DisplayName}, nil
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.Unauthorizedf("invalid API key")
	default:
		a.logger.Error("API key lookup failed", zap.String("source", "user_info"), zap.Error(err))
		return nil, err
	}
}

// CredentialFromRequest X-API-Key, then Authorization: Bearer, then ?api_key=
func CredentialFromRequest(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("api_key"))
}

type principalKey struct{}

// WithPrincipal adds p to ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
