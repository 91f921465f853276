package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/port"
)

// Claims is what the identity provider asserts about an authenticated caller.
type Claims struct {
	Email     string
	FirstName string
	LastName  string
}

// IdentityService maps authenticated emails to members, provisioning a member
// record on first sight. It never checks credentials.
type IdentityService struct {
	users       port.UserRepository
	emailDomain string
}

// NewIdentityService restricts members to emailDomain (and its subdomains)
// when it is non-empty.
func NewIdentityService(users port.UserRepository, emailDomain string) *IdentityService {
	return &IdentityService{users: users, emailDomain: strings.ToLower(strings.TrimSpace(emailDomain))}
}

func (s *IdentityService) Resolve(ctx context.Context, claims Claims) (domain.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return domain.Identity{}, ErrUnauthenticated
	}
	if !s.inCommunity(email) {
		return domain.Identity{}, fmt.Errorf("%w: email outside community", ErrForbidden)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("get user by email: %w", err)
	}
	if user != nil {
		return domain.Identity{UserID: user.ID, Email: user.Email}, nil
	}

	created := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Cart:      []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, created); err != nil {
		// lost a race with a concurrent first request
		if existing, getErr := s.users.GetUserByEmail(ctx, email); getErr == nil && existing != nil {
			return domain.Identity{UserID: existing.ID, Email: existing.Email}, nil
		}
		return domain.Identity{}, fmt.Errorf("create user: %w", err)
	}

	log.Printf("identity: provisioned member %s", created.ID)
	return domain.Identity{UserID: created.ID, Email: created.Email}, nil
}

func (s *IdentityService) inCommunity(email string) bool {
	if s.emailDomain == "" {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	host := email[at+1:]
	return host == s.emailDomain || strings.HasSuffix(host, "."+s.emailDomain)
}
