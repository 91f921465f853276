package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/port"
)

const maxNameLength = 100

// Optional leading +, then 7 to 15 digits (E.164 length).
var contactNumberPattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

type ProfileService struct {
	users port.UserRepository
}

func NewProfileService(users port.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) GetProfile(ctx context.Context, caller domain.Identity) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// UpdateProfile changes the caller's name and contact number. Fields left
// unset keep their value; an empty contact number clears it.
func (s *ProfileService) UpdateProfile(ctx context.Context, caller domain.Identity, update domain.ProfileUpdate) (*domain.User, error) {
	update, err := normalizeProfile(update)
	if err != nil {
		return nil, err
	}

	if !update.Empty() {
		if err := s.users.UpdateProfile(ctx, caller.UserID, update); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		log.Printf("profile: %s updated profile", caller.UserID)
	}
	return s.GetProfile(ctx, caller)
}

func normalizeProfile(in domain.ProfileUpdate) (domain.ProfileUpdate, error) {
	var (
		out  domain.ProfileUpdate
		errs []error
	)

	out.FirstName, errs = normalizeName("first name", in.FirstName, errs)
	out.LastName, errs = normalizeName("last name", in.LastName, errs)

	if in.ContactNumber != nil {
		number := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(*in.ContactNumber))
		if number != "" && !contactNumberPattern.MatchString(number) {
			errs = append(errs, fmt.Errorf("%w: contact number must be 7 to 15 digits", ErrInvalidProfile))
		}
		out.ContactNumber = &number
	}

	return out, errors.Join(errs...)
}

func normalizeName(label string, name *string, errs []error) (*string, []error) {
	if name == nil {
		return nil, errs
	}
	trimmed := strings.TrimSpace(*name)
	switch {
	case trimmed == "":
		errs = append(errs, fmt.Errorf("%w: %s must not be blank", ErrInvalidProfile, label))
	case utf8.RuneCountInString(trimmed) > maxNameLength:
		errs = append(errs, fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidProfile, label, maxNameLength))
	}
	return &trimmed, errs
}
