package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/port"
)

type ReviewService struct {
	users   port.UserRepository
	reviews port.ReviewRepository
}

func NewReviewService(users port.UserRepository, reviews port.ReviewRepository) *ReviewService {
	return &ReviewService{users: users, reviews: reviews}
}

func (s *ReviewService) AddReview(ctx context.Context, caller domain.Identity, sellerID string, rating int, comment string) (domain.Review, error) {
	if rating < 1 || rating > 5 {
		return domain.Review{}, ErrInvalidRating
	}

	seller, err := s.users.GetUser(ctx, sellerID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("get seller: %w", err)
	}
	if seller == nil {
		return domain.Review{}, ErrNotFound
	}

	review := domain.Review{
		ID:         uuid.NewString(),
		SellerID:   sellerID,
		ReviewerID: caller.UserID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) ListReviews(ctx context.Context, sellerID string) ([]domain.ReviewView, error) {
	reviews, err := s.reviews.ListReviewsBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if len(reviews) == 0 {
		return []domain.ReviewView{}, nil
	}

	users, err := s.users.GetUsers(ctx, uniqueIDs(reviews, func(r domain.Review) string { return r.ReviewerID }))
	if err != nil {
		return nil, fmt.Errorf("get reviewers: %w", err)
	}
	contacts := make(map[string]*domain.Contact, len(users))
	for _, user := range users {
		contacts[user.ID] = user.Contact()
	}

	views := make([]domain.ReviewView, 0, len(reviews))
	for _, review := range reviews {
		views = append(views, domain.ReviewView{Review: review, Reviewer: contacts[review.ReviewerID]})
	}
	return views, nil
}
