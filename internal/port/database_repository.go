package port

import (
	"context"

	"github.com/rl1809/campus-market/internal/core/domain"
)

// Single-record lookups return (nil, nil) when the record does not exist.

type UserRepository interface {
	// CreateUser persists a new member; email must be unique
	CreateUser(ctx context.Context, user domain.User) error

	// GetUser retrieves a member by ID
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail retrieves a member by email
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetUsers retrieves the members with the given IDs, missing ones are omitted
	GetUsers(ctx context.Context, userIDs []string) ([]domain.User, error)

	// UpdateProfile writes the set fields of update in a single write
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) error

	// SaveCart overwrites the member's cart in a single write
	SaveCart(ctx context.Context, userID string, itemIDs []string) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item domain.Item) error

	GetItem(ctx context.Context, itemID string) (*domain.Item, error)

	// GetItems retrieves the items with the given IDs, missing ones are omitted
	GetItems(ctx context.Context, itemIDs []string) ([]domain.Item, error)

	// ListItems returns all items, restricted to categories when non-empty
	ListItems(ctx context.Context, categories []domain.Category) ([]domain.Item, error)

	// ListItemIDsBySeller returns the IDs of every item the seller listed
	ListItemIDsBySeller(ctx context.Context, sellerID string) ([]string, error)

	// DeleteItem removes an item, returns false if it did not exist
	DeleteItem(ctx context.Context, itemID string) (bool, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// DeleteOrder hard-deletes an order, returns false if it did not exist
	DeleteOrder(ctx context.Context, orderID string) (bool, error)

	// SetOTPHash overwrites the stored OTP hash of an order
	SetOTPHash(ctx context.Context, orderID string, hash []byte) error

	// CompleteOrder sets the order status to completed
	CompleteOrder(ctx context.Context, orderID string) error

	// ListOrdersByBuyer returns the buyer's orders in the given status, oldest first
	ListOrdersByBuyer(ctx context.Context, buyerID string, status domain.OrderStatus) ([]domain.Order, error)

	// ListOrdersByItems returns orders on the given items; an empty status matches any
	ListOrdersByItems(ctx context.Context, itemIDs []string, status domain.OrderStatus) ([]domain.Order, error)

	// CompletedItemIDs returns the distinct IDs of items with at least one completed order
	CompletedItemIDs(ctx context.Context) ([]string, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review domain.Review) error

	// ListReviewsBySeller returns reviews about a seller, newest first
	ListReviewsBySeller(ctx context.Context, sellerID string) ([]domain.Review, error)
}
