package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/port"
)

const (
	otpMin = 100000
	otpMax = 999999

	DefaultOTPCost = 10

	issueConcurrency = 4
)

// OTPManager issues and checks the delivery codes of pending orders. Only
// bcrypt hashes are persisted; plaintext codes leave through Issue's result.
type OTPManager struct {
	orders port.OrderRepository
	cost   int
}

func NewOTPManager(orders port.OrderRepository, cost int) *OTPManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultOTPCost
	}
	return &OTPManager{orders: orders, cost: cost}
}

// Generate returns a uniformly random 6-digit code.
func (m *OTPManager) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func (m *OTPManager) Hash(otp string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(otp), m.cost)
}

// Matches compares in constant time; an order without a hash never matches.
func (m *OTPManager) Matches(hash []byte, otp string) (bool, error) {
	if len(hash) == 0 || otp == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(otp))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare otp: %w", err)
	}
	return true, nil
}

// Issue generates a fresh code for every order, overwrites each stored hash
// and returns orderID -> plaintext. Earlier codes stop verifying.
func (m *OTPManager) Issue(ctx context.Context, orders []domain.Order) (map[string]string, error) {
	codes := make([]string, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(issueConcurrency)

	for i, order := range orders {
		g.Go(func() error {
			otp, err := m.Generate()
			if err != nil {
				return err
			}
			hash, err := m.Hash(otp)
			if err != nil {
				return fmt.Errorf("hash otp: %w", err)
			}
			if err := m.orders.SetOTPHash(gctx, order.ID, hash); err != nil {
				return fmt.Errorf("set otp hash %s: %w", order.ID, err)
			}
			codes[i] = otp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	otps := make(map[string]string, len(orders))
	for i, order := range orders {
		otps[order.ID] = codes[i]
	}
	return otps, nil
}

// Verify completes the order when otp matches its latest issued code.
// A completed order whose hash still matches verifies again.
func (m *OTPManager) Verify(ctx context.Context, orderID, otp string) (*domain.Order, error) {
	order, err := m.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrNotFound
	}

	ok, err := m.Matches(order.OTPHash, otp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	if err := m.orders.CompleteOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}
	order.Status = domain.OrderStatusCompleted
	return order, nil
}
