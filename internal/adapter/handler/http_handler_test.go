package handler

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
)

func (s *testServer) listItem(token, name string) domain.Item {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/items", token, CreateItemRequest{
		Name:        name,
		Price:       decimal.NewFromInt(500),
		Category:    domain.CategoryElectronics,
		Description: "Scientific " + strings.ToLower(name),
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Item](s.t, rec)
}

func TestCalculatorScenario(t *testing.T) {
	s := newTestServer(t)
	seller := s.token("alice@campus.test")
	buyer := s.token("bob@campus.test")

	item := s.listItem(seller, "Calculator")

	rec := s.do(http.MethodGet, "/api/search?query=calc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ItemsResponse](t, rec).Items, 1)

	rec = s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: item.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{item.ID}, decode[CartResponse](t, rec).Cart)

	rec = s.do(http.MethodPost, "/api/orders", buyer, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[OrdersResponse](t, rec).Orders
	require.Len(t, placed, 1)
	order := placed[0]
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, decimal.NewFromInt(500).Equal(order.TotalAmount))
	assert.Equal(t, item.ID, order.ItemID)
	assert.NotEqual(t, item.SellerID, order.BuyerID)

	rec = s.do(http.MethodGet, "/api/cart", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[ItemsResponse](t, rec).Items)

	rec = s.do(http.MethodGet, "/api/orders/pending", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	earlier := decode[PendingOrdersResponse](t, rec).OTPs[order.ID]
	require.Len(t, earlier, 6)

	rec = s.do(http.MethodGet, "/api/orders/pending", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[PendingOrdersResponse](t, rec)
	require.Len(t, pending.Orders, 1)
	require.NotNil(t, pending.Orders[0].Seller)
	assert.Equal(t, item.SellerID, pending.Orders[0].Seller.ID)
	latest := pending.OTPs[order.ID]
	require.Len(t, latest, 6)
	assert.NotContains(t, rec.Body.String(), "otpHash")

	rec = s.do(http.MethodGet, "/api/orders/deliveries", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[OrderViewsResponse](t, rec).Orders, 1)

	if earlier != latest {
		rec = s.do(http.MethodPost, "/api/orders/verify", seller, VerifyOrderRequest{OrderID: order.ID, OTP: earlier})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "superseded code must not verify")
	}

	rec = s.do(http.MethodPost, "/api/orders/verify", seller, VerifyOrderRequest{OrderID: order.ID, OTP: latest})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/search?query=calc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[ItemsResponse](t, rec).Items, "sold item is hidden from search")

	rec = s.do(http.MethodGet, "/api/orders/bought", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bought := decode[OrderViewsResponse](t, rec).Orders
	require.Len(t, bought, 1)
	assert.Equal(t, domain.OrderStatusCompleted, bought[0].Status)

	rec = s.do(http.MethodGet, "/api/orders/sold", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[OrderViewsResponse](t, rec).Orders, 1)

	rec = s.do(http.MethodGet, "/api/receipts/"+order.ID, buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{name: "missing token", want: http.StatusUnauthorized},
		{name: "malformed header", header: "Token abc", want: http.StatusUnauthorized},
		{name: "wrong signature", header: "Bearer " + mustSign(t, []byte("other"), "bob@campus.test"), want: http.StatusUnauthorized},
		{name: "outside community", token: s.token("eve@elsewhere.test"), want: http.StatusForbidden},
		{name: "valid", token: s.token("bob@campus.test"), want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec = s.do(http.MethodGet, "/api/cart", tt.token, nil)
			if tt.header != "" {
				rec = s.do(http.MethodGet, "/api/cart", "", nil, "Authorization", tt.header)
			}
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func mustSign(t *testing.T, secret []byte, email string) string {
	t.Helper()
	token, err := SignToken(secret, service.Claims{Email: email}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestCartErrors(t *testing.T) {
	s := newTestServer(t)
	seller := s.token("alice@campus.test")
	buyer := s.token("bob@campus.test")
	item := s.listItem(seller, "Lamp")

	rec := s.do(http.MethodPost, "/api/cart", seller, AddToCartRequest{ItemID: item.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "own item")

	rec = s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: item.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: item.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/cart", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/cart/"+item.ID, buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponse](t, rec).Cart)

	rec = s.do(http.MethodDelete, "/api/cart/"+item.ID, buyer, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "removing an absent entry is a no-op")
}

func TestOrderErrors(t *testing.T) {
	s := newTestServer(t)
	seller := s.token("alice@campus.test")
	buyer := s.token("bob@campus.test")
	stranger := s.token("carol@campus.test")
	item := s.listItem(seller, "Kettle")

	s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: item.ID})
	rec := s.do(http.MethodPost, "/api/orders", buyer, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[OrdersResponse](t, rec).Orders[0]

	rec = s.do(http.MethodPost, "/api/orders/verify", seller, VerifyOrderRequest{OrderID: order.ID, OTP: "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no code issued yet")

	rec = s.do(http.MethodGet, "/api/receipts/"+order.ID, buyer, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/receipts/"+order.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/api/orders/"+order.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/api/orders/"+order.ID, seller, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, "/api/orders/"+order.ID, buyer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/orders/verify", seller, VerifyOrderRequest{OrderID: order.ID, OTP: "123456"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrderIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	seller := s.token("alice@campus.test")
	buyer := s.token("bob@campus.test")
	item := s.listItem(seller, "Desk")

	s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: item.ID})

	rec := s.do(http.MethodPost, "/api/orders", buyer, nil, idempotencyHeader, "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[OrdersResponse](t, rec).Orders, 1)

	rec = s.do(http.MethodPost, "/api/orders", buyer, nil, idempotencyHeader, "k-1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// keys are scoped per member
	other := s.token("carol@campus.test")
	rec = s.do(http.MethodPost, "/api/orders", other, nil, idempotencyHeader, "k-1")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPendingOrdersQRCodes(t *testing.T) {
	s := newTestServer(t)
	seller := s.token("alice@campus.test")
	buyer := s.token("bob@campus.test")
	item := s.listItem(seller, "Bicycle")

	s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: item.ID})
	s.do(http.MethodPost, "/api/orders", buyer, nil)

	rec := s.do(http.MethodGet, "/api/orders/pending?qr=true", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[PendingOrdersResponse](t, rec)
	require.Len(t, resp.QRCodes, 1)
	for orderID, png := range resp.QRCodes {
		assert.Contains(t, resp.OTPs, orderID)
		assert.True(t, strings.HasPrefix(png, "data:image/png;base64,"))
	}
}

func TestItemsAndReviews(t *testing.T) {
	s := newTestServer(t)
	seller := s.token("alice@campus.test")
	buyer := s.token("bob@campus.test")
	item := s.listItem(seller, "Chair")

	rec := s.do(http.MethodGet, "/api/items/"+item.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[service.ItemDetail](t, rec)
	require.NotNil(t, detail.Seller)
	assert.Equal(t, "alice@campus.test", detail.Seller.Email)

	rec = s.do(http.MethodPost, "/api/items", seller, CreateItemRequest{Name: "Thing", Category: "toys", Description: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/search?categories=toys", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/items/"+item.ID, buyer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/reviews", buyer, AddReviewRequest{SellerID: item.SellerID, Rating: 6})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/reviews", buyer, AddReviewRequest{SellerID: item.SellerID, Rating: 5, Comment: "quick handover"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/reviews/"+item.SellerID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reviews := decode[ReviewsResponse](t, rec).Reviews
	require.Len(t, reviews, 1)
	require.NotNil(t, reviews[0].Reviewer)
	assert.Equal(t, "bob@campus.test", reviews[0].Reviewer.Email)

	rec = s.do(http.MethodDelete, "/api/items/"+item.ID, seller, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/items/"+item.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/health", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `campus_market_http_requests_total{route="GET /health",status="200"} 1`)
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	seller := s.token("alice@campus.test")
	buyer := s.token("bob@campus.test")

	rec := s.do(http.MethodGet, "/api/profile", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[domain.User](t, rec)
	assert.Equal(t, "alice@campus.test", profile.Email)
	assert.Empty(t, profile.ContactNumber)

	number := "98765 43210"
	rec = s.do(http.MethodPut, "/api/profile", seller, map[string]string{"contactNumber": number})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile = decode[domain.User](t, rec)
	assert.Equal(t, "9876543210", profile.ContactNumber)
	assert.Equal(t, "Test", profile.FirstName, "omitted fields are kept")

	rec = s.do(http.MethodPut, "/api/profile", seller, map[string]string{"contactNumber": "call me"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/profile", seller, map[string]string{"firstName": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	item := s.listItem(seller, "Oscilloscope")
	rec = s.do(http.MethodPost, "/api/cart", buyer, AddToCartRequest{ItemID: item.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/orders", buyer, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/orders/pending", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[PendingOrdersResponse](t, rec)
	require.Len(t, pending.Orders, 1)
	require.NotNil(t, pending.Orders[0].Seller)
	assert.Equal(t, "9876543210", pending.Orders[0].Seller.ContactNumber)
}
