package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/campus-market/internal/adapter/storage"
	"github.com/rl1809/campus-market/internal/core/service"
)

var testSecret = []byte("test-secret")

type fakeCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (c *fakeCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *fakeCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

type testServer struct {
	t        *testing.T
	store    *storage.MemoryAdapter
	services Services
	verifier *TokenVerifier
	router   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := storage.NewMemoryAdapter()
	otp := service.NewOTPManager(store, bcrypt.MinCost)
	orders := service.NewOrderService(store, store, store, otp, 100)
	t.Cleanup(orders.Close)

	svc := Services{
		Carts:    service.NewCartService(store, store),
		Orders:   orders,
		Catalog:  service.NewCatalogService(store, store, store),
		Reviews:  service.NewReviewService(store, store),
		Profiles: service.NewProfileService(store),
	}
	verifier := NewTokenVerifier(testSecret, service.NewIdentityService(store, "campus.test"))
	metrics := NewMetrics(prometheus.NewRegistry())
	cache := &fakeCache{keys: make(map[string]struct{})}

	h := NewHTTPHandler(svc, verifier, metrics, cache)
	return &testServer{
		t:        t,
		store:    store,
		services: svc,
		verifier: verifier,
		router:   h.Routes(),
	}
}

func (s *testServer) token(email string) string {
	s.t.Helper()
	token, err := SignToken(testSecret, service.Claims{Email: email, FirstName: "Test", LastName: "Member"}, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
