package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
)

var errInvalidToken = fmt.Errorf("%w: invalid token", service.ErrUnauthenticated)

// TokenClaims is the JWT payload issued by the campus identity provider.
type TokenClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	jwt.RegisteredClaims
}

// TokenVerifier turns a bearer token into the caller's identity. Credentials
// are checked by the identity provider that signed the token.
type TokenVerifier struct {
	secret     []byte
	identities *service.IdentityService
}

func NewTokenVerifier(secret []byte, identities *service.IdentityService) *TokenVerifier {
	return &TokenVerifier{secret: secret, identities: identities}
}

func (v *TokenVerifier) Authenticate(ctx context.Context, authorization string) (domain.Identity, error) {
	tokenString, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || tokenString == "" {
		return domain.Identity{}, errInvalidToken
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return domain.Identity{}, errInvalidToken
	}
	if claims.Email == "" {
		return domain.Identity{}, errInvalidToken
	}

	return v.identities.Resolve(ctx, service.Claims{
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	})
}

// Require rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func (v *TokenVerifier) Require(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, err := v.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(withIdentity(r.Context(), identity)), ps)
	}
}

// SignToken issues an HS256 token for the given member.
func SignToken(secret []byte, c service.Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

type identityKey struct{}

func withIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the caller stored by Require or the gRPC auth interceptor.
func IdentityFrom(ctx context.Context) (domain.Identity, error) {
	identity, ok := ctx.Value(identityKey{}).(domain.Identity)
	if !ok || identity.UserID == "" {
		return domain.Identity{}, errors.New("handler: no identity in context")
	}
	return identity, nil
}
