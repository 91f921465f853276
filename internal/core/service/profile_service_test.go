package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
)

func ptr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	e := newEnv(t)
	caller := e.member(t)

	profile, err := e.profiles.GetProfile(t.Context(), caller)
	require.NoError(t, err)
	assert.Equal(t, caller.UserID, profile.ID)
	assert.Equal(t, caller.Email, profile.Email)

	_, err = e.profiles.GetProfile(t.Context(), domain.Identity{UserID: "missing"})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdateProfile_Partial(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()
	caller := e.member(t)

	before, err := e.profiles.GetProfile(ctx, caller)
	require.NoError(t, err)

	after, err := e.profiles.UpdateProfile(ctx, caller, domain.ProfileUpdate{ContactNumber: ptr(" +91 98765-43210 ")})
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", after.ContactNumber)
	assert.Equal(t, before.FirstName, after.FirstName)
	assert.Equal(t, before.LastName, after.LastName)

	after, err = e.profiles.UpdateProfile(ctx, caller, domain.ProfileUpdate{FirstName: ptr("  Ada "), LastName: ptr("Lovelace")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", after.FirstName)
	assert.Equal(t, "Lovelace", after.LastName)
	assert.Equal(t, "+919876543210", after.ContactNumber)

	after, err = e.profiles.UpdateProfile(ctx, caller, domain.ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Ada", after.FirstName)

	after, err = e.profiles.UpdateProfile(ctx, caller, domain.ProfileUpdate{ContactNumber: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, after.ContactNumber)
}

func TestUpdateProfile_Invalid(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()
	caller := e.member(t)

	before, err := e.profiles.GetProfile(ctx, caller)
	require.NoError(t, err)

	tests := []struct {
		name   string
		update domain.ProfileUpdate
	}{
		{name: "blank first name", update: domain.ProfileUpdate{FirstName: ptr("   ")}},
		{name: "blank last name", update: domain.ProfileUpdate{LastName: ptr("")}},
		{name: "long name", update: domain.ProfileUpdate{FirstName: ptr(strings.Repeat("a", 101))}},
		{name: "letters in number", update: domain.ProfileUpdate{ContactNumber: ptr("98765abcde")}},
		{name: "short number", update: domain.ProfileUpdate{ContactNumber: ptr("12345")}},
		{name: "long number", update: domain.ProfileUpdate{ContactNumber: ptr("1234567890123456")}},
		{name: "one bad field rejects all", update: domain.ProfileUpdate{FirstName: ptr("Grace"), ContactNumber: ptr("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.profiles.UpdateProfile(ctx, caller, tt.update)
			require.ErrorIs(t, err, service.ErrInvalidProfile)
		})
	}

	after, err := e.profiles.GetProfile(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdatedContactShownInOrderViews(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()
	seller := e.member(t)
	buyer := e.member(t)
	item := e.listItem(t, seller, "Graphing Calculator", 40)
	order := e.placeOne(t, buyer, item)

	_, err := e.profiles.UpdateProfile(ctx, seller, domain.ProfileUpdate{ContactNumber: ptr("9000000001")})
	require.NoError(t, err)
	_, err = e.profiles.UpdateProfile(ctx, buyer, domain.ProfileUpdate{ContactNumber: ptr("9000000002")})
	require.NoError(t, err)

	pending, err := e.orders.ListPendingOrders(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, pending.Orders, 1)
	require.NotNil(t, pending.Orders[0].Seller)
	assert.Equal(t, "9000000001", pending.Orders[0].Seller.ContactNumber)

	deliveries, err := e.orders.ListDeliveries(ctx, seller)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, order.ID, deliveries[0].ID)
	require.NotNil(t, deliveries[0].Buyer)
	assert.Equal(t, "9000000002", deliveries[0].Buyer.ContactNumber)

	detail, err := e.catalog.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Seller)
	assert.Equal(t, "9000000001", detail.Seller.ContactNumber)
}
