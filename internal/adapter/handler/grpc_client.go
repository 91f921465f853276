package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/campus-market/internal/core/service"
)

// MarketplaceClient calls a Marketplace server with the JSON codec, sending
// token as the bearer credential on every call.
type MarketplaceClient struct {
	cc    grpc.ClientConnInterface
	token string
}

func NewMarketplaceClient(cc grpc.ClientConnInterface, token string) *MarketplaceClient {
	return &MarketplaceClient{cc: cc, token: token}
}

func invoke[Resp any](ctx context.Context, c *MarketplaceClient, method string, req any) (*Resp, error) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	out := new(Resp)
	err := c.cc.Invoke(ctx, "/"+marketplaceService+"/"+method, req, out, grpc.CallContentSubtype(jsonCodec{}.Name()))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MarketplaceClient) AddToCart(ctx context.Context, itemID string) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c, "AddToCart", &ItemRequest{ItemID: itemID})
}

func (c *MarketplaceClient) RemoveFromCart(ctx context.Context, itemID string) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c, "RemoveFromCart", &ItemRequest{ItemID: itemID})
}

func (c *MarketplaceClient) ListCart(ctx context.Context) (*ItemsResponse, error) {
	return invoke[ItemsResponse](ctx, c, "ListCart", &Empty{})
}

func (c *MarketplaceClient) PlaceOrder(ctx context.Context) (*OrdersResponse, error) {
	return invoke[OrdersResponse](ctx, c, "PlaceOrder", &Empty{})
}

func (c *MarketplaceClient) CancelOrder(ctx context.Context, orderID string) error {
	_, err := invoke[Empty](ctx, c, "CancelOrder", &OrderRequest{OrderID: orderID})
	return err
}

func (c *MarketplaceClient) ListPendingOrders(ctx context.Context) (*service.PendingOrders, error) {
	return invoke[service.PendingOrders](ctx, c, "ListPendingOrders", &Empty{})
}

func (c *MarketplaceClient) ListBoughtOrders(ctx context.Context) (*OrderViewsResponse, error) {
	return invoke[OrderViewsResponse](ctx, c, "ListBoughtOrders", &Empty{})
}

func (c *MarketplaceClient) ListSoldOrders(ctx context.Context) (*OrderViewsResponse, error) {
	return invoke[OrderViewsResponse](ctx, c, "ListSoldOrders", &Empty{})
}

func (c *MarketplaceClient) VerifyOrder(ctx context.Context, orderID, otp string) error {
	_, err := invoke[Empty](ctx, c, "VerifyOrder", &VerifyOrderRequest{OrderID: orderID, OTP: otp})
	return err
}

func (c *MarketplaceClient) Search(ctx context.Context, query string, categories ...string) (*ItemsResponse, error) {
	return invoke[ItemsResponse](ctx, c, "Search", &SearchRequest{Query: query, Categories: categories})
}
