package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
)

const marketplaceService = "market.v1.Marketplace"

type ItemRequest struct {
	ItemID string `json:"itemId"`
}

type OrderRequest struct {
	OrderID string `json:"orderId"`
}

type SearchRequest struct {
	Query      string   `json:"query"`
	Categories []string `json:"categories"`
}

type Empty struct{}

// MarketplaceServer is the gRPC surface of the marketplace core.
type MarketplaceServer interface {
	AddToCart(context.Context, *ItemRequest) (*CartResponse, error)
	RemoveFromCart(context.Context, *ItemRequest) (*CartResponse, error)
	ListCart(context.Context, *Empty) (*ItemsResponse, error)
	PlaceOrder(context.Context, *Empty) (*OrdersResponse, error)
	CancelOrder(context.Context, *OrderRequest) (*Empty, error)
	ListPendingOrders(context.Context, *Empty) (*service.PendingOrders, error)
	ListBoughtOrders(context.Context, *Empty) (*OrderViewsResponse, error)
	ListSoldOrders(context.Context, *Empty) (*OrderViewsResponse, error)
	VerifyOrder(context.Context, *VerifyOrderRequest) (*Empty, error)
	Search(context.Context, *SearchRequest) (*ItemsResponse, error)
}

var marketplaceServiceDesc = grpc.ServiceDesc{
	ServiceName: marketplaceService,
	HandlerType: (*MarketplaceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("AddToCart", MarketplaceServer.AddToCart),
		unaryMethod("RemoveFromCart", MarketplaceServer.RemoveFromCart),
		unaryMethod("ListCart", MarketplaceServer.ListCart),
		unaryMethod("PlaceOrder", MarketplaceServer.PlaceOrder),
		unaryMethod("CancelOrder", MarketplaceServer.CancelOrder),
		unaryMethod("ListPendingOrders", MarketplaceServer.ListPendingOrders),
		unaryMethod("ListBoughtOrders", MarketplaceServer.ListBoughtOrders),
		unaryMethod("ListSoldOrders", MarketplaceServer.ListSoldOrders),
		unaryMethod("VerifyOrder", MarketplaceServer.VerifyOrder),
		unaryMethod("Search", MarketplaceServer.Search),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "market/v1/marketplace.proto",
}

func unaryMethod[Req, Resp any](name string, call func(MarketplaceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MarketplaceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + marketplaceService + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(MarketplaceServer), ctx, req.(*Req))
			})
		},
	}
}

func RegisterMarketplaceServer(s grpc.ServiceRegistrar, srv MarketplaceServer) {
	s.RegisterService(&marketplaceServiceDesc, srv)
}

type GRPCHandler struct {
	carts   *service.CartService
	orders  *service.OrderService
	catalog *service.CatalogService
}

func NewGRPCHandler(svc Services) *GRPCHandler {
	return &GRPCHandler{carts: svc.Carts, orders: svc.Orders, catalog: svc.Catalog}
}

// AuthInterceptor resolves the bearer token in the "authorization" metadata.
// Search is public.
func AuthInterceptor(verifier *TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == "/"+marketplaceService+"/Search" {
			return handler(ctx, req)
		}

		var authorization string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				authorization = values[0]
			}
		}
		identity, err := verifier.Authenticate(ctx, authorization)
		if err != nil {
			return nil, grpcError(err)
		}
		return handler(withIdentity(ctx, identity), req)
	}
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := h.carts.AddToCart(ctx, caller, req.ItemID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &CartResponse{Cart: cart}, nil
}

func (h *GRPCHandler) RemoveFromCart(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := h.carts.RemoveFromCart(ctx, caller, req.ItemID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &CartResponse{Cart: cart}, nil
}

func (h *GRPCHandler) ListCart(ctx context.Context, _ *Empty) (*ItemsResponse, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	items, err := h.carts.ListCart(ctx, caller)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ItemsResponse{Items: items}, nil
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, _ *Empty) (*OrdersResponse, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := h.orders.PlaceOrder(ctx, caller)
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrdersResponse{Orders: orders}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *OrderRequest) (*Empty, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.orders.CancelOrder(ctx, caller, req.OrderID); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) ListPendingOrders(ctx context.Context, _ *Empty) (*service.PendingOrders, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := h.orders.ListPendingOrders(ctx, caller)
	if err != nil {
		return nil, grpcError(err)
	}
	return &pending, nil
}

func (h *GRPCHandler) ListBoughtOrders(ctx context.Context, _ *Empty) (*OrderViewsResponse, error) {
	return h.listOrders(ctx, h.orders.ListBoughtOrders)
}

func (h *GRPCHandler) ListSoldOrders(ctx context.Context, _ *Empty) (*OrderViewsResponse, error) {
	return h.listOrders(ctx, h.orders.ListSoldOrders)
}

func (h *GRPCHandler) listOrders(ctx context.Context, list orderLister) (*OrderViewsResponse, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	views, err := list(ctx, caller)
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderViewsResponse{Orders: views}, nil
}

func (h *GRPCHandler) VerifyOrder(ctx context.Context, req *VerifyOrderRequest) (*Empty, error) {
	caller, err := grpcCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.orders.VerifyOrder(ctx, caller, req.OrderID, req.OTP); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) Search(ctx context.Context, req *SearchRequest) (*ItemsResponse, error) {
	categories := make([]domain.Category, 0, len(req.Categories))
	for _, c := range req.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, domain.Category(strings.ToLower(c)))
		}
	}
	items, err := h.catalog.Search(ctx, req.Query, categories)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ItemsResponse{Items: items}, nil
}

func grpcCaller(ctx context.Context) (domain.Identity, error) {
	caller, err := IdentityFrom(ctx)
	if err != nil {
		return domain.Identity{}, grpcError(service.ErrUnauthenticated)
	}
	return caller, nil
}
