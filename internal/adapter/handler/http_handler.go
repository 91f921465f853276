package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
	"github.com/rl1809/campus-market/internal/port"
)

const idempotencyHeader = "Idempotency-Key"

type HTTPHandler struct {
	carts    *service.CartService
	orders   *service.OrderService
	catalog  *service.CatalogService
	reviews  *service.ReviewService
	profiles *service.ProfileService
	verifier *TokenVerifier
	metrics  *Metrics

	// cache is nil when idempotency keys are disabled.
	cache port.CacheRepository
}

type Services struct {
	Carts    *service.CartService
	Orders   *service.OrderService
	Catalog  *service.CatalogService
	Reviews  *service.ReviewService
	Profiles *service.ProfileService
}

func NewHTTPHandler(svc Services, verifier *TokenVerifier, metrics *Metrics, cache port.CacheRepository) *HTTPHandler {
	return &HTTPHandler{
		carts:    svc.Carts,
		orders:   svc.Orders,
		catalog:  svc.Catalog,
		reviews:  svc.Reviews,
		profiles: svc.Profiles,
		verifier: verifier,
		metrics:  metrics,
		cache:    cache,
	}
}

type AddToCartRequest struct {
	ItemID string `json:"itemId"`
}

type CartResponse struct {
	Cart []string `json:"cart"`
}

type ItemsResponse struct {
	Items []domain.Item `json:"items"`
}

type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type OrderViewsResponse struct {
	Orders []domain.OrderView `json:"orders"`
}

type PendingOrdersResponse struct {
	service.PendingOrders
	QRCodes map[string]string `json:"qrCodes,omitempty"`
}

type VerifyOrderRequest struct {
	OrderID string `json:"orderId"`
	OTP     string `json:"otp"`
}

type CreateItemRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    domain.Category `json:"category"`
	Description string          `json:"description"`
}

type AddReviewRequest struct {
	SellerID string `json:"sellerId"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

// UpdateProfileRequest leaves omitted fields unchanged.
type UpdateProfileRequest struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	ContactNumber *string `json:"contactNumber"`
}

type ReviewsResponse struct {
	Reviews []domain.ReviewView `json:"reviews"`
}

func (h *HTTPHandler) Routes() *httprouter.Router {
	router := httprouter.New()

	h.public(router, http.MethodGet, "/health", h.HealthCheck)
	router.Handler(http.MethodGet, "/metrics", h.metrics.Handler())

	h.private(router, http.MethodGet, "/api/cart", h.ListCart)
	h.private(router, http.MethodPost, "/api/cart", h.AddToCart)
	h.private(router, http.MethodDelete, "/api/cart/:itemId", h.RemoveFromCart)

	h.private(router, http.MethodPost, "/api/orders", h.PlaceOrder)
	h.private(router, http.MethodPost, "/api/orders/verify", h.VerifyOrder)
	h.private(router, http.MethodGet, "/api/orders/pending", h.ListPendingOrders)
	h.private(router, http.MethodGet, "/api/orders/bought", h.ListBoughtOrders)
	h.private(router, http.MethodGet, "/api/orders/sold", h.ListSoldOrders)
	h.private(router, http.MethodGet, "/api/orders/deliveries", h.ListDeliveries)
	h.private(router, http.MethodDelete, "/api/orders/:orderId", h.CancelOrder)
	h.private(router, http.MethodGet, "/api/receipts/:orderId", h.Receipt)

	h.public(router, http.MethodGet, "/api/search", h.Search)
	h.private(router, http.MethodPost, "/api/items", h.CreateItem)
	h.public(router, http.MethodGet, "/api/items/:id", h.GetItem)
	h.private(router, http.MethodDelete, "/api/items/:id", h.DeleteItem)

	h.private(router, http.MethodGet, "/api/profile", h.GetProfile)
	h.private(router, http.MethodPut, "/api/profile", h.UpdateProfile)

	h.private(router, http.MethodPost, "/api/reviews", h.AddReview)
	h.public(router, http.MethodGet, "/api/reviews/:sellerId", h.ListReviews)

	return router
}

func (h *HTTPHandler) public(router *httprouter.Router, method, path string, handle httprouter.Handle) {
	router.Handle(method, path, h.metrics.instrument(method+" "+path, handle))
}

func (h *HTTPHandler) private(router *httprouter.Router, method, path string, handle httprouter.Handle) {
	router.Handle(method, path, h.metrics.instrument(method+" "+path, h.verifier.Require(handle)))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	items, err := h.carts.ListCart(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req AddToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "itemId is required"})
		return
	}

	cart, err := h.carts.AddToCart(r.Context(), caller, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CartResponse{Cart: cart})
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveFromCart(r.Context(), caller, ps.ByName("itemId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CartResponse{Cart: cart})
}

// PlaceOrder honours an optional Idempotency-Key header when a cache is
// configured. The key is released again if placing fails so the client can retry.
func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key != "" && h.cache != nil {
		key = caller.UserID + ":" + key
		claimed, err := h.cache.SetIdempotency(r.Context(), key)
		if err != nil {
			writeError(w, err)
			return
		}
		if !claimed {
			writeError(w, errDuplicateRequest)
			return
		}
	} else {
		key = ""
	}

	orders, err := h.orders.PlaceOrder(r.Context(), caller)
	if err != nil {
		if key != "" {
			if releaseErr := h.cache.ReleaseIdempotency(r.Context(), key); releaseErr != nil {
				log.Printf("http: failed to release idempotency key for %s: %v", caller.UserID, releaseErr)
			}
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, OrdersResponse{Orders: orders})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if err := h.orders.CancelOrder(r.Context(), caller, ps.ByName("orderId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPendingOrders issues fresh OTPs on every call. With ?qr=true each code
// is also returned as a scannable PNG.
func (h *HTTPHandler) ListPendingOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	pending, err := h.orders.ListPendingOrders(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := PendingOrdersResponse{PendingOrders: pending}
	if r.URL.Query().Get("qr") == "true" {
		resp.QRCodes = make(map[string]string, len(pending.OTPs))
		for orderID, otp := range pending.OTPs {
			png, err := otpQRCode(orderID, otp)
			if err != nil {
				writeError(w, err)
				return
			}
			resp.QRCodes[orderID] = png
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) ListBoughtOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.listOrders(w, r, h.orders.ListBoughtOrders)
}

func (h *HTTPHandler) ListSoldOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.listOrders(w, r, h.orders.ListSoldOrders)
}

func (h *HTTPHandler) ListDeliveries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.listOrders(w, r, h.orders.ListDeliveries)
}

type orderLister func(ctx context.Context, caller domain.Identity) ([]domain.OrderView, error)

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request, list orderLister) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	views, err := list(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderViewsResponse{Orders: views})
}

func (h *HTTPHandler) VerifyOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req VerifyOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrderID == "" || req.OTP == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "orderId and otp are required"})
		return
	}

	if err := h.orders.VerifyOrder(r.Context(), caller, req.OrderID, req.OTP); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.OrderStatusCompleted)})
}

func (h *HTTPHandler) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	view, err := h.orders.CompletedOrder(r.Context(), caller, ps.ByName("orderId"))
	if err != nil {
		writeError(w, err)
		return
	}

	pdf, err := renderReceipt(*view)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+view.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()

	var categories []domain.Category
	for _, c := range strings.Split(q.Get("categories"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, domain.Category(strings.ToLower(c)))
		}
	}

	items, err := h.catalog.Search(r.Context(), q.Get("query"), categories)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := h.catalog.CreateItem(r.Context(), caller, service.NewItem(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	detail, err := h.catalog.GetItem(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteItem(r.Context(), caller, ps.ByName("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) AddReview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req AddReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SellerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sellerId is required"})
		return
	}

	review, err := h.reviews.AddReview(r.Context(), caller, req.SellerID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *HTTPHandler) ListReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reviews, err := h.reviews.ListReviews(r.Context(), ps.ByName("sellerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReviewsResponse{Reviews: reviews})
}

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	user, err := h.profiles.GetProfile(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), caller, domain.ProfileUpdate{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func callerFrom(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller, err := IdentityFrom(r.Context())
	if err != nil {
		writeError(w, service.ErrUnauthenticated)
		return domain.Identity{}, false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
