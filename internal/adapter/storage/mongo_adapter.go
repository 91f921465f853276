package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/campus-market/internal/core/domain"
)

type userDoc struct {
	ID            string    `bson:"_id"`
	Email         string    `bson:"email"`
	FirstName     string    `bson:"firstName"`
	LastName      string    `bson:"lastName"`
	ContactNumber string    `bson:"contactNumber"`
	Cart          []string  `bson:"cart"`
	CreatedAt     time.Time `bson:"createdAt"`
}

type itemDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	Description string               `bson:"description"`
	SellerID    string               `bson:"sellerId"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

type orderDoc struct {
	ID          string               `bson:"_id"`
	BuyerID     string               `bson:"buyerId"`
	ItemID      string               `bson:"itemId"`
	TotalAmount primitive.Decimal128 `bson:"totalAmount"`
	Status      string               `bson:"status"`
	OTPHash     []byte               `bson:"otpHash,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type reviewDoc struct {
	ID         string    `bson:"_id"`
	SellerID   string    `bson:"seller"`
	ReviewerID string    `bson:"reviewer"`
	Rating     int       `bson:"rating"`
	Comment    string    `bson:"comment"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// MongoAdapter stores one document per entity; the cart lives inside the
// user document so every cart write is a single-document update.
type MongoAdapter struct {
	users   *mongo.Collection
	items   *mongo.Collection
	orders  *mongo.Collection
	reviews *mongo.Collection
}

func NewMongoAdapter(db *mongo.Database) *MongoAdapter {
	return &MongoAdapter{
		users:   db.Collection("users"),
		items:   db.Collection("items"),
		orders:  db.Collection("orders"),
		reviews: db.Collection("reviews"),
	}
}

func (m *MongoAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{m.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{m.items, mongo.IndexModel{Keys: bson.D{{Key: "sellerId", Value: 1}}}},
		{m.items, mongo.IndexModel{Keys: bson.D{{Key: "category", Value: 1}}}},
		{m.orders, mongo.IndexModel{Keys: bson.D{{Key: "buyerId", Value: 1}, {Key: "status", Value: 1}}}},
		{m.orders, mongo.IndexModel{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "status", Value: 1}}}},
		{m.reviews, mongo.IndexModel{Keys: bson.D{{Key: "seller", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (m *MongoAdapter) CreateUser(ctx context.Context, user domain.User) error {
	cart := user.Cart
	if cart == nil {
		cart = []string{}
	}
	_, err := m.users.InsertOne(ctx, userDoc{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		ContactNumber: user.ContactNumber,
		Cart:          cart,
		CreatedAt:     user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return m.findUser(ctx, bson.M{"_id": userID})
}

func (m *MongoAdapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *MongoAdapter) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	err := m.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	user := doc.toDomain()
	return &user, nil
}

func (m *MongoAdapter) GetUsers(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return []domain.User{}, nil
	}

	docs, err := findAll[userDoc](ctx, m.users, bson.M{"_id": bson.M{"$in": dedupe(userIDs)}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.toDomain())
	}
	return users, nil
}

func (m *MongoAdapter) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	set := bson.M{}
	if update.FirstName != nil {
		set["firstName"] = *update.FirstName
	}
	if update.LastName != nil {
		set["lastName"] = *update.LastName
	}
	if update.ContactNumber != nil {
		set["contactNumber"] = *update.ContactNumber
	}
	if len(set) == 0 {
		// $set rejects an empty document
		n, err := m.users.CountDocuments(ctx, bson.M{"_id": userID})
		if err != nil {
			return fmt.Errorf("count user: %w", err)
		}
		if n == 0 {
			return ErrNoSuchUser
		}
		return nil
	}

	result, err := m.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNoSuchUser
	}
	return nil
}

func (m *MongoAdapter) SaveCart(ctx context.Context, userID string, itemIDs []string) error {
	if itemIDs == nil {
		itemIDs = []string{}
	}
	result, err := m.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"cart": itemIDs}})
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNoSuchUser
	}
	return nil
}

func (m *MongoAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	price, err := toDecimal128(item.Price)
	if err != nil {
		return err
	}
	_, err = m.items.InsertOne(ctx, itemDoc{
		ID:          item.ID,
		Name:        item.Name,
		Price:       price,
		Category:    string(item.Category),
		Description: item.Description,
		SellerID:    item.SellerID,
		CreatedAt:   item.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	var doc itemDoc
	err := m.items.FindOne(ctx, bson.M{"_id": itemID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	item, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *MongoAdapter) GetItems(ctx context.Context, itemIDs []string) ([]domain.Item, error) {
	if len(itemIDs) == 0 {
		return []domain.Item{}, nil
	}
	return m.findItems(ctx, bson.M{"_id": bson.M{"$in": dedupe(itemIDs)}})
}

func (m *MongoAdapter) ListItems(ctx context.Context, categories []domain.Category) ([]domain.Item, error) {
	filter := bson.M{}
	if len(categories) > 0 {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = string(c)
		}
		filter["category"] = bson.M{"$in": names}
	}
	return m.findItems(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
}

func (m *MongoAdapter) findItems(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]domain.Item, error) {
	docs, err := findAll[itemDoc](ctx, m.items, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	items := make([]domain.Item, 0, len(docs))
	for _, doc := range docs {
		item, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *MongoAdapter) ListItemIDsBySeller(ctx context.Context, sellerID string) ([]string, error) {
	docs, err := findAll[itemDoc](ctx, m.items, bson.M{"sellerId": sellerID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find seller items: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

func (m *MongoAdapter) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	result, err := m.items.DeleteOne(ctx, bson.M{"_id": itemID})
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	total, err := toDecimal128(order.TotalAmount)
	if err != nil {
		return err
	}
	_, err = m.orders.InsertOne(ctx, orderDoc{
		ID:          order.ID,
		BuyerID:     order.BuyerID,
		ItemID:      order.ItemID,
		TotalAmount: total,
		Status:      string(order.Status),
		OTPHash:     order.OTPHash,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var doc orderDoc
	err := m.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	order, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (m *MongoAdapter) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	result, err := m.orders.DeleteOne(ctx, bson.M{"_id": orderID})
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoAdapter) SetOTPHash(ctx context.Context, orderID string, hash []byte) error {
	return m.updateOrder(ctx, orderID, bson.M{"otpHash": hash})
}

func (m *MongoAdapter) CompleteOrder(ctx context.Context, orderID string) error {
	return m.updateOrder(ctx, orderID, bson.M{"status": string(domain.OrderStatusCompleted)})
}

func (m *MongoAdapter) updateOrder(ctx context.Context, orderID string, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	result, err := m.orders.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNoSuchOrder
	}
	return nil
}

var orderSort = options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

func (m *MongoAdapter) ListOrdersByBuyer(ctx context.Context, buyerID string, status domain.OrderStatus) ([]domain.Order, error) {
	return m.findOrders(ctx, bson.M{"buyerId": buyerID, "status": string(status)})
}

func (m *MongoAdapter) ListOrdersByItems(ctx context.Context, itemIDs []string, status domain.OrderStatus) ([]domain.Order, error) {
	if len(itemIDs) == 0 {
		return []domain.Order{}, nil
	}
	filter := bson.M{"itemId": bson.M{"$in": dedupe(itemIDs)}}
	if status != "" {
		filter["status"] = string(status)
	}
	return m.findOrders(ctx, filter)
}

func (m *MongoAdapter) findOrders(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	docs, err := findAll[orderDoc](ctx, m.orders, filter, orderSort)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (m *MongoAdapter) CompletedItemIDs(ctx context.Context) ([]string, error) {
	values, err := m.orders.Distinct(ctx, "itemId", bson.M{"status": string(domain.OrderStatusCompleted)})
	if err != nil {
		return nil, fmt.Errorf("distinct completed items: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MongoAdapter) CreateReview(ctx context.Context, review domain.Review) error {
	_, err := m.reviews.InsertOne(ctx, reviewDoc(review))
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (m *MongoAdapter) ListReviewsBySeller(ctx context.Context, sellerID string) ([]domain.Review, error) {
	docs, err := findAll[reviewDoc](ctx, m.reviews, bson.M{"seller": sellerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	reviews := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, domain.Review(doc))
	}
	return reviews, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (d userDoc) toDomain() domain.User {
	cart := d.Cart
	if cart == nil {
		cart = []string{}
	}
	return domain.User{
		ID:            d.ID,
		Email:         d.Email,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		ContactNumber: d.ContactNumber,
		Cart:          cart,
		CreatedAt:     d.CreatedAt,
	}
}

func (d itemDoc) toDomain() (domain.Item, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s price: %w", d.ID, err)
	}
	return domain.Item{
		ID:          d.ID,
		Name:        d.Name,
		Price:       price,
		Category:    domain.Category(d.Category),
		Description: d.Description,
		SellerID:    d.SellerID,
		CreatedAt:   d.CreatedAt,
	}, nil
}

func (d orderDoc) toDomain() (domain.Order, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s total: %w", d.ID, err)
	}
	return domain.Order{
		ID:          d.ID,
		BuyerID:     d.BuyerID,
		ItemID:      d.ItemID,
		TotalAmount: total,
		Status:      domain.OrderStatus(d.Status),
		OTPHash:     d.OTPHash,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}
