package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/campus-market/internal/adapter/handler"
	"github.com/rl1809/campus-market/internal/config"
	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
)

func main() {
	httpURL := flag.String("http", "http://localhost:8080", "HTTP base URL")
	grpcAddr := flag.String("grpc", "localhost:50051", "gRPC address")
	buyers := flag.Int("buyers", 50, "number of concurrent buyers")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	secret := []byte(cfg.JWTSecret)
	run := time.Now().UnixNano()

	// Seller lists a single item
	sellerToken := mustToken(secret, fmt.Sprintf("seller-%d@%s", run, cfg.CommunityEmailDomain))
	item, err := createItem(*httpURL, sellerToken, handler.CreateItemRequest{
		Name:        gofakeit.ProductName(),
		Price:       decimal.RequireFromString("25.00"),
		Category:    domain.CategoryBooks,
		Description: gofakeit.Phrase(),
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to dial grpc: %v", err)
	}
	defer conn.Close()

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Every buyer orders the same item at once
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			client := handler.NewMarketplaceClient(conn, mustToken(secret, fmt.Sprintf("buyer-%d-%d@%s", run, n, cfg.CommunityEmailDomain)))
			if _, err := client.AddToCart(ctx, item.ID); err != nil {
				log.Printf("buyer %d: add to cart: %v", n, err)
				failCount.Add(1)
				return
			}
			if _, err := client.PlaceOrder(ctx); err != nil {
				log.Printf("buyer %d: place order: %v", n, err)
				failCount.Add(1)
				return
			}
			successCount.Add(1)
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Item:             %s\n", item.ID)
	fmt.Printf("Total Buyers:     %d\n", *buyers)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Placement does not reserve the item, so every buyer gets an order
	if success == int32(*buyers) {
		fmt.Printf("PASS: All %d orders placed\n", *buyers)
	} else {
		fmt.Printf("FAIL: Expected %d orders, got %d\n", *buyers, success)
	}

	// Seller sees every order as pending
	seller := handler.NewMarketplaceClient(conn, sellerToken)
	sold, err := seller.ListSoldOrders(ctx)
	if err != nil {
		log.Fatalf("failed to list sold orders: %v", err)
	}
	pending := 0
	for _, o := range sold.Orders {
		if o.ItemID == item.ID && o.Status == domain.OrderStatusPending {
			pending++
		}
	}
	fmt.Printf("Seller Pending:   %d\n", pending)

	if pending == int(success) {
		fmt.Println("PASS: Seller sees every order as pending")
	} else {
		fmt.Printf("FAIL: Expected %d pending orders, got %d\n", success, pending)
	}
}

func mustToken(secret []byte, email string) string {
	token, err := handler.SignToken(secret, service.Claims{
		Email:     email,
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
	}, time.Hour)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func createItem(baseURL, token string, req handler.CreateItemRequest) (*domain.Item, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/items", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var item domain.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}
