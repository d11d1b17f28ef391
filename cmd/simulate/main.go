package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/infrastructure/notify"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/repo"
	"storefront/internal/service"
)

// simulate races many buyers for a variant with little stock and checks
// that no unit is sold twice.
func main() {
	buyers := flag.Int("buyers", 20, "number of concurrent buyers")
	stock := flag.Int("stock", 5, "initial stock of the contested variant")
	qty := flag.Int("qty", 1, "units each buyer puts in the cart")
	flag.Parse()

	logging.Setup("warn")
	ctx := context.Background()

	dbService, err := database.New(ctx, config.LoadDB())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer dbService.Close()
	db := dbService.DB()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	m := metrics.New()
	dispatcher := notify.NewDispatcher(notify.LogNotifier{}, 5*time.Second)
	defer dispatcher.Wait()

	checkout := service.NewCheckoutService(
		db,
		repo.NewCartRepo(db),
		repo.NewVariantRepo(db),
		repo.NewOrderRepo(db),
		repo.NewUserRepo(db),
		dispatcher,
		m,
	)

	variantID, err := seedVariant(ctx, db, *stock)
	if err != nil {
		log.Fatalf("seed variant: %v", err)
	}
	userIDs := make([]int64, 0, *buyers)
	for i := 0; i < *buyers; i++ {
		id, err := seedBuyer(ctx, db, variantID, *qty)
		if err != nil {
			log.Fatalf("seed buyer: %v", err)
		}
		userIDs = append(userIDs, id)
	}

	fmt.Printf("--- STARTING SIMULATION (%d BUYERS, STOCK %d, QTY %d) ---\n", *buyers, *stock, *qty)
	start := time.Now()

	results := make([]error, len(userIDs))
	var g errgroup.Group
	for i, userID := range userIDs {
		g.Go(func() error {
			_, results[i] = checkout.Checkout(ctx, service.CheckoutInput{UserID: userID})
			return nil
		})
	}
	_ = g.Wait()

	var placed, outOfStock, failed int
	for i, err := range results {
		var stockErr *repo.InsufficientStockError
		switch {
		case err == nil:
			placed++
			fmt.Printf("[%02d] user %d: ORDER PLACED\n", i+1, userIDs[i])
		case errors.As(err, &stockErr):
			outOfStock++
			fmt.Printf("[%02d] user %d: OUT OF STOCK (available %d)\n", i+1, userIDs[i], stockErr.Available)
		default:
			failed++
			fmt.Printf("[%02d] user %d: FAILED: %v\n", i+1, userIDs[i], err)
		}
	}

	var remaining, sold int
	if err := db.QueryRowContext(ctx, `SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&remaining); err != nil {
		log.Fatalf("read stock: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM order_items WHERE variant_id = $1`, variantID,
	).Scan(&sold); err != nil {
		log.Fatalf("read sold units: %v", err)
	}

	fmt.Println("---------------------------------------------------")
	fmt.Printf("placed=%d out_of_stock=%d failed=%d in %s\n", placed, outOfStock, failed, time.Since(start).Round(time.Millisecond))
	fmt.Printf("sold=%d remaining=%d initial=%d\n", sold, remaining, *stock)
	if sold+remaining != *stock || remaining < 0 {
		log.Fatalf("STOCK NOT CONSERVED: sold %d + remaining %d != %d", sold, remaining, *stock)
	}
	fmt.Println("stock conserved")
}

func seedVariant(ctx context.Context, db *sql.DB, stock int) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO product_variants (product_id, sku, price, stock) VALUES (0, $1, $2, $3) RETURNING id`,
		fmt.Sprintf("SIM-%d", time.Now().UnixNano()), decimal.RequireFromString("10.00"), stock,
	).Scan(&id)
	return id, err
}

func seedBuyer(ctx context.Context, db *sql.DB, variantID int64, qty int) (int64, error) {
	var userID, cartID int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO users (email, first_name, last_name) VALUES ($1, 'Sim', 'Buyer') RETURNING id`,
		fmt.Sprintf("sim-%d@example.com", time.Now().UnixNano()),
	).Scan(&userID)
	if err != nil {
		return 0, err
	}
	if err := db.QueryRowContext(ctx, `INSERT INTO carts (user_id) VALUES ($1) RETURNING id`, userID).Scan(&cartID); err != nil {
		return 0, err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, variant_id, quantity) VALUES ($1, $2, $3)`, cartID, variantID, qty)
	return userID, err
}
