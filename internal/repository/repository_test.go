package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type closedGuard struct {
	err error
}

func (g closedGuard) Err() error {
	return g.err
}

func setupRepositoryTest(t *testing.T) (*gorm.DB, *query.Registry) {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	registry, err := query.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("build registry failed: %v", err)
	}
	return db, registry
}

func createTestShop(t *testing.T, repo *GormShopRepository, slug, status string) *models.Shop {
	t.Helper()
	shop := &models.Shop{Slug: slug, Name: "shop " + slug, Status: status}
	if err := repo.Create(context.Background(), shop); err != nil {
		t.Fatalf("create shop failed: %v", err)
	}
	return shop
}

func createTestProduct(t *testing.T, repo *GormProductRepository, shopID uint, sku string, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ShopID:   shopID,
		SKU:      sku,
		Name:     "product " + sku,
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(price)),
		Stock:    stock,
		IsActive: true,
	}
	if err := repo.Create(context.Background(), product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func compileEnvelope(t *testing.T, registry *query.Registry, kind query.EntityKind, filter string) query.Envelope {
	t.Helper()
	svc := query.NewService(registry, query.NewPaginator(10, 25), nil)
	return svc.CompileFilter(kind, query.FilterString(filter), query.PageParams{}, query.PageDefaults{})
}

func TestProductFindAllFiltersByShopRelation(t *testing.T) {
	db, registry := setupRepositoryTest(t)
	shops := NewShopRepository(db, registry)
	products := NewProductRepository(db, registry)

	open := createTestShop(t, shops, "open", "active")
	closed := createTestShop(t, shops, "closed", "closed")
	createTestProduct(t, products, open.ID, "A-1", 10, 5)
	createTestProduct(t, products, open.ID, "A-2", 20, 5)
	createTestProduct(t, products, closed.ID, "B-1", 30, 5)

	rows, total, err := products.FindAll(context.Background(), compileEnvelope(t, registry, query.EntityProduct, "shop_status.eq.active"))
	if err != nil {
		t.Fatalf("find products failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("want 2 products from active shop, got total=%d rows=%d", total, len(rows))
	}

	rows, total, err = products.FindAll(context.Background(), compileEnvelope(t, registry, query.EntityProduct, "price.gte.20&secret.eq.1"))
	if err != nil {
		t.Fatalf("find products failed: %v", err)
	}
	if total != 2 || rows[0].SKU != "A-2" || rows[1].SKU != "B-1" {
		t.Fatalf("unexpected price filter result: total=%d rows=%+v", total, rows)
	}
}

func TestFindAllPaginatesAndCounts(t *testing.T) {
	db, registry := setupRepositoryTest(t)
	shops := NewShopRepository(db, registry)
	for i := 0; i < 5; i++ {
		createTestShop(t, shops, fmt.Sprintf("shop-%d", i), "active")
	}

	env := compileEnvelope(t, registry, query.EntityShop, "")
	env.Page = 2
	env.PageSize = 2
	rows, total, err := shops.FindAll(context.Background(), env)
	if err != nil {
		t.Fatalf("find shops failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("total want 5 got %d", total)
	}
	if len(rows) != 2 || rows[0].Slug != "shop-2" {
		t.Fatalf("unexpected page: %+v", rows)
	}
}

func TestGetByIDReturnsNilWhenMissing(t *testing.T) {
	db, registry := setupRepositoryTest(t)
	order, err := NewOrderRepository(db, registry).GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order != nil {
		t.Fatalf("want nil order, got %+v", order)
	}
}

func TestOrderAndItemsRoundTrip(t *testing.T) {
	db, registry := setupRepositoryTest(t)
	orders := NewOrderRepository(db, registry)
	items := NewOrderItemRepository(db, registry)
	ctx := context.Background()

	order := &models.Order{
		OrderNo:       "MC-ROUNDTRIP",
		ShopID:        1,
		CustomerEmail: "buyer@example.com",
		Status:        "pending_payment",
		Currency:      "CNY",
		TotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(30)),
	}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	for _, productID := range []uint{3, 4} {
		item := &models.OrderItem{
			OrderID:   order.ID,
			ProductID: productID,
			Quantity:  1,
			UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
		}
		if err := items.Create(ctx, item); err != nil {
			t.Fatalf("create item failed: %v", err)
		}
	}

	got, err := orders.GetByOrderNo(ctx, "MC-ROUNDTRIP")
	if err != nil || got == nil {
		t.Fatalf("get order failed: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("want 2 items, got %d", len(got.Items))
	}

	list, total, err := orders.FindAll(ctx, compileEnvelope(t, registry, query.EntityOrder, "item_product_id.eq.4"))
	if err != nil {
		t.Fatalf("find orders failed: %v", err)
	}
	if total != 1 || list[0].ID != order.ID {
		t.Fatalf("relation filter mismatch: total=%d", total)
	}

	affected, err := orders.UpdateStatus(ctx, order.ID, "paid", "canceled", nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("status guard should block update, affected=%d", affected)
	}
	affected, err = orders.UpdateStatus(ctx, order.ID, "pending_payment", "canceled", nil)
	if err != nil || affected != 1 {
		t.Fatalf("update status want 1 row, got %d err=%v", affected, err)
	}
}

func TestReserveStockRequiresAvailableQuantity(t *testing.T) {
	db, registry := setupRepositoryTest(t)
	shop := createTestShop(t, NewShopRepository(db, registry), "stock", "active")
	products := NewProductRepository(db, registry)
	product := createTestProduct(t, products, shop.ID, "S-1", 10, 3)
	ctx := context.Background()

	if affected, err := products.ReserveStock(ctx, product.ID, 4); err != nil || affected != 0 {
		t.Fatalf("reserve beyond stock want 0 rows, got %d err=%v", affected, err)
	}
	if affected, err := products.ReserveStock(ctx, product.ID, 3); err != nil || affected != 1 {
		t.Fatalf("reserve want 1 row, got %d err=%v", affected, err)
	}
	if _, err := products.RestoreStock(ctx, product.ID, 2); err != nil {
		t.Fatalf("restore stock failed: %v", err)
	}
	got, err := products.GetByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if got.Stock != 2 {
		t.Fatalf("stock want 2 got %d", got.Stock)
	}
	if got.Shop == nil || got.Shop.Slug != "stock" {
		t.Fatalf("shop should be preloaded")
	}
}

func TestBoundRepositoryChecksGuard(t *testing.T) {
	db, registry := setupRepositoryTest(t)
	errClosed := errors.New("closed")
	repo := NewShopRepository(db, registry).Bind(db, closedGuard{err: errClosed})

	if err := repo.Create(context.Background(), &models.Shop{Slug: "x", Name: "x"}); !errors.Is(err, errClosed) {
		t.Fatalf("want guard error, got %v", err)
	}
	if _, _, err := repo.FindAll(context.Background(), query.Envelope{}); !errors.Is(err, errClosed) {
		t.Fatalf("want guard error, got %v", err)
	}
	var count int64
	db.Model(&models.Shop{}).Count(&count)
	if count != 0 {
		t.Fatalf("guarded create must not write, count=%d", count)
	}
}

func TestWithTxNilKeepsRepository(t *testing.T) {
	db, registry := setupRepositoryTest(t)
	repo := NewOrderItemRepository(db, registry)
	if repo.WithTx(nil) != repo {
		t.Fatalf("WithTx(nil) should return the same repository")
	}
}

func TestApplyPagination(t *testing.T) {
	db, _ := setupRepositoryTest(t)
	stmt := applyPagination(db.Session(&gorm.Session{DryRun: true}).Model(&models.Shop{}), 0, 5).Find(&[]models.Shop{}).Statement
	if _, ok := stmt.Clauses["LIMIT"]; !ok {
		t.Fatalf("limit clause missing")
	}
	if applyPagination(nil, 1, 10) != nil {
		t.Fatalf("nil query should stay nil")
	}
}
