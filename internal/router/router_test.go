package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mercato-next/internal/config"
	"github.com/mercato-next/internal/constants"
	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/metrics"
	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/provider"
	"github.com/mercato-next/internal/queue"
	"github.com/mercato-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type routerFixture struct {
	engine    *gin.Engine
	container *provider.Container
	shop      *models.Shop
	tea       *models.Product
	hidden    *models.Product
}

func setupRouterTest(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.L = zap.NewNop()

	db, err := models.OpenDB("sqlite", filepath.Join(t.TempDir(), "router.db"), "silent", models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{
		JWT:   config.JWTConfig{SecretKey: "router-secret", ExpireHours: 1},
		CORS:  config.CORSConfig{AllowedOrigins: []string{"*"}},
		Order: config.OrderConfig{PaymentExpireMinutes: 15},
		Query: config.QueryConfig{DefaultPageSize: 10, MaxPageSize: 25},
	}
	qc, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}
	c, err := provider.NewContainerWithOptions(cfg, db, provider.Options{
		Metrics:     metrics.NewWithRegisterer(prometheus.NewRegistry()),
		QueueClient: qc,
	})
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}

	ctx := context.Background()
	shop, err := c.ShopService.Create(ctx, service.ShopInput{Slug: "tea-house", Name: "Tea House"})
	if err != nil {
		t.Fatalf("create shop failed: %v", err)
	}
	price, _ := models.NewMoneyFromString("12.50")
	tea, err := c.ProductService.Create(ctx, service.ProductInput{ShopID: shop.ID, SKU: "tea-1", Name: "Green Tea", Price: price, Stock: 5})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	inactive := false
	hidden, err := c.ProductService.Create(ctx, service.ProductInput{ShopID: shop.ID, SKU: "tea-2", Name: "Black Tea", Price: price, Stock: 5, IsActive: &inactive})
	if err != nil {
		t.Fatalf("create hidden product failed: %v", err)
	}

	return &routerFixture{
		engine:    SetupRouter(cfg, c),
		container: c,
		shop:      shop,
		tea:       tea,
		hidden:    hidden,
	}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body interface{}) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: http status %d body %s", method, path, w.Code, w.Body.String())
	}
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode failed: %v (%s)", method, path, err, w.Body.String())
	}
	return resp
}

func (f *routerFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/v1/admin/login", "", gin.H{"username": username, "password": password})
	if resp.StatusCode != 0 {
		t.Fatalf("login failed: %+v", resp)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login token missing: %s", string(resp.Data))
	}
	return data.Token
}

func TestGuestOrderFlow(t *testing.T) {
	f := setupRouterTest(t)

	resp := f.do(t, http.MethodPost, "/api/v1/guest/orders", "", gin.H{
		"shop_id":      f.shop.ID,
		"email":        "guest@example.com",
		"total_amount": "25.00",
		"items": []gin.H{
			{"product_id": f.tea.ID, "quantity": 2, "unit_price": "12.50", "amount": "25.00"},
		},
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create order failed: %+v", resp)
	}
	var created struct {
		OrderNo string `json:"order_no"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if created.OrderNo == "" || created.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("unexpected order: %+v", created)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/guest/orders/"+created.OrderNo+"?email=guest@example.com", "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("guest lookup failed: %+v", resp)
	}
	resp = f.do(t, http.MethodGet, "/api/v1/guest/orders/"+created.OrderNo+"?email=other@example.com", "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("foreign email should not see the order: %+v", resp)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/guest/orders", "", gin.H{
		"shop_id":      f.shop.ID,
		"email":        "guest@example.com",
		"total_amount": "99.00",
		"items": []gin.H{
			{"product_id": f.tea.ID, "quantity": 1, "unit_price": "12.50", "amount": "12.50"},
		},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("expected total mismatch to be rejected, got %+v", resp)
	}
	var violation struct {
		Invariant string `json:"invariant"`
	}
	if err := json.Unmarshal(resp.Data, &violation); err != nil || violation.Invariant != "total_matches_items" {
		t.Fatalf("expected total_matches_items invariant, got %s", string(resp.Data))
	}

	product, err := f.container.ProductService.Get(context.Background(), f.tea.ID)
	if err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if product.Stock != 3 {
		t.Fatalf("expected stock 3 after one committed order, got %d", product.Stock)
	}
}

func TestGuestOrderRejectsSubCentTotal(t *testing.T) {
	f := setupRouterTest(t)

	resp := f.do(t, http.MethodPost, "/api/v1/guest/orders", "", gin.H{
		"shop_id":      f.shop.ID,
		"email":        "guest@example.com",
		"total_amount": "20.004",
		"items": []gin.H{
			{"product_id": f.tea.ID, "quantity": 1, "unit_price": "10.00", "amount": "10.00"},
			{"product_id": f.hidden.ID, "quantity": 1, "unit_price": "10.00", "amount": "10.00"},
		},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("expected sub-cent total to be rejected, got %+v", resp)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/guest/orders", "", gin.H{
		"shop_id":      f.shop.ID,
		"email":        "guest@example.com",
		"total_amount": 12.504,
		"items": []gin.H{
			{"product_id": f.tea.ID, "quantity": 1, "unit_price": "12.50", "amount": "12.50"},
		},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("expected numeric sub-cent total to be rejected, got %+v", resp)
	}

	product, err := f.container.ProductService.Get(context.Background(), f.tea.ID)
	if err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if product.Stock != 5 {
		t.Fatalf("rejected orders must not touch stock, got %d", product.Stock)
	}
}

func TestPublicProductListIgnoresUnknownFilters(t *testing.T) {
	f := setupRouterTest(t)

	resp := f.do(t, http.MethodGet, "/api/v1/public/products?filter=name.like.Tea&filter=password.eq.x", "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("list products failed: %+v", resp)
	}
	var products []models.Product
	if err := json.Unmarshal(resp.Data, &products); err != nil {
		t.Fatalf("decode products failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != f.tea.ID {
		t.Fatalf("expected only the active product, got %+v", products)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/public/products/"+strconv.FormatUint(uint64(f.hidden.ID), 10), "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("inactive product should be hidden, got %+v", resp)
	}
}

func TestPublicCatalogHidesInactiveProductsAndClosedShops(t *testing.T) {
	f := setupRouterTest(t)

	resp := f.do(t, http.MethodGet, "/api/v1/public/shops?filter=product_name.like.Black", "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("list shops failed: %+v", resp)
	}
	var shops []models.Shop
	if err := json.Unmarshal(resp.Data, &shops); err != nil {
		t.Fatalf("decode shops failed: %v", err)
	}
	if len(shops) != 0 {
		t.Fatalf("inactive product name must not match a shop, got %+v", shops)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/public/shops?filter=product_name.like.Green", "", nil)
	shops = nil
	if err := json.Unmarshal(resp.Data, &shops); err != nil {
		t.Fatalf("decode shops failed: %v", err)
	}
	if len(shops) != 1 || shops[0].ID != f.shop.ID {
		t.Fatalf("expected the shop selling the active product, got %+v", shops)
	}

	path := "/api/v1/public/products/" + strconv.FormatUint(uint64(f.tea.ID), 10)
	resp = f.do(t, http.MethodGet, path, "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("active product should be visible, got %+v", resp)
	}
	if _, err := f.container.ShopService.Update(context.Background(), f.shop.ID, service.ShopInput{
		Slug:   f.shop.Slug,
		Name:   f.shop.Name,
		Status: constants.ShopStatusClosed,
	}); err != nil {
		t.Fatalf("close shop failed: %v", err)
	}
	resp = f.do(t, http.MethodGet, path, "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("product of a closed shop should be hidden, got %+v", resp)
	}
}

func TestAdminRBACAndLogout(t *testing.T) {
	f := setupRouterTest(t)
	ctx := context.Background()

	if _, err := f.container.AuthService.CreateAdmin(ctx, "root", "root-pass-1", true); err != nil {
		t.Fatalf("create super admin failed: %v", err)
	}
	auditor, err := f.container.AuthService.CreateAdmin(ctx, "viewer", "viewer-pass-1", false)
	if err != nil {
		t.Fatalf("create auditor failed: %v", err)
	}
	if err := f.container.AuthzService.SetAdminRoles(auditor.ID, []string{"auditor"}); err != nil {
		t.Fatalf("assign role failed: %v", err)
	}

	viewerToken := f.login(t, "viewer", "viewer-pass-1")
	if resp := f.do(t, http.MethodGet, "/api/v1/admin/shops", viewerToken, nil); resp.StatusCode != 0 {
		t.Fatalf("auditor should list shops: %+v", resp)
	}
	if resp := f.do(t, http.MethodPost, "/api/v1/admin/shops", viewerToken, gin.H{"slug": "new-shop", "name": "New"}); resp.StatusCode != 403 {
		t.Fatalf("auditor should not create shops: %+v", resp)
	}

	rootToken := f.login(t, "root", "root-pass-1")
	if resp := f.do(t, http.MethodPost, "/api/v1/admin/shops", rootToken, gin.H{"slug": "new-shop", "name": "New"}); resp.StatusCode != 0 {
		t.Fatalf("super admin should create shops: %+v", resp)
	}
	if resp := f.do(t, http.MethodPost, "/api/v1/admin/shops", rootToken, gin.H{"slug": "new-shop", "name": "Dup"}); resp.StatusCode != 409 {
		t.Fatalf("duplicate slug should conflict: %+v", resp)
	}

	if resp := f.do(t, http.MethodPost, "/api/v1/admin/logout", viewerToken, nil); resp.StatusCode != 0 {
		t.Fatalf("logout failed: %+v", resp)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/admin/me", viewerToken, nil); resp.StatusCode != 401 {
		t.Fatalf("revoked token should be rejected: %+v", resp)
	}
}

func TestAdminFilterExplain(t *testing.T) {
	f := setupRouterTest(t)
	if _, err := f.container.AuthService.CreateAdmin(context.Background(), "root", "root-pass-1", true); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	token := f.login(t, "root", "root-pass-1")

	resp := f.do(t, http.MethodGet, "/api/v1/admin/filters/order/explain?filter=status.eq.paid&filter=secret.eq.1&filter=item_quantity.regex.x", token, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("explain failed: %+v", resp)
	}
	var data struct {
		Clauses []struct {
			Field    string `json:"field"`
			Accepted bool   `json:"accepted"`
			Reason   string `json:"reason"`
		} `json:"clauses"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode explain failed: %v", err)
	}
	if len(data.Clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %+v", data.Clauses)
	}
	if !data.Clauses[0].Accepted || data.Clauses[1].Reason != "unknown_field" || data.Clauses[2].Reason != "unknown_operator" {
		t.Fatalf("unexpected outcomes: %+v", data.Clauses)
	}

	if resp := f.do(t, http.MethodGet, "/api/v1/admin/filters/invoice/explain", token, nil); resp.StatusCode != 404 {
		t.Fatalf("unknown entity should be 404, got %+v", resp)
	}
}

func TestPermissionCatalogSkipsSessionRoutes(t *testing.T) {
	f := setupRouterTest(t)
	items := buildAdminPermissionCatalog(f.engine)
	if len(items) == 0 {
		t.Fatalf("expected catalog items")
	}
	for _, item := range items {
		if item.Object == "/admin/login" || item.Object == "/admin/me" || item.Object == "/admin/logout" {
			t.Fatalf("session route leaked into catalog: %+v", item)
		}
	}
}
