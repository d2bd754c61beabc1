package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salepoint/internal/auth"
	"salepoint/internal/config"
	"salepoint/internal/middleware"
	"salepoint/internal/notify"
	"salepoint/internal/payment"
	"salepoint/internal/repository"
	"salepoint/internal/sale"
	"salepoint/internal/stock"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// newTestRouter wires the API the way the server does, on the sample
// catalog and a miniredis instance
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	log := zap.NewNop()

	catalog := repository.NewSampleCatalog()
	transactions := repository.NewMemoryTransactionLog()
	ledger := stock.NewLedger(catalog, 0.3, log)
	hub := notify.NewHub(ledger, nil, nil, log)

	payCfg := config.PaymentsConfig{Enabled: true, ConfirmTimeout: time.Second, RetryBackoff: 10 * time.Millisecond}
	processor := payment.NewProcessor(payCfg, payment.NewRegistry(payCfg), log)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	idem := sale.NewIdempotencyStore(client, time.Hour)

	salesCfg := config.SalesConfig{DefaultTaxRate: 16.0, Currency: "KES"}
	orchestrator := sale.NewOrchestrator(salesCfg, ledger, processor, hub, catalog, transactions, idem, log)

	authCfg := config.AuthConfig{JWTSecret: "test-secret", AccessExpiry: 60}
	authService := auth.NewService(catalog, hub, authCfg, log)
	sessions := NewSessionStore(ledger)

	router := chi.NewRouter()
	authMiddleware := middleware.AuthMiddleware(authCfg.JWTSecret, log)

	NewAuthHandler(authService, sessions, log).RegisterRoutes(router, authMiddleware)
	NewInventoryHandler(catalog, ledger, log).RegisterRoutes(router, authMiddleware)
	NewCartHandler(sessions, catalog, salesCfg, log).RegisterRoutes(router, authMiddleware)
	NewSaleHandler(sessions, orchestrator, processor, transactions, salesCfg, log).RegisterRoutes(router, authMiddleware)
	NewNotificationHandler(hub, log).RegisterRoutes(router, authMiddleware)

	return router
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, body interface{}, extraHeaders map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
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
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router chi.Router, username, password string) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, w.Code, w.Body.String())
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("login response not JSON: %v", err)
	}
	return result.Token
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)

	if token := login(t, router, "clerk1", "clerk123"); token == "" {
		t.Fatal("empty token")
	}

	w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"username": "clerk1",
		"password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: status = %d, want 401", w.Code)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "GET", "/api/products/", "", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestProductsCarryStockStatus(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "clerk1", "clerk123")

	w := doJSON(t, router, "GET", "/api/products/", token, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var products []ProductView
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if len(products) != 8 {
		t.Fatalf("got %d products, want 8", len(products))
	}

	// Sugar 2kg is seeded at 8/30, at or below the 0.3 threshold
	for _, p := range products {
		if p.Name == "Sugar 2kg" && p.StockStatus != "critical" {
			t.Errorf("Sugar 2kg status = %s, want critical", p.StockStatus)
		}
		if p.Name == "Rice 5kg" && p.StockStatus != "adequate" {
			t.Errorf("Rice 5kg status = %s, want adequate", p.StockStatus)
		}
	}
}

func TestCartFlowAndCashCheckout(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "clerk1", "clerk123")

	// Rice 5kg id 1 at 650, two units
	w := doJSON(t, router, "POST", "/api/cart/items", token, map[string]interface{}{
		"product_id": 1,
		"quantity":   2,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("add item: %d %s", w.Code, w.Body.String())
	}

	var view CartView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("cart response not JSON: %v", err)
	}
	if len(view.Lines) != 1 || view.Totals.Subtotal != 1300 {
		t.Errorf("cart = %+v", view)
	}

	w = doJSON(t, router, "POST", "/api/checkout", token, map[string]interface{}{
		"payment_method": "cash",
		"customer_name":  "Walk-in",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}

	var tx struct {
		ID    string  `json:"id"`
		Total float64 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tx); err != nil {
		t.Fatalf("checkout response not JSON: %v", err)
	}
	if tx.Total != 1508 {
		t.Errorf("total = %.2f, want 1508 (1300 + 16%% tax)", tx.Total)
	}

	// Cart is cleared and stock decremented
	w = doJSON(t, router, "GET", "/api/cart/", token, nil, nil)
	json.Unmarshal(w.Body.Bytes(), &view)
	if len(view.Lines) != 0 {
		t.Error("cart not cleared after checkout")
	}

	w = doJSON(t, router, "GET", "/api/products/1", token, nil, nil)
	var p ProductView
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.StockQuantity != 118 {
		t.Errorf("stock = %d, want 118", p.StockQuantity)
	}

	// Receipt renders as text
	req := httptest.NewRequest("GET", "/api/transactions/"+tx.ID+"/receipt", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK || rw.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		t.Errorf("receipt: %d %s", rw.Code, rw.Header().Get("Content-Type"))
	}
	if !bytes.Contains(rw.Body.Bytes(), []byte(tx.ID)) {
		t.Error("receipt missing transaction id")
	}
}

func TestCheckoutWithIdempotencyKeyReplays(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "clerk1", "clerk123")

	addItem := func() {
		w := doJSON(t, router, "POST", "/api/cart/items", token, map[string]interface{}{
			"product_id": 4,
			"quantity":   1,
		}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("add item: %d %s", w.Code, w.Body.String())
		}
	}
	checkout := func() string {
		w := doJSON(t, router, "POST", "/api/checkout", token, map[string]interface{}{
			"payment_method": "cash",
		}, map[string]string{"Idempotency-Key": "order-777"})
		if w.Code != http.StatusCreated {
			t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
		}
		var tx struct {
			ID string `json:"id"`
		}
		json.Unmarshal(w.Body.Bytes(), &tx)
		return tx.ID
	}

	addItem()
	first := checkout()
	addItem()
	second := checkout()

	if first != second {
		t.Errorf("replay created a new transaction: %s then %s", first, second)
	}

	w := doJSON(t, router, "GET", "/api/products/4", token, nil, nil)
	var p ProductView
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.StockQuantity != 199 {
		t.Errorf("stock = %d, want 199 (decremented once)", p.StockQuantity)
	}
}

func TestAddItemBeyondStockConflicts(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "clerk1", "clerk123")

	// Sugar 2kg id 3 has 8 units
	w := doJSON(t, router, "POST", "/api/cart/items", token, map[string]interface{}{
		"product_id": 3,
		"quantity":   9,
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestEmptyCartCheckoutRejected(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "clerk1", "clerk123")

	w := doJSON(t, router, "POST", "/api/checkout", token, map[string]interface{}{
		"payment_method": "cash",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestPaymentConfirmUnknownReference(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/payments/confirm", "", map[string]interface{}{
		"reference": "TXN-unknown",
		"success":   true,
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestNotificationRoleRestrictions(t *testing.T) {
	router := newTestRouter(t)
	clerkToken := login(t, router, "clerk1", "clerk123")
	managerToken := login(t, router, "manager1", "manager123")

	// Logins above already raised notifications
	w := doJSON(t, router, "GET", "/api/notifications/", clerkToken, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}

	w = doJSON(t, router, "DELETE", "/api/notifications/", clerkToken, nil, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("clerk clear: status = %d, want 403", w.Code)
	}

	w = doJSON(t, router, "DELETE", "/api/notifications/", managerToken, nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("manager clear: status = %d, want 200", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/notifications/unread", clerkToken, nil, nil)
	var unread map[string]int
	json.Unmarshal(w.Body.Bytes(), &unread)
	if unread["unread"] != 0 {
		t.Errorf("unread = %d after clear, want 0", unread["unread"])
	}
}

func TestRestockRequiresManager(t *testing.T) {
	router := newTestRouter(t)
	clerkToken := login(t, router, "clerk1", "clerk123")
	managerToken := login(t, router, "manager1", "manager123")

	w := doJSON(t, router, "PUT", "/api/products/3/stock", clerkToken, map[string]int{"quantity": 50}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("clerk restock: status = %d, want 403", w.Code)
	}

	w = doJSON(t, router, "PUT", "/api/products/3/stock", managerToken, map[string]int{"quantity": 50}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("manager restock: %d %s", w.Code, w.Body.String())
	}
	var p ProductView
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.StockQuantity != 50 || p.StockStatus != "adequate" {
		t.Errorf("restocked product = %+v", p)
	}
}

func TestInventoryOverview(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "manager1", "manager123")

	w := doJSON(t, router, "GET", "/api/inventory/overview", token, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("overview: %d", w.Code)
	}

	var summary stock.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("overview not JSON: %v", err)
	}
	if summary.TotalProducts != 8 {
		t.Errorf("total products = %d, want 8", summary.TotalProducts)
	}
	// Sugar 2kg (8/30) and Laundry Soap (14/50) sit at or below 0.3
	if summary.CriticalCount != 2 {
		t.Errorf("critical count = %d, want 2", summary.CriticalCount)
	}
}
