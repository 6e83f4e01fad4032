package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-service/internal/middleware"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"
	"storefront-service/internal/repository/memory"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()

	auth := service.NewAuthService(store.Users(), "test-secret", time.Hour, logger)
	engine := New(Services{
		Auth:       auth,
		Users:      service.NewUserService(store.Users()),
		Products:   service.NewProductService(store.Products(), store.Categories(), nil, logger),
		Categories: service.NewCategoryService(store.Categories()),
		Orders: service.NewOrderService(service.OrderServiceDeps{
			Orders:   store.Orders(),
			Products: store.Products(),
			Users:    store.Users(),
			Tx:       store,
			Logger:   logger,
		}),
	}, Options{ServiceName: "storefront-test", PayPalClientID: "sb-client"}, logger)

	return &testAPI{t: t, engine: engine, store: store}
}

// do manda el request con la cookie (si hay) y decodifica la respuesta en out.
func (a *testAPI) do(method, path string, body any, cookie *http.Cookie, out any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func (a *testAPI) register(username string, admin bool) *http.Cookie {
	a.t.Helper()
	var user struct {
		ID string `json:"_id"`
	}
	w := a.do(http.MethodPost, "/api/auth/register", gin.H{
		"username": username, "email": username + "@example.com", "password": "pw-" + username,
	}, nil, &user)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	if admin {
		u, err := a.store.Users().FindByEmail(context.Background(), username+"@example.com")
		require.NoError(a.t, err)
		yes := true
		_, err = a.store.Users().Update(context.Background(), u.ID, repository.UserUpdate{IsAdmin: &yes})
		require.NoError(a.t, err)
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.TokenCookie {
			assert.True(a.t, c.HttpOnly)
			return c
		}
	}
	a.t.Fatal("no jwt cookie")
	return nil
}

func (a *testAPI) product(name, price string, stock int) *model.Product {
	a.t.Helper()
	p := &model.Product{Name: name, Price: model.MustAmount(price), Quantity: stock, CountInStock: stock}
	require.NoError(a.t, a.store.Products().Create(context.Background(), p))
	return p
}

func orderBody(items ...gin.H) gin.H {
	return gin.H{
		"orderItems": items,
		"shippingAddress": gin.H{
			"address": "Calle 1", "city": "Córdoba", "postalCode": "5000", "country": "AR",
		},
		"paymentMethod": "PayPal",
	}
}

var payBody = gin.H{
	"id": "PAY-9", "status": "COMPLETED", "update_time": "2026-10-15T10:00:00Z",
	"payer": gin.H{"email_address": "ana@example.com"},
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	ana := api.register("ana", false)
	boss := api.register("boss", true)
	mouse := api.product("Mouse", "30.00", 10)

	// crear
	var order struct {
		ID            string `json:"_id"`
		ItemsPrice    string `json:"itemsPrice"`
		ShippingPrice string `json:"shippingPrice"`
		TaxPrice      string `json:"taxPrice"`
		TotalPrice    string `json:"totalPrice"`
		IsPaid        bool   `json:"isPaid"`
		User          string `json:"user"`
	}
	w := api.do(http.MethodPost, "/api/orders",
		orderBody(gin.H{"_id": mouse.ID.Hex(), "qty": 4, "price": "0.01"}), ana, &order)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "120.00", order.ItemsPrice)
	assert.Equal(t, "0.00", order.ShippingPrice)
	assert.Equal(t, "18.00", order.TaxPrice)
	assert.Equal(t, "138.00", order.TotalPrice)
	assert.False(t, order.IsPaid)

	buyer, err := api.store.Users().FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, buyer.ID.Hex(), order.User)

	// leer: dueño sí, otro usuario no
	var got struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	w = api.do(http.MethodGet, "/api/orders/"+order.ID, nil, ana, &got)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", got.User.Username)

	eve := api.register("eve", false)
	w = api.do(http.MethodGet, "/api/orders/"+order.ID, nil, eve, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// pagar dos veces
	var paid struct {
		IsPaid bool   `json:"isPaid"`
		User   string `json:"user"`
	}
	w = api.do(http.MethodPut, "/api/orders/"+order.ID+"/pay", payBody, ana, &paid)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, paid.IsPaid)
	assert.Equal(t, buyer.ID.Hex(), paid.User)

	w = api.do(http.MethodPut, "/api/orders/"+order.ID+"/pay", payBody, ana, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already paid")

	p, err := api.store.Products().FindByID(context.Background(), mouse.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, p.CountInStock)

	// entregar sólo admin
	w = api.do(http.MethodPut, "/api/orders/"+order.ID+"/deliver", nil, ana, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var delivered struct {
		IsDelivered bool   `json:"isDelivered"`
		User        string `json:"user"`
	}
	w = api.do(http.MethodPut, "/api/orders/"+order.ID+"/deliver", nil, boss, &delivered)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, delivered.IsDelivered)
	assert.Equal(t, buyer.ID.Hex(), delivered.User)

	// dashboard
	var sales struct {
		TotalSales string `json:"totalSales"`
	}
	w = api.do(http.MethodGet, "/api/orders/total-sales", nil, boss, &sales)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "138.00", sales.TotalSales)

	var mine struct {
		Orders []any `json:"orders"`
		Page   int   `json:"page"`
	}
	w = api.do(http.MethodGet, "/api/orders/mine?page=1", nil, ana, &mine)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, mine.Orders, 1)
}

func TestOrderErrors(t *testing.T) {
	api := newTestAPI(t)
	ana := api.register("ana", false)
	monitor := api.product("Monitor", "200.00", 2)

	tests := []struct {
		name   string
		body   gin.H
		cookie *http.Cookie
		status int
		text   string
	}{
		{"no token", orderBody(gin.H{"_id": monitor.ID.Hex(), "qty": 1}), nil, http.StatusUnauthorized, ""},
		{"empty cart", orderBody(), ana, http.StatusBadRequest, "No order items"},
		{"zero qty", orderBody(gin.H{"_id": monitor.ID.Hex(), "qty": 0}), ana, http.StatusBadRequest, ""},
		{"unknown product", orderBody(gin.H{"_id": "64b000000000000000000000", "qty": 1}), ana, http.StatusNotFound, "64b000000000000000000000"},
		{"no stock", orderBody(gin.H{"_id": monitor.ID.Hex(), "qty": 3}), ana, http.StatusBadRequest, "Only 2 left"},
		{"missing address", gin.H{"orderItems": []gin.H{{"_id": monitor.ID.Hex(), "qty": 1}}, "paymentMethod": "PayPal"}, ana, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/api/orders", tt.body, tt.cookie, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.text != "" {
				assert.Contains(t, w.Body.String(), tt.text)
			}
		})
	}

	w := api.do(http.MethodPut, "/api/orders/64b000000000000000000000/pay", payBody, ana, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t)
	boss := api.register("boss", true)
	ana := api.register("ana", false)

	var cat struct {
		ID string `json:"_id"`
	}
	w := api.do(http.MethodPost, "/api/category", gin.H{"name": "Audio"}, ana, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = api.do(http.MethodPost, "/api/category", gin.H{"name": "Audio"}, boss, &cat)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = api.do(http.MethodPost, "/api/category", gin.H{"name": "Audio"}, boss, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var product struct {
		ID           string `json:"_id"`
		Price        string `json:"price"`
		CountInStock int    `json:"countInStock"`
	}
	w = api.do(http.MethodPost, "/api/products", gin.H{
		"name": "Headphones", "description": "Closed back", "price": "89.99",
		"category": cat.ID, "quantity": 5, "brand": "Acme",
	}, boss, &product)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "89.99", product.Price)
	assert.Equal(t, 5, product.CountInStock)

	w = api.do(http.MethodPost, "/api/products", gin.H{"name": "no price"}, boss, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/products", gin.H{
		"name": "Broken", "description": "x", "price": "1.00",
		"category": cat.ID, "quantity": -5, "brand": "Acme",
	}, boss, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/products/"+product.ID, nil, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/products/"+product.ID+"/reviews", gin.H{"rating": 4, "comment": "nice"}, ana, nil)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = api.do(http.MethodPost, "/api/products/"+product.ID+"/reviews", gin.H{"rating": 4, "comment": "again"}, ana, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var page struct {
		Products []any `json:"products"`
		Pages    int   `json:"pages"`
	}
	w = api.do(http.MethodGet, "/api/products?keyword=head", nil, nil, &page)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, page.Products, 1)
	assert.Equal(t, 1, page.Pages)

	var filtered []any
	w = api.do(http.MethodPost, "/api/products/filtered-products",
		gin.H{"checked": []string{cat.ID}, "radio": []string{"50", "100"}}, nil, &filtered)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, filtered, 1)

	w = api.do(http.MethodDelete, "/api/products/"+product.ID, nil, boss, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(http.MethodGet, "/api/products/"+product.ID, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.register("ana", false)

	w := api.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ana@example.com", "password": "wrong"}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password.")

	var me struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	w = api.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ana@example.com", "password": "pw-ana"}, nil, &me)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", me.Username)
	assert.Empty(t, me.Password)

	w = api.do(http.MethodPost, "/api/auth/register", gin.H{
		"username": "ana2", "email": "ana@example.com", "password": "x",
	}, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, "/api/users/profile", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/auth/logout", nil, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var cfg struct {
		ClientID string `json:"clientId"`
	}
	w = api.do(http.MethodGet, "/api/config/paypal", nil, nil, &cfg)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sb-client", cfg.ClientID)
}

func TestAdminUserRoutes(t *testing.T) {
	api := newTestAPI(t)
	boss := api.register("boss", true)
	ana := api.register("ana", false)

	var users []struct {
		ID      string `json:"_id"`
		IsAdmin bool   `json:"isAdmin"`
	}
	w := api.do(http.MethodGet, "/api/users", nil, ana, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = api.do(http.MethodGet, "/api/users", nil, boss, &users)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, users, 2)

	for _, u := range users {
		w = api.do(http.MethodDelete, "/api/users/"+u.ID, nil, boss, nil)
		if u.IsAdmin {
			assert.Equal(t, http.StatusBadRequest, w.Code)
		} else {
			assert.Equal(t, http.StatusOK, w.Code)
		}
	}

	// el token de un usuario borrado deja de servir
	w = api.do(http.MethodGet, "/api/users/profile", nil, ana, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpsRoutes(t *testing.T) {
	api := newTestAPI(t)

	var health struct {
		Status string `json:"status"`
	}
	w := api.do(http.MethodGet, "/health", nil, nil, &health)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", health.Status)

	w = api.do(http.MethodGet, "/no/such/route/8c1f", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/metrics", nil, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `endpoint="unmatched"`)
	assert.NotContains(t, body, "8c1f")
}
