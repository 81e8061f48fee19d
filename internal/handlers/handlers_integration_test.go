package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Murega14/agrilink/internal/app"
	"github.com/Murega14/agrilink/internal/config"
	"github.com/Murega14/agrilink/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Harvest#2024"

// setupApp builds the full application over an in-memory SQLite database.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.JWT.Secret = "test_jwt_secret"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	cfg.Database.MaxOpenConns = 1
	cfg.Database.LogLevel = "silent"

	db, err := database.Connect(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.Migrate(db))

	fiberApp, _ := app.New(db, cfg, nil)
	return fiberApp
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func call(t *testing.T, fiberApp *fiber.App, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func signupAndLogin(t *testing.T, fiberApp *fiber.App, role, first, email, phone string) string {
	t.Helper()
	status, raw := call(t, fiberApp, http.MethodPost, "/api/v1/signup/"+role, "", map[string]string{
		"first_name":   first,
		"last_name":    "Tester",
		"phone_number": phone,
		"email":        email,
		"password":     testPassword,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = call(t, fiberApp, http.MethodPost, "/api/v1/login/"+role, "", map[string]string{
		"identifier": email,
		"password":   testPassword,
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	var loginResp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(raw, &loginResp))
	require.NotEmpty(t, loginResp.Token)
	require.NotEmpty(t, loginResp.RefreshToken)
	return loginResp.Token
}

type productResp struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	AmountAvailable int             `json:"amount_available"`
	Status          string          `json:"status"`
	FarmerID        string          `json:"farmer_id"`
	Seller          string          `json:"seller"`
}

func addProduct(t *testing.T, fiberApp *fiber.App, token, name string, price string, amount int) productResp {
	t.Helper()
	status, raw := call(t, fiberApp, http.MethodPost, "/api/v1/products/add", token, map[string]interface{}{
		"name":             name,
		"description":      name + " from the farm",
		"price_per_unit":   price,
		"amount_available": amount,
		"category":         "produce",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var product productResp
	require.NoError(t, json.Unmarshal(raw, &product))
	require.NotEmpty(t, product.ID)
	return product
}

func TestAuthSignupAndLogin(t *testing.T) {
	fiberApp := setupApp(t)

	signupAndLogin(t, fiberApp, "farmer", "Wanjiku", "wanjiku@example.com", "0712345678")

	// Duplicate email.
	status, _ := call(t, fiberApp, http.MethodPost, "/api/v1/signup/farmer", "", map[string]string{
		"first_name":   "Other",
		"last_name":    "Tester",
		"phone_number": "0799999999",
		"email":        "wanjiku@example.com",
		"password":     testPassword,
	})
	assert.Equal(t, http.StatusConflict, status)

	// Weak password.
	status, raw := call(t, fiberApp, http.MethodPost, "/api/v1/signup/buyer", "", map[string]string{
		"first_name":   "Weak",
		"last_name":    "Tester",
		"phone_number": "0700000001",
		"email":        "weak@example.com",
		"password":     "password",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), "Password")

	// Farmer credentials do not open the buyer login.
	status, _ = call(t, fiberApp, http.MethodPost, "/api/v1/login/buyer", "", map[string]string{
		"identifier": "wanjiku@example.com",
		"password":   testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Login by phone number.
	status, _ = call(t, fiberApp, http.MethodPost, "/api/v1/login/farmer", "", map[string]string{
		"identifier": "0712345678",
		"password":   testPassword,
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, fiberApp, http.MethodPost, "/api/v1/login/farmer", "", map[string]string{
		"identifier": "wanjiku@example.com",
		"password":   "Wrong#2024",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutRevokesToken(t *testing.T) {
	fiberApp := setupApp(t)
	token := signupAndLogin(t, fiberApp, "buyer", "Otieno", "otieno@example.com", "0723456789")

	status, _ := call(t, fiberApp, http.MethodGet, "/api/v1/userprofile", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, fiberApp, http.MethodPost, "/api/v1/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/userprofile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoutesRequireAuthAndRole(t *testing.T) {
	fiberApp := setupApp(t)

	status, _ := call(t, fiberApp, http.MethodPost, "/api/v1/products/add", "", map[string]interface{}{
		"name": "Unauthorized Product",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	buyerToken := signupAndLogin(t, fiberApp, "buyer", "Akinyi", "akinyi@example.com", "0734567890")
	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/dashboard/stats", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/farmerprofile", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestProductEndpoints(t *testing.T) {
	fiberApp := setupApp(t)
	farmerToken := signupAndLogin(t, fiberApp, "farmer", "Kamau", "kamau@example.com", "0745678901")
	otherToken := signupAndLogin(t, fiberApp, "farmer", "Njeri", "njeri@example.com", "0756789012")

	created := addProduct(t, fiberApp, farmerToken, "Maize", "10", 5)
	assert.Equal(t, "available", created.Status)

	for _, unitPrice := range []string{"0.004", "100000000"} {
		status, _ := call(t, fiberApp, http.MethodPost, "/api/v1/products/add", farmerToken, map[string]interface{}{
			"name":             "Sorghum",
			"description":      "Red sorghum",
			"price_per_unit":   unitPrice,
			"amount_available": 5,
			"category":         "produce",
		})
		assert.Equal(t, http.StatusBadRequest, status, unitPrice)
	}

	// Public listing shows the seller.
	status, raw := call(t, fiberApp, http.MethodGet, "/api/v1/products?search=mai", "", nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Products   []productResp `json:"products"`
		Page       int           `json:"page"`
		PerPage    int           `json:"per_page"`
		TotalItems int64         `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Kamau Tester", page.Products[0].Seller)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 12, page.PerPage)
	assert.Equal(t, int64(1), page.TotalItems)

	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/products?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/products/category/PRODUCE", "", nil)
	assert.Equal(t, http.StatusOK, status)

	// Only the owner may change a listing.
	status, _ = call(t, fiberApp, http.MethodPut, "/api/v1/products/update/"+created.ID, otherToken, map[string]interface{}{
		"name": "Stolen Maize",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = call(t, fiberApp, http.MethodPut, "/api/v1/products/update/"+created.ID, farmerToken, map[string]interface{}{
		"amount_available": 0,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	var updated productResp
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "out_of_stock", updated.Status)
	assert.Equal(t, "Maize", updated.Name)

	status, _ = call(t, fiberApp, http.MethodDelete, "/api/v1/products/delete/"+created.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = call(t, fiberApp, http.MethodDelete, "/api/v1/products/delete/"+created.ID, farmerToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "deleted successfully")

	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

type orderResp struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	FarmerOrders []struct {
		ID             string          `json:"id"`
		FarmerID       string          `json:"farmer_id"`
		FarmerName     string          `json:"farmer_name"`
		Status         string          `json:"status"`
		SubtotalAmount decimal.Decimal `json:"subtotal_amount"`
	} `json:"farmer_orders"`
	Items []struct {
		ProductID  string `json:"product_id"`
		Quantity   int    `json:"quantity"`
		FarmerName string `json:"farmer_name"`
	} `json:"items"`
}

func TestCheckoutAcrossFarmers(t *testing.T) {
	fiberApp := setupApp(t)
	farmerOne := signupAndLogin(t, fiberApp, "farmer", "Kamau", "kamau@example.com", "0745678901")
	farmerTwo := signupAndLogin(t, fiberApp, "farmer", "Njeri", "njeri@example.com", "0756789012")
	buyer := signupAndLogin(t, fiberApp, "buyer", "Otieno", "otieno@example.com", "0723456789")

	maize := addProduct(t, fiberApp, farmerOne, "Maize", "10", 5)
	beans := addProduct(t, fiberApp, farmerTwo, "Beans", "7", 10)

	// Over-ordering is rejected without touching stock.
	status, _ := call(t, fiberApp, http.MethodPost, "/api/v1/orders/create", buyer, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": beans.ID, "quantity": 1},
			{"product_id": maize.ID, "quantity": 6},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	status, raw := call(t, fiberApp, http.MethodGet, "/api/v1/products/"+beans.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var current productResp
	require.NoError(t, json.Unmarshal(raw, &current))
	assert.Equal(t, 10, current.AmountAvailable)

	// Farmers cannot check out.
	status, _ = call(t, fiberApp, http.MethodPost, "/api/v1/orders/create", farmerOne, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": beans.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = call(t, fiberApp, http.MethodPost, "/api/v1/orders/create", buyer, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": maize.ID, "quantity": 2},
			{"product_id": beans.ID, "quantity": 3},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var created struct {
		Order orderResp `json:"order"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	order := created.Order
	assert.Equal(t, "pending", order.Status)
	assert.True(t, decimal.NewFromInt(41).Equal(order.TotalAmount), order.TotalAmount.String())
	require.Len(t, order.FarmerOrders, 2)
	require.Len(t, order.Items, 2)
	for _, fo := range order.FarmerOrders {
		assert.NotEmpty(t, fo.FarmerName)
	}
	for _, item := range order.Items {
		switch item.ProductID {
		case maize.ID:
			assert.Equal(t, "Kamau Tester", item.FarmerName)
		case beans.ID:
			assert.Equal(t, "Njeri Tester", item.FarmerName)
		}
	}

	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/products/"+maize.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &current))
	assert.Equal(t, 3, current.AmountAvailable)

	// The buyer sees the order and its tracking.
	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/orders/"+order.ID, buyer, nil)
	require.Equal(t, http.StatusOK, status)
	var fetched orderResp
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, order.ID, fetched.ID)

	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/orders/"+order.ID+"/tracking", buyer, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "order placed")

	// Each farmer sees only their part.
	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/farmer/orders", farmerOne, nil)
	require.Equal(t, http.StatusOK, status)
	var farmerPage struct {
		Orders []struct {
			ID             string          `json:"id"`
			OrderID        string          `json:"order_id"`
			BuyerName      string          `json:"buyer_name"`
			SubtotalAmount decimal.Decimal `json:"subtotal_amount"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(raw, &farmerPage))
	require.Len(t, farmerPage.Orders, 1)
	assert.Equal(t, order.ID, farmerPage.Orders[0].OrderID)
	assert.Equal(t, "Otieno Tester", farmerPage.Orders[0].BuyerName)
	assert.True(t, decimal.NewFromInt(20).Equal(farmerPage.Orders[0].SubtotalAmount))

	// Delivering both parts delivers the order.
	for _, fo := range order.FarmerOrders {
		token := farmerOne
		if fo.FarmerID == beans.FarmerID {
			token = farmerTwo
		}
		status, raw = call(t, fiberApp, http.MethodPatch, "/api/v1/farmer/orders/"+fo.ID+"/status", token, map[string]string{
			"status": "delivered",
		})
		require.Equal(t, http.StatusOK, status, string(raw))
	}
	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/orders/"+order.ID, buyer, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, "delivered", fetched.Status)

	// A delivered order can no longer be cancelled.
	status, _ = call(t, fiberApp, http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", buyer, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestBuyerCancelRestoresStock(t *testing.T) {
	fiberApp := setupApp(t)
	farmer := signupAndLogin(t, fiberApp, "farmer", "Kamau", "kamau@example.com", "0745678901")
	buyer := signupAndLogin(t, fiberApp, "buyer", "Otieno", "otieno@example.com", "0723456789")
	maize := addProduct(t, fiberApp, farmer, "Maize", "10", 5)

	status, raw := call(t, fiberApp, http.MethodPost, "/api/v1/orders/create", buyer, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": maize.ID, "quantity": 5}},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var created struct {
		Order orderResp `json:"order"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))

	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/products/"+maize.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var current productResp
	require.NoError(t, json.Unmarshal(raw, &current))
	assert.Equal(t, 0, current.AmountAvailable)
	assert.Equal(t, "out_of_stock", current.Status)

	status, raw = call(t, fiberApp, http.MethodPost, "/api/v1/orders/"+created.Order.ID+"/cancel", buyer, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), "cancelled")

	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/products/"+maize.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &current))
	assert.Equal(t, 5, current.AmountAvailable)
	assert.Equal(t, "available", current.Status)
}

func TestFarmerDeleteRemovesProducts(t *testing.T) {
	fiberApp := setupApp(t)
	farmer := signupAndLogin(t, fiberApp, "farmer", "Kamau", "kamau@example.com", "0745678901")
	maize := addProduct(t, fiberApp, farmer, "Maize", "10", 5)

	// Prime the listing cache.
	status, raw := call(t, fiberApp, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), maize.ID)

	status, _ = call(t, fiberApp, http.MethodDelete, "/api/v1/farmer/delete", farmer, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/products/"+maize.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, raw = call(t, fiberApp, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(raw), maize.ID)

	status, _ = call(t, fiberApp, http.MethodGet, "/api/v1/farmerprofile", farmer, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, fiberApp, http.MethodPost, "/api/v1/login/farmer", "", map[string]string{
		"identifier": "kamau@example.com",
		"password":   testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestForgotPasswordIsSilent(t *testing.T) {
	fiberApp := setupApp(t)

	status, raw := call(t, fiberApp, http.MethodPost, "/api/v1/forgot_password", "", map[string]string{
		"email": "nobody@example.com",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "If the email exists")
}
