package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"sklad/internal/db"
	"sklad/internal/imaging"
	"sklad/internal/model"
	"sklad/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	thumbs, _ := imaging.NewThumbnailCache(16)
	router := NewRouter(database, testJWTSecret, thumbs)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin, nil)

	return server, login(t, server, "admin", "password123")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Access == "" || loginResp.Refresh == "" {
		t.Fatal("empty token pair from login")
	}
	return loginResp.Access
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// createItem posts a multipart item-create form and returns the created item.
func createItem(t *testing.T, server *httptest.Server, token, name string) model.Item {
	t.Helper()

	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	form.WriteField("name", name)
	form.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/items", buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating item, got %d", resp.StatusCode)
	}

	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	return item
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRefreshTokenSingleRedemption(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password123"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	var loginResp struct {
		Refresh string `json:"refresh"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	resp.Body.Close()

	refreshBody, _ := json.Marshal(map[string]string{"refresh": loginResp.Refresh})
	resp, _ = http.Post(server.URL+"/api/auth/refresh", "application/json", bytes.NewReader(refreshBody))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for first refresh, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Post(server.URL+"/api/auth/refresh", "application/json", bytes.NewReader(refreshBody))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for reused refresh token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	item := createItem(t, server, token, "Jacket")
	if item.Name != "Jacket" {
		t.Fatalf("unexpected item: %+v", item)
	}

	// Add a size with a barcode.
	req, _ := authRequest("POST", server.URL+"/api/items/"+item.ID.String()+"/sizes", token,
		map[string]string{"size_label": "M", "barcode": "4006381333931"})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating size, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Adjust its quantity.
	req, _ = authRequest("POST", server.URL+"/api/items/"+item.ID.String()+"/adjust", token,
		map[string]any{"size_label": "M", "amount": 5, "note": "initial count"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 adjusting, got %d", resp.StatusCode)
	}
	var adjusted model.Item
	json.NewDecoder(resp.Body).Decode(&adjusted)
	resp.Body.Close()
	if adjusted.AvailableQuantity("M") != 5 {
		t.Errorf("expected quantity 5 after adjust, got %d", adjusted.AvailableQuantity("M"))
	}

	// Resolve the barcode.
	req, _ = authRequest("GET", server.URL+"/api/sizes/by_barcode?barcode=4006381333931", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 resolving barcode, got %d", resp.StatusCode)
	}
	var resolved struct {
		ItemID    string `json:"item_id"`
		SizeLabel string `json:"size_label"`
	}
	json.NewDecoder(resp.Body).Decode(&resolved)
	resp.Body.Close()
	if resolved.ItemID != item.ID.String() || resolved.SizeLabel != "M" {
		t.Errorf("unexpected barcode resolution: %+v", resolved)
	}

	// History shows the adjustment.
	req, _ = authRequest("GET", server.URL+"/api/items/"+item.ID.String()+"/history", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var history []model.InventoryChange
	json.NewDecoder(resp.Body).Decode(&history)
	resp.Body.Close()
	if len(history) != 1 || history[0].Amount != 5 {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestUnknownBarcodeReturns404(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("GET", server.URL+"/api/sizes/by_barcode?barcode=0000000000000", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown barcode, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSupplyAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, "Jacket")

	// Inbound movement.
	req, _ := authRequest("POST", server.URL+"/api/supplies", token, map[string]any{
		"type": "in",
		"lines": []map[string]any{
			{"item_id": item.ID, "size_label": "M", "quantity": 10},
		},
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating supply, got %d", resp.StatusCode)
	}
	var supply model.Supply
	json.NewDecoder(resp.Body).Decode(&supply)
	resp.Body.Close()
	if supply.Number != 1 || supply.CreatedByUsername != "admin" {
		t.Errorf("unexpected supply: %+v", supply)
	}

	// Outbound exceeding stock must be rejected with 409.
	req, _ = authRequest("POST", server.URL+"/api/supplies", token, map[string]any{
		"type": "out",
		"lines": []map[string]any{
			{"item_id": item.ID, "size_label": "M", "quantity": 11},
		},
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d", resp.StatusCode)
	}
	var errBody map[string]string
	json.NewDecoder(resp.Body).Decode(&errBody)
	resp.Body.Close()
	if errBody["detail"] == "" {
		t.Error("expected detail message in error body")
	}

	// Valid outbound.
	req, _ = authRequest("POST", server.URL+"/api/supplies", token, map[string]any{
		"type": "out",
		"lines": []map[string]any{
			{"item_id": item.ID, "size_label": "M", "quantity": 4},
		},
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for valid outbound, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Filtered listing.
	req, _ = authRequest("GET", server.URL+"/api/supplies?item_id="+item.ID.String(), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var supplies []model.Supply
	json.NewDecoder(resp.Body).Decode(&supplies)
	resp.Body.Close()
	if len(supplies) != 2 {
		t.Errorf("expected 2 supplies, got %d", len(supplies))
	}
}

func TestOrdersAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, "Jacket")

	// Stock up first.
	req, _ := authRequest("POST", server.URL+"/api/items/"+item.ID.String()+"/adjust", token,
		map[string]any{"size_label": "M", "amount": 10})
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	// Create an order.
	req, _ = authRequest("POST", server.URL+"/api/orders", token, map[string]any{
		"source":           "phone",
		"delivery_address": "Main St 1",
		"lines": []map[string]any{
			{"item_id": item.ID, "size_label": "M", "quantity": 3},
		},
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating order, got %d", resp.StatusCode)
	}
	var order model.Order
	json.NewDecoder(resp.Body).Decode(&order)
	resp.Body.Close()

	// Cancel it; stock is restored.
	req, _ = authRequest("PATCH", server.URL+"/api/orders/"+order.ID.String(), token,
		map[string]string{"status": "cancelled"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 cancelling order, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/items/"+item.ID.String(), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var got model.Item
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got.AvailableQuantity("M") != 10 {
		t.Errorf("expected quantity restored to 10, got %d", got.AvailableQuantity("M"))
	}
}

func TestUsersEndpointRequiresAdmin(t *testing.T) {
	server, adminToken := setupTestServer(t)

	// Admin creates a regular user.
	req, _ := authRequest("POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": "worker",
		"password": "password123",
		"role":     model.RoleUser,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating user, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	workerToken := login(t, server, "worker", "password123")

	req, _ = authRequest("GET", server.URL+"/api/users", workerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Regular users also cannot create items.
	req, _ = authRequest("POST", server.URL+"/api/items", workerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 creating item as user, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
