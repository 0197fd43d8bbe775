// Package remote implements the ledger.Store contract over the REST
// boundary, plus the mirror that caches the remote view for a client
// session.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"sklad/internal/ledger"
	"sklad/internal/model"
)

// TokenSource supplies the bearer credential for each request. Login and
// refresh requests go out without one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed credential.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to a sklad server. It implements ledger.Store so drafts and
// the mirror work against it the same way they work against the local store.
type Client struct {
	BaseURL string
	Tokens  TokenSource
	HTTP    *http.Client
}

var _ ledger.Store = (*Client)(nil)

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// LoginResponse is the payload returned by Login and Refresh.
type LoginResponse struct {
	Access   string          `json:"access"`
	Refresh  string          `json:"refresh"`
	User     model.User      `json:"user"`
	Workshop *model.Workshop `json:"workshop,omitempty"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", jsonBody(map[string]string{
		"username": username,
		"password": password,
	}), "application/json", false, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh redeems a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", jsonBody(map[string]string{
		"refresh": refreshToken,
	}), "application/json", false, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes every refresh token of the logged-in user.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, "", true, nil)
}

func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/api/items", nil, "", true, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, "/api/items/"+id.String(), nil, "", true, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem creates an item without a photo. Use CreateItemWithPhoto to
// attach one.
func (c *Client) CreateItem(ctx context.Context, name, description string) (*model.Item, error) {
	return c.CreateItemWithPhoto(ctx, name, description, nil, "")
}

// CreateItemWithPhoto creates an item, optionally attaching a photo, as a
// multipart form.
func (c *Client) CreateItemWithPhoto(ctx context.Context, name, description string, photo []byte, filename string) (*model.Item, error) {
	body, contentType, err := multipartForm(map[string]string{
		"name":             name,
		"item_description": description,
	}, photo, filename)
	if err != nil {
		return nil, err
	}

	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items", body, contentType, true, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id uuid.UUID, name, description string) (*model.Item, error) {
	var item model.Item
	err := c.do(ctx, http.MethodPatch, "/api/items/"+id.String(), jsonBody(map[string]string{
		"name":             name,
		"item_description": description,
	}), "application/json", true, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+id.String(), nil, "", true, nil)
}

func (c *Client) CreateSize(ctx context.Context, itemID uuid.UUID, label, barcode string) (*model.Size, error) {
	var size model.Size
	err := c.do(ctx, http.MethodPost, "/api/items/"+itemID.String()+"/sizes", jsonBody(map[string]string{
		"size_label": label,
		"barcode":    barcode,
	}), "application/json", true, &size)
	if err != nil {
		return nil, err
	}
	return &size, nil
}

// UpdateSize always sends the barcode field; an empty string clears it.
func (c *Client) UpdateSize(ctx context.Context, itemID, sizeID uuid.UUID, label, barcode string) (*model.Size, error) {
	var size model.Size
	path := "/api/items/" + itemID.String() + "/sizes/" + sizeID.String()
	err := c.do(ctx, http.MethodPatch, path, jsonBody(map[string]string{
		"size_label": label,
		"barcode":    barcode,
	}), "application/json", true, &size)
	if err != nil {
		return nil, err
	}
	return &size, nil
}

func (c *Client) DeleteSize(ctx context.Context, itemID, sizeID uuid.UUID) error {
	path := "/api/items/" + itemID.String() + "/sizes/" + sizeID.String()
	return c.do(ctx, http.MethodDelete, path, nil, "", true, nil)
}

func (c *Client) ApplyChange(ctx context.Context, itemID uuid.UUID, sizeLabel string, delta int, note, kind string) error {
	return c.do(ctx, http.MethodPost, "/api/items/"+itemID.String()+"/adjust", jsonBody(map[string]any{
		"size_label":  sizeLabel,
		"amount":      delta,
		"note":        note,
		"change_type": kind,
	}), "application/json", true, nil)
}

// AvailableQuantity fetches the item and reads the size's quantity from it.
// The remote contract has no dedicated availability endpoint.
func (c *Client) AvailableQuantity(ctx context.Context, itemID uuid.UUID, sizeLabel string) (int, error) {
	item, err := c.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.AvailableQuantity(sizeLabel), nil
}

func (c *Client) ListChanges(ctx context.Context, itemID uuid.UUID) ([]model.InventoryChange, error) {
	var changes []model.InventoryChange
	if err := c.do(ctx, http.MethodGet, "/api/items/"+itemID.String()+"/history", nil, "", true, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

func (c *Client) CreateSupply(ctx context.Context, typ string, lines []model.SupplyLine) (*model.Supply, error) {
	var supply model.Supply
	err := c.do(ctx, http.MethodPost, "/api/supplies", jsonBody(map[string]any{
		"type":  typ,
		"lines": lines,
	}), "application/json", true, &supply)
	if err != nil {
		return nil, err
	}
	return &supply, nil
}

func (c *Client) ListSupplies(ctx context.Context, itemID uuid.UUID) ([]model.Supply, error) {
	path := "/api/supplies"
	if itemID != uuid.Nil {
		path += "?item_id=" + url.QueryEscape(itemID.String())
	}

	var supplies []model.Supply
	if err := c.do(ctx, http.MethodGet, path, nil, "", true, &supplies); err != nil {
		return nil, err
	}
	return supplies, nil
}

func (c *Client) GetSupply(ctx context.Context, id uuid.UUID) (*model.Supply, error) {
	var supply model.Supply
	if err := c.do(ctx, http.MethodGet, "/api/supplies/"+id.String(), nil, "", true, &supply); err != nil {
		return nil, err
	}
	return &supply, nil
}

func (c *Client) ResolveBarcode(ctx context.Context, barcode string) (uuid.UUID, string, error) {
	var out struct {
		ItemID    uuid.UUID `json:"item_id"`
		SizeLabel string    `json:"size_label"`
	}
	path := "/api/sizes/by_barcode?barcode=" + url.QueryEscape(barcode)
	if err := c.do(ctx, http.MethodGet, path, nil, "", true, &out); err != nil {
		return uuid.Nil, "", err
	}
	return out.ItemID, out.SizeLabel, nil
}

// ListOrders returns the workshop's orders.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, "", true, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SetOrderStatus moves an order into a new status.
func (c *Client) SetOrderStatus(ctx context.Context, id uuid.UUID, status string) (*model.Order, error) {
	var order model.Order
	err := c.do(ctx, http.MethodPatch, "/api/orders/"+id.String(), jsonBody(map[string]string{
		"status": status,
	}), "application/json", true, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// do runs one request against the server. Context cancellation surfaces as
// ErrCanceled; a 404 maps to ledger.ErrNotFound and a 409 to
// ledger.ErrInsufficientStock, each carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, authed bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed && c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("getting token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ErrCanceled
		}
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		message := parseErrorBody(resp.StatusCode, raw)
		apiErr := &APIError{Status: resp.StatusCode, Message: message}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", message, ledger.ErrNotFound)
		case http.StatusConflict:
			return fmt.Errorf("%s: %w", message, ledger.ErrInsufficientStock)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func jsonBody(v any) io.Reader {
	buf := &bytes.Buffer{}
	json.NewEncoder(buf).Encode(v)
	return buf
}

func multipartForm(fields map[string]string, photo []byte, filename string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)

	for key, value := range fields {
		if value == "" && key != "name" {
			continue
		}
		if err := form.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("writing form field: %w", err)
		}
	}

	if photo != nil {
		part, err := form.CreateFormFile("photo", filename)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file: %w", err)
		}
		if _, err := part.Write(photo); err != nil {
			return nil, "", fmt.Errorf("writing photo: %w", err)
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf, form.FormDataContentType(), nil
}
