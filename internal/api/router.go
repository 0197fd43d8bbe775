package api

import (
	"database/sql"
	"net/http"

	"sklad/internal/imaging"
	"sklad/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, thumbs *imaging.ThumbnailCache) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Thumbs: thumbs}
	sizesHandler := &SizesHandler{DB: db}
	suppliesHandler := &SuppliesHandler{DB: db}
	ordersHandler := &OrdersHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login and token refresh.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Items: read (all roles), write (manager+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PATCH /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("GET /api/items/{id}/photo", authMW(http.HandlerFunc(itemsHandler.GetPhoto)))
	mux.Handle("GET /api/items/{id}/history", authMW(http.HandlerFunc(itemsHandler.GetHistory)))
	mux.Handle("POST /api/items/{id}/adjust", authMW(requireManager(http.HandlerFunc(itemsHandler.Adjust))))

	// Sizes: nested under items, plus the barcode lookup.
	mux.Handle("POST /api/items/{id}/sizes", authMW(requireManager(http.HandlerFunc(sizesHandler.Create))))
	mux.Handle("PATCH /api/items/{id}/sizes/{sizeId}", authMW(requireManager(http.HandlerFunc(sizesHandler.Update))))
	mux.Handle("DELETE /api/items/{id}/sizes/{sizeId}", authMW(requireManager(http.HandlerFunc(sizesHandler.Delete))))
	mux.Handle("GET /api/sizes/by_barcode", authMW(http.HandlerFunc(sizesHandler.ByBarcode)))

	// Supplies: movements are append-only; delete is manager+.
	mux.Handle("GET /api/supplies", authMW(http.HandlerFunc(suppliesHandler.List)))
	mux.Handle("POST /api/supplies", authMW(http.HandlerFunc(suppliesHandler.Create)))
	mux.Handle("GET /api/supplies/{id}", authMW(http.HandlerFunc(suppliesHandler.Get)))
	mux.Handle("DELETE /api/supplies/{id}", authMW(requireManager(http.HandlerFunc(suppliesHandler.Delete))))

	// Orders (all roles).
	mux.Handle("GET /api/orders", authMW(http.HandlerFunc(ordersHandler.List)))
	mux.Handle("POST /api/orders", authMW(http.HandlerFunc(ordersHandler.Create)))
	mux.Handle("GET /api/orders/{id}", authMW(http.HandlerFunc(ordersHandler.Get)))
	mux.Handle("PATCH /api/orders/{id}", authMW(http.HandlerFunc(ordersHandler.SetStatus)))
	mux.Handle("DELETE /api/orders/{id}", authMW(requireManager(http.HandlerFunc(ordersHandler.Delete))))

	return mux
}
