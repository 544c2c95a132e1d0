/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/summary          Reconciliation picture
  /api/movements/*      The posted book (plus CSV export)
  /api/collections/*    Street collections
  /api/sponsorships/*   Sponsorships
  /api/dinners/*        Dinners, guests, expenses, posting
  /api/beneficiaries    Household accounts
  /api/allocations/*    The grant ledger
  /api/rotation/*       Block rotation
  /api/settings         Singleton configuration
  /api/audit            Operation trail
  /*                    Static files (frontend)

STATIC FILE SERVING:
  In production, serves the built frontend from web/dist/.
  Falls back to index.html for client-side routing.

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", h.GetSummary)

		// Movement routes
		r.Route("/movements", func(r chi.Router) {
			r.Get("/", h.ListMovements)
			r.Post("/", h.CreateMovement)
			r.Put("/{id}", h.UpdateMovement)
			r.Delete("/{id}", h.DeleteMovement)
		})
		r.Get("/export/movements.csv", h.ExportMovementsCSV)

		// Collection routes
		r.Route("/collections", func(r chi.Router) {
			r.Get("/", h.ListCollections)
			r.Post("/", h.CreateCollection)
			r.Put("/{id}", h.UpdateCollection)
			r.Delete("/{id}", h.DeleteCollection)
		})

		// Sponsorship routes
		r.Route("/sponsorships", func(r chi.Router) {
			r.Get("/", h.ListSponsorships)
			r.Post("/", h.CreateSponsorship)
			r.Put("/{id}", h.UpdateSponsorship)
			r.Delete("/{id}", h.DeleteSponsorship)
		})

		// Dinner routes (guests and expenses nest under a dinner)
		r.Route("/dinners", func(r chi.Router) {
			r.Get("/", h.ListDinners)
			r.Post("/", h.CreateDinner)
			r.Get("/{id}", h.GetDinner)
			r.Put("/{id}", h.UpdateDinner)
			r.Delete("/{id}", h.DeleteDinner)
			r.Post("/{id}/post", h.PostDinner)

			r.Post("/{id}/guests", h.CreateGuest)
			r.Put("/{id}/guests/{guestID}", h.UpdateGuest)
			r.Delete("/{id}/guests/{guestID}", h.DeleteGuest)

			r.Post("/{id}/expenses", h.CreateExpenseItem)
			r.Put("/{id}/expenses/{expenseID}", h.UpdateExpenseItem)
			r.Delete("/{id}/expenses/{expenseID}", h.DeleteExpenseItem)
		})

		// Beneficiary / allocation routes
		r.Get("/beneficiaries", h.ListBeneficiaries)
		r.Route("/allocations", func(r chi.Router) {
			r.Get("/", h.ListAllocations)
			r.Post("/", h.ApplyAllocation)
			r.Put("/{id}", h.EditAllocation)
			r.Delete("/{id}", h.DeleteAllocation)
		})

		// Rotation routes
		r.Route("/rotation", func(r chi.Router) {
			r.Get("/", h.GetRotation)
			r.Post("/apply", h.ApplyRotation)
			r.Put("/start", h.SetRotationStart)
		})

		// Settings routes
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// Audit trail
		r.Get("/audit", h.ListAuditEvents)
	})

	// Serve static files (frontend build)
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Fund Ledger</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Fund Ledger API</h1>
<p>The frontend is not built yet. Run <code>cd web && npm install && npm run build</code></p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/summary">/api/summary</a> - Reconciliation summary</li>
<li><a href="/api/movements">/api/movements</a> - Posted transactions</li>
<li><a href="/api/beneficiaries">/api/beneficiaries</a> - Household accounts</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
