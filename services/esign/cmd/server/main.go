package main

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Blaineeey/Planning-Suite-sub000/pkg/db"
	"github.com/Blaineeey/Planning-Suite-sub000/pkg/httpx"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/api"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/auth"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/esign"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/metrics"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/notify"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/store"
)

func main() {
	_ = godotenv.Load()

	pool := db.MustConnect()
	st := store.New(pool)

	baseURL := os.Getenv("PUBLIC_WEB_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	jwtSecret := os.Getenv("ESIGN_JWT_SECRET")
	if jwtSecret == "" {
		panic("ESIGN_JWT_SECRET is required")
	}
	port := os.Getenv("SERVICE_PORT")
	if port == "" {
		port = "8084"
	}

	svc := esign.NewService(st, notify.Log{}, baseURL)
	h := api.New(svc)
	metrics.Register()

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/esign", func(root chi.Router) {
		root.Group(h.PublicRoutes)
		root.Group(func(staff chi.Router) {
			staff.Use(auth.Middleware(jwtSecret))
			h.StaffRoutes(staff)
		})

		// DEV helper to seed a contract for smoke tests
		root.Post("/dev/seed-contract", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				OrganizationID string `json:"organization_id"`
				Title          string `json:"title"`
				Content        string `json:"content"`
				Terms          string `json:"terms"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			c := esign.Contract{
				ContractID:     "ctr_" + uuid.NewString(),
				OrganizationID: req.OrganizationID,
				Title:          req.Title,
				Content:        req.Content,
				Terms:          req.Terms,
				Status:         esign.ContractDraft,
			}
			if err := st.CreateContract(r.Context(), c); err != nil {
				httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
				return
			}
			httpx.WriteOK(w, 200, map[string]any{"contract_id": c.ContractID})
		})
	})

	http.ListenAndServe(":"+port, r)
}
