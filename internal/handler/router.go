package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/wellnessreal/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сайта.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(custommiddleware.Recoverer(h.logger))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Health)

	r.Route("/cliente/{token}", func(r chi.Router) {
		r.Get("/", h.ClientProposal)
		r.Post("/sign", h.SignProposal)
		r.Post("/payment", h.ChooseTransfer)
	})

	r.Post("/stripe/checkout", h.Checkout)
	r.Post("/stripe/webhook", h.StripeWebhook)

	r.Get("/posts", h.ListPublishedPosts)
	r.Get("/posts/{slug}", h.GetPublishedPost)
	r.Get("/categories", h.ListCategories)
	r.Post("/contact", h.Contact)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Route("/proposals", func(r chi.Router) {
				r.Get("/", h.ListProposals)
				r.Post("/", h.CreateProposal)
				r.Get("/{id}", h.GetProposal)
				r.Delete("/{id}", h.DeleteProposal)
				r.Post("/{id}/confirm-payment", h.ConfirmPayment)
			})

			r.Route("/blog", func(r chi.Router) {
				r.Get("/", h.ListPosts)
				r.Post("/", h.CreatePost)
				r.Post("/upload", h.UploadImage)

				r.Get("/categories", h.ListCategories)
				r.Post("/categories", h.CreateCategory)
				r.Patch("/categories/{id}", h.UpdateCategory)
				r.Delete("/categories/{id}", h.DeleteCategory)

				r.Get("/{id}", h.GetPost)
				r.Patch("/{id}", h.UpdatePost)
				r.Delete("/{id}", h.DeletePost)
			})

			r.Get("/dashboard/stats", h.DashboardStats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
