package invoicebilling

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/admin/downgrade"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/admin/extend"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/admin/resetcounter"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/admin/stats"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/health"
	invoicecreate "github.com/magabrotheeeer/invoice-billing/internal/http/handlers/invoice/create"
	invoicelist "github.com/magabrotheeeer/invoice-billing/internal/http/handlers/invoice/list"
	invoiceremove "github.com/magabrotheeeer/invoice-billing/internal/http/handlers/invoice/remove"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/payment/checkout"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/invoice-billing/internal/http/handlers/payment/verify"
	substatus "github.com/magabrotheeeer/invoice-billing/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/invoice-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/jwt"
	adminservice "github.com/magabrotheeeer/invoice-billing/internal/services/admin"
	authservice "github.com/magabrotheeeer/invoice-billing/internal/services/auth"
	invoiceservice "github.com/magabrotheeeer/invoice-billing/internal/services/invoice"
	paymentservice "github.com/magabrotheeeer/invoice-billing/internal/services/payment"
	subservice "github.com/magabrotheeeer/invoice-billing/internal/services/subscription"
)

// Services — сервисы, необходимые маршрутам приложения.
type Services struct {
	Auth         *authservice.Service
	Subscription *subservice.Service
	Payment      *paymentservice.Service
	Invoice      *invoiceservice.Service
	Admin        *adminservice.Service
	TokenMaker   jwt.Maker
	WebhookKey   string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(rate.Limit(50), 100)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.TokenMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))

			r.Get("/subscription", substatus.New(logger, svc.Subscription).ServeHTTP)

			r.Post("/payments/checkout", checkout.New(logger, svc.Payment).ServeHTTP)
			r.Post("/payments/verify", verify.New(logger, svc.Payment).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, svc.Payment).ServeHTTP)

			r.Post("/invoices", invoicecreate.New(logger, svc.Invoice).ServeHTTP)
			r.Get("/invoices", invoicelist.New(logger, svc.Invoice).ServeHTTP)
			r.Delete("/invoices/{id}", invoiceremove.New(logger, svc.Invoice).ServeHTTP)

			// Админские операции
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Get("/admin/stats", stats.New(logger, svc.Admin).ServeHTTP)
				r.Post("/admin/users/{uid}/extend", extend.New(logger, svc.Admin).ServeHTTP)
				r.Post("/admin/users/{uid}/downgrade", downgrade.New(logger, svc.Admin).ServeHTTP)
				r.Post("/admin/users/{uid}/reset-counter", resetcounter.New(logger, svc.Admin).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации, подпись проверяется в обработчике)
		r.Post("/payments/webhook", paymentwebhook.New(logger, svc.Payment, svc.WebhookKey).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
