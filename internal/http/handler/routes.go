package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/docs"
	"docvault/internal/config"
	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Document routes
// require an identified caller. db may be nil when the catalog is in memory.
func RegisterRoutes(app *fiber.App, db Pinger, docSvc service.DocumentService, auth config.AuthConfig, gatherer prometheus.Gatherer) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	api := app.Group("/api/v1/documents", middleware.Identity(auth))
	api.Post("/upload", UploadDocument(docSvc))
	api.Get("/search", SearchDocuments(docSvc))
	api.Get("/path", FindByPath(docSvc))
	api.Get("/mine", ListMyDocuments(docSvc))
	api.Get("/:id/metadata", GetDocumentMetadata(docSvc))
	api.Get("/:id", DownloadDocument(docSvc))
	api.Delete("/:id", DeleteDocument(docSvc))
}
