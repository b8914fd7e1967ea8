package handler

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"insightsapi/internal/http/middleware"
	"insightsapi/internal/model"
	"insightsapi/internal/service"
)

// adminRequest is the admin write API payload: one action plus its arguments.
type adminRequest struct {
	Action  string              `json:"action"`
	Insight *model.InsightInput `json:"insight"`
	Index   *int                `json:"index"`
}

// adminResponse is the mutation response envelope: the affected record plus
// the refreshed collection so the admin UI can re-render without a second call.
type adminResponse struct {
	Success  bool            `json:"success"`
	Data     *model.Insight  `json:"data,omitempty"`
	Insights []model.Insight `json:"insights"`
	Count    int             `json:"count"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, insights service.InsightService, images service.ImageService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/health", HealthCheck(insights))
	app.Get("/healthz", LivenessProbe())

	// Public read API, anonymous CORS reads only.
	public := app.Group("/api", middleware.CORS())
	public.Get("/insights", PublicInsights(insights))
	public.Get("/insights/:slug", InsightBySlug(insights))

	// Admin write API.
	app.Post("/api/insights", AdminInsights(insights))
	app.Post("/api/images", UploadImage(images))
}

// HealthCheck reports whether the remote backing store is reachable.
func HealthCheck(insights service.InsightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := insights.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// PublicInsights returns the published subset, newest-first.
func PublicInsights(insights service.InsightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(insights.Published(c.UserContext()))
	}
}

// InsightBySlug returns a single published insight addressed by its slug.
func InsightBySlug(insights service.InsightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		found, err := insights.FindBySlug(c.UserContext(), c.Params("slug"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "insight not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(found)
	}
}

// AdminInsights is the single admin endpoint dispatching get/add/edit/delete
// actions over the insights collection.
func AdminInsights(insights service.InsightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req adminRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}

		ctx := c.UserContext()

		switch req.Action {
		case "get":
			// Stored order, so returned positions stay valid as edit/delete
			// arguments.
			return c.JSON(insights.List(ctx))

		case "add":
			created, all, err := insights.Add(ctx, req.Insight)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.JSON(adminResponse{Success: true, Data: created, Insights: all, Count: len(all)})

		case "edit":
			sess, err := sessionFromRequest(req)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_INDEX", "index is required")
			}
			updated, all, err := insights.Edit(ctx, sess.Index, req.Insight)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.JSON(adminResponse{Success: true, Data: updated, Insights: all, Count: len(all)})

		case "delete":
			sess, err := sessionFromRequest(req)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_INDEX", "index is required")
			}
			removed, all, err := insights.Delete(ctx, sess.Index)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.JSON(adminResponse{Success: true, Data: removed, Insights: all, Count: len(all)})

		default:
			return writeError(c, fiber.StatusBadRequest, "INVALID_ACTION", "invalid action")
		}
	}
}

// sessionFromRequest builds the editing context for index-addressed actions.
func sessionFromRequest(req adminRequest) (model.EditorSession, error) {
	if req.Index == nil {
		return model.EditorSession{}, errors.New("index is required")
	}
	sess := model.EditorSession{Index: *req.Index}
	if req.Insight != nil && req.Insight.Title != nil {
		sess.Insight.Title = *req.Insight.Title
	}
	return sess, nil
}

// UploadImage stores an article image and returns its durable URL. It accepts
// either a multipart "file" field or a raw body with a filename query param.
func UploadImage(images service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}

			img, err := images.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size)
			if err != nil {
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "url": img.URL, "pathname": img.Pathname})
		}

		// Raw body upload with the filename passed as a query parameter.
		body := c.Body()
		if len(body) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		filename := c.Query("filename", "image.jpg")
		ct := c.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		img, err := images.Upload(c.UserContext(), bytes.NewReader(body), filename, ct, int64(len(body)))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "url": img.URL, "pathname": img.Pathname})
	}
}

// writeServiceError translates service sentinel errors into the response
// envelope without leaking internals.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrTitleRequired):
		return writeError(c, fiber.StatusBadRequest, "TITLE_REQUIRED", "title is required")
	case errors.Is(err, service.ErrInsightRequired):
		return writeError(c, fiber.StatusBadRequest, "INSIGHT_REQUIRED", "insight data is required")
	case errors.Is(err, service.ErrInvalidInsight):
		return writeError(c, fiber.StatusBadRequest, "INVALID_INSIGHT", "invalid insight data")
	case errors.Is(err, service.ErrIndexOutOfRange):
		return writeError(c, fiber.StatusBadRequest, "INVALID_INDEX", "index out of range")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "insight not found")
	case errors.Is(err, service.ErrConflict):
		return writeError(c, fiber.StatusConflict, "CONFLICT", "insights changed concurrently, retry")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
