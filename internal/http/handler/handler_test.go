package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gofiber/fiber/v2"

	"insightsapi/internal/model"
	"insightsapi/internal/service"
	serviceMocks "insightsapi/internal/service/mocks"
)

func postJSON(t *testing.T, path string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthCheck(t *testing.T) {
	mockSvc := new(serviceMocks.MockInsightService)
	app := fiber.New()
	app.Get("/health", HealthCheck(mockSvc))

	t.Run("healthy", func(t *testing.T) {
		mockSvc.On("Ping", mock.Anything).Return(nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		mockSvc.On("Ping", mock.Anything).Return(errors.New("upstream down")).Once()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPublicInsights(t *testing.T) {
	mockSvc := new(serviceMocks.MockInsightService)
	app := fiber.New()
	app.Get("/api/insights", PublicInsights(mockSvc))

	published := []model.Insight{
		{ID: "1", Title: "One", Slug: "one", Status: model.StatusPublished},
	}
	mockSvc.On("Published", mock.Anything).Return(published).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/insights", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []model.Insight
	json.NewDecoder(resp.Body).Decode(&got)
	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Slug)
	mockSvc.AssertExpectations(t)
}

func TestInsightBySlug(t *testing.T) {
	mockSvc := new(serviceMocks.MockInsightService)
	app := fiber.New()
	app.Get("/api/insights/:slug", InsightBySlug(mockSvc))

	t.Run("found", func(t *testing.T) {
		mockSvc.On("FindBySlug", mock.Anything, "contract-law-basics").
			Return(&model.Insight{ID: "1", Slug: "contract-law-basics"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/insights/contract-law-basics", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("FindBySlug", mock.Anything, "missing").
			Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/insights/missing", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})
}

func TestAdminInsights(t *testing.T) {
	newApp := func(mockSvc *serviceMocks.MockInsightService) *fiber.App {
		app := fiber.New()
		app.Post("/api/insights", AdminInsights(mockSvc))
		return app
	}

	str := func(s string) *string { return &s }
	intp := func(i int) *int { return &i }

	t.Run("get returns stored collection", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		mockSvc.On("List", mock.Anything).
			Return([]model.Insight{{ID: "1"}, {ID: "2"}}).Once()

		resp, _ := app.Test(postJSON(t, "/api/insights", map[string]any{"action": "get"}))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got []model.Insight
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Len(t, got, 2)
		mockSvc.AssertExpectations(t)
	})

	t.Run("add success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		created := &model.Insight{ID: "new", Title: "Contract Law Basics", Slug: "contract-law-basics"}
		mockSvc.On("Add", mock.Anything, mock.MatchedBy(func(in *model.InsightInput) bool {
			return in != nil && in.Title != nil && *in.Title == "Contract Law Basics"
		})).Return(created, []model.Insight{*created}, nil).Once()

		resp, _ := app.Test(postJSON(t, "/api/insights", adminRequest{
			Action:  "add",
			Insight: &model.InsightInput{Title: str("Contract Law Basics")},
		}))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body adminResponse
		json.NewDecoder(resp.Body).Decode(&body)
		assert.True(t, body.Success)
		assert.Equal(t, "new", body.Data.ID)
		assert.Equal(t, 1, body.Count)
		mockSvc.AssertExpectations(t)
	})

	t.Run("add validation error", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		mockSvc.On("Add", mock.Anything, mock.Anything).
			Return(nil, nil, service.ErrTitleRequired).Once()

		resp, _ := app.Test(postJSON(t, "/api/insights", adminRequest{
			Action:  "add",
			Insight: &model.InsightInput{},
		}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "TITLE_REQUIRED", body.Error.Code)
	})

	t.Run("edit success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		updated := &model.Insight{ID: "1", Status: model.StatusPublished}
		mockSvc.On("Edit", mock.Anything, 0, mock.Anything).
			Return(updated, []model.Insight{*updated}, nil).Once()

		resp, _ := app.Test(postJSON(t, "/api/insights", adminRequest{
			Action:  "edit",
			Index:   intp(0),
			Insight: &model.InsightInput{Status: str(model.StatusPublished)},
		}))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body adminResponse
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, model.StatusPublished, body.Data.Status)
		mockSvc.AssertExpectations(t)
	})

	t.Run("edit without index", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		resp, _ := app.Test(postJSON(t, "/api/insights", adminRequest{
			Action:  "edit",
			Insight: &model.InsightInput{Status: str(model.StatusPublished)},
		}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_INDEX", body.Error.Code)
	})

	t.Run("edit index out of range", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		mockSvc.On("Edit", mock.Anything, 9, mock.Anything).
			Return(nil, nil, service.ErrIndexOutOfRange).Once()

		resp, _ := app.Test(postJSON(t, "/api/insights", adminRequest{
			Action:  "edit",
			Index:   intp(9),
			Insight: &model.InsightInput{},
		}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_INDEX", body.Error.Code)
	})

	t.Run("delete success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		removed := &model.Insight{ID: "1", Title: "Gone"}
		mockSvc.On("Delete", mock.Anything, 1).
			Return(removed, []model.Insight{}, nil).Once()

		resp, _ := app.Test(postJSON(t, "/api/insights", adminRequest{
			Action: "delete",
			Index:  intp(1),
		}))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body adminResponse
		json.NewDecoder(resp.Body).Decode(&body)
		assert.True(t, body.Success)
		assert.Equal(t, "Gone", body.Data.Title)
		assert.Equal(t, 0, body.Count)
	})

	t.Run("write conflict surfaces 409", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		mockSvc.On("Delete", mock.Anything, 0).
			Return(nil, nil, service.ErrConflict).Once()

		resp, _ := app.Test(postJSON(t, "/api/insights", adminRequest{
			Action: "delete",
			Index:  intp(0),
		}))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "CONFLICT", body.Error.Code)
	})

	t.Run("invalid action", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockInsightService)
		app := newApp(mockSvc)

		resp, _ := app.Test(postJSON(t, "/api/insights", map[string]any{"action": "purge"}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_ACTION", body.Error.Code)
	})
}

func TestUploadImage(t *testing.T) {
	t.Run("multipart upload", func(t *testing.T) {
		mockImg := new(serviceMocks.MockImageService)
		app := fiber.New()
		app.Post("/api/images", UploadImage(mockImg))

		mockImg.On("Upload", mock.Anything, mock.Anything, "photo.jpg", "image/jpeg", mock.Anything).
			Return(&service.UploadedImage{
				URL:      "https://cdn.example.com/insights/images/photo-x.jpg",
				Pathname: "insights/images/photo-x.jpg",
			}, nil).Once()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="file"; filename="photo.jpg"`},
			"Content-Type":        {"image/jpeg"},
		})
		require.NoError(t, err)
		part.Write([]byte("jpeg bytes"))
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, true, body["success"])
		assert.Contains(t, body["url"], "photo-x.jpg")
		mockImg.AssertExpectations(t)
	})

	t.Run("raw body upload with filename query", func(t *testing.T) {
		mockImg := new(serviceMocks.MockImageService)
		app := fiber.New()
		app.Post("/api/images", UploadImage(mockImg))

		mockImg.On("Upload", mock.Anything, mock.Anything, "scan.png", "image/png", int64(9)).
			Return(&service.UploadedImage{URL: "u", Pathname: "p"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/images?filename=scan.png", strings.NewReader("png bytes"))
		req.Header.Set("Content-Type", "image/png")

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockImg.AssertExpectations(t)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		mockImg := new(serviceMocks.MockImageService)
		app := fiber.New()
		app.Post("/api/images", UploadImage(mockImg))

		req := httptest.NewRequest(http.MethodPost, "/api/images", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "FILE_REQUIRED", body.Error.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockImg := new(serviceMocks.MockImageService)
		app := fiber.New()
		app.Post("/api/images", UploadImage(mockImg))

		mockImg.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("storage fail")).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/images?filename=x.jpg", strings.NewReader("bytes"))
		req.Header.Set("Content-Type", "image/jpeg")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}
