package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/database"
	"github.com/example/bazaar/internal/handlers"
	"github.com/example/bazaar/internal/models"
	"github.com/example/bazaar/internal/routes"
	"github.com/example/bazaar/internal/services"
	"github.com/example/bazaar/internal/utils"
)

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	cfg       *config.Config
	uploadDir string
}

// setupTestEnv wires the full route table against an in-memory SQLite
// database and a temporary upload directory.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		AppPort:             "0",
		JWTSecret:           "test-secret",
		TokenExpires:        7 * 24 * time.Hour,
		OTPExpires:          5 * time.Minute,
		UploadDir:           t.TempDir(),
		ExposeOTPInResponse: true,
	}

	images, err := services.NewImageService(cfg.UploadDir)
	if err != nil {
		t.Fatalf("failed to init image service: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.Register(app, db, cfg, images)

	return &testEnv{app: app, db: db, cfg: cfg, uploadDir: cfg.UploadDir}
}

func (e *testEnv) postJSON(t *testing.T, path string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *testEnv) request(t *testing.T, method, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

// multipartRequest builds a product form submission; each name in imageNames
// becomes a productImages file part with stub content.
func (e *testEnv) multipartRequest(t *testing.T, method, path string, fields map[string]string, imageNames []string, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field %s: %v", key, err)
		}
	}
	for _, name := range imageNames {
		part, err := writer.CreateFormFile("productImages", name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte("fake image bytes")); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	resp.Body.Close()

	body := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp, body
}

// createVerifiedUser inserts a verified user and returns a valid bearer token.
func (e *testEnv) createVerifiedUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()

	user := models.User{Email: &email, IsVerified: true, Role: models.RoleUser}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	token, err := utils.GenerateToken(e.cfg.JWTSecret, user.ID, e.cfg.TokenExpires)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return &user, token
}

func stringField(t *testing.T, body map[string]interface{}, key string) string {
	t.Helper()

	value, ok := body[key].(string)
	if !ok {
		t.Fatalf("expected string field %q in %v", key, body)
	}
	return value
}

func mapField(t *testing.T, body map[string]interface{}, key string) map[string]interface{} {
	t.Helper()

	value, ok := body[key].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object field %q in %v", key, body)
	}
	return value
}
