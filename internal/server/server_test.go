package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kiesman99/spritesheet/internal/api"
)

// Test server setup
func setupTestServer() *httptest.Server {
	apiServer := NewServer("2.0.0-test", log.New(io.Discard))
	return httptest.NewServer(NewRouter(apiServer, 30*time.Second))
}

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

type part struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func scenarioParts(t *testing.T) []part {
	return []part{
		{api.ImagesField, "a.png", pngBytes(t, 10, 10, color.RGBA{255, 0, 0, 255})},
		{api.ImagesField, "b.png", pngBytes(t, 20, 15, color.RGBA{0, 255, 0, 255})},
		{api.ImagesField, "c.png", pngBytes(t, 10, 10, color.RGBA{0, 0, 255, 255})},
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var healthResp api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if healthResp.Status != api.Healthy {
		t.Errorf("Expected status 'healthy', got %s", healthResp.Status)
	}

	if healthResp.Version == nil || *healthResp.Version != "2.0.0-test" {
		t.Errorf("Expected version '2.0.0-test', got %v", healthResp.Version)
	}

	if healthResp.Uptime == nil || *healthResp.Uptime < 0 {
		t.Errorf("Expected valid uptime, got %v", healthResp.Uptime)
	}

	if time.Since(healthResp.Timestamp) > time.Minute {
		t.Errorf("Timestamp seems too old: %v", healthResp.Timestamp)
	}
}

func TestLegacyHealthRedirect(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("Expected status 301, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/v1/health" {
		t.Errorf("Expected redirect to /api/v1/health, got %s", loc)
	}
}

func TestSpritesheetEndpoint_Success(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	body, contentType := multipartBody(t, scenarioParts(t)...)
	resp, err := http.Post(server.URL+"/api/v1/spritesheet?max_cols=2", contentType, body)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(b))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %s", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
	if tile := resp.Header.Get("X-Sprite-Tile"); tile != "20x15" {
		t.Errorf("Expected X-Sprite-Tile 20x15, got %s", tile)
	}
	if grid := resp.Header.Get("X-Sprite-Grid"); grid != "2x2" {
		t.Errorf("Expected X-Sprite-Grid 2x2, got %s", grid)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	if len(imageData) < 8 || !bytes.Equal(imageData[:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		t.Fatal("Response does not appear to be a valid PNG file")
	}

	img, err := png.Decode(bytes.NewReader(imageData))
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Errorf("Expected 40x30 sheet, got %v", img.Bounds())
	}
	if _, g, _, _ := img.At(20, 0).RGBA(); g>>8 != 255 {
		t.Errorf("Expected second image at (20,0), got %v", img.At(20, 0))
	}
}

func TestSpritesheetEndpoint_Formats(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	testCases := []struct {
		format      string
		contentType string
		decode      func(io.Reader) (image.Image, error)
	}{
		{"jpeg", "image/jpeg", jpeg.Decode},
		{"gif", "image/gif", gif.Decode},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			body, contentType := multipartBody(t, scenarioParts(t)...)
			resp, err := http.Post(server.URL+"/api/v1/spritesheet?max_cols=3&format="+tc.format, contentType, body)
			if err != nil {
				t.Fatalf("Failed to make request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(b))
			}
			if ct := resp.Header.Get("Content-Type"); ct != tc.contentType {
				t.Errorf("Expected Content-Type %s, got %s", tc.contentType, ct)
			}

			img, err := tc.decode(resp.Body)
			if err != nil {
				t.Fatalf("Failed to decode %s: %v", tc.format, err)
			}
			if img.Bounds() != image.Rect(0, 0, 60, 15) {
				t.Errorf("Expected 60x15 sheet, got %v", img.Bounds())
			}
		})
	}
}

func TestSpritesheetEndpoint_ZeroColumns(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	body, contentType := multipartBody(t, scenarioParts(t)...)
	resp, err := http.Post(server.URL+"/api/v1/spritesheet?max_cols=0", contentType, body)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if grid := resp.Header.Get("X-Sprite-Grid"); grid != "1x3" {
		t.Errorf("Expected X-Sprite-Grid 1x3, got %s", grid)
	}
}

func TestSpritesheetEndpoint_Errors(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	testCases := []struct {
		name           string
		query          string
		parts          []part
		rawBody        string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Non-numeric max_cols",
			query:          "?max_cols=abc",
			parts:          scenarioParts(t),
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.INVALIDPARAMETER,
		},
		{
			name:           "Negative max_cols",
			query:          "?max_cols=-2",
			parts:          scenarioParts(t),
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.INVALIDPARAMETER,
		},
		{
			name:           "Unknown format",
			query:          "?format=webp",
			parts:          scenarioParts(t),
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.INVALIDPARAMETER,
		},
		{
			name:           "Canvas too large",
			query:          "?max_cols=100000000",
			parts:          scenarioParts(t),
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.VALIDATIONERROR,
		},
		{
			name:           "No images",
			parts:          []part{{"other", "a.png", pngBytes(t, 2, 2, color.RGBA{})}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.VALIDATIONERROR,
		},
		{
			name:           "Not multipart",
			rawBody:        `{"images": []}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.VALIDATIONERROR,
		},
		{
			name:           "Undecodable image",
			parts:          []part{{api.ImagesField, "broken.png", []byte("not an image")}},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  api.DECODEERROR,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			contentType := "application/json"
			if tc.rawBody != "" {
				body = strings.NewReader(tc.rawBody)
			} else {
				body, contentType = multipartBody(t, tc.parts...)
			}

			resp, err := http.Post(server.URL+"/api/v1/spritesheet"+tc.query, contentType, body)
			if err != nil {
				t.Fatalf("Failed to make request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.expectedStatus {
				responseBody, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected status %d, got %d. Body: %s", tc.expectedStatus, resp.StatusCode, string(responseBody))
			}

			var errorResp api.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}

			if errorResp.Error != tc.expectedError {
				t.Errorf("Expected error code %s, got %s", tc.expectedError, errorResp.Error)
			}
			if errorResp.RequestId == nil || *errorResp.RequestId == "" {
				t.Error("Expected request_id in error response")
			}
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	req, err := http.NewRequest("OPTIONS", server.URL+"/api/v1/spritesheet", nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected Access-Control-Allow-Origin: *")
	}

	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST") {
		t.Error("Expected Access-Control-Allow-Methods to include POST")
	}

	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type") {
		t.Error("Expected Access-Control-Allow-Headers to include Content-Type")
	}
}
