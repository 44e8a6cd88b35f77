package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kiesman99/spritesheet/internal/api"
	"github.com/kiesman99/spritesheet/internal/pack"
	"github.com/kiesman99/spritesheet/internal/sheet"
	"github.com/kiesman99/spritesheet/pkg/sprite"
)

// maxUploadMemory is how much of a multipart body is held in memory before
// spilling parts to temporary files.
const maxUploadMemory = 32 << 20

// Server implements the ServerInterface from the api package
type Server struct {
	startTime time.Time
	version   string
	logger    *log.Logger
}

// NewServer creates a new server instance
func NewServer(version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		startTime: time.Now(),
		version:   version,
		logger:    logger,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Error encoding health response", "err", err)
	}
}

// CreateSpritesheet composites the uploaded images into one sheet
func (s *Server) CreateSpritesheet(w http.ResponseWriter, r *http.Request, params api.CreateSpritesheetParams) {
	requestID := uuid.NewString()

	opts, err := s.convertToBundleOptions(params)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDPARAMETER, err.Error(), &requestID, nil)
		return
	}

	uploads, err := s.readUploads(r)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.VALIDATIONERROR, err.Error(), &requestID, nil)
		return
	}

	result, err := pack.Bundle(r.Context(), uploads, opts)
	if err != nil {
		s.handleBundleError(w, err, &requestID)
		return
	}

	s.logger.Info("Composed spritesheet",
		"request_id", requestID,
		"images", len(uploads),
		"grid", fmt.Sprintf("%dx%d", result.Layout.Columns, result.Layout.Rows),
	)

	w.Header().Set("Content-Type", sprite.ContentType(opts.Format))
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Sprite-Tile", fmt.Sprintf("%dx%d", result.Layout.TileWidth, result.Layout.TileHeight))
	w.Header().Set("X-Sprite-Grid", fmt.Sprintf("%dx%d", result.Layout.Columns, result.Layout.Rows))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.ImageData)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.ImageData); err != nil {
		s.logger.Error("Error writing response", "request_id", requestID, "err", err)
	}
}

// ParamError reports a query parameter that failed to bind
func (s *Server) ParamError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := uuid.NewString()
	s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDPARAMETER, err.Error(), &requestID, nil)
}

func (s *Server) convertToBundleOptions(params api.CreateSpritesheetParams) (pack.BundleOptions, error) {
	opts := pack.BundleOptions{
		MaxCols: sprite.DefaultMaxCols,
		Format:  sprite.FormatPNG,
	}

	if params.MaxCols != nil {
		if *params.MaxCols < 0 {
			return opts, fmt.Errorf("max_cols must be a non-negative integer")
		}
		opts.MaxCols = *params.MaxCols
	}

	if params.Format != nil {
		format, err := sprite.ParseFormat(string(*params.Format))
		if err != nil {
			return opts, err
		}
		opts.Format = format
	}

	return opts, nil
}

// readUploads collects the image parts in the order they were sent
func (s *Server) readUploads(r *http.Request) ([]pack.Upload, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[api.ImagesField]
	if len(headers) == 0 {
		return nil, fmt.Errorf("%s: expected at least one %q part", sheet.ErrNoImages, api.ImagesField)
	}

	uploads := make([]pack.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("can't open %s: %v", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("can't read %s: %v", fh.Filename, err)
		}
		uploads = append(uploads, pack.Upload{Name: fh.Filename, Data: data})
	}

	return uploads, nil
}

// handleBundleError maps bundling failures to responses
func (s *Server) handleBundleError(w http.ResponseWriter, err error, requestID *string) {
	var decodeErr *pack.DecodeError
	if errors.As(err, &decodeErr) {
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, api.DECODEERROR,
			decodeErr.Error(), requestID, map[string]interface{}{
				"file": decodeErr.Name,
			})
		return
	}

	if errors.Is(err, sheet.ErrNoImages) || errors.Is(err, sheet.ErrCanvasTooLarge) {
		s.writeErrorResponse(w, http.StatusBadRequest, api.VALIDATIONERROR, err.Error(), requestID, nil)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.writeErrorResponse(w, http.StatusGatewayTimeout, "TIMEOUT",
			"Request timed out", requestID, nil)
		return
	}

	s.logger.Error("Bundling failed", "request_id", *requestID, "err", err)
	s.writeErrorResponse(w, http.StatusInternalServerError, api.INTERNALERROR,
		"Internal server error", requestID, nil)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
