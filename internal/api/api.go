// Package api holds the HTTP contract of the spritesheet server: request
// parameters, response bodies and the chi wiring that binds query parameters
// before handing requests to a ServerInterface.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Defines values for HealthResponseStatus.
const (
	Healthy HealthResponseStatus = "healthy"
)

// Defines values for CreateSpritesheetParamsFormat.
const (
	Bmp  CreateSpritesheetParamsFormat = "bmp"
	Gif  CreateSpritesheetParamsFormat = "gif"
	Jpeg CreateSpritesheetParamsFormat = "jpeg"
	Png  CreateSpritesheetParamsFormat = "png"
	Tiff CreateSpritesheetParamsFormat = "tiff"
)

// Error codes returned in ErrorResponse.Error.
const (
	INVALIDPARAMETER = "INVALID_PARAMETER"
	VALIDATIONERROR  = "VALIDATION_ERROR"
	DECODEERROR      = "DECODE_ERROR"
	INTERNALERROR    = "INTERNAL_ERROR"
)

// ImagesField is the multipart field carrying the images to composite.
const ImagesField = "images"

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Details   *map[string]interface{} `json:"details,omitempty"`
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// CreateSpritesheetParams defines parameters for CreateSpritesheet.
type CreateSpritesheetParams struct {
	// MaxCols maximum number of tile columns, 0 means 1
	MaxCols *int `form:"max_cols,omitempty" json:"max_cols,omitempty"`

	// Format output image format
	Format *CreateSpritesheetParamsFormat `form:"format,omitempty" json:"format,omitempty"`
}

// CreateSpritesheetParamsFormat defines parameters for CreateSpritesheet.
type CreateSpritesheetParamsFormat string

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Health check
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// Composite uploaded images into a spritesheet
	// (POST /spritesheet)
	CreateSpritesheet(w http.ResponseWriter, r *http.Request, params CreateSpritesheetParams)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetHealth(w, r)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// CreateSpritesheet operation middleware
func (siw *ServerInterfaceWrapper) CreateSpritesheet(w http.ResponseWriter, r *http.Request) {
	var err error

	// Parameter object where we will unmarshal all parameters from the context
	var params CreateSpritesheetParams

	// ------------- Optional query parameter "max_cols" -------------

	err = runtime.BindQueryParameter("form", true, false, "max_cols", r.URL.Query(), &params.MaxCols)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "max_cols", Err: err})
		return
	}

	// ------------- Optional query parameter "format" -------------

	err = runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "format", Err: err})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreateSpritesheet(w, r, params)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// Handler creates http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/spritesheet", wrapper.CreateSpritesheet)
	})

	return r
}
