package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeVectorDimMismatch      ErrorResponseCode = "vector_dim_mismatch"
	ErrorResponseCodeUnsupportedMethod      ErrorResponseCode = "unsupported_method"
	ErrorResponseCodeNotFound               ErrorResponseCode = "not_found"
	ErrorResponseCodeAlreadyExists          ErrorResponseCode = "already_exists"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// FieldDefinition declares a metadata property.
type FieldDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// VectorDefinition declares a named vector. An empty name means "default".
type VectorDefinition struct {
	Name       string `json:"name,omitempty"`
	Dimensions int    `json:"dimensions"`
	Method     string `json:"method,omitempty"`
}

// CollectionRequest is the body of PUT /collections/{collection}.
type CollectionRequest struct {
	Fields       []FieldDefinition  `json:"fields,omitempty"`
	Vectors      []VectorDefinition `json:"vectors"`
	MultiTenancy bool               `json:"multi_tenancy,omitempty"`
}

// Collection is the collection resource.
type Collection struct {
	Name         string             `json:"name"`
	Fields       []FieldDefinition  `json:"fields"`
	Vectors      []VectorDefinition `json:"vectors"`
	MultiTenancy bool               `json:"multi_tenancy"`
	CreatedAt    int64              `json:"created_at"`
	Revision     int                `json:"revision"`
}

// ChunkRequest is one chunk of a persisted document. Embedding is shorthand
// for the default vector.
type ChunkRequest struct {
	ChunkID        string               `json:"chunk_id,omitempty"`
	Content        string               `json:"content"`
	HierarchyLevel int                  `json:"hierarchy_level"`
	OriginalSpan   [2]int               `json:"original_span"`
	ParentID       string               `json:"parent_id,omitempty"`
	Embedding      []float32            `json:"embedding,omitempty"`
	Vectors        map[string][]float32 `json:"vectors,omitempty"`
}

// DocumentRequest is the body of POST /collections/{collection}/documents.
type DocumentRequest struct {
	Filename string         `json:"filename"`
	Metadata map[string]any `json:"document_metadata,omitempty"`
	Chunks   []ChunkRequest `json:"chunks"`
}

// PersistResponse reports the outcome of a document write.
type PersistResponse struct {
	Inserted int `json:"inserted"`
	Replaced int `json:"replaced"`
}

// ChunkResult is one chunk of a search response.
type ChunkResult struct {
	ChunkID        string    `json:"chunk_id"`
	Content        string    `json:"content"`
	OriginalSpan   [2]int    `json:"original_span"`
	HierarchyLevel int       `json:"hierarchy_level"`
	ParentID       *string   `json:"parent_id"`
	Embedding      []float32 `json:"embedding,omitempty"`
	Distance       float64   `json:"distance"`
	Role           string    `json:"role"`
}

// DocumentResult groups the chunks of one source document.
type DocumentResult struct {
	Filename         string         `json:"filename"`
	DocumentMetadata map[string]any `json:"document_metadata"`
	Chunks           []ChunkResult  `json:"chunks"`
}

// Warning is a recoverable per-item diagnostic.
type Warning struct {
	Code    string `json:"code"`
	ChunkID string `json:"chunk_id,omitempty"`
	Message string `json:"message"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Documents []DocumentResult `json:"documents"`
	Warnings  []Warning        `json:"warnings"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Checks     map[string]string `json:"checks"`
	TextSearch bool              `json:"text_search"`
	Version    string            `json:"version"`
}

// CollectionName is the {collection} path parameter.
type CollectionName = string

// TenantName is the {tenant} path parameter.
type TenantName = string

// PutCollectionParams are the query parameters of PUT /collections/{collection}.
type PutCollectionParams struct {
	Idempotent *bool `form:"idempotent,omitempty" json:"idempotent,omitempty"`
}

// PutTenantParams are the query parameters of PUT /collections/{collection}/tenants/{tenant}.
type PutTenantParams struct {
	Idempotent *bool `form:"idempotent,omitempty" json:"idempotent,omitempty"`
}

// PersistDocumentParams are the query parameters of POST /collections/{collection}/documents.
type PersistDocumentParams struct {
	Tenant *string `form:"tenant,omitempty" json:"tenant,omitempty"`
}

// ServerInterface is the HTTP API surface.
type ServerInterface interface {
	// (POST /search)
	Search(w http.ResponseWriter, r *http.Request)
	// (POST /search/text)
	SearchText(w http.ResponseWriter, r *http.Request)
	// (PUT /collections/{collection})
	PutCollection(w http.ResponseWriter, r *http.Request, collection CollectionName, params PutCollectionParams)
	// (GET /collections/{collection})
	GetCollection(w http.ResponseWriter, r *http.Request, collection CollectionName)
	// (PUT /collections/{collection}/tenants/{tenant})
	PutTenant(w http.ResponseWriter, r *http.Request, collection CollectionName, tenant TenantName, params PutTenantParams)
	// (POST /collections/{collection}/documents)
	PersistDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, params PersistDocumentParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a path or query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds parameters and dispatches to a ServerInterface.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func pathParam(r *http.Request, name string, dest any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return nil
}

func queryParam(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return nil
}

// Search operation middleware.
func (siw *ServerInterfaceWrapper) Search(w http.ResponseWriter, r *http.Request) {
	siw.Handler.Search(w, r)
}

// SearchText operation middleware.
func (siw *ServerInterfaceWrapper) SearchText(w http.ResponseWriter, r *http.Request) {
	siw.Handler.SearchText(w, r)
}

// PutCollection operation middleware.
func (siw *ServerInterfaceWrapper) PutCollection(w http.ResponseWriter, r *http.Request) {
	var collection CollectionName
	if err := pathParam(r, "collection", &collection); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	var params PutCollectionParams
	if err := queryParam(r, "idempotent", &params.Idempotent); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	siw.Handler.PutCollection(w, r, collection, params)
}

// GetCollection operation middleware.
func (siw *ServerInterfaceWrapper) GetCollection(w http.ResponseWriter, r *http.Request) {
	var collection CollectionName
	if err := pathParam(r, "collection", &collection); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	siw.Handler.GetCollection(w, r, collection)
}

// PutTenant operation middleware.
func (siw *ServerInterfaceWrapper) PutTenant(w http.ResponseWriter, r *http.Request) {
	var (
		collection CollectionName
		tenant     TenantName
		params     PutTenantParams
	)
	if err := pathParam(r, "collection", &collection); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	if err := pathParam(r, "tenant", &tenant); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	if err := queryParam(r, "idempotent", &params.Idempotent); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	siw.Handler.PutTenant(w, r, collection, tenant, params)
}

// PersistDocument operation middleware.
func (siw *ServerInterfaceWrapper) PersistDocument(w http.ResponseWriter, r *http.Request) {
	var collection CollectionName
	if err := pathParam(r, "collection", &collection); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	var params PersistDocumentParams
	if err := queryParam(r, "tenant", &params.Tenant); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	siw.Handler.PersistDocument(w, r, collection, params)
}

// HealthCheck operation middleware.
func (siw *ServerInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.Handler.HealthCheck(w, r)
}

// Metrics operation middleware.
func (siw *ServerInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.Handler.Metrics(w, r)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates an http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates an http.Handler with additional options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Post(base+"/search", wrapper.Search)
		r.Post(base+"/search/text", wrapper.SearchText)
		r.Put(base+"/collections/{collection}", wrapper.PutCollection)
		r.Get(base+"/collections/{collection}", wrapper.GetCollection)
		r.Put(base+"/collections/{collection}/tenants/{tenant}", wrapper.PutTenant)
		r.Post(base+"/collections/{collection}/documents", wrapper.PersistDocument)
		r.Get(base+"/health", wrapper.HealthCheck)
		r.Get(base+"/metrics", wrapper.Metrics)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
