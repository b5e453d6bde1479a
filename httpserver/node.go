package httpserver

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ruteri/nildb-agentkit/api/clients"
	"github.com/ruteri/nildb-agentkit/cryptoutils"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/validation"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxBodySize is the maximum allowed request body size (4MB).
const maxBodySize = 4 * 1024 * 1024

// Record timestamps stamped by the node on create.
const (
	CreatedKey = "_created"
	UpdatedKey = "_updated"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

// RouteRegistrar is implemented by handlers mounted on a Server.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// NodeHandlerConfig configures one simulated storage node.
type NodeHandlerConfig struct {
	// DID is the node identifier. Bearer tokens must carry it as audience.
	DID string

	Store interfaces.ShardStore

	// Now is the clock used for token expiry and record timestamps.
	Now func() time.Time

	Log *slog.Logger
}

type issuerKey struct{}

// NodeHandler serves the storage protocol of a single node.
type NodeHandler struct {
	did   string
	store interfaces.ShardStore
	now   func() time.Time
	log   *slog.Logger

	mu       sync.RWMutex
	orgKeys  map[string]*ecdsa.PublicKey
	compiled map[string]*jsonschema.Schema
}

func NewNodeHandler(cfg NodeHandlerConfig) (*NodeHandler, error) {
	if cfg.DID == "" {
		return nil, errors.New("node DID is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("node store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &NodeHandler{
		did:      cfg.DID,
		store:    cfg.Store,
		now:      cfg.Now,
		log:      cfg.Log.With(slog.String("did", cfg.DID)),
		orgKeys:  make(map[string]*ecdsa.PublicKey),
		compiled: make(map[string]*jsonschema.Schema),
	}, nil
}

// DID returns the node identifier.
func (h *NodeHandler) DID() string {
	return h.did
}

// RegisterOrg allows bearer tokens issued by orgDID and signed with pub.
func (h *NodeHandler) RegisterOrg(orgDID string, pub *ecdsa.PublicKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orgKeys[orgDID] = pub
}

func (h *NodeHandler) issuerKey(issuer string) (*ecdsa.PublicKey, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pub, ok := h.orgKeys[issuer]
	if !ok {
		return nil, fmt.Errorf("unknown issuer %s", issuer)
	}
	return pub, nil
}

// RegisterRoutes mounts the storage protocol under /api/v1.
func (h *NodeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/schemas", h.wrap(h.handleListSchemas))
		r.Post("/schemas", h.wrap(h.handleCreateSchema))
		r.Post("/data/create", h.wrap(h.handleCreateData))
		r.Post("/data/read", h.wrap(h.handleReadData))
		r.Post("/data/delete", h.wrap(h.handleDeleteData))
	})
}

// authenticate requires an ES256K bearer issued by a registered org for this node.
func (h *NodeHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			writeEnvelope(w, http.StatusUnauthorized, nil, []any{"missing bearer token"})
			return
		}
		claims, err := cryptoutils.VerifyNodeToken(token, h.did, h.now(), h.issuerKey)
		if err != nil {
			h.log.Debug("Rejected bearer token", "err", err)
			writeEnvelope(w, http.StatusUnauthorized, nil, []any{"invalid bearer token: " + err.Error()})
			return
		}
		ctx := context.WithValue(r.Context(), issuerKey{}, claims.Issuer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func issuerFrom(ctx context.Context) string {
	issuer, _ := ctx.Value(issuerKey{}).(string)
	return issuer
}

// wrap turns a handler's result into an envelope response.
func (h *NodeHandler) wrap(fn func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		data, err := fn(r)
		if err != nil {
			status := http.StatusInternalServerError
			var reqErr *RequestError
			if errors.As(err, &reqErr) {
				status = reqErr.StatusCode
			}
			if status >= http.StatusInternalServerError {
				h.log.Error("Request failed", "err", err, slog.String("path", r.URL.Path))
			}
			writeEnvelope(w, status, nil, []any{err.Error()})
			return
		}
		writeEnvelope(w, http.StatusOK, data, nil)
	}
}

func writeEnvelope(w http.ResponseWriter, status int, data any, errs []any) {
	if errs == nil {
		errs = []any{}
	}
	body := struct {
		Data   any   `json:"data"`
		Errors []any `json:"errors"`
	}{Data: data, Errors: errs}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid request body: %w", err)
	}
	return nil
}

// handleListSchemas returns the schemas owned by the requesting organization.
func (h *NodeHandler) handleListSchemas(r *http.Request) (any, error) {
	entries, err := h.store.ListSchemas(r.Context())
	if err != nil {
		return nil, err
	}
	issuer := issuerFrom(r.Context())
	owned := make([]interfaces.SchemaEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Owner == "" || entry.Owner == issuer {
			owned = append(owned, entry)
		}
	}
	return owned, nil
}

func (h *NodeHandler) handleCreateSchema(r *http.Request) (any, error) {
	var entry interfaces.SchemaEntry
	if err := decodeBody(r, &entry); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(entry.ID); err != nil {
		return nil, badRequest("schema _id must be a uuid")
	}
	if entry.Name == "" {
		return nil, badRequest("schema name is required")
	}
	if entry.Schema == nil {
		return nil, badRequest("schema document is required")
	}
	if entry.Owner == "" {
		entry.Owner = issuerFrom(r.Context())
	}

	compiled, err := validation.Compile(entry.ID, entry.Schema)
	if err != nil {
		return nil, badRequest("%v", err)
	}

	if err := h.store.PutSchema(r.Context(), entry); err != nil {
		if errors.Is(err, interfaces.ErrSchemaExists) {
			return nil, &RequestError{StatusCode: http.StatusConflict, Err: err}
		}
		return nil, err
	}

	h.mu.Lock()
	h.compiled[entry.ID] = compiled
	h.mu.Unlock()

	h.log.Info("Schema created", slog.String("schema", entry.ID), slog.String("name", entry.Name))
	return map[string]any{interfaces.IDKey: entry.ID}, nil
}

// schemaFor returns the compiled validator of schemaID, compiling stored
// schemas on first use.
func (h *NodeHandler) schemaFor(ctx context.Context, schemaID string) (*jsonschema.Schema, error) {
	h.mu.RLock()
	compiled, ok := h.compiled[schemaID]
	h.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	entry, err := h.store.GetSchema(ctx, schemaID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, &RequestError{StatusCode: http.StatusNotFound, Err: err}
		}
		return nil, err
	}
	compiled, err = validation.Compile(entry.ID, entry.Schema)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.compiled[schemaID] = compiled
	h.mu.Unlock()
	return compiled, nil
}

func (h *NodeHandler) knownSchema(ctx context.Context, schemaID string) error {
	if schemaID == "" {
		return badRequest("schema is required")
	}
	_, err := h.schemaFor(ctx, schemaID)
	return err
}

func (h *NodeHandler) handleCreateData(r *http.Request) (any, error) {
	var req clients.CreateDataRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Schema == "" {
		return nil, badRequest("schema is required")
	}
	if len(req.Data) == 0 {
		return nil, badRequest("data must not be empty")
	}

	compiled, err := h.schemaFor(r.Context(), req.Schema)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(compiled, req.Data); err != nil {
		return nil, badRequest("data failed schema validation: %v", err)
	}

	stamp := h.now().UTC().Format(time.RFC3339)
	created := make([]string, len(req.Data))
	for i, record := range req.Data {
		id, ok := record[interfaces.IDKey].(string)
		if !ok || id == "" {
			return nil, badRequest("record %d has no _id", i)
		}
		created[i] = id
		record[CreatedKey] = stamp
		record[UpdatedKey] = stamp
	}

	if err := h.store.InsertRecords(r.Context(), req.Schema, req.Data); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateRecord) {
			return nil, &RequestError{StatusCode: http.StatusConflict, Err: err}
		}
		return nil, err
	}

	h.log.Debug("Records created", slog.String("schema", req.Schema), slog.Int("count", len(created)))
	return map[string]any{"created": created}, nil
}

func (h *NodeHandler) handleReadData(r *http.Request) (any, error) {
	var req clients.FilterRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := h.knownSchema(r.Context(), req.Schema); err != nil {
		return nil, err
	}

	records, err := h.store.FindRecords(r.Context(), req.Schema, req.Filter)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	if records == nil {
		records = []interfaces.Record{}
	}
	return records, nil
}

func (h *NodeHandler) handleDeleteData(r *http.Request) (any, error) {
	var req clients.FilterRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := h.knownSchema(r.Context(), req.Schema); err != nil {
		return nil, err
	}
	if len(req.Filter) == 0 {
		return nil, badRequest("delete requires a non-empty filter")
	}

	removed, err := h.store.DeleteRecords(r.Context(), req.Schema, req.Filter)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	h.log.Debug("Records deleted", slog.String("schema", req.Schema), slog.Int("count", removed))
	return map[string]any{"deletedCount": removed}, nil
}
