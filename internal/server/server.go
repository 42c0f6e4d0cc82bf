// Package server exposes the filter engine over an HTTP JSON API: scheme
// registration, filter compilation, and evaluation.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/filterlang/filterlang"
	"github.com/filterlang/filterlang/internal/store"
	"github.com/filterlang/filterlang/internal/validation"
)

// NewHandler returns the /v1 API handler.
func NewHandler(s store.Store, logger *slog.Logger) http.Handler {
	srv := &server{store: s, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/schemes", srv.handleCreateScheme)
	mux.HandleFunc("GET /v1/schemes", srv.handleListSchemes)
	mux.HandleFunc("GET /v1/schemes/{scheme}", srv.handleGetScheme)
	mux.HandleFunc("POST /v1/schemes/{scheme}/filters", srv.handleCompileFilter)
	mux.HandleFunc("GET /v1/filters/{id}", srv.handleGetFilter)
	mux.HandleFunc("POST /v1/filters/{id}/eval", srv.handleEvalFilter)
	return mux
}

type server struct {
	store  store.Store
	logger *slog.Logger
}

type fieldSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type createSchemeRequest struct {
	Name   string      `json:"name"`
	Fields []fieldSpec `json:"fields"`
}

type schemeResponse struct {
	Name   string      `json:"name"`
	Fields []fieldSpec `json:"fields"`
}

type compileFilterRequest struct {
	Expression string `json:"expression"`
}

type filterResponse struct {
	ID         int64  `json:"id"`
	Scheme     string `json:"scheme"`
	Expression string `json:"expression"`
}

// valueSpec is one runtime field value in an eval request. Value decoding
// is type-directed, mirroring literal parsing: unsigned wants a JSON
// number, ip and bytes want JSON strings.
type valueSpec struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type evalRequest struct {
	Values map[string]valueSpec `json:"values"`
}

type evalResponse struct {
	Match bool `json:"match"`
}

func (s *server) handleCreateScheme(w http.ResponseWriter, r *http.Request) {
	var req createSchemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := validation.ValidateSchemeName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateFieldCount(len(req.Fields)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := make([]store.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		if err := validation.ValidateFieldName(f.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		typ, err := validation.ParseFieldType(f.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		fields = append(fields, store.Field{Name: f.Name, Type: typ})
	}

	rec, err := s.store.CreateScheme(r.Context(), req.Name, fields)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.internalError(w, "create scheme", err)
		return
	}

	s.logger.Info("scheme created", "scheme", rec.Name, "fields", len(rec.Fields))
	writeJSON(w, http.StatusCreated, toSchemeResponse(rec))
}

func (s *server) handleListSchemes(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListSchemes(r.Context())
	if err != nil {
		s.internalError(w, "list schemes", err)
		return
	}
	out := make([]schemeResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSchemeResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleGetScheme(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetScheme(r.Context(), r.PathValue("scheme"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.internalError(w, "get scheme", err)
		return
	}
	writeJSON(w, http.StatusOK, toSchemeResponse(rec))
}

func (s *server) handleCompileFilter(w http.ResponseWriter, r *http.Request) {
	var req compileFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.ValidateExpression(req.Expression); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.CompileFilter(r.Context(), r.PathValue("scheme"), req.Expression)
	if err != nil {
		var parseErr *filterlang.ParseError
		switch {
		case errors.As(err, &parseErr):
			// The rendered diagnostic carries the caret line; return it
			// verbatim so callers can display it.
			writeError(w, http.StatusUnprocessableEntity, parseErr.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.internalError(w, "compile filter", err)
		}
		return
	}

	s.logger.Info("filter compiled", "scheme", rec.Scheme, "id", rec.ID)
	writeJSON(w, http.StatusCreated, filterResponse{
		ID:         rec.ID,
		Scheme:     rec.Scheme,
		Expression: rec.Expression,
	})
}

func (s *server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupFilter(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, filterResponse{
		ID:         rec.ID,
		Scheme:     rec.Scheme,
		Expression: rec.Expression,
	})
}

func (s *server) handleEvalFilter(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupFilter(w, r)
	if !ok {
		return
	}

	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ectx, err := buildExecutionContext(req.Values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	match, execErr := safeExecute(ectx, rec.Filter)
	if execErr != nil {
		// A usage error means this filter/context pairing is invalid;
		// reject the request rather than guess a boolean.
		writeError(w, http.StatusUnprocessableEntity, execErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, evalResponse{Match: match})
}

func (s *server) lookupFilter(w http.ResponseWriter, r *http.Request) (*store.FilterRecord, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter id")
		return nil, false
	}
	rec, err := s.store.GetFilter(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		s.internalError(w, "get filter", err)
		return nil, false
	}
	return rec, true
}

// buildExecutionContext decodes eval request values into an execution
// context. IP addresses are validated here because the engine's
// AddIPString deliberately ignores unparseable text.
func buildExecutionContext(values map[string]valueSpec) (*filterlang.ExecutionContext, error) {
	ectx := filterlang.NewExecutionContext()
	for name, spec := range values {
		switch spec.Type {
		case "unsigned":
			var v uint64
			if err := json.Unmarshal(spec.Value, &v); err != nil {
				return nil, fmt.Errorf("field %q: expected an unsigned number", name)
			}
			ectx.AddUnsigned(name, v)
		case "bytes":
			var v string
			if err := json.Unmarshal(spec.Value, &v); err != nil {
				return nil, fmt.Errorf("field %q: expected a string", name)
			}
			ectx.AddBytes(name, []byte(v))
		case "ip":
			var v string
			if err := json.Unmarshal(spec.Value, &v); err != nil {
				return nil, fmt.Errorf("field %q: expected an address string", name)
			}
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: invalid IP address %q", name, v)
			}
			ectx.AddIP(name, addr)
		default:
			return nil, fmt.Errorf("field %q: unknown value type %q", name, spec.Type)
		}
	}
	return ectx, nil
}

// safeExecute converts the engine's fatal usage panics into errors at the
// request boundary. Any other panic is a bug and propagates.
func safeExecute(ectx *filterlang.ExecutionContext, f filterlang.Filter) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg, ok := usagePanic(r)
			if !ok {
				panic(r)
			}
			err = errors.New(msg)
		}
	}()
	return ectx.Execute(f), nil
}

// usagePanic reports whether a recovered value is one of the engine's
// fatal usage panics: a missing field or a field whose runtime type does
// not match its registration.
func usagePanic(r interface{}) (string, bool) {
	msg, ok := r.(string)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(msg, "Could not find previously registered field ") ||
		strings.Contains(msg, " was previously registered with type ") {
		return msg, true
	}
	return "", false
}

func toSchemeResponse(rec *store.SchemeRecord) schemeResponse {
	fields := make([]fieldSpec, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		fields = append(fields, fieldSpec{Name: f.Name, Type: validation.TypeName(f.Type)})
	}
	return schemeResponse{Name: rec.Name, Fields: fields}
}

func (s *server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
