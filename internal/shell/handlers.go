package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tordrt/scaffold/internal/crud"
	"github.com/tordrt/scaffold/internal/selection"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// LocaleResponse is the body of GET /api/locales/{locale}.
type LocaleResponse struct {
	Locale   string                       `json:"locale"`
	Messages map[string]map[string]string `json:"messages"`
}

const maxBodyBytes = 1 << 20

type deleteManyRequest struct {
	IDs []any `json:"ids"`
}

// Handler returns the API router.
func (s *Shell) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/navigation", s.handleNavigation).Methods(http.MethodGet)
	api.HandleFunc("/locales/{locale}", s.handleLocale).Methods(http.MethodGet)

	entity := api.PathPrefix("/{module}/{entity}").Subrouter()
	entity.HandleFunc("", s.withEntity(s.handleList)).Methods(http.MethodGet)
	entity.HandleFunc("", s.withEntity(s.handleCreate)).Methods(http.MethodPost)
	entity.HandleFunc("/sort", s.withEntity(s.handleSort)).Methods(http.MethodPost)
	entity.HandleFunc("/delete-many", s.withEntity(s.handleDeleteMany)).Methods(http.MethodPost)
	entity.HandleFunc("/{id}", s.withEntity(s.handleGet)).Methods(http.MethodGet)
	entity.HandleFunc("/{id}", s.withEntity(s.handleUpdate)).Methods(http.MethodPatch)
	entity.HandleFunc("/{id}", s.withEntity(s.handleDelete)).Methods(http.MethodDelete)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Shell) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type entityHandler func(w http.ResponseWriter, r *http.Request, c *crud.Crud)

func (s *Shell) withEntity(h entityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		c, ok := s.Entity(vars["module"], vars["entity"])
		if !ok {
			s.writeError(w, http.StatusNotFound, "unknown entity", vars["module"]+"/"+vars["entity"])
			return
		}
		h(w, r, c)
	}
}

func (s *Shell) handleNavigation(w http.ResponseWriter, r *http.Request) {
	nav := s.Navigation()
	if nav == nil {
		nav = []NavItem{}
	}
	s.writeJSON(w, http.StatusOK, nav)
}

func (s *Shell) handleLocale(w http.ResponseWriter, r *http.Request) {
	locale := s.bundle.Match(mux.Vars(r)["locale"], r.Header.Get("Accept-Language"))
	s.writeJSON(w, http.StatusOK, LocaleResponse{
		Locale:   locale,
		Messages: s.bundle.Messages(locale),
	})
}

func (s *Shell) handleList(w http.ResponseWriter, r *http.Request, c *crud.Crud) {
	q := r.URL.Query()

	var args crud.ListArgs
	var err error
	if args.Limit, err = parseUint(q.Get("limit")); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}
	if args.Offset, err = parseUint(q.Get("offset")); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid offset", err.Error())
		return
	}
	if order := q.Get("order"); order != "" {
		if args.Order, err = crud.ParseOrder(order); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid order", err.Error())
			return
		}
	}
	args.Filter = q.Get("filter")
	args.Where = q.Get("where")

	sel, ok := s.selection(w, r)
	if !ok {
		return
	}

	conn, err := c.Paginated(r.Context(), args, sel)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conn)
}

func (s *Shell) handleGet(w http.ResponseWriter, r *http.Request, c *crud.Crud) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}

	node, err := c.Get(r.Context(), pathID(r), sel)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Shell) handleCreate(w http.ResponseWriter, r *http.Request, c *crud.Crud) {
	var input crud.Input
	if !s.decode(w, r, &input) {
		return
	}
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writePayload(w, http.StatusCreated, c.Create(r.Context(), input, sel))
}

func (s *Shell) handleUpdate(w http.ResponseWriter, r *http.Request, c *crud.Crud) {
	var input crud.Input
	if !s.decode(w, r, &input) {
		return
	}
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writePayload(w, http.StatusOK, c.Update(r.Context(), pathID(r), input, sel))
}

func (s *Shell) handleDelete(w http.ResponseWriter, r *http.Request, c *crud.Crud) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writePayload(w, http.StatusOK, c.Delete(r.Context(), pathID(r), sel))
}

func (s *Shell) handleSort(w http.ResponseWriter, r *http.Request, c *crud.Crud) {
	var args crud.SortArgs
	if !s.decode(w, r, &args) {
		return
	}
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writePayload(w, http.StatusOK, c.Sort(r.Context(), args, sel))
}

func (s *Shell) handleDeleteMany(w http.ResponseWriter, r *http.Request, c *crud.Crud) {
	var body deleteManyRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.writePayload(w, http.StatusOK, c.DeleteMany(r.Context(), body.IDs))
}

// selection parses the fields query parameter.
func (s *Shell) selection(w http.ResponseWriter, r *http.Request) (selection.Set, bool) {
	sel, err := selection.Parse(r.URL.Query().Get("fields"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid fields", err.Error())
		return nil, false
	}
	return sel, true
}

// decode reads a JSON body. Numbers stay integers where they are integral.
func (s *Shell) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body", err.Error())
		return false
	}

	switch v := dst.(type) {
	case *crud.Input:
		*v = normalizeJSON(*v).(map[string]any)
	case *crud.SortArgs:
		v.ID = normalizeJSON(v.ID)
		v.TargetID = normalizeJSON(v.TargetID)
	case *deleteManyRequest:
		for i, id := range v.IDs {
			v.IDs[i] = normalizeJSON(id)
		}
	}
	return true
}

// normalizeJSON replaces json.Number with int64 or float64.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeJSON(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeJSON(val)
		}
		return t
	default:
		return v
	}
}

// pathID returns the {id} path variable as an integer when it is one.
func pathID(r *http.Request) any {
	raw := mux.Vars(r)["id"]
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func (s *Shell) writePayload(w http.ResponseWriter, okStatus int, p crud.Payload) {
	switch {
	case p.Node == nil && len(p.Errors) > 0:
		s.writeJSON(w, http.StatusUnprocessableEntity, p)
	case len(p.Errors) > 0:
		// partial success: the node was written but nested writes failed
		s.writeJSON(w, http.StatusMultiStatus, p)
	default:
		s.writeJSON(w, okStatus, p)
	}
}

func (s *Shell) writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, crud.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, crud.ErrInvalidQuery):
		s.writeError(w, http.StatusBadRequest, "invalid query", err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "query failed", err.Error())
	}
}

func (s *Shell) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Shell) writeError(w http.ResponseWriter, status int, message, detail string) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(fmt.Sprintf("HTTP %d", status), zap.String("message", message), zap.String("error", detail))
	} else {
		s.logger.Warn(fmt.Sprintf("HTTP %d", status), zap.String("message", message), zap.String("error", detail))
	}
	s.writeJSON(w, status, ErrorResponse{Error: detail, Message: message})
}
