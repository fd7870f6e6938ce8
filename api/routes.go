// Package api exposes the role and user models over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/models"
	"github.com/joe-ervin05/rolebase/tools"
)

// DefaultMaxBody caps request bodies at 1MB.
const DefaultMaxBody int64 = 1 << 20

// PatternMatchingParam switches filters to exact, case-sensitive matching when false.
const PatternMatchingParam = "patternMatching"

// Pinger reports whether the database is reachable.
type Pinger func(ctx context.Context) error

// Handler serves the CRUD routes.
type Handler struct {
	models  *models.Models
	ping    Pinger
	maxBody int64
}

// NewHandler returns a Handler. A non-positive maxBody uses DefaultMaxBody;
// a nil ping makes /health always succeed.
func NewHandler(m *models.Models, ping Pinger, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &Handler{models: m, ping: ping, maxBody: maxBody}
}

// Register mounts every route on r.
//
// Routes:
//   - GET /health - database reachability
//   - POST /roles, GET /roles, GET /roles/{id}, PUT /roles[/{id}], DELETE /roles/{id}
//   - the same for /users
func Register(r chi.Router, h *Handler) {
	r.Get("/health", h.health)
	r.Route("/roles", func(r chi.Router) { h.crud(r, h.models.Roles) })
	r.Route("/users", func(r chi.Router) { h.crud(r, h.models.Users) })
}

func (h *Handler) crud(r chi.Router, m *data.Model) {
	r.Post("/", h.create(m))
	r.Get("/", h.read(m))
	r.Get("/{id}", h.read(m))
	r.Put("/", h.update(m))
	r.Put("/{id}", h.update(m))
	r.Delete("/{id}", h.delete(m))
}

// health answers 503 SERVICE_NOT_AVAILABLE while the database is unreachable.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			tools.RespErr(w, tools.New(tools.CodeServiceNotAvailable, err))
			return
		}
	}
	tools.RespData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) create(m *data.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := h.decodeBody(w, r)
		if err != nil {
			tools.RespErr(w, err)
			return
		}
		res, err := m.Create(r.Context(), body)
		if err != nil {
			tools.RespErr(w, err)
			return
		}
		tools.RespData(w, http.StatusCreated, res)
	}
}

func (h *Handler) read(m *data.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		patternMatching := true
		if raw := values.Get(PatternMatchingParam); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				tools.RespErr(w, tools.Errorf(tools.CodeBadRequest, "%s must be a boolean, got %q", PatternMatchingParam, raw))
				return
			}
			patternMatching = v
		}
		values.Del(PatternMatchingParam)

		body := withPathID(r, data.BodyFromValues(values))
		rows, err := m.Read(r.Context(), body, patternMatching)
		if err != nil {
			tools.RespErr(w, err)
			return
		}
		tools.RespData(w, http.StatusOK, rows)
	}
}

func (h *Handler) update(m *data.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := h.decodeBody(w, r)
		if err != nil {
			tools.RespErr(w, err)
			return
		}
		res, err := m.Update(r.Context(), withPathID(r, body))
		if err != nil {
			tools.RespErr(w, err)
			return
		}
		tools.RespData(w, http.StatusOK, res)
	}
}

func (h *Handler) delete(m *data.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := m.Delete(r.Context(), withPathID(r, nil))
		if err != nil {
			tools.RespErr(w, err)
			return
		}
		tools.RespData(w, http.StatusOK, res)
	}
}

// decodeBody reads a JSON object body no larger than h.maxBody.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (data.Body, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	defer r.Body.Close()

	var body data.Body
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tools.New(tools.CodeRefuseBody, err)
		}
		return nil, tools.New(tools.CodeInvalidBody, err)
	}
	return body, nil
}

// withPathID puts the {id} path parameter first in body, replacing any id it held.
func withPathID(r *http.Request, body data.Body) data.Body {
	id := chi.URLParam(r, "id")
	if id == "" {
		return body
	}
	return append(data.Body{{Key: "id", Value: id}}, body.Without("id")...)
}
