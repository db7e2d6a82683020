package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arthur-debert/nanotodo/render"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Fixed messages returned in {"error": ...} bodies
const (
	MsgTextRequired      = "Todo text is required"
	MsgCompletedRequired = "Completed must be a boolean"
	MsgNotFound          = "Todo not found"
	MsgListFailed        = "Failed to fetch todos"
	MsgCreateFailed      = "Failed to add todo"
	MsgUpdateFailed      = "Failed to update todo"
	MsgDeleteFailed      = "Failed to delete todo"
	MsgDeleted           = "Todo deleted successfully"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	store    todo.Store
	logger   *slog.Logger
	renderer *render.Renderer
}

type createRequest struct {
	Text string `json:"text"`
}

type updateRequest struct {
	Completed *bool `json:"completed"`
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.List(r.Context(), todo.ListOptions{})
	if err != nil {
		h.storeFailure(w, r, "list", err, MsgListFailed)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, MsgTextRequired)
		return
	}

	created, err := h.store.Create(r.Context(), req.Text, todo.SourceWeb)
	if todo.IsValidation(err) {
		writeError(w, http.StatusBadRequest, MsgTextRequired)
		return
	}
	if err != nil {
		h.storeFailure(w, r, "create", err, MsgCreateFailed)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil || req.Completed == nil {
		writeError(w, http.StatusBadRequest, MsgCompletedRequired)
		return
	}

	updated, err := h.store.Update(r.Context(), id, *req.Completed)
	if errors.Is(err, todo.ErrNotFound) {
		writeError(w, http.StatusNotFound, MsgNotFound)
		return
	}
	if err != nil {
		h.storeFailure(w, r, "update", err, MsgUpdateFailed)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, err := h.store.Delete(r.Context(), id)
	if errors.Is(err, todo.ErrNotFound) {
		writeError(w, http.StatusNotFound, MsgNotFound)
		return
	}
	if err != nil {
		h.storeFailure(w, r, "delete", err, MsgDeleteFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgDeleted})
}

func (h *handlers) page(w http.ResponseWriter, r *http.Request) {
	filter, err := todo.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		filter = todo.FilterAll
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := render.Page{Filter: filter}
	todos, err := h.store.List(r.Context(), todo.ListOptions{})
	if err != nil {
		h.logger.Error("store operation failed", "op", "list", "error", err,
			"request_id", middleware.GetReqID(r.Context()))
		page.Error = MsgListFailed
		w.WriteHeader(http.StatusInternalServerError)
	}
	page.Todos = todos

	if err := h.renderer.Page(w, page); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storeFailure logs an unexpected store error and answers with a fixed message
func (h *handlers) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error, msg string) {
	h.logger.Error("store operation failed",
		"op", op,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
