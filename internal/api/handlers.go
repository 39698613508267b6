package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/service"
)

type handlers struct {
	Deps
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.Version})
}

// ── Connections ────────────────────────────────────────────

func (h *handlers) listConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.Connections.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (h *handlers) getConnection(w http.ResponseWriter, r *http.Request) {
	c, err := h.Connections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) createConnection(w http.ResponseWriter, r *http.Request) {
	var in service.ConnectionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Connections.Create(r.Context(), withFormDefaults(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) updateConnection(w http.ResponseWriter, r *http.Request) {
	var patch service.ConnectionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Connections.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) deleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.Connections.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) activateConnection(w http.ResponseWriter, r *http.Request) {
	c, err := h.Connections.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) deactivateConnection(w http.ResponseWriter, r *http.Request) {
	c, err := h.Connections.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) testConnection(w http.ResponseWriter, r *http.Request) {
	var in service.ConnectionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Connections.Test(r.Context(), withFormDefaults(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) testSavedConnection(w http.ResponseWriter, r *http.Request) {
	res, err := h.Connections.TestSaved(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) connectionDSN(w http.ResponseWriter, r *http.Request) {
	dsn, err := h.Connections.DSN(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dsn": dsn})
}

// withFormDefaults fills the kind and port a client left out.
func withFormDefaults(in service.ConnectionInput) service.ConnectionInput {
	if in.Kind == "" {
		in.Kind = service.NewConnectionInput().Kind
	}
	if in.Port == nil {
		in.Port = domain.DefaultPort(in.Kind)
	}
	return in
}

// ── Queries ────────────────────────────────────────────────

func (h *handlers) listQueries(w http.ResponseWriter, r *http.Request) {
	f := domain.QueryFilter{ConnectionID: r.URL.Query().Get("connectionId")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, errs.Validation("limit must be an integer"))
			return
		}
		f.Limit = n
	}
	list, err := h.Queries.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) getQuery(w http.ResponseWriter, r *http.Request) {
	q, err := h.Queries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handlers) executeQuery(w http.ResponseWriter, r *http.Request) {
	var in service.ExecuteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.Queries.Execute(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) saveQuery(w http.ResponseWriter, r *http.Request) {
	var in service.SaveQueryInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.Queries.Save(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) deleteQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.Queries.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateQueryMetrics(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExecutionTime int `json:"executionTime"`
		RowCount      int `json:"rowCount"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Queries.UpdateMetrics(r.Context(), id, body.ExecutionTime, body.RowCount); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.Queries.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handlers) exportQuery(w http.ResponseWriter, r *http.Request) {
	in := service.ExportInput{
		QueryID: chi.URLParam(r, "id"),
		Format:  r.URL.Query().Get("format"),
	}
	if raw := r.URL.Query().Get("columns"); raw != "" {
		in.Columns = strings.Split(raw, ",")
	}
	var buf bytes.Buffer
	res, err := h.Export.Export(r.Context(), in, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "query-"+in.QueryID+"."+string(res.Format)))
	w.Header().Set("X-Rows-Truncated", strconv.FormatBool(res.Truncated))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handlers) formatSQL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SQL string `json:"sql"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sql": service.FormatSQL(body.SQL)})
}

// ── Schema ─────────────────────────────────────────────────

func (h *handlers) getSchema(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Schema.GetSchema(r.Context(), chi.URLParam(r, "connectionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) refreshSchema(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Schema.Refresh(r.Context(), chi.URLParam(r, "connectionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) getTable(w http.ResponseWriter, r *http.Request) {
	t, err := h.Schema.GetTable(r.Context(), chi.URLParam(r, "connectionId"), chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ── Settings & dashboard ───────────────────────────────────

func (h *handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) saveSettings(w http.ResponseWriter, r *http.Request) {
	in := domain.DefaultSettings()
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Settings.Save(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) resetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Reset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	recent := 0
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, errs.Validation("recent must be an integer"))
			return
		}
		recent = n
	}
	stats, err := h.Dashboard.Stats(r.Context(), recent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
