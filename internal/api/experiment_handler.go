package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/internal/config"
	"hypogate/internal/errors"
	"hypogate/internal/report"
	"hypogate/ports"
)

const MAX_RECORD_BYTES = 1 << 20

type submitResponse struct {
	Experiment *experiment.Experiment `json:"experiment"`
	Queued     bool                   `json:"queued"`
}

// handleSubmit accepts a JSON or YAML experiment record. The record is
// validated in full before anything is stored.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MAX_RECORD_BYTES))
	if err != nil {
		writeError(w, errors.ConfigInvalidf("failed to read request body: %v", err))
		return
	}
	rec, err := config.DecodeRecord(body, recordFormat(r))
	if err != nil {
		writeError(w, err)
		return
	}
	exp, err := s.deps.Experiments.Submit(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := submitResponse{Experiment: exp}
	if s.deps.Queue != nil && r.URL.Query().Get("run") != "false" {
		if err := s.deps.Queue.Enqueue(exp.ID); err != nil {
			s.logger.Warn("experiment %s stored but not queued: %v", exp.ID, err)
		} else {
			resp.Queued = true
		}
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func recordFormat(r *http.Request) config.RecordFormat {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.Contains(mediaType, "yaml") {
		return config.FormatYAML
	}
	return config.FormatJSON
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ports.ListFilter{
		Status:          experiment.Status(q.Get("status")),
		IncludeArchived: q.Get("archived") == "true",
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.ConfigInvalidf("invalid limit %q", v))
			return
		}
		filter.Limit = n
	}
	list, err := s.deps.Store.ListExperiments(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := experimentID(w, r)
	if !ok {
		return
	}
	exp, err := s.deps.Store.GetExperiment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// handlePhases returns the phase status record used for progress polling.
func (s *Server) handlePhases(w http.ResponseWriter, r *http.Request) {
	id, ok := experimentID(w, r)
	if !ok {
		return
	}
	rec, err := s.deps.Store.GetPhaseRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleValidations(w http.ResponseWriter, r *http.Request) {
	id, ok := experimentID(w, r)
	if !ok {
		return
	}
	if _, err := s.deps.Store.GetExperiment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	results, err := s.deps.Store.ListValidations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	reports := make([]*report.ValidationReport, 0, len(results))
	for _, res := range results {
		reports = append(reports, report.NewValidationReport(res))
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	id, ok := experimentID(w, r)
	if !ok {
		return
	}
	list, err := s.deps.Store.ListArtifacts(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleReport serves the latest report artifact (deliverable or failure
// report) as markdown, or HTML when asked for.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := experimentID(w, r)
	if !ok {
		return
	}
	list, err := s.deps.Store.ListArtifacts(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	var latest *artifacts.Artifact
	for _, a := range list {
		if a.Kind == artifacts.KindReport {
			latest = a
		}
	}
	if latest == nil {
		writeError(w, core.NewNotFoundError("report", id.String()))
		return
	}

	if r.URL.Query().Get("format") == "html" || strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(report.ToHTML(latest.Content))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, latest.Content)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := experimentID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Experiments.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id.String(), "status": "cancel_requested"})
}

func experimentID(w http.ResponseWriter, r *http.Request) (core.ExperimentID, bool) {
	id, err := core.ParseExperimentID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.ConfigInvalid(err.Error()))
		return "", false
	}
	return id, true
}
