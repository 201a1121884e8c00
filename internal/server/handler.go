package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ahmethakanbesel/price-tracker/internal/catalog"
	"github.com/ahmethakanbesel/price-tracker/internal/item"
	"github.com/ahmethakanbesel/price-tracker/internal/job"
	"github.com/ahmethakanbesel/price-tracker/internal/report"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

const maxBodyBytes = 8 << 20

type handler struct {
	catalogSvc *catalog.Service
	itemSvc    *item.Service
	reportSvc  *report.Service
	jobSvc     *job.Service
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job")
	if !ok {
		return
	}

	j, err := h.jobSvc.Get(r.Context(), job.GetJobRequest{ID: id})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	req := job.ListJobsRequest{
		Kind:   job.Kind(r.URL.Query().Get("kind")),
		Status: job.Status(r.URL.Query().Get("status")),
	}

	jobs, err := h.jobSvc.List(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive id parameter. Zero means absent.
func queryID(w http.ResponseWriter, r *http.Request, name string, required bool) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		if required {
			writeError(w, http.StatusBadRequest, name+" is required")
			return 0, false
		}
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryWindow reads startDate and the inclusive endDate and returns the
// matching half-open window.
func queryWindow(w http.ResponseWriter, r *http.Request) (timeline.Window, bool) {
	q := r.URL.Query()

	dates := make([]time.Time, 2)
	for i, name := range []string{"startDate", "endDate"} {
		v := q.Get(name)
		if v == "" {
			writeError(w, http.StatusBadRequest, name+" is required")
			return timeline.Window{}, false
		}
		d, err := time.Parse(timeline.DateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+name+" format, expected YYYY-MM-DD")
			return timeline.Window{}, false
		}
		dates[i] = d
	}

	// endDate is inclusive for callers; the engine works on [start, end+1d).
	win, err := timeline.WindowFromInclusive(dates[0], dates[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return timeline.Window{}, false
	}
	return win, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is required")
		default:
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		}
		return false
	}
	return true
}
