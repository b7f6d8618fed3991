package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tokenvault/internal/scheduler"
)

// Handler returns the routes of the main HTTP server.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /stats", a.handleStats)
	mux.HandleFunc("GET /jobs", a.handleListJobs)
	mux.HandleFunc("POST /jobs/trigger", a.handleTriggerJob)
	return a.logRequests(a.recoverPanics(mux))
}

type jobResponse struct {
	Group       string            `json:"group"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Durable     bool              `json:"durable"`
	Running     bool              `json:"running"`
	Triggers    []triggerResponse `json:"triggers"`
}

type triggerResponse struct {
	Group    string     `json:"group"`
	Name     string     `json:"name"`
	Next     *time.Time `json:"next,omitempty"`
	Previous *time.Time `json:"previous,omitempty"`
}

// handleHealth reports whether the token store is reachable.
func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.Ping(r.Context()); err != nil {
		a.Logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats reports stored tokens and authorizations per status.
func (a *Application) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Store.Stats(r.Context())
	if err != nil {
		a.Logger.Error("collecting stats failed", "error", err)
		http.Error(w, "Failed to collect stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleListJobs lists the scheduled jobs and their next fire times.
func (a *Application) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := a.Host.Scheduler().Jobs()
	resp := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		jr := jobResponse{
			Group:       job.Key.Group,
			Name:        job.Key.Name,
			Description: job.Description,
			Durable:     job.Durable,
			Running:     job.Running,
			Triggers:    make([]triggerResponse, 0, len(job.Triggers)),
		}
		for _, t := range job.Triggers {
			jr.Triggers = append(jr.Triggers, triggerResponse{
				Group:    t.Key.Group,
				Name:     t.Key.Name,
				Next:     optionalTime(t.Next),
				Previous: optionalTime(t.Previous),
			})
		}
		resp = append(resp, jr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTriggerJob fires the job named by the group and name query
// parameters.
func (a *Application) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Invalid request: missing name", http.StatusBadRequest)
		return
	}
	key := scheduler.NewJobKey(name, r.URL.Query().Get("group"))

	err := a.Host.Scheduler().TriggerJob(key)
	switch {
	case err == nil:
		a.Logger.Info("job triggered", "job", key.String())
		writeJSON(w, http.StatusAccepted, map[string]string{"job": key.String(), "status": "queued"})
	case errors.Is(err, scheduler.ErrJobNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
	case errors.Is(err, scheduler.ErrJobRunning):
		http.Error(w, "Job is already running", http.StatusConflict)
	case errors.Is(err, scheduler.ErrQueueFull), errors.Is(err, scheduler.ErrSchedulerStopped):
		http.Error(w, "Scheduler unavailable", http.StatusServiceUnavailable)
	default:
		a.Logger.Error("triggering job failed", "job", key.String(), "error", err)
		http.Error(w, "Failed to trigger job", http.StatusInternalServerError)
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
