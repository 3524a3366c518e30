package http

import (
	"net/http"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/pkg/httpx"
)

type healthChecks struct {
	Database  string `json:"database"`
	Directory string `json:"directory"`
}

type healthResponse struct {
	Status string        `json:"status"`
	Uptime string        `json:"uptime"`
	Checks *healthChecks `json:"checks,omitempty"`
}

// LivezHandler always answers 200 while the process is up.
func LivezHandler(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status: "ok",
			Uptime: time.Since(startTime).String(),
		})
	}
}

// ReadyzHandler checks the local store and the directory connection.
// A failing directory degrades readiness because logins and transfers
// cannot proceed without it.
func ReadyzHandler(startTime time.Time, st store.Store, dir directory.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{
			Database:  "ok",
			Directory: "ok",
		}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if err := dir.Ping(r.Context()); err != nil {
			checks.Directory = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, healthResponse{
			Status: status,
			Uptime: time.Since(startTime).String(),
			Checks: checks,
		})
	}
}
