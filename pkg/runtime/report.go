package runtime

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Report is the embedded runtime's final structured output (§4.9
// "Reporting"). Exit code is derived from Success.
type Report struct {
	PlanID     string       `json:"plan_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Tasks      []TaskReport `json:"tasks"`
	Success    bool         `json:"success"`
}

// ExitCode returns 0 iff every required task succeeded or was skipped.
func (r *Report) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// submit POSTs the report's JSON encoding to endpoint. A failure here is
// logged, never returned as fatal: reporting is best-effort (§4.9).
func submit(endpoint string, r *Report) {
	if endpoint == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		logrus.WithError(err).Warn("forge runtime: failed to marshal report")
		return
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(data))
	if err != nil {
		logrus.WithError(err).Warn("forge runtime: failed to submit report")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logrus.Warnf("forge runtime: report endpoint returned status %d", resp.StatusCode)
	}
}
