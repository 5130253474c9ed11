package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgedeploy/forge/pkg/plan"
)

// EmbeddedRuntimeConfig is the decoded form of a synthesized Template's
// embedded runtime.json: the reporting endpoint and overall deadline a
// generated binary should honor (§4.9, §5 "Runtime side").
type EmbeddedRuntimeConfig struct {
	ReportingEndpoint string `json:"reporting_endpoint"`
	ExecutionTimeout  string `json:"execution_timeout"`
	LogLevel          string `json:"log_level"`
}

// RunEmbedded is the entry point a synthesized project's main.go calls:
// it parses the embedded plan and runtime config, executes the plan
// against the host it runs on, submits the report if an endpoint is
// configured, and returns the process exit code (§4.9).
func RunEmbedded(planJSON []byte, runtimeConfigJSON []byte) int {
	p, err := plan.Parse(planJSON)
	if err != nil {
		logrus.WithError(err).Error("forge runtime: failed to parse embedded plan")
		return 2
	}

	var cfg EmbeddedRuntimeConfig
	if len(runtimeConfigJSON) > 0 {
		if err := json.Unmarshal(runtimeConfigJSON, &cfg); err != nil {
			logrus.WithError(err).Warn("forge runtime: failed to parse embedded runtime config, using defaults")
		}
	}

	ctx := context.Background()
	if cfg.ExecutionTimeout != "" {
		if d, err := time.ParseDuration(cfg.ExecutionTimeout); err == nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	exec := NewExecutor(p, "")
	report, err := exec.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("forge runtime: fatal error during execution")
		return 2
	}

	submit(cfg.ReportingEndpoint, report)

	return report.ExitCode()
}
