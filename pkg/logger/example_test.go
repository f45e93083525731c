package logger_test

import (
	"errors"

	"github.com/wonny/churnlab/pkg/config"
	"github.com/wonny/churnlab/pkg/logger"
)

// Example_withFields demonstrates structured logging for a pipeline stage
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	log.WithStage("s1_window").WithFields(map[string]interface{}{
		"cutoff":     "2011-09-09",
		"customers":  3120,
		"churn_rate": 0.41,
	}).Info("Labels created")

	log.WithError(errors.New("training window is empty")).Error("Pipeline failed")
}
