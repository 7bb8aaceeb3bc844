// Command tablecheck validates a delimited data file against its
// data-package descriptor and writes a JSON report of every per-row,
// per-field defect: type mismatches, date format mismatches, and dangling
// foreign keys.
//
// The CLI layer stays thin: it loads the job config, lints it and the
// descriptor, optionally initializes a metrics backend, and hands off to the
// streaming run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"tablecheck/internal/config"
	"tablecheck/internal/metrics"
	"tablecheck/internal/metrics/prompush"
)

// Exit codes: 0 clean report, 1 operational failure, 2 report with defects.
const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain carries the whole run so deferred cleanup (notably the metrics
// flush) executes on every exit path, including the defects-found one.
func realMain(args []string) int {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		lintOnly          bool
		workers           int
	)

	fs := flag.NewFlagSet("tablecheck", flag.ExitOnError)
	fs.StringVar(&cfgPath, "config", "configs/jobs/sample.json", "job config JSON path")
	fs.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, none)")
	fs.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.BoolVar(&lintOnly, "validate", false, "lint the job config and descriptor, then exit")
	fs.IntVar(&workers, "workers", 0, "override runtime.workers from the config")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	f, err := os.Open(cfgPath)
	if err != nil {
		log.Printf("open config: %v", err)
		return exitFailure
	}

	var job config.Job
	err = json.NewDecoder(f).Decode(&job)
	f.Close()
	if err != nil {
		log.Printf("decode config: %v", err)
		return exitFailure
	}
	if workers > 0 {
		job.Runtime.Workers = workers
	}

	issues := config.ValidateJob(job)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("configuration is invalid: %v", cfgPath)
		return exitFailure
	}

	setupMetrics(job.Job, metricsBackendFlg, pushGatewayURLFlg)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	rep, err := run(ctx, job, lintOnly)
	if err != nil {
		log.Printf("run: %v", err)
		return exitFailure
	}
	if lintOnly {
		log.Printf("configuration is valid: %v", cfgPath)
		return exitOK
	}
	if !rep.Valid() {
		return exitInvalid
	}
	return exitOK
}

// setupMetrics decides the metrics backend: flag → env → default nop.
func setupMetrics(jobName, backendName, gwFlag string) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := gwFlag
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		if jobName == "" {
			jobName = "tablecheck"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v backend=%v job=%v", gwURL, backendName, jobName)
		metrics.SetBackend(b)

	case "", "none":
		// nop backend remains

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}
