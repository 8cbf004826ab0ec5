package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/danielpatrickdp/governance-core/go-gateway/internal/admission"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/audit"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/config"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/gateway"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/statevec"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/telemetry"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/threat"
)

// #region main

func main() {
	cfg, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLevel(cfg.LogLevel),
		TimeFormat: "15:04:05",
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, "governd", cfg.OTELEndpoint)
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(ctx)

	var sink audit.Sink
	if cfg.AuditDB != "" {
		sqlSink, err := audit.NewSQLiteSink(cfg.AuditDB)
		if err != nil {
			logger.Error("open audit db", "path", cfg.AuditDB, "error", err)
			os.Exit(1)
		}
		defer sqlSink.Close()
		sink = sqlSink
	} else {
		sink = audit.NewMemorySink()
	}

	ctrl := admission.NewController(admission.Config{
		Policies: map[string]admission.Policy{
			"demo.work":       {Base: 10, Burst: 5, RecoveryRate: 0.2},
			"statevec.sample": {Base: 20, Burst: 10, RecoveryRate: 0.2},
		},
		Logger: logger,
	})
	scorer := threat.NewScorer(threat.Config{Sink: sink, Logger: logger})

	gw := gateway.New(gateway.Config{
		Admission:     ctrl,
		Scorer:        scorer,
		Sink:          sink,
		Logger:        logger,
		SweepInterval: time.Duration(cfg.SweepSeconds) * time.Second,
	})
	gw.Start(ctx)
	defer gw.Close()

	fmt.Println("Governance gateway ready.")
	fmt.Printf("  Audit: %s\n", sinkLabel(cfg.AuditDB))
	fmt.Println("Commands:")
	fmt.Println("  run <operation> <identity> [fail|slow]   execute a governed demo unit of work")
	fmt.Println("  state <identity>                         governed state-vector evolve + measure")
	fmt.Println("  baseline <operation> <max_ms> <err_rate> set an operation's behavioral envelope")
	fmt.Println("  quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		dispatch(ctx, gw, strings.Fields(line))
	}
}

// #endregion main

// #region dispatch

func dispatch(ctx context.Context, gw *gateway.Gateway, args []string) {
	switch args[0] {
	case "run":
		if len(args) < 3 {
			fmt.Println("usage: run <operation> <identity> [fail|slow]")
			return
		}
		mode := ""
		if len(args) > 3 {
			mode = args[3]
		}
		runDemo(ctx, gw, args[1], args[2], mode)

	case "state":
		if len(args) < 2 {
			fmt.Println("usage: state <identity>")
			return
		}
		runStateDemo(ctx, gw, args[1])

	case "baseline":
		if len(args) < 4 {
			fmt.Println("usage: baseline <operation> <max_ms> <err_rate>")
			return
		}
		maxMs, err1 := strconv.Atoi(args[2])
		errRate, err2 := strconv.ParseFloat(args[3], 64)
		if err1 != nil || err2 != nil {
			fmt.Println("baseline: max_ms must be an int, err_rate a float")
			return
		}
		maxDur := time.Duration(maxMs) * time.Millisecond
		avgDur := maxDur / 2
		ok := gw.UpdateBaseline(args[1], threat.BaselinePatch{
			AvgDuration: &avgDur,
			MaxDuration: &maxDur,
			ErrorRate:   &errRate,
		})
		fmt.Printf("baseline updated: %v\n", ok)

	default:
		fmt.Printf("unknown command %q\n", args[0])
	}
}

// runDemo executes one governed unit of work and prints the outcome.
func runDemo(ctx context.Context, gw *gateway.Gateway, operation, identity, mode string) {
	work := func(context.Context) error {
		switch mode {
		case "fail":
			return errors.New("simulated failure")
		case "slow":
			time.Sleep(1200 * time.Millisecond)
		default:
			time.Sleep(20 * time.Millisecond)
		}
		return nil
	}

	res, err := gw.ExecuteGoverned(ctx, operation, identity, work, threat.Context{})
	printOutcome(res, err)
}

// runStateDemo evolves and measures a verified state container under the
// same gateway discipline as any other governed operation.
func runStateDemo(ctx context.Context, gw *gateway.Gateway, identity string) {
	var m statevec.Measurement
	work := func(context.Context) error {
		c, err := statevec.New(4)
		if err != nil {
			return err
		}
		if err := c.Evolve(statevec.Identity(4)); err != nil {
			return err
		}
		if !c.Verify() {
			return errors.New("state container failed verification")
		}
		m, err = c.Measure(0)
		return err
	}

	res, err := gw.ExecuteGoverned(ctx, "statevec.sample", identity, work, threat.Context{})
	printOutcome(res, err)
	if err == nil {
		fmt.Printf("  outcome=%d probability=%.4f proof=%s…\n", m.Outcome, m.Probability, m.Proof[:12])
	}
}

func printOutcome(res gateway.Result, err error) {
	var rle *gateway.RateLimitError
	var coe *gateway.CircuitOpenError
	switch {
	case errors.As(err, &rle):
		fmt.Printf("denied: rate limited, retry after %ds (limit %d)\n", rle.RetryAfter, res.Decision.Limit)
	case errors.As(err, &coe):
		fmt.Printf("denied: circuit open, retry after %ds\n", coe.RetryAfter)
	case err != nil:
		fmt.Printf("failed: %v [severity=%s composite=%.3f]\n",
			err, res.Threat.Severity, res.Threat.Scores.Composite)
	default:
		fmt.Printf("ok in %s [severity=%s composite=%.3f remaining=%d]\n",
			res.Duration.Round(time.Millisecond), res.Threat.Severity,
			res.Threat.Scores.Composite, res.Decision.Remaining)
	}
}

// #endregion dispatch

// #region helpers

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func sinkLabel(path string) string {
	if path == "" {
		return "in-memory"
	}
	return path
}

// #endregion helpers
