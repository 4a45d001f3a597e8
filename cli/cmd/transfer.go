package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/adbferry/adbferry/bridge"
	"github.com/adbferry/adbferry/cli/config"
	"github.com/adbferry/adbferry/cli/tui"
	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/iox"
	"github.com/adbferry/adbferry/log"
	"github.com/adbferry/adbferry/pipeline"
	"github.com/adbferry/adbferry/rate"
	"github.com/adbferry/adbferry/transfer"
	"github.com/adbferry/adbferry/types"
)

// Exit codes for pull and push.
const (
	exitSuccess        = 0
	exitTransferFailed = 1
	exitRequestError   = 2
)

// diagnosticDisplayWidth caps the failure summary printed to the terminal.
// The full text is always journaled and logged.
const diagnosticDisplayWidth = 80

// PullCommand returns the pull command: device staging folder to host.
func PullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Transfer the device staging folder to the host",
		Flags: transferFlags(&cli.StringFlag{
			Name:  "to",
			Usage: "Destination folder on the host (created if missing)",
			Value: ".",
		}),
		Action: transferAction(types.DirectionPull, "to"),
	}
}

// PushCommand returns the push command: host folder contents to the device
// staging directory.
func PushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Transfer a host folder's contents to the device staging directory",
		Flags: transferFlags(&cli.StringFlag{
			Name:     "from",
			Usage:    "Source folder on the host",
			Required: true,
		}),
		Action: transferAction(types.DirectionPush, "from"),
	}
}

func transferFlags(pathFlag cli.Flag) []cli.Flag {
	return []cli.Flag{
		pathFlag,
		&cli.BoolFlag{
			Name:  "plain",
			Usage: "Disable the live view; print progress as plain lines",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress the result summary",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON attempt report to PATH (\"-\" for stderr)",
		},
		ConfigFlag,
		LogLevelFlag,
	}
}

func transferAction(direction types.Direction, pathFlag string) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return cli.Exit(err.Error(), exitRequestError)
		}
		logger, err := buildLogger(c, cfg)
		if err != nil {
			return cli.Exit(err.Error(), exitRequestError)
		}

		wfc := &transfer.WorkflowConfig{
			Bridge: bridge.New(cfg.ADBPath, logger),
			Builder: pipeline.NewBuilder(
				cfg.ADBPath, cfg.PVPath, cfg.TarPath,
				cfg.RemoteBaseDir, cfg.RemoteTargetName,
			),
			Runner: transfer.NewSupervisor(&transfer.SupervisorConfig{Logger: logger}),
			Logger: logger,
		}
		// Assigned only when non-nil so the workflow's nil check sees a
		// nil interface, not a typed nil.
		if journal := openJournal(cfg, logger); journal != nil {
			defer iox.DiscardClose(journal)
			wfc.Journal = journal
		}
		workflow := transfer.NewWorkflow(wfc)

		// SIGINT/SIGTERM cancel the attempt's context; the supervisor kills
		// the stages and the terminal outcome still arrives.
		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			cancel()
		}()

		attempt, events, err := workflow.Start(ctx, transfer.Request{
			Direction: direction,
			LocalPath: c.String(pathFlag),
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot start transfer: %v", err), exitRequestError)
		}

		interval := cfg.SamplingInterval.Duration
		var done *transfer.CompletedEvent
		if c.Bool("plain") || !isStdoutTTY() {
			done = runPlain(events, interval, os.Stderr)
		} else {
			done, err = tui.RunTransfer(attempt, events, cancel, interval)
			if err != nil {
				// The terminal refused the live view; the attempt is still
				// running, so fall back to draining its events.
				fmt.Fprintf(os.Stderr, "live view unavailable (%v), continuing\n", err)
				done = runPlain(events, interval, os.Stderr)
			}
		}
		if done == nil {
			return cli.Exit("transfer outcome was not delivered", exitRequestError)
		}

		code := outcomeToExitCode(done.Outcome.Status)
		if path := c.String("report"); path != "" {
			if err := transfer.WriteReport(transfer.BuildReport(*done, code), path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
		if !c.Bool("quiet") {
			printOutcome(os.Stdout, *done)
		}
		return cli.Exit("", code)
	}
}

// openJournal opens the attempt journal. Journal trouble never blocks a
// transfer: on any failure the attempt runs unjournaled with a warning.
func openJournal(cfg *config.Config, logger *log.Logger) *history.Journal {
	path, err := journalPath(cfg)
	if err != nil {
		logger.Warn("history journal disabled", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	journal, err := history.Open(path)
	if err != nil {
		logger.Warn("history journal disabled", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	return journal
}

// runPlain drains an attempt's events without a live view, writing one line
// per development to out. It owns the attempt's rate estimator, keeping the
// progress math on the consuming side of the channel. Returns the terminal
// event.
func runPlain(events <-chan transfer.Event, interval time.Duration, out io.Writer) *transfer.CompletedEvent {
	estimator := rate.NewEstimator(interval)
	var done *transfer.CompletedEvent
	var speed rate.Speed
	hasSpeed := false
	lastPercent := -1

	for ev := range events {
		switch e := ev.(type) {
		case transfer.StateEvent:
			switch e.State {
			case transfer.StateCheckingDevice:
				fmt.Fprintln(out, "checking device...")
			case transfer.StateSizing:
				fmt.Fprintln(out, "measuring source...")
			case transfer.StateTransferring:
				estimator.Reset(e.Attempt.TotalBytes)
				if estimator.Indeterminate() {
					fmt.Fprintln(out, "transferring (size unknown)...")
				} else {
					fmt.Fprintf(out, "transferring %s...\n", rate.FormatByteCount(e.Attempt.TotalBytes))
				}
			}
		case transfer.ProgressEvent:
			if s, ok := estimator.Update(e.Fraction, time.Now()); ok {
				speed = s
				hasSpeed = true
			}
			// One line per whole percent keeps piped output readable.
			if percent := int(e.Fraction * 100); percent != lastPercent {
				lastPercent = percent
				if hasSpeed {
					fmt.Fprintf(out, "%3d%%  %s\n", percent, speed)
				} else {
					fmt.Fprintf(out, "%3d%%\n", percent)
				}
			}
		case transfer.CompletedEvent:
			terminal := e
			done = &terminal
		}
	}
	return done
}

// printOutcome writes the result summary in the style of the logs: one
// line of attempt identity, one of what happened.
func printOutcome(w io.Writer, done transfer.CompletedEvent) {
	rec := done.Record
	fmt.Fprintf(w, "direction=%s, attempt=%s, status=%s, duration=%s\n",
		rec.Direction, rec.AttemptID, rec.Status,
		(time.Duration(rec.DurationMS) * time.Millisecond).String(),
	)

	if done.Outcome.Succeeded() {
		fmt.Fprintf(w, "transferred %s (%d progress samples)\n",
			rate.FormatByteCount(rec.TotalBytes), rec.SamplesParsed)
		return
	}

	summary := summarizeDiagnostic(done.Outcome.Diagnostic)
	if summary == "" {
		summary = "no diagnostic output; see logs"
	}
	fmt.Fprintf(w, "failed: %s\n", summary)
}

// summarizeDiagnostic condenses multi-line diagnostic text to a single
// display line.
func summarizeDiagnostic(diag string) string {
	diag = strings.TrimSpace(diag)
	if diag == "" {
		return ""
	}
	line := diag
	if i := strings.IndexByte(diag, '\n'); i >= 0 {
		line = diag[:i] + " ..."
	}
	if len(line) > diagnosticDisplayWidth {
		line = line[:diagnosticDisplayWidth-3] + "..."
	}
	return line
}

func outcomeToExitCode(status types.TransferStatus) int {
	switch status {
	case types.TransferStatusSuccess:
		return exitSuccess
	case types.TransferStatusLaunchFailed:
		return exitRequestError
	default:
		return exitTransferFailed
	}
}
