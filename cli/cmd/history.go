package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/adbferry/adbferry/cli/render"
	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/rate"
	"github.com/adbferry/adbferry/types"
)

// HistoryCommand returns the history command.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded transfer attempts, newest first",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of attempts to show (0 = no limit)",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status: success, failed, launch_failed",
			},
		),
		Action: historyAction,
	}
}

// historyRow is the presentation shape of one journal record.
type historyRow struct {
	AttemptID string    `json:"attempt_id"`
	Direction string    `json:"direction"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Size      string    `json:"size"`
	LocalPath string    `json:"local_path"`
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	records, warning, err := readHistory(cfg)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if warning != "" && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	if status := c.String("status"); status != "" {
		if _, valid := parseStatusFilter(status); !valid {
			return cli.Exit(fmt.Sprintf("invalid status %q (must be success, failed, or launch_failed)", status), 1)
		}
		records = filterByStatus(records, types.TransferStatus(status))
	}

	return r.Render(historyRows(recent(records, c.Int("limit"))))
}

// parseStatusFilter validates a --status token.
func parseStatusFilter(s string) (types.TransferStatus, bool) {
	switch status := types.TransferStatus(s); status {
	case types.TransferStatusSuccess, types.TransferStatusFailed, types.TransferStatusLaunchFailed:
		return status, true
	default:
		return "", false
	}
}

func filterByStatus(records []history.Record, status types.TransferStatus) []history.Record {
	var out []history.Record
	for _, rec := range records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// recent returns the newest n records, newest first. The journal appends
// chronologically, so the newest records are the tail. n <= 0 keeps all.
func recent(records []history.Record, n int) []history.Record {
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]history.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	return out
}

func historyRows(records []history.Record) []historyRow {
	rows := make([]historyRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, historyRow{
			AttemptID: rec.AttemptID,
			Direction: rec.Direction.String(),
			Status:    string(rec.Status),
			StartedAt: rec.StartedAt,
			Duration:  (time.Duration(rec.DurationMS) * time.Millisecond).String(),
			Size:      rate.FormatByteCount(rec.TotalBytes),
			LocalPath: rec.LocalPath,
		})
	}
	return rows
}
