package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/adbferry/adbferry/cli/render"
	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/rate"
)

// StatsResponse aggregates the journal for display. Counts are split by
// outcome and direction; planned bytes sum the sizing results.
type StatsResponse struct {
	Attempts       int64  `json:"attempts"`
	Succeeded      int64  `json:"succeeded"`
	Failed         int64  `json:"failed"`
	LaunchFailures int64  `json:"launch_failures"`
	SuccessRate    string `json:"success_rate"`
	Pulls          int64  `json:"pulls"`
	Pushes         int64  `json:"pushes"`
	BytesPlanned   string `json:"bytes_planned"`
}

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show aggregate statistics over recorded attempts",
		Flags:  ReadOnlyFlags(),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
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

	return r.Render(statsResponse(history.Aggregate(records)))
}

func statsResponse(s history.Stats) StatsResponse {
	resp := StatsResponse{
		Attempts:       s.Attempts,
		Succeeded:      s.Succeeded,
		Failed:         s.Failed,
		LaunchFailures: s.LaunchFailures,
		SuccessRate:    "n/a",
		Pulls:          s.Pulls,
		Pushes:         s.Pushes,
		BytesPlanned:   rate.FormatByteCount(s.BytesPlanned),
	}
	if s.Attempts > 0 {
		resp.SuccessRate = fmt.Sprintf("%.0f%%", 100*float64(s.Succeeded)/float64(s.Attempts))
	}
	return resp
}
