package cmd

import (
	"context"
	"os/exec"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/adbferry/adbferry/bridge"
	"github.com/adbferry/adbferry/cli/render"
	"github.com/adbferry/adbferry/pipeline"
	"github.com/adbferry/adbferry/rate"
)

// statusTimeout bounds the device probe and remote sizing. `adb` can hang on
// a wedged server; status must not.
const statusTimeout = 10 * time.Second

// StatusResponse reports the transfer environment: tool availability,
// device presence, and the staging directory's current size.
type StatusResponse struct {
	Device        bool   `json:"device"`
	ADB           string `json:"adb"`
	PV            string `json:"pv"`
	Tar           string `json:"tar"`
	RemoteStaging string `json:"remote_staging"`
	RemoteSize    string `json:"remote_size"`
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show device presence, tool availability, and staging folder size",
		Flags:  ReadOnlyFlags(),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := buildLogger(c, cfg)
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	builder := pipeline.NewBuilder(
		cfg.ADBPath, cfg.PVPath, cfg.TarPath,
		cfg.RemoteBaseDir, cfg.RemoteTargetName,
	)
	adb := bridge.New(cfg.ADBPath, logger)

	ctx, cancel := context.WithTimeout(c.Context, statusTimeout)
	defer cancel()

	resp := StatusResponse{
		ADB:           resolveTool(cfg.ADBPath, pipeline.DefaultADBPath),
		PV:            resolveTool(cfg.PVPath, pipeline.DefaultPVPath),
		Tar:           resolveTool(cfg.TarPath, pipeline.DefaultTarPath),
		RemoteStaging: builder.RemoteStagingDir(),
		RemoteSize:    "n/a",
	}
	resp.Device = adb.DevicePresent(ctx)
	if resp.Device {
		size := adb.TreeSize(ctx, builder.RemoteStagingDir())
		resp.RemoteSize = rate.FormatByteCount(size)
		if size == 0 {
			resp.RemoteSize = "empty or unreadable"
		}
	}

	return r.Render(resp)
}

// resolveTool reports where a stage binary will be found, or that it is
// missing. A configured path is trusted as-is; bare names go through PATH.
func resolveTool(configured, fallback string) string {
	name := configured
	if name == "" {
		name = fallback
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return name + " (not found)"
	}
	return path
}
