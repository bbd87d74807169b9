package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/arata-dev/dmgcore/dmgcore"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgcore"
	app.Description = "A DMG Game Boy CPU/bus/APU core, driven headlessly (no PPU, no GUI)"
	app.Usage = "dmgcore [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.IntFlag{
			Name:  "steps",
			Usage: "Number of CPU instructions to execute",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of 70224-cycle frames to execute (takes precedence over --steps)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "info",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Path to write a save state after execution completes",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgcore failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	level, err := parseLogLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	emu, err := dmgcore.NewWithFile(romPath)
	if err != nil {
		return err
	}

	frames := c.Int("frames")
	steps := c.Int("steps")

	switch {
	case frames > 0:
		for i := 0; i < frames; i++ {
			emu.RunUntilFrame()
			if _, faulted := emu.CPU().Fault(); faulted {
				break
			}
		}
	case steps > 0:
		for i := 0; i < steps; i++ {
			emu.Step()
			if _, faulted := emu.CPU().Fault(); faulted {
				break
			}
		}
	default:
		return errors.New("specify --frames or --steps to run headlessly")
	}

	slog.Info("execution complete",
		"instructions", emu.InstructionCount(),
		"frames", emu.FrameCount(),
		"pc", fmt.Sprintf("0x%04X", emu.CPU().PC()))

	if kind, faulted := emu.CPU().Fault(); faulted {
		slog.Error("CPU latched a fault", "kind", kind)
	}

	if statePath := c.String("save-state"); statePath != "" {
		if err := os.WriteFile(statePath, emu.SaveState(), 0o644); err != nil {
			return fmt.Errorf("writing save state: %w", err)
		}
		slog.Info("save state written", "path", statePath)
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
