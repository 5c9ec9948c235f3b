// Command tarsos plays an audio file in real time while fanning every frame
// buffer out to analysis stages, and can export a power curve extracted from
// an independent pass over the same stream.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/rightwaitforyou/Tarsos/internal/config"
	"github.com/rightwaitforyou/Tarsos/internal/pipeline"
	"github.com/rightwaitforyou/Tarsos/internal/playback"
	"github.com/rightwaitforyou/Tarsos/internal/power"
	"github.com/rightwaitforyou/Tarsos/internal/source"
	"github.com/rightwaitforyou/Tarsos/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	powerOut := flag.String("power", "", "write the stream's power curve to this CSV file")
	relative := flag.Bool("relative", false, "export relative [0,1] power instead of dB")
	quiet := flag.Bool("quiet", false, "no live meter, log to stderr instead")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tarsos [flags] <audio file>")
		flag.PrintDefaults()
		return 2
	}
	path := flag.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("loading configuration", "err", err)
			return 1
		}
	}

	src, err := source.Open(path)
	if err != nil {
		slog.Error("opening audio source", "path", path, "err", err)
		return 1
	}
	defer src.Close()

	meta := source.ReadMetadata(path)
	format := src.Format()
	slog.Info("stream opened",
		"title", meta.Title,
		"format", format.String(),
		"duration", source.Duration(src),
	)

	device, err := playback.OpenDevice(format, cfg.DeviceBuffer())
	if err != nil {
		slog.Error("opening playback device", "err", err)
		return 1
	}

	player, err := playback.NewPlayer(device, cfg.OverlapConfig(), format)
	if err != nil {
		slog.Error("building playback stage", "err", err)
		device.Close()
		return 1
	}

	var program *tea.Program
	if !*quiet {
		program = tea.NewProgram(ui.New(meta, source.Duration(src)))
	}

	meter, err := newMeterStage(format, cfg, func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	})
	if err != nil {
		slog.Error("building meter stage", "err", err)
		device.Close()
		return 1
	}

	runner, err := pipeline.NewRunner(src, format, cfg.OverlapConfig(), player, meter)
	if err != nil {
		slog.Error("building pipeline", "err", err)
		device.Close()
		return 1
	}

	var g errgroup.Group
	g.Go(func() error {
		err := runner.Run()
		if program != nil {
			program.Send(ui.DoneMsg{Err: err})
		}
		return err
	})

	// The power pass opens its own stream handle and runs unsynchronized
	// with the live loop.
	if *powerOut != "" {
		extractor, xerr := power.NewExtractor(func() (io.ReadCloser, error) {
			return source.Open(path)
		}, format, cfg.Power.WindowsPerSecond)
		if xerr != nil {
			slog.Error("building power extractor", "err", xerr)
			return 1
		}
		g.Go(func() error {
			return exportPowerCurve(*powerOut, extractor, *relative)
		})
	}

	if program != nil {
		model, perr := program.Run()
		if perr != nil {
			slog.Error("meter failed", "err", perr)
		}
		if m, ok := model.(ui.Model); ok && m.Err() == nil {
			// The user quit before end-of-stream: closing the source drives
			// the next blocking read to end-of-stream and the loop drains.
			src.Close()
		}
	}

	if err := g.Wait(); err != nil {
		slog.Error("run failed", "err", err)
		return 1
	}
	slog.Info("run finished", "state", runner.State().String())
	return 0
}
