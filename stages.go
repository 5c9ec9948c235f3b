package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
	"github.com/rightwaitforyou/Tarsos/internal/config"
	"github.com/rightwaitforyou/Tarsos/internal/pipeline"
	"github.com/rightwaitforyou/Tarsos/internal/power"
	"github.com/rightwaitforyou/Tarsos/internal/ui"
)

// meterStage measures the level of every frame buffer and forwards it to the
// UI. It keeps its own overlap windower so the stream position only advances
// by the newly-heard bytes of each buffer.
type meterStage struct {
	send      func(tea.Msg)
	window    *audio.OverlapWindow
	format    audio.Format
	threshold float64
	emitted   int64
}

func newMeterStage(f audio.Format, cfg config.Config, send func(tea.Msg)) (*meterStage, error) {
	window, err := audio.NewOverlapWindow(cfg.OverlapConfig(), f)
	if err != nil {
		return nil, err
	}
	return &meterStage{
		send:      send,
		window:    window,
		format:    f,
		threshold: cfg.Power.SilenceThresholdDB,
	}, nil
}

func (m *meterStage) Name() string { return "meter" }

func (m *meterStage) Process(buf *pipeline.FrameBuffer) error {
	_, length := m.window.Emit(len(buf.Bytes))
	m.emitted += int64(length)
	spl := power.SoundPressureLevel(buf.Floats)
	m.send(ui.LevelMsg{
		SPL:     spl,
		Silence: spl < m.threshold,
		Pos:     m.format.Duration(m.emitted),
	})
	return nil
}

func (m *meterStage) Finish() error { return nil }

// exportPowerCurve writes the extracted curve as semicolon-separated rows of
// time and power, one per window.
func exportPowerCurve(path string, extractor *power.Extractor, relative bool) error {
	samples, err := extractor.Samples()
	if err != nil {
		return fmt.Errorf("extracting power curve: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating power curve file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write([]string{"Time (in seconds)", "Power"}); err != nil {
		return err
	}

	windowSeconds := extractor.WindowDuration().Seconds()
	for _, sample := range samples {
		value, err := extractor.AtIndex(sample.Index, relative)
		if err != nil {
			return err
		}
		row := []string{
			strconv.FormatFloat(float64(sample.Index)*windowSeconds, 'f', 3, 64),
			strconv.FormatFloat(value, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
