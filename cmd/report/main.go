package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/preetiguragol/asr-tts/internal/config"
	"github.com/preetiguragol/asr-tts/internal/report"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	audioDir := flag.String("audio-dir", "", "Audio directory (overrides config)")
	transcriptPath := flag.String("transcript", "", "Transcript store path (overrides config)")
	outputPath := flag.String("output", "", "Report output path (overrides config)")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	audio := cfg.Storage.AudioDir
	if *audioDir != "" {
		audio = *audioDir
	}
	transcript := cfg.Storage.TranscriptPath
	if *transcriptPath != "" {
		transcript = *transcriptPath
	}
	output := cfg.Storage.ReportPath
	if *outputPath != "" {
		output = *outputPath
	}

	if audio == "" || transcript == "" || output == "" {
		fmt.Fprintln(os.Stderr, "Audio directory, transcript path, and output path are required; enable storage in the config or pass the flags")
		os.Exit(1)
	}

	r, err := report.Generate(audio, transcript)
	if err != nil {
		logger.Error("Failed to generate report", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := report.Write(r, output); err != nil {
		logger.Error("Failed to write report", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Report written",
		slog.String("path", output),
		slog.Int("total_transcriptions", r.TotalTranscriptions),
		slog.Int("total_audio_files", r.TotalAudioFiles),
		slog.String("time_to_first_response", r.TimeToFirstResponse),
	)
}
