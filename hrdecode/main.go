package main

import (
	"fmt"
	"log/slog"
	"os"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"github.com/spf13/cobra"
)

var configuration decoder.Configuration

var (
	logger         Logger
	VerbosityLevel int
	configFilename string
	verbosityFlag  int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hrdecode",
		Short:         "Decode high rate testboard RAM dumps into pixel statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}
	root.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file path")
	root.PersistentFlags().IntVar(&verbosityFlag, "verbose", -1, "Verbosity level, overrides the configuration file")

	root.AddCommand(
		newEfficiencyCommand(),
		newPixelMapCommand(),
		newThresholdCommand(),
		newSimulateCommand(),
	)
	return root
}

func setup() error {
	var err error
	configuration, err = LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	if verbosityFlag >= 0 {
		configuration.Verbosity = verbosityFlag
	}
	if err := configuration.Geometry.Validate(); err != nil {
		return fmt.Errorf("Error in configuration: %w", err)
	}
	decoder.SetConfiguration(configuration)
	decoder.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}
	return nil
}

// inputFiles returns the dumps given on the command line, or the ones in
// the configuration file.
func inputFiles(args []string) []string {
	if len(args) > 0 {
		return args
	}
	if len(configuration.FilesIn) > 0 {
		return configuration.FilesIn
	}
	if configuration.FileIn != "" {
		return []string{configuration.FileIn}
	}
	return nil
}

// decodeDump replays one RAM dump through the pipeline. A panic while
// decoding discards the pass instead of the whole run: sinks that keep
// state across passes are put back to where they were before it.
func decodeDump(filename string, schedule decoder.ArmedSchedule, sinks ...decoder.Sink) (summary decoder.PassSummary, err error) {
	rollback := decoder.CheckpointSinks(sinks...)
	defer func() {
		if r := recover(); r != nil {
			rollback()
			summary = decoder.PassSummary{}
			err = fmt.Errorf("decoder recovered from panic on %s: %v", filename, r)
		}
	}()

	buffer, err := decoder.OpenDumpBuffer(filename)
	if err != nil {
		return summary, err
	}
	opts := decoder.AcquireOptions{CapacityBytes: configuration.CapacityBytes, DeserPhase: -1}
	acquisition, err := decoder.Acquire(buffer, opts, nil)
	if err != nil {
		return summary, err
	}
	defer acquisition.Close()

	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Decoding %s (%d words)", filename, acquisition.Source().Len())
		logger.Info(message, "main")
	}
	return decoder.RunPass(acquisition.Source(), &configuration.Geometry, schedule, sinks...)
}

func reportSummary(summary decoder.PassSummary) {
	logger.Info(fmt.Sprintf("Events: %d, hits: %d", summary.Events, summary.Hits), "summary")
	logger.Info("Decoding problems:", "summary")
	logger.Info(fmt.Sprintf("%-19s %8d", "truncated", summary.Truncated), "summary")
	logger.Info(fmt.Sprintf("%-19s %8d", "bad address", summary.BadAddress), "summary")
	logger.Info(fmt.Sprintf("%-19s %8d", "ROC sequence", summary.SequenceViolations), "summary")
	logger.Info(fmt.Sprintf("%-19s %8d", "stray words", summary.StrayWords), "summary")
	logger.Info(fmt.Sprintf("%-19s %8d", "lost triggers", summary.LostTriggers), "summary")
	if summary.LostTriggers > 0 {
		logger.Error(fmt.Sprintf("%d triggers lost to corrupted event headers", summary.LostTriggers))
	}
	if summary.SourceErr != nil {
		logger.Error(fmt.Sprintf("pass ended early: %v", summary.SourceErr))
	}
}

func rocLabel(roc int) string {
	if roc == decoder.ModuleIndex {
		return "module"
	}
	return fmt.Sprintf("C%d", roc)
}
