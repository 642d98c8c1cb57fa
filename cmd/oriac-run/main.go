// oriac-run executes a compiled program artifact and emits the relocated
// trace and memory for the proof pipeline.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/oriac/oriac-go/internal/oriac/program"
	"github.com/oriac/oriac-go/internal/oriac/runner"
	"github.com/oriac/oriac-go/internal/oriac/vm"
)

// runConfig is the flag surface, optionally overlaid from a TOML file.
type runConfig struct {
	Entrypoint   string `toml:"entrypoint"`
	MaxSteps     uint64 `toml:"max_steps"`
	TraceFile    string `toml:"trace_file"`
	MemoryFile   string `toml:"memory_file"`
	OutputFormat string `toml:"output_format"`
	LogLevel     string `toml:"log_level"`
}

func main() {
	cfg := runConfig{
		Entrypoint:   "main",
		OutputFormat: string(runner.FormatBinary),
		LogLevel:     "info",
	}
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "oriac-run <compiled-program.json>",
		Short: "Run a compiled program on the oriac execution engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if configFile != "" {
				if _, err := toml.DecodeFile(configFile, &cfg); err != nil {
					return fmt.Errorf("failed to load config %s: %w", configFile, err)
				}
			}
			initLogger(cfg.LogLevel)
			return run(args[0], cfg)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.StringVar(&cfg.Entrypoint, "entrypoint", cfg.Entrypoint, "function label to start from")
	flags.Uint64Var(&cfg.MaxSteps, "max-steps", 0, "per-run step budget (0 = default)")
	flags.StringVar(&cfg.TraceFile, "trace-file", "", "write the relocated trace to this file")
	flags.StringVar(&cfg.MemoryFile, "memory-file", "", "write the relocated memory to this file")
	flags.StringVar(&cfg.OutputFormat, "output-format", cfg.OutputFormat, "artifact encoding: binary or cbor")
	flags.StringVar(&configFile, "config", "", "TOML file overriding the flags")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")

	if err := rootCmd.Execute(); err != nil {
		reportFailure(err)
		os.Exit(1)
	}
}

func run(artifactPath string, cfg runConfig) error {
	prog, err := program.Load(artifactPath)
	if err != nil {
		return err
	}
	log.Info("loaded program", "words", len(prog.Data), "builtins", prog.Builtins)

	r, err := runner.New(prog, runner.Options{MaxSteps: cfg.MaxSteps})
	if err != nil {
		return err
	}
	offset, err := prog.EntryPoint(cfg.Entrypoint)
	if err != nil {
		return err
	}
	end, err := r.Initialize(offset)
	if err != nil {
		return err
	}
	if err := r.RunUntilPC(end); err != nil {
		return err
	}
	if err := r.EndRun(); err != nil {
		return err
	}
	log.Info("execution finished", "steps", r.StepCount())

	format := runner.OutputFormat(cfg.OutputFormat)
	if cfg.TraceFile != "" {
		trace, err := r.RelocatedTrace()
		if err != nil {
			return err
		}
		if err := writeArtifact(cfg.TraceFile, "trace", format, func(w io.Writer) error {
			return runner.WriteTrace(w, trace, format)
		}); err != nil {
			return err
		}
	}
	if cfg.MemoryFile != "" {
		memory, err := r.RelocatedMemory()
		if err != nil {
			return err
		}
		if err := writeArtifact(cfg.MemoryFile, "memory", format, func(w io.Writer) error {
			return runner.WriteMemory(w, memory, format)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeArtifact(path, kind string, format runner.OutputFormat, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	data := buf.Bytes()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", kind, err)
	}
	digest := runner.ArtifactDigest(data)
	log.Info("wrote artifact", "kind", kind, "path", path, "format", format,
		"bytes", len(data), "sha3", fmt.Sprintf("%x", digest))
	return nil
}

// reportFailure prints the error kind and, for engine failures, the message
// already carries the failing pc and step index.
func reportFailure(err error) {
	if code := vm.CodeOf(err); code != vm.ErrUnknown {
		fmt.Fprintf(os.Stderr, "error kind: %s\n", code)
	}
	fmt.Fprintf(os.Stderr, "oriac-run: %v\n", err)
}

func initLogger(level string) {
	lvl := log.LevelInfo
	switch level {
	case "trace":
		lvl = log.LevelTrace
	case "debug":
		lvl = log.LevelDebug
	case "warn":
		lvl = log.LevelWarn
	case "error":
		lvl = log.LevelError
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}
