// Package cli implements the fpgapack command-line interface.
//
// This package provides commands for running the packer (pack), debugging
// an architecture's expanded pb-graph (viz), inspecting past runs
// (history), and serving the packer over HTTP (serve). The CLI is built
// using cobra and supports verbose logging via the charmbracelet/log
// library, following the teacher's internal/cli conventions.
//
// # Commands
//
// The main commands are:
//   - pack: cluster a netlist against an architecture
//   - viz: render an architecture's expanded pb-graph for debugging
//   - history: list past pack runs from the run-history store
//   - serve: run the HTTP API
//   - version: print build information
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fpgapack/pkg/buildinfo"
	"github.com/matzehuels/fpgapack/pkg/rescache"
	"github.com/matzehuels/fpgapack/pkg/runstore"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "fpgapack"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "fpgapack clusters a technology-mapped netlist into logic blocks",
		Long:         `fpgapack implements VPR-style AAPack clustering: it groups atoms of a technology-mapped netlist into logic-block-sized clusters, subject to architecture capacity, timing, and pin-usage constraints.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.packCommand())
	root.AddCommand(c.vizCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Cache/Run-store Factories
// =============================================================================

// newCache creates the result cache for CLI use: a local FileCache by
// default, or a NullCache when noCache is set or the cache directory
// can't be determined. A cache directory that can't be created is
// returned as an error.
func newCache(noCache bool) (rescache.Cache, error) {
	if noCache {
		return rescache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return rescache.NewNullCache(), nil
	}
	return rescache.NewFileCache(dir)
}

// newRunStore creates the run-history store for CLI use: a local
// JSON-lines file under the config directory.
func newRunStore() (runstore.Store, error) {
	return runstore.NewJSONLStore("")
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using the XDG standard
// (~/.cache/fpgapack/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
