// Package cli implements the siteplan command line tool, which works on
// snapshot files without a running server.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/importer"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/persist"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	catalogPath string
	verbose     bool
}

// NewRootCmd creates the top-level "siteplan" command and registers all
// subcommands.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "siteplan",
		Short:         "Inspect, render and import site map snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", os.Getenv("SITEPLANNER_CATALOG"), "YAML catalog file (built-in palette when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log skipped items and progress to stderr")

	root.AddCommand(
		newCatalogCmd(opts),
		newRenderCmd(opts),
		newManifestCmd(opts),
		newImportCmd(opts),
	)

	return root
}

func (o *options) loadCatalog() (*catalog.Catalog, error) {
	c, err := catalog.LoadOrDefault(o.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return c, nil
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// readSnapshot loads a JSON or MessagePack (".msgpack") snapshot file.
func readSnapshot(path string) (models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".msgpack") {
		return persist.DecodeMsgpack(data)
	}
	return persist.DecodeJSON(data)
}

// writeSnapshot stores snap in the format implied by path.
func writeSnapshot(path string, snap models.Snapshot) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".msgpack") {
		data, err = persist.EncodeMsgpack(snap)
	} else {
		data, err = persist.EncodeJSON(snap)
	}
	if err != nil {
		return err
	}
	return writeOutput(path, data)
}

// writeOutput writes via a temp file so a failure leaves path untouched.
func writeOutput(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".siteplan-*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func readRecommendations(path string, logger *slog.Logger) ([]models.Recommendation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recommendations: %w", err)
	}
	return importer.ParsePayload(data, logger)
}

// emit writes data to path, or to the command output when path is empty.
func emit(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return writeOutput(path, data)
}
