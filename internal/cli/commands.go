package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/coastal-clean/siteplanner/internal/export"
	"github.com/coastal-clean/siteplanner/internal/importer"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/persist"
	"github.com/coastal-clean/siteplanner/internal/surface"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the equipment palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSIZE\tCOLOR")
			for _, a := range c.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%gx%g\t%s\n", a.ID, a.Name, a.Category, a.Width, a.Height, a.Color)
			}
			return w.Flush()
		},
	}
}

func newRenderCmd(opts *options) *cobra.Command {
	var (
		out    string
		format string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "render SNAPSHOT",
		Short: "Render a snapshot to PNG or SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "png" && format != "svg" {
				return fmt.Errorf("unsupported format %q (want png or svg)", format)
			}

			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			st := persist.FromSnapshot(snap)
			if out == "" {
				out = export.FileName(st.MapName, format)
			}

			renderer := export.NewRenderer(c, width, height)
			var data []byte
			if format == "svg" {
				svg, err := renderer.RenderSVG(st)
				if err != nil {
					return err
				}
				data = []byte(svg)
			} else {
				ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
				defer cancel()
				var buf bytes.Buffer
				if err := renderer.RenderPNG(ctx, &buf, st); err != nil {
					return err
				}
				data = buf.Bytes()
			}

			if err := writeOutput(out, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d units)\n", out, humanize.Bytes(uint64(len(data))), len(st.Units))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (derived from the map name when empty)")
	cmd.Flags().StringVarP(&format, "format", "f", "png", "png or svg")
	cmd.Flags().IntVar(&width, "width", export.DefaultWidth, "canvas width")
	cmd.Flags().IntVar(&height, "height", export.DefaultHeight, "canvas height")
	return cmd
}

func newManifestCmd(opts *options) *cobra.Command {
	var (
		out      string
		recsPath string
		footer   string
	)

	cmd := &cobra.Command{
		Use:   "manifest SNAPSHOT",
		Short: "Print the plain-text summary of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			var recs []models.Recommendation
			if recsPath != "" {
				recs, err = readRecommendations(recsPath, opts.logger(cmd))
				if err != nil {
					return err
				}
			}

			text := export.Manifest(persist.FromSnapshot(snap), c, export.ManifestOptions{
				Recommendations: recs,
				Footer:          footer,
			})
			return emit(cmd, out, []byte(text+"\n"))
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	cmd.Flags().StringVarP(&recsPath, "recommendations", "r", "", "recommendation payload to list")
	cmd.Flags().StringVar(&footer, "footer", export.DefaultFooter, "closing line")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var (
		out      string
		recsPath string
	)

	cmd := &cobra.Command{
		Use:   "import SNAPSHOT",
		Short: "Place units for a recommendation payload and rewrite the snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger(cmd)
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			recs, err := readRecommendations(recsPath, logger)
			if err != nil {
				return err
			}

			for _, rec := range recs {
				if _, ok := c.Match(rec.Type); !ok {
					logger.Warn("no catalog match", "type", rec.Type)
				}
			}

			s := surface.New(c)
			s.Restore(persist.FromSnapshot(snap))
			added := importer.Plan(recs, c, s)
			s.AddMany(added)

			if out == "" {
				out = args[0]
			}
			if err := writeSnapshot(out, persist.ToSnapshot(s.State(), time.Now())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Placed %d units, %d total in %s\n", len(added), len(s.Units()), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output snapshot (overwrites SNAPSHOT when empty)")
	cmd.Flags().StringVarP(&recsPath, "recommendations", "r", "", "recommendation payload (JSON)")
	_ = cmd.MarkFlagRequired("recommendations")
	return cmd
}
