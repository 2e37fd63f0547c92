package mirror

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath     string
	source         string
	file           string
	lang           string
	timeout        time.Duration
	exportEncoding string
	jsonOutput     bool
	quiet          bool
	verbose        bool
	logFormat      string
}

// NewCommand creates a Cobra command tree for the catalog mirror.
// The returned command can be executed directly or added to a parent CLI.
//
// Commands provided:
//   - models [--brand B]
//   - filter --model M [--out FILE]
//   - fetch [--out FILE]
//   - sync --dest DIR --model M [--dry-run] [--confirm] [--base-url URL]
//
// Global flags: --config, --source, --file, --lang, --timeout,
// --export-encoding, --json, --quiet, --verbose, --log-format
func NewCommand(cfg Config, opts ...MirrorOption) *cobra.Command {
	var flags globalFlags

	// Mirror and effective config are created in PersistentPreRunE
	var mir Mirror
	var eff Config

	cmd := &cobra.Command{
		Use:   cfg.AppName,
		Short: "Mirror the Dell update catalog",
		Long:  "Fetch the Dell update catalog, filter it to a set of models and mirror the referenced packages to local storage.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip mirror creation for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			eff, err = LoadConfig(cfg, flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &eff, flags)

			logger, err := NewSlogLogger(cmd.ErrOrStderr(), flags.logFormat, flags.verbose, flags.quiet)
			if err != nil {
				return err
			}

			mopts := append([]MirrorOption{WithLogger(logger)}, opts...)
			mir, err = NewMirror(eff, mopts...)
			if err != nil {
				return fmt.Errorf("failed to initialize mirror: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default: platform config dir)")
	pf.StringVar(&flags.source, "source", "", "Catalog URL (default: "+DefaultCatalogURL+")")
	pf.StringVar(&flags.file, "file", "", "Read the catalog from a local file instead of a URL")
	pf.StringVar(&flags.lang, "lang", "", "Language for display names (default: en)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Timeout for the catalog request (default: 5m)")
	pf.StringVar(&flags.exportEncoding, "export-encoding", "", "Encoding of written catalogs: utf-8 or utf-16")
	pf.BoolVar(&flags.jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress non-essential output")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")

	// Add subcommands
	cmd.AddCommand(modelsCmd(&mir, &flags))
	cmd.AddCommand(filterCmd(&mir, &eff, &flags))
	cmd.AddCommand(fetchCmd(&mir, &flags))
	cmd.AddCommand(syncCmd(&mir, &eff, &flags))

	return cmd
}

// applyFlags overlays explicitly set global flags onto cfg.
func applyFlags(cmd *cobra.Command, cfg *Config, flags globalFlags) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("source") {
		cfg.Source = flags.source
	}
	if changed("file") {
		cfg.Source = flags.file
	}
	if changed("lang") {
		cfg.Language = flags.lang
	}
	if changed("timeout") {
		cfg.RequestTimeout = flags.timeout
	}
	if changed("export-encoding") {
		cfg.ExportEncoding = flags.exportEncoding
	}
}

func modelsCmd(mir *Mirror, flags *globalFlags) *cobra.Command {
	var brand string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models in the catalog",
		Long:  "List the brand and model pairs targeted by the catalog's bundles.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := (*mir).Load(cmd.Context(), "")
			if err != nil {
				return err
			}

			var models []ModelInfo
			for _, m := range (*mir).Models(mf) {
				if brand == "" || strings.EqualFold(m.Brand, brand) {
					models = append(models, m)
				}
			}
			sort.SliceStable(models, func(i, j int) bool {
				if models[i].Brand != models[j].Brand {
					return models[i].Brand < models[j].Brand
				}
				return models[i].Model < models[j].Model
			})
			return outputModels(cmd.OutOrStdout(), models, flags.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&brand, "brand", "", "Only list models of this brand")
	return cmd
}

func filterCmd(mir *Mirror, eff *Config, flags *globalFlags) *cobra.Command {
	var (
		models []string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Write a catalog reduced to some models",
		Long:  "Write a copy of the catalog that only contains the bundles and components for the given models. The upstream location is kept so the result can be synced with --file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(models) == 0 {
				models = eff.Models
			}

			mf, err := (*mir).Load(cmd.Context(), "")
			if err != nil {
				return err
			}
			filtered, err := (*mir).Filter(mf, models)
			if err != nil {
				return err
			}

			if err := writeCatalog(cmd.OutOrStdout(), out, *mir, filtered); err != nil {
				return err
			}
			if !flags.quiet && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bundles, %d components)\n",
					out, len(filtered.Bundles), len(filtered.Components))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "Model to keep (repeatable or comma separated)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	return cmd
}

func fetchCmd(mir *Mirror, flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and decode the catalog",
		Long:  "Download the catalog, decode it and write it as plain XML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := (*mir).Load(cmd.Context(), "")
			if err != nil {
				return err
			}
			if err := writeCatalog(cmd.OutOrStdout(), out, *mir, mf); err != nil {
				return err
			}
			if !flags.quiet && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bundles, %d components)\n",
					out, len(mf.Bundles), len(mf.Components))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	return cmd
}

func syncCmd(mir *Mirror, eff *Config, flags *globalFlags) *cobra.Command {
	var (
		dest    string
		models  []string
		dryRun  bool
		confirm bool
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the packages for some models",
		Long:  "Filter the catalog to the given models, download missing or changed packages into the destination, write Catalog.xml and remove packages no longer referenced.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if dest == "" {
				dest = eff.Destination
			}
			if dest == "" {
				return fmt.Errorf("%w: destination required (--dest or config)", ErrInvalidConfig)
			}
			if len(models) == 0 {
				models = eff.Models
			}

			mf, err := (*mir).Load(ctx, "")
			if err != nil {
				return err
			}
			filtered, err := (*mir).Filter(mf, models)
			if err != nil {
				return err
			}

			var opts []SyncOption
			if dryRun {
				opts = append(opts, WithDryRun())
			}
			if baseURL != "" {
				opts = append(opts, WithBaseURL(baseURL))
			}
			if confirm && !dryRun {
				in := bufio.NewReader(cmd.InOrStdin())
				opts = append(opts, WithConfirm(func(c SoftwareComponent) bool {
					fmt.Fprintf(cmd.OutOrStdout(), "Download %s (%s)? [y/N]: ", c.Path(), c.DisplayName(eff.language()))
					return confirmPrompt(in)
				}))
			}

			var printer *syncPrinter
			if !flags.quiet && !flags.jsonOutput {
				printer = &syncPrinter{w: cmd.OutOrStdout(), verbose: flags.verbose}
				opts = append(opts, WithProgress(printer.update))
			}

			report, err := (*mir).Sync(ctx, filtered, dest, opts...)
			if printer != nil {
				printer.finish()
			}
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				return outputReportJSON(cmd.OutOrStdout(), report)
			}
			if !flags.quiet {
				outputReport(cmd.OutOrStdout(), report, dryRun)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Mirror root directory (must exist)")
	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "Model to mirror (repeatable or comma separated)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would be downloaded without writing anything")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Ask before each download")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Download packages from this URL instead of the catalog's base location")
	return cmd
}

// confirmPrompt reads a line and returns true only if the user types 'y' or 'yes'.
// Returns false for empty input or any other response (default is no).
func confirmPrompt(r *bufio.Reader) bool {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	response := strings.TrimSpace(strings.ToLower(line))
	return response == "y" || response == "yes"
}

// writeCatalog exports mf to path, or to stdout when path is "-".
func writeCatalog(stdout io.Writer, path string, mir Mirror, mf *Manifest) error {
	if path == "" || path == "-" {
		return mir.Export(stdout, mf)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	if err := mir.Export(f, mf); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	return nil
}

// Output helpers

func outputModels(w io.Writer, models []ModelInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	if len(models) == 0 {
		fmt.Fprintln(w, "No models found in catalog")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BRAND\tMODEL\tSYSTEM ID\tTYPE")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Brand, m.Model, m.SystemID, m.Type)
	}
	return tw.Flush()
}

// reportJSON is the --json form of a SyncReport.
type reportJSON struct {
	SyncReport
	Warnings []string `json:"warnings"`
}

func outputReportJSON(w io.Writer, r SyncReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reportJSON{SyncReport: r, Warnings: r.Warnings()})
}

func outputReport(w io.Writer, r SyncReport, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "Dry run: %d to download, %d up to date\n", len(r.WouldDownload), len(r.Kept))
		for _, p := range r.WouldDownload {
			fmt.Fprintf(w, "  %s\n", p)
		}
		return
	}

	fmt.Fprintf(w, "Up to date:   %d\n", len(r.Kept))
	fmt.Fprintf(w, "Downloaded:   %d (%s)\n", len(r.Downloaded), humanize.Bytes(uint64(r.BytesDownloaded)))
	if len(r.WouldDownload) > 0 {
		fmt.Fprintf(w, "Declined:     %d\n", len(r.WouldDownload))
	}
	fmt.Fprintf(w, "Failed:       %d\n", len(r.Failed))
	fmt.Fprintf(w, "Pruned:       %d\n", len(r.Pruned))
	if r.CatalogWritten {
		fmt.Fprintf(w, "Catalog:      %s\n", CatalogFileName)
	} else {
		fmt.Fprintln(w, "Catalog:      unchanged")
	}

	if warnings := r.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, line := range warnings {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// syncPrinter renders SyncProgress events as one line per component plus a
// progress bar for downloads.
type syncPrinter struct {
	w       io.Writer
	verbose bool
	current string
	start   time.Time
	active  bool
}

func (p *syncPrinter) update(sp SyncProgress) {
	switch sp.Phase {
	case "download":
		if sp.Path != p.current {
			p.finish()
			p.current = sp.Path
			p.start = time.Now()
			p.active = true
			fmt.Fprintf(p.w, "[%d/%d] %s\n", sp.Index, sp.Total, sp.Path)
			// Hide cursor while the bar is drawn
			fmt.Fprint(p.w, "\x1b[?25l")
		}
		renderProgress(p.w, sp.BytesCompleted, sp.BytesTotal, p.start)
	case "verify":
		if p.verbose {
			p.finish()
			fmt.Fprintf(p.w, "[%d/%d] verifying %s\n", sp.Index, sp.Total, sp.Path)
		}
	case "export":
		p.finish()
		fmt.Fprintf(p.w, "Writing %s\n", sp.Path)
	case "prune":
		p.finish()
		fmt.Fprintf(p.w, "Removing %s\n", sp.Path)
	}
}

// finish ends the current progress bar, if any.
func (p *syncPrinter) finish() {
	if p.active {
		fmt.Fprint(p.w, "\x1b[?25h\n") // Show cursor and new line
		p.active = false
	}
	p.current = ""
}

// renderProgress renders the progress bar to the writer.
// Format: [============>                 ] 45% 12 MB / 27 MB (5.2 MB/s, elapsed: 3s)
// When the total is unknown only the received bytes are shown.
func renderProgress(w io.Writer, current, total int64, startTime time.Time) {
	elapsed := time.Since(startTime)

	var speed float64
	if elapsed.Seconds() > 0 && current > 0 {
		speed = float64(current) / elapsed.Seconds()
	}

	if total <= 0 {
		fmt.Fprintf(w, "\r\x1b[K%s (%s/s, elapsed: %s)",
			humanize.Bytes(uint64(current)), humanize.Bytes(uint64(speed)), formatDuration(elapsed))
		return
	}

	pct := float64(current) / float64(total) * 100

	const barWidth = 30
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	var bar string
	if filled >= barWidth {
		bar = strings.Repeat("=", barWidth)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled) + ">" + strings.Repeat(" ", barWidth-filled-1)
	} else {
		bar = ">" + strings.Repeat(" ", barWidth-1)
	}

	// \r to overwrite, \x1b[K to clear to end of line
	fmt.Fprintf(w, "\r\x1b[K[%s] %.0f%% %s / %s (%s/s, elapsed: %s)",
		bar, pct, humanize.Bytes(uint64(current)), humanize.Bytes(uint64(total)),
		humanize.Bytes(uint64(speed)), formatDuration(elapsed))
}

// formatDuration formats a duration as human-readable text (e.g., "5s", "2m 30s", "1h 5m").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins > 0 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", mins, secs)
		}
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}
