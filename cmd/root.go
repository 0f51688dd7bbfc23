package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"optimg/internal/codec"
	"optimg/internal/pipeline"
	"optimg/internal/tui"
)

var (
	optFormats   []string
	optScales    []int
	optQuality   int
	optOutput    string
	optRecursive bool
	optThreads   int
)

var rootCmd = &cobra.Command{
	Use:   "optimg [flags] <input>",
	Short: "optimg - parallel image resizer and converter",
	Long: "optimg resizes and re-encodes images in parallel: every input image is\n" +
		"converted once per requested (format, scale) combination, with live\n" +
		"per-image progress. Supports JPEG, PNG and WebP outputs.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the CLI and maps errors onto the exit-code contract:
// 2 for configuration problems caught before any work, 1 for runs where
// at least one image failed, 0 otherwise.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var cfgErr *pipeline.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "configuration error:")
			for _, problem := range cfgErr.Problems {
				fmt.Fprintf(os.Stderr, "  %s\n", problem)
			}
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := pipeline.CollectImages(args[0], optRecursive, os.Stderr)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stdout, "No valid images found.")
		return nil
	}

	jobs := pipeline.BuildJobs(files, opts)
	units, err := pipeline.ExpandAll(jobs)
	if err != nil {
		return err
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return err
		}
	}

	printHeader(len(files), opts)

	events := make(chan pipeline.ProgressEvent, 256)
	rows := make([]tui.Row, len(jobs))
	for i, job := range jobs {
		rows[i] = tui.Row{Name: job.Display, Total: job.Units}
	}

	program := tea.NewProgram(tui.NewModel(rows, events))
	uiDone := make(chan struct{})
	go func() {
		_, _ = program.Run()
		close(uiDone)
	}()

	started := time.Now()
	summary := pipeline.Run(ctx, units, opts.Workers, codec.NewEngine(), events)
	close(events)
	<-uiDone

	printResults(jobs, summary, time.Since(started))

	if summary.ImagesFailed > 0 {
		return fmt.Errorf("%d of %d images were not processed correctly", summary.ImagesFailed, summary.Images)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("run interrupted: %d of %d images finished", summary.Images, len(jobs))
	}
	return nil
}

// buildOptions validates the flag set. Everything wrong is a
// ConfigError so it aborts before any file is touched.
func buildOptions() (pipeline.Options, error) {
	var opts pipeline.Options

	if optQuality < 0 || optQuality > 100 {
		return opts, pipeline.Configf("quality must be between 0 and 100 (got %d)", optQuality)
	}
	if optThreads < 1 {
		return opts, pipeline.Configf("threads must be at least 1 (got %d)", optThreads)
	}

	formats, err := codec.ParseFormats(optFormats)
	if err != nil {
		return opts, &pipeline.ConfigError{Problems: []string{err.Error()}}
	}
	if len(formats) == 0 {
		return opts, pipeline.Configf("at least one output format is required")
	}

	scales := make([]int, 0, len(optScales))
	seen := make(map[int]bool, len(optScales))
	for _, scale := range optScales {
		if scale < 1 || scale > 100 {
			return opts, pipeline.Configf("scales must be between 1 and 100 (%d%% is invalid)", scale)
		}
		if seen[scale] {
			continue
		}
		seen[scale] = true
		scales = append(scales, scale)
	}
	if len(scales) == 0 {
		return opts, pipeline.Configf("at least one scale is required")
	}

	opts.Formats = formats
	opts.Scales = scales
	opts.Quality = optQuality
	opts.OutputDir = optOutput
	opts.Workers = optThreads
	return opts, nil
}

func printHeader(found int, opts pipeline.Options) {
	formats := make([]string, len(opts.Formats))
	for i, f := range opts.Formats {
		formats[i] = f.String()
	}
	scales := make([]string, len(opts.Scales))
	for i, s := range opts.Scales {
		scales[i] = fmt.Sprintf("%d%%", s)
	}

	fmt.Fprintln(os.Stdout, titleStyle.Render("optimg — parallel image optimizer"))
	fmt.Fprintf(os.Stdout, "Found %s\n", accentStyle.Render(fmt.Sprintf("%d images", found)))
	if opts.OutputDir != "" {
		outPath := opts.OutputDir
		if abs, err := filepath.Abs(opts.OutputDir); err == nil {
			outPath = abs
		}
		fmt.Fprintf(os.Stdout, "Output: %s\n", accentStyle.Render(outPath))
	}
	fmt.Fprintf(os.Stdout, "Formats: %s | Scales: %s | Quality: %s\n",
		accentStyle.Render(strings.Join(formats, ", ")),
		accentStyle.Render(strings.Join(scales, ", ")),
		accentStyle.Render(fmt.Sprintf("%d%%", opts.Quality)),
	)
	noun := "threads"
	if opts.Workers == 1 {
		noun = "thread"
	}
	fmt.Fprintf(os.Stdout, "Using %s %s\n\n", accentStyle.Render(fmt.Sprintf("%d", opts.Workers)), noun)
}

// printResults reprints each job's final row so the outcome survives in
// scrollback after the live display exits, then the summary table.
func printResults(jobs []*pipeline.ImageJob, summary pipeline.Summary, elapsed time.Duration) {
	for _, job := range jobs {
		row := tui.Row{Name: job.Display, Total: job.Units, Completed: job.Completed()}
		switch {
		case job.Failed():
			row.Failed = true
			row.Reason = job.FirstErr().Error()
		case job.Completed() == job.Units:
			row.Done = true
		}
		fmt.Fprintln(os.Stdout, tui.RenderRow(row, 30))
	}
	fmt.Fprintln(os.Stdout)

	rows := []tui.SummaryRow{
		{Label: "Images processed", Value: fmt.Sprintf("%d", summary.Images)},
		{Label: "Images succeeded", Value: fmt.Sprintf("%d", summary.ImagesOK)},
		{Label: "Images failed", Value: fmt.Sprintf("%d", summary.ImagesFailed)},
		{Label: "Output files written", Value: fmt.Sprintf("%d", summary.UnitsOK)},
		{Label: "Elapsed", Value: elapsed.Round(time.Millisecond).String()},
	}
	fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))

	if len(summary.Failures) > 0 {
		fmt.Fprintln(os.Stdout, warnStyle.Render("Failures:"))
		for _, failure := range summary.Failures {
			fmt.Fprintf(os.Stdout, "  %s: %v\n", failure.Path, failure.Err)
		}
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	accentStyle = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorError)
)

func init() {
	rootCmd.Flags().StringSliceVar(&optFormats, "formats", []string{"jpg", "webp"}, "output image formats (jpg, png, webp)")
	rootCmd.Flags().IntSliceVar(&optScales, "scales", []int{75, 50, 25}, "scale percentages (1-100)")
	rootCmd.Flags().IntVar(&optQuality, "quality", 80, "JPEG/WebP quality level (0-100)")
	rootCmd.Flags().StringVarP(&optOutput, "output", "o", "", "output directory (default: alongside each source)")
	rootCmd.Flags().BoolVarP(&optRecursive, "recursive", "r", false, "scan directories recursively")
	rootCmd.Flags().IntVarP(&optThreads, "threads", "t", runtime.NumCPU(), "number of worker threads")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
