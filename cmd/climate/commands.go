package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"climate-dashboard/internal/models"
	"climate-dashboard/internal/render"
	"climate-dashboard/internal/services"
)

type selectionFlags struct {
	indicator string
	from      int
	to        int
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.indicator, "indicator", "i", "", "indicator name, exactly as listed by 'climate indicators'")
	cmd.Flags().IntVar(&s.from, "from", 0, "first year, inclusive (default: configured range, or the first data year when only --to is set)")
	cmd.Flags().IntVar(&s.to, "to", 0, "last year, inclusive (default: configured range, or the last data year when only --from is set)")
	cmd.MarkFlagRequired("indicator")
}

func (s *selectionFlags) selection(cmd *cobra.Command) services.Selection {
	sel := services.Selection{Indicator: s.indicator}
	if cmd.Flags().Changed("from") {
		sel.YearFrom = &s.from
	}
	if cmd.Flags().Changed("to") {
		sel.YearTo = &s.to
	}
	return sel
}

func newIndicatorsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "indicators",
		Short: "List the indicators in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			for _, name := range s.dashboard.Indicators(s.ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newYearsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "Show the year span and the default selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			bounds, err := s.dashboard.YearBounds(s.ctx)
			if err != nil {
				return err
			}
			from, to, err := s.dashboard.DefaultRange(s.ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Years:   %d-%d\nDefault: %d-%d\n", bounds.MinYear, bounds.MaxYear, from, to)
			return nil
		},
	}
}

func newQueryCmd(opts *cliOptions) *cobra.Command {
	var sf selectionFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the observations of one indicator in a year range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			q, rows, err := s.dashboard.Observations(s.ctx, sf.selection(cmd))
			if noData(cmd, err) {
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), q.Indicator)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "Year\tValue\t")
			for _, obs := range rows {
				fmt.Fprintf(tw, "%d\t%s\t\n", obs.Year, render.FormatValue(obs.Value))
			}
			return tw.Flush()
		},
	}
	sf.register(cmd)
	return cmd
}

func newSummaryCmd(opts *cliOptions) *cobra.Command {
	var sf selectionFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show latest, maximum and average value for a selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			q, _, summary, err := s.dashboard.Summary(s.ctx, sf.selection(cmd))
			if noData(cmd, err) {
				return nil
			}
			if err != nil {
				return err
			}

			formatted := services.FormatSummary(summary)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, %d-%d\n", q.Indicator, q.YearFrom, q.YearTo)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Latest Value (%d)\t%s\n", summary.LatestYear, formatted.LatestValue)
			fmt.Fprintf(tw, "Max Value\t%s\n", formatted.MaxValue)
			fmt.Fprintf(tw, "Average Value\t%s\n", formatted.AverageValue)
			fmt.Fprintf(tw, "Observations\t%d\n", summary.Count)
			return tw.Flush()
		},
	}
	sf.register(cmd)
	return cmd
}

func newExportCmd(opts *cliOptions) *cobra.Command {
	var (
		sf        selectionFlags
		xlsxPath  string
		chartPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a selection as an XLSX workbook and/or a PNG trend chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if xlsxPath == "" && chartPath == "" {
				return fmt.Errorf("specify at least one of --xlsx or --chart")
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			q, rows, summary, err := s.dashboard.Summary(s.ctx, sf.selection(cmd))
			if noData(cmd, err) {
				return nil
			}
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := writeFile(xlsxPath, func(f *os.File) error {
					return render.WriteWorkbook(f, q.Indicator, rows, summary)
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", xlsxPath)
			}
			if chartPath != "" {
				title := fmt.Sprintf("%s (%d-%d)", q.Indicator, q.YearFrom, q.YearTo)
				if err := writeFile(chartPath, func(f *os.File) error {
					return render.TrendChart(f, title, rows)
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", chartPath)
			}
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the observations and summary to this XLSX file")
	cmd.Flags().StringVar(&chartPath, "chart", "", "write the trend chart to this PNG file")
	return cmd
}

// noData prints the empty-range notice and reports whether err was an empty result
func noData(cmd *cobra.Command, err error) bool {
	var emptyErr *models.EmptyResultError
	if errors.As(err, &emptyErr) {
		fmt.Fprintln(cmd.OutOrStdout(), services.NoDataNotice)
		return true
	}
	return false
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
