package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"holdup/internal/app"
	"holdup/internal/config"
	"holdup/internal/domain"
	"holdup/internal/logging"
	"holdup/internal/usecase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "holdup",
		Short:         "Stage stock news and build daily per-ticker catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSetupCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newListCmd(),
		newCheckCmd(),
		newCrawlCmd(),
		newCatalogCmd(),
		newResummarizeCmd(),
		newWatchCmd(),
	)

	return root
}

// buildApp loads configuration and wires the application for one command run.
func buildApp(ctx context.Context) (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	return app.New(ctx, cfg, logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Store API credentials in the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			prompt := func(label string) (string, error) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
				line, err := reader.ReadString('\n')
				if err != nil {
					return "", err
				}
				return strings.TrimSpace(line), nil
			}

			alpacaKey, err := prompt("Alpaca API key")
			if err != nil {
				return err
			}
			alpacaSecret, err := prompt("Alpaca API secret")
			if err != nil {
				return err
			}
			openAIKey, err := prompt("OpenAI API key (optional)")
			if err != nil {
				return err
			}

			if err := cfg.SaveEnv(alpacaKey, alpacaSecret, openAIKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved to", cfg.EnvPath())
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add TICKER...",
		Short: "Add tickers to the watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tickers, err := a.Watchlist.Add(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Watchlist:", strings.Join(tickers, ", "))
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove TICKER",
		Short: "Remove a ticker from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.Watchlist.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not on the watchlist\n", strings.ToUpper(args[0]))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", strings.ToUpper(args[0]))
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the watchlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tickers, err := a.Watchlist.List()
			if err != nil {
				return err
			}
			if len(tickers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Watchlist is empty")
				return nil
			}
			for _, t := range tickers {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "check [TICKER...]",
		Short: "Crawl, rebuild the catalog and write the day's summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := resolveDay(a, date)
			if err != nil {
				return err
			}

			report := a.Run(ctx, args, day)
			printReport(cmd, report)
			if report.BuildErr != nil {
				return report.BuildErr
			}

			path, err := a.Summarize(ctx, day)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to summarize for", report.Day)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Summary written to", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to stage into, YYYY-MM-DD (default today)")
	return cmd
}

func newCrawlCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "crawl [TICKER...]",
		Short: "Crawl news into staging and rebuild the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := resolveDay(a, date)
			if err != nil {
				return err
			}

			report := a.Run(ctx, args, day)
			printReport(cmd, report)
			if report.StagingErr != nil {
				return report.StagingErr
			}
			return report.BuildErr
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to stage into, YYYY-MM-DD (default today)")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	var date, from, to string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Rebuild catalog partitions from staging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if from != "" || to != "" {
				if from == "" || to == "" {
					return fmt.Errorf("--from and --to must be used together")
				}
				start, err := domain.ParseDay(from)
				if err != nil {
					return err
				}
				end, err := domain.ParseDay(to)
				if err != nil {
					return err
				}
				stats, errs := a.BuildCatalogRange(ctx, start, end)
				for _, s := range stats {
					printBuildStats(cmd, s)
				}
				for _, e := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", e)
				}
				if len(errs) > 0 {
					return fmt.Errorf("%d partition(s) failed to build", len(errs))
				}
				return nil
			}

			day, err := resolveDay(a, date)
			if err != nil {
				return err
			}
			stats, err := a.BuildCatalog(ctx, day)
			if err != nil {
				return err
			}
			printBuildStats(cmd, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to rebuild, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&from, "from", "", "first day of a range rebuild, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day of a range rebuild, YYYY-MM-DD")
	return cmd
}

func newResummarizeCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "resummarize",
		Short: "Regenerate the summary for an already built day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := resolveDay(a, date)
			if err != nil {
				return err
			}
			path, err := a.Summarize(ctx, day)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty for", domain.DayKey(day))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Summary written to", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to summarize, YYYY-MM-DD (default today)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Watching; press Ctrl-C to stop")
			return a.Watch(ctx)
		},
	}
}

func resolveDay(a *app.Application, date string) (time.Time, error) {
	if date == "" {
		return a.Today(), nil
	}
	return domain.ParseDay(date)
}

func printReport(cmd *cobra.Command, report usecase.Report) {
	out := cmd.OutOrStdout()
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(out, "%-6s crawl failed: %v\n", res.Ticker, res.Err)
			continue
		}
		fmt.Fprintf(out, "%-6s staged %d article(s)\n", res.Ticker, res.Staged)
	}
	if report.StagingErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Staging aborted:", report.StagingErr)
	}
	if report.BuildErr == nil {
		printBuildStats(cmd, report.Build)
	}
}

func printBuildStats(cmd *cobra.Command, stats usecase.BuildStats) {
	fmt.Fprintf(cmd.OutOrStdout(), "Catalog %s: %d article(s) across %d ticker(s), %d dropped\n",
		stats.Day, stats.Articles, stats.Tickers, stats.Dropped)
}
