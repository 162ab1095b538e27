package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/raykavin/factorlab/internal/config"
	"github.com/raykavin/factorlab/pkg/analyse"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/datafeed"
	"github.com/raykavin/factorlab/pkg/loader"
	"github.com/raykavin/factorlab/pkg/logger"
	zeroadapter "github.com/raykavin/factorlab/pkg/logger/zerolog"
	"github.com/raykavin/factorlab/pkg/notification"
	"github.com/raykavin/factorlab/pkg/storage"
	"github.com/raykavin/factorlab/pkg/strategy"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// Command line flags
var (
	// Download command flags
	symbols   []string
	days      int
	startDate string
	endDate   string
	timeframe string
	outputDir string

	// Analyse command flags
	dataDir    string
	facs       []string
	labels     []string
	strategies []string
	groupRule  string
	groups     int
	dropPeak   bool
	spearman   bool
	runName    string
	noStore    bool
)

func main() {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := zeroadapter.New(cfg.LogLevel, time.RFC3339, !cfg.LogJSON, cfg.LogJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	rootCmd := &cobra.Command{
		Use:     "factorlab",
		Short:   "Composable factor research over market data",
		Version: "1.0.0",
	}

	rootCmd.AddCommand(buildDownloadCmd(cfg))
	rootCmd.AddCommand(buildAnalyseCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildDownloadCmd(cfg *config.AppConfig) *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download historical klines into a loader directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), cfg)
		},
	}

	downloadCmd.Flags().StringSliceVarP(&symbols, "symbols", "p", nil, "Symbols (e.g. BTCUSDT,ETHUSDT)")
	downloadCmd.Flags().IntVarP(&days, "days", "d", 0, "Number of days to download (default 30 days)")
	downloadCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (e.g. 2021-12-01)")
	downloadCmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (e.g. 2021-12-31)")
	downloadCmd.Flags().StringVarP(&timeframe, "timeframe", "t", "", "Timeframe (e.g. 1h)")
	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (e.g. ./data/btc)")

	downloadCmd.MarkFlagRequired("symbols")
	downloadCmd.MarkFlagRequired("timeframe")
	downloadCmd.MarkFlagRequired("output")

	return downloadCmd
}

func runDownload(ctx context.Context, cfg *config.AppConfig) error {
	options, err := buildDownloadOptions()
	if err != nil {
		return err
	}

	feed := datafeed.NewBinanceFeed(cfg.Binance.APIKey, cfg.Binance.SecretKey)
	dl, err := datafeed.NewDownloader(feed).Download(ctx, symbols, timeframe, options...)
	if err != nil {
		return err
	}
	return dl.Save(outputDir)
}

func buildDownloadOptions() ([]datafeed.Option, error) {
	var options []datafeed.Option

	if days > 0 {
		options = append(options, datafeed.WithDays(days))
	}

	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return nil, fmt.Errorf("start and end dates must be provided together")
		}
		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("bad start date: %w", err)
		}
		end, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return nil, fmt.Errorf("bad end date: %w", err)
		}
		options = append(options, datafeed.WithInterval(start, end))
	}

	return options, nil
}

func buildAnalyseCmd(cfg *config.AppConfig) *cobra.Command {
	analyseCmd := &cobra.Command{
		Use:   "analyse",
		Short: "Run factor analysis over a saved loader directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyse(cmd.Context(), cfg)
		},
	}

	analyseCmd.Flags().StringVarP(&dataDir, "data", "i", "", "Loader directory written by download")
	analyseCmd.Flags().StringSliceVarP(&facs, "facs", "f", nil, "Factor names (e.g. close_bias_10,obi_2)")
	analyseCmd.Flags().StringSliceVarP(&labels, "labels", "l", nil, "Label columns with _<n> horizon suffix (e.g. ret_1,ret_5)")
	analyseCmd.Flags().StringSliceVar(&strategies, "strategies", nil, "Strategy works to evaluate as factors")
	analyseCmd.Flags().StringVar(&groupRule, "group-rule", "daily", "Time rule for IC and group-return series")
	analyseCmd.Flags().IntVarP(&groups, "groups", "g", 10, "Number of rank groups")
	analyseCmd.Flags().BoolVar(&dropPeak, "drop-peak", true, "Winsorize factor extremes before analysis")
	analyseCmd.Flags().BoolVar(&spearman, "spearman", false, "Use Spearman rank correlation for ICs")
	analyseCmd.Flags().StringVarP(&runName, "name", "n", "", "Run name for storage (defaults to data directory)")
	analyseCmd.Flags().BoolVar(&noStore, "no-store", false, "Skip persisting the run")

	analyseCmd.MarkFlagRequired("data")
	analyseCmd.MarkFlagRequired("facs")
	analyseCmd.MarkFlagRequired("labels")

	return analyseCmd
}

func runAnalyse(ctx context.Context, cfg *config.AppConfig) error {
	log := logger.Default()

	dl, err := loader.Load(dataDir)
	if err != nil {
		return err
	}
	if dl, err = dl.WithFacs(facs, core.BackendExpr); err != nil {
		return err
	}
	allFacs := facs
	if len(strategies) > 0 {
		works := make([]*strategy.StrategyWork, len(strategies))
		for i, s := range strategies {
			if works[i], err = strategy.ParseWork(s); err != nil {
				return err
			}
		}
		if dl, err = dl.WithStrategyWorks(works); err != nil {
			return err
		}
		allFacs = append([]string{}, facs...)
		for _, w := range works {
			allFacs = append(allFacs, w.Name())
		}
	}
	if dl, err = dl.WithLabels(labels); err != nil {
		return err
	}

	method := core.Pearson
	if spearman {
		method = core.Spearman
	}

	fa, err := analyse.New(dl, allFacs, labels, dropPeak)
	if err != nil {
		return err
	}
	if fa, err = fa.WithICOverall(method); err != nil {
		return err
	}
	if fa, err = fa.WithTsIC(groupRule, method); err != nil {
		return err
	}
	if fa, err = fa.WithTsGroupRet(groups); err != nil {
		return err
	}
	if fa, err = fa.WithGroupRet("", groups); err != nil {
		return err
	}
	if fa, err = fa.WithHalfLife(); err != nil {
		return err
	}

	report, err := fa.Summary.Finish()
	if err != nil {
		return err
	}
	report.Render(os.Stdout)

	name := runName
	if name == "" {
		name = dataDir
	}

	if !noStore {
		store, err := storage.NewFromFile(cfg.StoragePath)
		if err != nil {
			return err
		}
		run, err := storage.NewRunRecord(name, report)
		if err != nil {
			return err
		}
		if err := store.CreateRun(ctx, run); err != nil {
			return err
		}
		log.Infof("stored run %q (id %d)", name, run.ID)
	}

	if cfg.Telegram.Enabled {
		bot, err := notification.NewTelegram(notification.TelegramSettings{
			Token: cfg.Telegram.Token,
			Users: []int{cfg.Telegram.UserID},
		}, log)
		if err != nil {
			return err
		}
		notification.OnReport(bot, name, report)
	}

	return nil
}
