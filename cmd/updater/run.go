package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/config"
	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/ArqamWaheed/submissionUpdater/notify"
	"github.com/ArqamWaheed/submissionUpdater/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the live catalog, reconcile it and deliver the report",
		Long: `run fetches and extracts the live catalog, loads the reference catalog,
aligns their terms, reconciles every pair, writes the report, persists the
catalog and report, and delivers notifications.`,
		Example: `  updater run --source https://uni.example/programs/bscs --reference reference.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}

	addSourceFlags(cmd)
	addCompareFlags(cmd)
	d := config.DefaultConfig()
	cmd.Flags().String("store-dir", d.StoreDir, "directory for the latest catalog and report snapshots, empty to disable")
	cmd.Flags().String("database-url", d.DatabaseURL, "Postgres URL for catalog and report snapshots")
	return cmd
}

func (a *app) run(ctx context.Context) error {
	if a.cfg.ReferencePath == "" {
		return fmt.Errorf("a reference catalog is required")
	}
	reference, err := loadCatalog(a.cfg.ReferencePath)
	if err != nil {
		return err
	}

	s, err := a.newScraper()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	gatherers := prometheus.Gatherers{reg}
	if s != nil {
		gatherers = append(gatherers, s.Metrics.Registry)
	}
	stop := a.serveMetrics(gatherers)
	defer stop()

	slog.Info("starting run",
		slog.String("source", sourceLabel(a.cfg)),
		slog.String("reference", a.cfg.ReferencePath),
		slog.Int("workers", a.cfg.Parallelism),
	)

	start := time.Now()
	live, result, err := a.capture(ctx, s)
	if err != nil {
		return err
	}

	report, metrics, err := a.reconcileCatalogs(ctx, live, reference, reg)
	if err != nil {
		return err
	}
	if err := a.writeReport(report); err != nil {
		return err
	}

	if err := a.deliver(ctx, live, report); err != nil {
		slog.Warn("report persistence failed", slog.Any("error", err))
	}

	printSummary(a.stdout, result, report, time.Since(start), a.cfg.OutputFile, metrics)
	if report.HasDifferences() {
		return errDiffsFound
	}
	return nil
}

// deliver persists and notifies concurrently. It returns the persistence
// error, if any; notification failures are only logged. Neither affects the
// report that was already written.
func (a *app) deliver(ctx context.Context, live *models.Catalog, report *models.Report) error {
	var g errgroup.Group
	g.Go(func() error {
		return a.persist(ctx, live, report)
	})
	g.Go(func() error {
		notifier := a.notifier()
		if notifier == nil {
			return nil
		}
		if !report.HasDifferences() && !a.cfg.Notify.OnMatch {
			slog.Debug("no differences, skipping notification")
			return nil
		}
		if err := notifier.Send(ctx, notify.NewMessage(live.SourceIdentifier, report)); err != nil {
			slog.Warn("report delivery failed", slog.Any("error", err))
			return nil
		}
		slog.Info("report delivered", slog.Int("channels", len(notifier)))
		return nil
	})
	return g.Wait()
}

func (a *app) persist(ctx context.Context, live *models.Catalog, report *models.Report) error {
	stores, closeStores, err := a.openStores(ctx, live)
	if err != nil {
		return err
	}
	defer closeStores()
	if len(stores) == 0 {
		return nil
	}

	if err := stores.SaveCatalog(ctx, live); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	if err := stores.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	for _, w := range stores {
		fs, ok := w.(*storage.FileStore)
		if !ok {
			continue
		}
		replaced, err := fs.LoadPrevious()
		if err != nil {
			slog.Warn("reading replaced capture failed", slog.Any("error", err))
			continue
		}
		logPrevious("file", replaced, live)
	}
	return nil
}

// openStores connects every configured store. The Postgres store reports
// its last snapshot of the source before anything is saved.
func (a *app) openStores(ctx context.Context, live *models.Catalog) (storage.Multi, func(), error) {
	var (
		stores storage.Multi
		closer = func() {}
	)

	if a.cfg.StoreDir != "" {
		fs, err := storage.NewFileStore(a.cfg.StoreDir)
		if err != nil {
			return nil, closer, err
		}
		stores = append(stores, fs)
	}

	if a.cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, closer, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, closer, err
		}
		last, err := pg.LatestCatalog(ctx, live.SourceIdentifier)
		if err != nil {
			pg.Close()
			return nil, closer, err
		}
		logPrevious("postgres", last, live)
		slog.Debug("postgres store ready", slog.String("run_id", pg.RunID.String()))
		stores = append(stores, pg)
		closer = pg.Close
	}
	return stores, closer, nil
}

func logPrevious(store string, previous, live *models.Catalog) {
	if previous == nil {
		slog.Debug("no previous capture", slog.String("store", store))
		return
	}
	slog.Info("previous capture found",
		slog.String("store", store),
		slog.Time("captured_at", previous.CapturedAt),
		slog.Int("courses", previous.CourseCount()),
		slog.Int("course_delta", live.CourseCount()-previous.CourseCount()),
	)
}

func (a *app) notifier() notify.Multi {
	n := a.cfg.Notify
	var out notify.Multi
	if n.SMTPHost != "" {
		out = append(out, notify.NewSMTPNotifier(n.SMTPHost, n.SMTPPort, n.SMTPUsername, n.SMTPPassword, n.From, n.To))
	}
	if n.WebhookURL != "" {
		out = append(out, notify.NewWebhookNotifier(n.WebhookURL, n.Timeout))
	}
	return out
}

func sourceLabel(cfg *config.Config) string {
	if cfg.SourceFile != "" {
		return cfg.SourceFile
	}
	return cfg.SourceURL
}
