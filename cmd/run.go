package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geocode-etl/internal/config"
	"github.com/sells-group/geocode-etl/internal/db"
	"github.com/sells-group/geocode-etl/internal/etlerr"
	"github.com/sells-group/geocode-etl/internal/pipeline"
	"github.com/sells-group/geocode-etl/pkg/geocode"
)

// runETL opens both databases, runs the pipeline once and closes them.
func runETL(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "geocode-etl"))

	src, err := db.OpenOracle(ctx,
		cfg.Source.Host, cfg.Source.Port, cfg.Source.ServiceName,
		cfg.Source.User, cfg.Source.Password,
	)
	if err != nil {
		log.Error("source connection failed", zap.Error(err))
		return err
	}
	defer src.Close() //nolint:errcheck

	pool, err := db.ConnectPostgres(ctx, cfg.Sink.DSN())
	if err != nil {
		log.Error("destination connection failed", zap.Error(err))
		return err
	}
	defer pool.Close()

	summary, err := buildRunner(cfg, src, pool).Run(ctx)
	if err != nil {
		log.Error("run failed", zap.String("kind", etlerr.Label(err)), zap.Error(err))
		return err
	}

	log.Info("run succeeded",
		zap.String("run_id", summary.RunID),
		zap.Int("fetched", summary.Fetched),
		zap.Int64("loaded", summary.Loaded),
		zap.Duration("duration", summary.Duration),
	)
	return nil
}

// buildRunner wires the pipeline components from configuration.
func buildRunner(c *config.Config, src pipeline.Queryer, pool db.Pool) *pipeline.Runner {
	return pipeline.NewRunner(
		pipeline.NewSourceReader(src),
		pipeline.NewTransformer(newGeocoder(c.Geocode), c.Geocode.Concurrency),
		pipeline.NewSinkWriter(pool, c.Sink.Method),
		pipeline.Options{
			Query:  c.Source.SelectQuery(),
			Limit:  c.ETL.Limit,
			Table:  c.Sink.Table,
			Atomic: c.Sink.Atomic,
		},
	)
}

func newGeocoder(c config.GeocodeConfig) geocode.Client {
	return geocode.NewClient(c.BaseURL, c.Key,
		geocode.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second),
		geocode.WithRateLimit(c.RateLimit),
	)
}
