// Command load ingests a GeoJSON or NDJSON file of forest density cells.
//
//	load --file cells.ndjson.gz --source hansen_2023 --replace
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/forest-density-service/internal/config"
	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/forest-density-service/internal/pkg/logger"
	"github.com/forest-density-service/internal/repository/cache"
	"github.com/forest-density-service/internal/repository/postgres"
	"github.com/forest-density-service/internal/usecase"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	v := viper.New()

	cli, err := parseFlags(args, v, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.LoadFrom(v, ".env")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log, err := logger.NewCLI(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	opts := cli.opts

	// fail on bad options before connecting anywhere; an explicit
	// --batch-size 0 is an error rather than a request for the default
	check := opts
	if !cli.batchSizeSet {
		check.BatchSize = cfg.Ingest.BatchSize
	}
	if check.SRID == 0 {
		check.SRID = cfg.Ingest.SRID
	}
	if err := check.WithDefaults().Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to connect to PostgreSQL: %v\n", err)
		return 1
	}
	defer db.Close()

	var cacheRepo repository.CacheRepository
	if redisClient, err := cache.NewRedis(&cfg.Redis, log); err != nil {
		log.Warn("Redis unavailable, cached stats will expire on their own", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = cache.NewCacheRepository(redisClient)
	}

	loadUC := usecase.NewLoadUseCase(postgres.NewForestDensityRepository(db, log), cacheRepo, log, cfg.LoadDefaults())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := loadUC.Load(ctx, opts, func(inserted int64) {
		fmt.Fprintf(stdout, "Inserted %d rows...\n", inserted)
	})
	if err != nil {
		if summary != nil && summary.Inserted > 0 {
			fmt.Fprintf(stderr, "Committed %d rows before the failure.\n", summary.Inserted)
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if summary.Deleted > 0 {
		fmt.Fprintf(stdout, "Deleted %d existing rows.\n", summary.Deleted)
	}
	if summary.Skipped > 0 {
		fmt.Fprintf(stdout, "Skipped %d invalid features.\n", summary.Skipped)
	}
	fmt.Fprintf(stdout, "Done. Inserted %d rows.\n", summary.Inserted)
	return 0
}

type cliOptions struct {
	opts         domain.LoadOptions
	batchSizeSet bool
}

// parseFlags reads the command line into load options. Mode, SRID and log
// level are bound into v so that they override the environment.
func parseFlags(args []string, v *viper.Viper, output io.Writer) (*cliOptions, error) {
	fs := pflag.NewFlagSet("load", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "input":
			name = "file"
		case "chunk-size":
			name = "batch-size"
		}
		return pflag.NormalizedName(name)
	})
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: load --file PATH [flags]")
		fs.PrintDefaults()
	}

	file := fs.StringP("file", "f", "", "input GeoJSON FeatureCollection or NDJSON file (.gz/.zst allowed); alias --input")
	source := fs.String("source", "", "source label for every row; required with --replace")
	canopyField := fs.String("canopy-field", domain.DefaultCanopyField, "feature property holding canopy cover percent")
	tileField := fs.String("tile-id-field", domain.DefaultTileField, "feature property holding the tile id")
	batchSize := fs.Int("batch-size", 0, "features per transaction (default INGEST_BATCH_SIZE); alias --chunk-size")
	fs.Int("srid", 4326, "CRS of the input coordinates (4326 or 3857)")
	replace := fs.Bool("replace", false, "delete existing rows of --source before loading")
	fs.String("mode", string(domain.LoadModeStrict), "strict aborts on the first bad feature, lenient skips it")
	ignoreConflicts := fs.Bool("ignore-conflicts", false, "skip rows violating a unique constraint")
	fs.String("log-level", "info", "log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}

	for key, flag := range map[string]string{
		"INGEST_MODE": "mode",
		"INGEST_SRID": "srid",
		"LOG_LEVEL":   "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	opts := domain.LoadOptions{
		Path:            *file,
		Source:          *source,
		Replace:         *replace,
		CanopyField:     *canopyField,
		TileField:       *tileField,
		BatchSize:       *batchSize,
		IgnoreConflicts: *ignoreConflicts,
	}

	// flags win over the environment, unset flags fall back to it
	if fs.Changed("mode") {
		mode, err := domain.ParseLoadMode(v.GetString("INGEST_MODE"))
		if err != nil {
			return nil, err
		}
		opts.Mode = mode
	}
	if fs.Changed("srid") {
		opts.SRID = v.GetInt("INGEST_SRID")
	}

	return &cliOptions{opts: opts, batchSizeSet: fs.Changed("batch-size")}, nil
}
