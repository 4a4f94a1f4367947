package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-variants/internal/ingest"
	"github.com/inodb/vibe-variants/internal/merge"
)

// ingestFlagKeys maps config keys to ingest flags.
var ingestFlagKeys = map[string]string{
	"store.backend":           "backend",
	"store.duckdb.path":       "duckdb-path",
	"store.mongo.uri":         "mongo-uri",
	"store.mongo.database":    "mongo-database",
	"store.elastic.addresses": "es-addresses",
	"ingest.study":            "study",
	"ingest.include_samples":  "include-samples",
	"ingest.include_stats":    "include-stats",
	"ingest.batch_size":       "batch-size",
	"ingest.workers":          "workers",
	"ingest.concurrency":      "concurrency",
}

func newIngestCmd() *cobra.Command {
	var (
		inputFormat   string
		fileID        string
		includeSource bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [flags] <file>...",
		Short: "Merge variants from VCF or MAF files into the store",
		Long: `Ingest parses every input file, classifies its variants and merges them
into the configured store. Variants already present keep their canonical
fields; each file adds its own evidence. The memory backend persists
nothing and prints the keys of the merged documents instead.`,
		Example: `  vibe-variants ingest --study s1 calls.vcf.gz
  vibe-variants ingest --backend mongo --study tcga data_mutations.txt
  vibe-variants ingest --backend memory --concurrency 4 a.vcf b.vcf c.maf`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, ingestFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileID != "" && len(args) > 1 {
				return usageError{msg: "--file-id can only be used with a single input file"}
			}
			return runIngest(cmd.Context(), cmd.OutOrStdout(), args, ingest.FileOptions{
				Format:        inputFormat,
				FileID:        fileID,
				StudyID:       viper.GetString("ingest.study"),
				IncludeSource: includeSource,
			})
		},
	}

	f := cmd.Flags()
	f.String("backend", BackendDuckDB, "Store backend: memory, duckdb, mongo, elastic")
	f.String("duckdb-path", "variants.duckdb", "DuckDB database file")
	f.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	f.String("mongo-database", "variants", "MongoDB database")
	f.StringSlice("es-addresses", []string{"http://localhost:9200"}, "Elasticsearch addresses")
	f.String("study", "", "Study the input files belong to")
	f.StringVar(&fileID, "file-id", "", "File identifier (default: input file name)")
	f.StringVar(&inputFormat, "input-format", "", "Input format: vcf, maf (auto-detected if not specified)")
	f.BoolVar(&includeSource, "include-source", false, "Keep the raw VCF line with each record")
	f.Bool("include-samples", true, "Store per-sample genotype data")
	f.Bool("include-stats", true, "Store per-cohort allele statistics")
	f.Int("batch-size", ingest.DefaultBatchSize, "Records per write batch")
	f.Int("workers", 0, "Conversion workers per file (default: number of CPUs)")
	f.Int("concurrency", 1, "Files ingested at the same time")

	return cmd
}

func runIngest(ctx context.Context, out io.Writer, paths []string, opts ingest.FileOptions) error {
	if opts.StudyID == "" {
		return usageError{msg: "--study is required"}
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := make([]ingest.Source, 0, len(paths))
	for _, p := range paths {
		s, err := ingest.FileSource(p, opts)
		if err != nil {
			return usageError{msg: fmt.Sprintf("%s: %v", p, err)}
		}
		sources = append(sources, s)
	}

	exec, closeStore, err := openExecutor(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}()

	h, err := merge.Init(ctx, exec, logger)
	if err != nil {
		return err
	}

	coord := merge.NewCoordinator(merge.Options{
		IncludeSamples: viper.GetBool("ingest.include_samples"),
		IncludeStats:   viper.GetBool("ingest.include_stats"),
	})
	coord.SetLogger(logger)

	p := ingest.NewPipeline(coord, h)
	p.SetLogger(logger)
	p.SetBatchSize(viper.GetInt("ingest.batch_size"))
	p.SetWorkers(viper.GetInt("ingest.workers"))

	sums, err := p.RunAll(ctx, sources, viper.GetInt("ingest.concurrency"))
	for _, s := range sums {
		if s == nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: %d records in %d batches (%d conversion errors, %d rejected)\n",
			s.Source, s.Records, s.Batches, s.ConvertErrors, s.Rejected)
	}
	if err != nil {
		return err
	}

	if mem, ok := exec.(*merge.MemoryExecutor); ok {
		for _, id := range mem.IDs() {
			fmt.Fprintln(out, id)
		}
	}
	return nil
}
