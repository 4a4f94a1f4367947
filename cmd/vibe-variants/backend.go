package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-variants/internal/duckdb"
	"github.com/inodb/vibe-variants/internal/elastic"
	"github.com/inodb/vibe-variants/internal/merge"
	"github.com/inodb/vibe-variants/internal/mongostore"
)

// Store backends.
const (
	BackendMemory  = "memory"
	BackendDuckDB  = "duckdb"
	BackendMongo   = "mongo"
	BackendElastic = "elastic"
)

// setDefaults registers the defaults of the store.* settings.
func setDefaults() {
	viper.SetDefault("store.backend", BackendDuckDB)
	viper.SetDefault("store.duckdb.path", "variants.duckdb")
	viper.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("store.mongo.database", "variants")
	viper.SetDefault("store.mongo.collection", mongostore.DefaultCollection)
	viper.SetDefault("store.elastic.addresses", []string{"http://localhost:9200"})
	viper.SetDefault("store.elastic.prefix", elastic.DefaultPrefix)
	viper.SetDefault("store.elastic.workers", 2)
}

// openExecutor connects to the configured backend. The returned close
// function releases the connection.
func openExecutor(ctx context.Context, logger *zap.Logger) (merge.Executor, func() error, error) {
	name := viper.GetString("store.backend")
	logger = logger.With(zap.String("backend", name))

	switch name {
	case BackendMemory:
		return merge.NewMemoryExecutor(), func() error { return nil }, nil

	case BackendDuckDB:
		s, err := duckdb.Open(viper.GetString("store.duckdb.path"))
		if err != nil {
			return nil, nil, err
		}
		s.SetLogger(logger)
		logger.Info("opened duckdb store", zap.String("path", s.Path()))
		return s, s.Close, nil

	case BackendMongo:
		s, err := mongostore.Connect(ctx,
			viper.GetString("store.mongo.uri"),
			viper.GetString("store.mongo.database"),
			viper.GetString("store.mongo.collection"))
		if err != nil {
			return nil, nil, err
		}
		s.SetLogger(logger)
		return s, func() error { return s.Close(context.Background()) }, nil

	case BackendElastic:
		client, err := elastic.NewClient(elastic.Config{
			Addresses: elasticAddresses(),
			Username:  viper.GetString("store.elastic.username"),
			Password:  viper.GetString("store.elastic.password"),
		})
		if err != nil {
			return nil, nil, err
		}
		s := elastic.New(client, viper.GetString("store.elastic.prefix"))
		s.SetLogger(logger)
		s.SetWorkers(viper.GetInt("store.elastic.workers"))
		return s, func() error { return nil }, nil
	}

	return nil, nil, usageError{msg: fmt.Sprintf("unknown backend %q (want memory, duckdb, mongo or elastic)", name)}
}

// elasticAddresses accepts a list or a comma-separated string, as set from
// the environment.
func elasticAddresses() []string {
	addrs := viper.GetStringSlice("store.elastic.addresses")
	if len(addrs) == 1 && strings.Contains(addrs[0], ",") {
		addrs = strings.Split(addrs[0], ",")
	}
	return addrs
}
