// Package servecmder provides the mythos API server cobra command.
package servecmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/api"
	"github.com/mythos-rpg/mythos/cmd/mythos/dbpath"
	"github.com/mythos-rpg/mythos/pkg/config"
	embeddingutils "github.com/mythos-rpg/mythos/pkg/embeddings/utils"
	"github.com/mythos-rpg/mythos/pkg/logger"
	"github.com/mythos-rpg/mythos/pkg/storage"
	"github.com/mythos-rpg/mythos/pkg/storage/inmemory"
	"github.com/mythos-rpg/mythos/pkg/storage/sqlite"
	"github.com/mythos-rpg/mythos/pkg/vector"
	"github.com/mythos-rpg/mythos/pkg/vector/sqlitevec"
)

type serveCommander struct {
	listen         string
	sqlitePath     string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	memoryEnabled  bool
	vectorProvider string
	vectorTarget   string
	debug          bool

	logger *zap.Logger
}

const serveLongDesc string = `Run the mythos API server for listing, managing, and searching save files.

Saves are served from the shared SQLite database. When an embedding provider
is configured, GET /v1/search recalls story memories by semantic similarity.`

const serveShortDesc string = "Run the mythos API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("listen") {
				cmder.listen = cfg.API.Listen
			}
			if !cmd.Flags().Changed("sqlite") {
				cmder.sqlitePath = cfg.Storage.SQLitePath
			}
			if !cmd.Flags().Changed("embedding-provider") {
				cmder.embeddingProv = cfg.Embedding.Provider
			}
			if !cmd.Flags().Changed("embedding-target") {
				cmder.embeddingTgt = cfg.Embedding.Target
			}
			if !cmd.Flags().Changed("embedding-model") {
				cmder.embeddingModel = cfg.Embedding.Model
			}
			if !cmd.Flags().Changed("memory") {
				cmder.memoryEnabled = cfg.Memory.Enabled
			}
			cmder.embeddingDims = cfg.Embedding.Dimensions
			cmder.vectorProvider = cfg.VectorStore.Provider
			cmder.vectorTarget = cfg.VectorStore.Target
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", defaults.API.Listen, "Address for API server to listen on")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database (default: resolved, else in-memory)")
	cmd.Flags().StringVar(&cmder.embeddingProv, "embedding-provider", defaults.Embedding.Provider, "Embedding provider (ollama, gemini)")
	cmd.Flags().StringVar(&cmder.embeddingTgt, "embedding-target", defaults.Embedding.Target, "Embedding provider URL")
	cmd.Flags().StringVar(&cmder.embeddingModel, "embedding-model", defaults.Embedding.Model, "Embedding model name")
	cmd.Flags().BoolVar(&cmder.memoryEnabled, "memory", defaults.Memory.Enabled, "Enable the semantic search endpoint")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	driver, dbPath, err := c.newStorageDriver()
	if err != nil {
		return err
	}
	defer driver.Close()

	cfg := api.Config{
		ListenAddr: c.listen,
		Memory:     c.newMemory(ctx, driver, dbPath),
	}

	server := api.NewServer(cfg, driver, c.logger)

	c.logger.Info("starting API server",
		zap.String("listen", c.listen),
		zap.Bool("search", cfg.Memory != nil),
	)

	return server.Run()
}

func (c *serveCommander) newStorageDriver() (storage.Driver, string, error) {
	if path, ok := dbpath.Resolve(c.sqlitePath); ok {
		driver, err := sqlite.NewDriver(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", path))
		return driver, path, nil
	}

	c.logger.Info("using in-memory storage")
	return inmemory.NewDriver(), "", nil
}

// newMemory builds the semantic search memory, or nil when memory is disabled
// or the embedder cannot be constructed. The server still runs without it;
// only /v1/search is unavailable.
func (c *serveCommander) newMemory(ctx context.Context, driver storage.Driver, dbPath string) *vector.Memory {
	if !c.memoryEnabled {
		return nil
	}

	embedder, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
		APIKey:       os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		c.logger.Warn("search disabled, embedder unavailable", zap.Error(err))
		return nil
	}

	memory := vector.NewMemory(driver, embedder, c.logger)

	if c.vectorProvider == config.VectorStoreSQLiteVec {
		if idx := c.newIndex(dbPath); idx != nil {
			memory = memory.WithIndex(idx)
		}
	}

	return memory
}

// newIndex builds the sqlite-vec KNN index, or nil when it cannot be opened.
// Search still works without it via the linear scan.
func (c *serveCommander) newIndex(dbPath string) vector.Index {
	target := c.vectorTarget
	if target == "" {
		target = dbPath
	}
	if target == "" {
		c.logger.Warn("sqlite-vec index needs a database file, falling back to scan")
		return nil
	}

	idx, err := sqlitevec.NewIndex(sqlitevec.Config{
		DBPath:     target,
		Dimensions: c.embeddingDims,
	}, c.logger)
	if err != nil {
		c.logger.Warn("sqlite-vec index unavailable, falling back to scan", zap.Error(err))
		return nil
	}

	return idx
}
