// Package backfillcmder provides the `mythos backfill` CLI command.
package backfillcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mythos-rpg/mythos/cmd/mythos/dbpath"
	"github.com/mythos-rpg/mythos/pkg/cliui"
	"github.com/mythos-rpg/mythos/pkg/config"
	"github.com/mythos-rpg/mythos/pkg/dotdir"
	embeddingutils "github.com/mythos-rpg/mythos/pkg/embeddings/utils"
	"github.com/mythos-rpg/mythos/pkg/logger"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/storage"
	"github.com/mythos-rpg/mythos/pkg/storage/sqlite"
	"github.com/mythos-rpg/mythos/pkg/vector"
	"github.com/mythos-rpg/mythos/pkg/vector/sqlitevec"
)

const backfillLongDesc string = `Vectorize an existing save's turn history.

Saves created before semantic memory was enabled, or played with embedding
turned off, have no memory vectors. Backfill embeds every turn in the save's
history so memory recall covers the whole story. Already-vectorized turns
are skipped.

Examples:
  mythos backfill
  mythos backfill --save manual-1718000000000
  mythos backfill --sqlite ./mythos.db --verbose`

const backfillShortDesc string = "Vectorize an existing save's turn history"

type backfillCommander struct {
	sqlitePath     string
	saveID         string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	vectorProvider string
	vectorTarget   string
	verbose        bool
	debug          bool
}

// NewBackfillCmd creates the backfill cobra command.
func NewBackfillCmd() *cobra.Command {
	cmder := &backfillCommander{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: backfillShortDesc,
		Long:  backfillLongDesc,
		Args:  cobra.NoArgs,
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
			cmder.embeddingDims = cfg.Embedding.Dimensions
			cmder.vectorProvider = cfg.VectorStore.Provider
			cmder.vectorTarget = cfg.VectorStore.Target
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), cmd)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.saveID, "save", "", "Save id to backfill (default: resume state, else most recent)")
	cmd.Flags().StringVar(&cmder.embeddingProv, "embedding-provider", defaults.Embedding.Provider, "Embedding provider (ollama, gemini)")
	cmd.Flags().StringVar(&cmder.embeddingTgt, "embedding-target", defaults.Embedding.Target, "Embedding provider URL")
	cmd.Flags().StringVar(&cmder.embeddingModel, "embedding-model", defaults.Embedding.Model, "Embedding model name")
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Show per-turn details")

	return cmd
}

func (c *backfillCommander) run(ctx context.Context, cmd *cobra.Command) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	path, ok := dbpath.Resolve(c.sqlitePath)
	if !ok {
		return fmt.Errorf("could not find mythos SQLite database; pass --sqlite")
	}

	driver, err := sqlite.NewDriver(path)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", path, err)
	}
	defer driver.Close()

	save, err := c.loadSave(ctx, cmd, driver)
	if err != nil {
		return err
	}

	if save.Data.SavedState == nil || len(save.Data.SavedState.History) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("Nothing to backfill: save has no history."))
		return nil
	}

	embedder, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
		APIKey:       os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	memory := vector.NewMemory(driver, embedder, log)

	// An explicitly configured sqlite-vec store must be populated too, so a
	// broken index fails the backfill instead of silently degrading.
	if c.vectorProvider == config.VectorStoreSQLiteVec {
		target := c.vectorTarget
		if target == "" {
			target = path
		}

		idx, err := sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     target,
			Dimensions: c.embeddingDims,
		}, log)
		if err != nil {
			return fmt.Errorf("opening sqlite-vec index: %w", err)
		}
		defer idx.Close()

		memory = memory.WithIndex(idx)
	}

	items := make([]vector.BackfillItem, 0, len(save.Data.SavedState.History))
	for _, t := range save.Data.SavedState.History {
		if t.Text() == "" {
			continue
		}
		items = append(items, vector.BackfillItem{
			Role:      string(t.Role),
			Text:      t.Text(),
			Timestamp: t.Timestamp,
		})
	}

	if c.verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "Save: %s (%d turns)\n", save.ID, len(items))
	}

	var saved int
	err = cliui.Step(cmd.OutOrStdout(), fmt.Sprintf("Vectorizing %s", save.Name), func() error {
		saved = memory.Backfill(ctx, items)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s %d of %d turns vectorized\n",
		cliui.SuccessMark, saved, len(items))
	return nil
}

// loadSave picks the save to backfill: an explicit --save id, the resume
// pointer, or the most recently updated save.
func (c *backfillCommander) loadSave(ctx context.Context, cmd *cobra.Command, driver storage.Driver) (*session.SaveFile, error) {
	id := c.saveID

	if id == "" {
		configDir, _ := cmd.Flags().GetString("config-dir")
		if resume, err := dotdir.NewManager().LoadResumeState(configDir); err == nil && resume != nil {
			id = resume.SaveID
		}
	}

	if id != "" {
		value, err := driver.Get(ctx, storage.CollectionSaves, id)
		if err != nil {
			return nil, fmt.Errorf("loading save %q: %w", id, err)
		}

		var save session.SaveFile
		if err := json.Unmarshal(value, &save); err != nil {
			return nil, fmt.Errorf("decoding save %q: %w", id, err)
		}
		return &save, nil
	}

	records, err := driver.List(ctx, storage.CollectionSaves)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}

	saves := make([]session.SaveFile, 0, len(records))
	for _, rec := range records {
		var save session.SaveFile
		if err := json.Unmarshal(rec.Value, &save); err != nil {
			continue
		}
		saves = append(saves, save)
	}

	if len(saves) == 0 {
		return nil, fmt.Errorf("no saves found; pass --save")
	}

	sort.SliceStable(saves, func(i, j int) bool {
		return saves[i].UpdatedAt > saves[j].UpdatedAt
	})

	return &saves[0], nil
}
