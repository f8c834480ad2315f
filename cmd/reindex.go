package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sprintboard/src/core/backlog"
	"sprintboard/src/log"
	"sprintboard/src/storage/postgres/backlogctrl"
)

var (
	reindexKind  string
	reindexBatch int
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Recompute stale embeddings",
	Long: `Reindex walks entities whose embedding is missing or older than their last edit and
recomputes it in batches. Entities the provider cannot embed are skipped and stay stale for a
later run.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().StringVar(&reindexKind, "kind", "all", "backlog_item, task, documentation or all")
	reindexCmd.Flags().IntVar(&reindexBatch, "batch", backlog.DefaultRefreshBatch, "entities per provider call")
	rootCmd.AddCommand(reindexCmd)
}

func reindexKinds(s string) ([]backlog.Kind, error) {
	if s == "" || s == "all" {
		return []backlog.Kind{backlog.KindBacklogItem, backlog.KindTask, backlog.KindDocumentation}, nil
	}
	kind, err := backlog.ParseKind(s)
	if err != nil {
		return nil, err
	}
	return []backlog.Kind{kind}, nil
}

type staleRefresher interface {
	RefreshStaleEmbeddings(ctx context.Context, kind backlog.Kind, afterID int64, batch int) (backlog.RefreshStats, error)
}

// reindex pages through stale entities once, in id order. Entities the provider rejects are
// skipped and counted in stillStale.
func reindex(ctx context.Context, r staleRefresher, kind backlog.Kind, batch int, progress func(int)) (refreshed, stillStale int, err error) {
	var cursor int64
	for {
		stats, err := r.RefreshStaleEmbeddings(ctx, kind, cursor, batch)
		if err != nil {
			return refreshed, stillStale, err
		}
		refreshed += stats.Refreshed
		stillStale += stats.Scanned - stats.Refreshed
		progress(stats.Refreshed)
		if stats.Scanned == 0 || stats.LastID <= cursor {
			return refreshed, stillStale, nil
		}
		cursor = stats.LastID
		if err := ctx.Err(); err != nil {
			return refreshed, stillStale, err
		}
	}
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kinds, err := reindexKinds(reindexKind)
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDatabase(db); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}()

	repo, err := backlogctrl.NewRepository(db, viper.GetInt64("snowflake.node"))
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(ctx); err != nil {
		return err
	}

	gateway, err := newEmbeddingGateway(log.WithName("embedding"))
	if err != nil {
		return err
	}
	if err := gateway.Ping(ctx); err != nil {
		return fmt.Errorf("embedding provider %s not usable: %w", gateway.Name(), err)
	}

	service := backlog.NewService(repo,
		backlog.WithEmbedder(gateway),
		backlog.WithLogger(log.WithName("backlog")),
	)

	for _, kind := range kinds {
		bar := progressbar.Default(-1, fmt.Sprintf("reindexing %s", kind))
		refreshed, remaining, err := reindex(ctx, service, kind, reindexBatch, func(n int) { _ = bar.Add(n) })
		_ = bar.Finish()
		if err != nil {
			return err
		}
		log.Info("Reindex finished", "kind", kind, "refreshed", refreshed, "stillStale", remaining)
	}
	return nil
}
