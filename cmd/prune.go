package cmd

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/application"
	"github.com/candigo/candigo/internal/logger"
	"github.com/candigo/candigo/internal/store"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old skipped and failed applications from the tracking store",
	Run: func(cmd *cobra.Command, _ []string) {
		prune(cmd)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().Duration("older-than", 90*24*time.Hour, "delete records whose last state change is older than this")
	pruneCmd.Flags().Bool("include-sent", false, "also delete SENT records; their dedup protection is lost")
}

// prune removes terminal records past their retention. SENT records are
// kept by default: deleting one makes the engine treat the same opening
// as novel again.
func prune(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	storePath := defaultStorePath
	if config != nil && config.Store != nil && config.Store.Path != "" {
		storePath = config.Store.Path
	}
	st, err := store.NewSQLiteStore(storePath)
	if err != nil {
		logger.Fatal("opening the tracking store", zap.Error(err))
	}
	defer st.Close()

	olderThan, _ := cmd.Flags().GetDuration("older-than")
	states := []application.State{application.StateSkipped, application.StateFailed}
	if ok, _ := cmd.Flags().GetBool("include-sent"); ok {
		states = append(states, application.StateSent)
	}

	cutoff := time.Now().Add(-olderThan)
	n, err := st.Prune(ctx, cutoff, states...)
	if err != nil {
		logger.Fatal("pruning the tracking store", zap.Error(err))
	}

	logger.Info("pruned records",
		zap.Int("count", n),
		zap.Time("cutoff", cutoff),
	)
}
