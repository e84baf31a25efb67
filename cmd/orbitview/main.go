package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/orbitview/orbitview/ai"
	"github.com/orbitview/orbitview/ai/cache"
	"github.com/orbitview/orbitview/ai/indexer"
	"github.com/orbitview/orbitview/ai/matching"
	"github.com/orbitview/orbitview/internal/profile"
	"github.com/orbitview/orbitview/internal/version"
	"github.com/orbitview/orbitview/store"
	"github.com/orbitview/orbitview/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "orbitview",
	Short: `Semantic matching core for the OrbitView professional network: embeds profile content, indexes vectors, and ranks skill matches.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory (ignore error if file doesn't exist).
		_ = godotenv.Load()
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed content items that have no up-to-date vector index entry",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}

		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		embedder, err := newEmbedder(instanceProfile)
		if err != nil {
			return err
		}

		ix := indexer.New(storeInstance, embedder, instanceProfile.BackfillLimit)

		if !viper.GetBool("follow") {
			ctx := context.Background()
			indexed, err := ix.RunOnce(ctx)
			if err != nil {
				return err
			}
			slog.Info("backfill complete", "indexed", indexed)
			return nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		interval := time.Duration(instanceProfile.BackfillSeconds) * time.Second
		slog.Info("backfill loop started", "interval", interval)
		if err := ix.Run(ctx, interval); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Compute a one-shot skill-match score between requirements and skills",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}

		requirements := viper.GetStringSlice("requirements")
		skills := viper.GetStringSlice("skills")

		embedder, err := newEmbedder(instanceProfile)
		if err != nil {
			return err
		}

		matcher := matching.NewMatcher(embedder)
		score, err := matcher.Match(context.Background(), requirements, skills)
		if err != nil {
			return err
		}

		fmt.Printf("match score: %.4f (threshold %.2f)\n", score, instanceProfile.MatchMinScore)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema for the configured driver",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}

		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		slog.Info("migration complete", "driver", instanceProfile.Driver)
		return nil
	},
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func openStore(instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		slog.Error("failed to create db driver", "error", err)
		return nil, err
	}

	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(context.Background()); err != nil {
		slog.Error("failed to migrate", "error", err)
		storeInstance.Close()
		return nil, err
	}
	return storeInstance, nil
}

func newEmbedder(instanceProfile *profile.Profile) (ai.EmbeddingService, error) {
	cfg := ai.NewConfigFromProfile(instanceProfile)
	if !cfg.Enabled {
		slog.Error("embedding provider not configured, set ORBITVIEW_EMBEDDING_API_KEY")
		return nil, fmt.Errorf("embedding provider not configured")
	}

	embedder, err := ai.NewEmbeddingService(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return cache.NewCachingEmbedder(embedder, cache.DefaultEmbeddingCacheConfig()), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of the service, can be "demo", "dev" or "prod"`)
	rootCmd.PersistentFlags().String("data", ".", "data directory (sqlite database location)")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name (required for postgres)")

	backfillCmd.Flags().Bool("follow", false, "keep running and backfill on an interval")
	matchCmd.Flags().StringSlice("requirements", nil, "project requirement skills")
	matchCmd.Flags().StringSlice("skills", nil, "candidate skills")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if err := viper.BindPFlags(backfillCmd.Flags()); err != nil {
		panic(err)
	}
	if err := viper.BindPFlags(matchCmd.Flags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(backfillCmd, matchCmd, migrateCmd)
}
