// agentworld runs the autonomous multi-agent orchestrator: three
// long-lived processes (ingress, dispatcher, executor) sharing one
// PostgreSQL datastore.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voxyz/agentworld/pkg/chat"
	"github.com/voxyz/agentworld/pkg/config"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/dispatch"
	"github.com/voxyz/agentworld/pkg/docstore"
	"github.com/voxyz/agentworld/pkg/executor"
	"github.com/voxyz/agentworld/pkg/ingress"
	"github.com/voxyz/agentworld/pkg/llm"
	"github.com/voxyz/agentworld/pkg/policy"
	"github.com/voxyz/agentworld/pkg/scheduler"
	"github.com/voxyz/agentworld/pkg/services"
	"github.com/voxyz/agentworld/pkg/tools"
)

var (
	envFile    string
	tuningFile string
)

func main() {
	root := &cobra.Command{
		Use:   "agentworld",
		Short: "Autonomous multi-agent orchestrator",
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to the .env file")
	root.PersistentFlags().StringVar(&tuningFile, "tuning-file", "agentworld.yaml", "Path to the optional tuning file")

	root.AddCommand(
		&cobra.Command{
			Use:   "ingress",
			Short: "Run the chat ingress adapter",
			RunE:  func(cmd *cobra.Command, args []string) error { return runIngress(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "dispatcher",
			Short: "Run the dispatcher",
			RunE:  func(cmd *cobra.Command, args []string) error { return runDispatcher(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "executor",
			Short: "Run the executor",
			RunE:  func(cmd *cobra.Command, args []string) error { return runExecutor(cmd.Context()) },
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("agentworld: %v", err)
	}
}

// setup loads configuration and opens the datastore — the shared startup
// path of all three processes. Missing required configuration is fatal.
func setup(ctx context.Context) (*config.Config, *database.Client, *services.Registry, error) {
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Could not load env file, continuing with existing environment", "path", envFile)
	}

	cfg, err := config.Load(tuningFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load database config: %w", err)
	}
	db, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("Connected to datastore", "host", dbCfg.Host, "database", dbCfg.Database)

	svc := services.NewRegistry(db)
	if err := seed(ctx, svc); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("seed datastore: %w", err)
	}

	return cfg, db, svc, nil
}

func runIngress(ctx context.Context) error {
	cfg, db, svc, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if cfg.SlackToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required for the ingress adapter")
	}
	if cfg.FounderUserID == "" {
		return fmt.Errorf("FOUNDER_USER_ID is required for the ingress adapter")
	}

	chatc := chat.NewClient(cfg.SlackToken)
	ingress.New(cfg, svc, chatc).Run(ctx)
	return nil
}

func runDispatcher(ctx context.Context) error {
	cfg, db, svc, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	llmCfg, err := llm.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load llm config: %w", err)
	}
	router := llm.NewRouter(llmCfg, svc.Usage)

	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	drive, err := docstore.NewDriveClient(ctx, cfg.DriveCredentials, cfg.DriveRootFolderID)
	if err != nil {
		return fmt.Errorf("create drive client: %w", err)
	}
	github := docstore.NewGitHubClient(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubBranch)
	chatc := chat.NewClient(cfg.SlackToken)

	d := dispatch.New(cfg, db, svc, router, sched,
		policy.NewCache(svc.Policies, 0), chatc, drive, github)

	go func() {
		if err := d.ServeHealth(ctx); err != nil {
			slog.Error("Health endpoint failed", "error", err)
		}
	}()

	d.Run(ctx)
	return nil
}

func runExecutor(ctx context.Context) error {
	cfg, db, svc, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	llmCfg, err := llm.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load llm config: %w", err)
	}
	router := llm.NewRouter(llmCfg, svc.Usage)

	resolver := tools.NewResolver(
		tools.NewSearcher(cfg.SearchAPIKey, 0),
		tools.NewFetcher(0),
		tools.NewSocialQueue(cfg.SocialQueueURL, cfg.SocialQueueKey, 0),
	)

	notes := docstore.NewNotesClient(cfg.NotesToken, cfg.NotesParentPageID, 0)
	drive, err := docstore.NewDriveClient(ctx, cfg.DriveCredentials, cfg.DriveRootFolderID)
	if err != nil {
		return fmt.Errorf("create drive client: %w", err)
	}
	executor.New(cfg, svc, router, llmCfg, policy.NewCache(svc.Policies, 0), resolver, notes, drive).Run(ctx)
	return nil
}

func closeDB(db *database.Client) {
	if err := db.Close(); err != nil {
		slog.Error("Error closing database client", "error", err)
	}
}

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}
