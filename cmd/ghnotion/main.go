// Package main provides the CLI entrypoint for ghnotion.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JohanCodinha/ghnotion/internal/config"
	"github.com/JohanCodinha/ghnotion/internal/gh"
	"github.com/JohanCodinha/ghnotion/internal/journal"
	"github.com/JohanCodinha/ghnotion/internal/logger"
	"github.com/JohanCodinha/ghnotion/internal/notion"
	"github.com/JohanCodinha/ghnotion/internal/sync"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ghnotion",
	Short: "Sync GitHub issues into a Notion database",
	Long: `ghnotion mirrors a repository's open issues into a Notion database,
one row per issue. Repeated runs keep existing rows current instead
of creating duplicates.

Configuration comes from the environment (or a .env file): GITHUB_OWNER,
GITHUB_REPO (or GITHUB_REPOSITORY), NOTION_TOKEN, NOTION_DATABASE_ID.`,
}

var (
	dryRun    bool
	batchSize int
	limit     int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full sync of open issues into the database",
	Long: `Fetch the repository's open issues (pull requests excluded), classify each
with a follow-up flag from its newest comment, and create or update one
database row per issue. Writes run in batches against the Notion API.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be written without writing")
	syncCmd.Flags().IntVar(&batchSize, "batch-size", 0, "override write batch size (default from SYNC_BATCH_SIZE or 10)")
	historyCmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(historyCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.LogFile != "" {
		if err := logger.SetLogFile(cfg.LogFile); err != nil {
			return err
		}
		defer logger.Close()
	}

	token, err := gh.GetToken()
	if err != nil {
		return fmt.Errorf("failed to get GitHub token: %w\nRun 'gh auth login' to authenticate", err)
	}

	size := cfg.BatchSize
	if batchSize > 0 {
		size = batchSize
	}

	engine, err := sync.NewEngine(gh.New(token), notion.New(cfg.NotionToken), cfg.RepoSlug(), cfg.DatabaseID, size)
	if err != nil {
		return err
	}
	engine.SetDryRun(dryRun)

	// Progress lines only when someone is watching
	if isatty.IsTerminal(os.Stdout.Fd()) {
		engine.SetProgress(func(format string, args ...interface{}) {
			fmt.Printf(format+"\n", args...)
		})
	}

	started := time.Now()
	summary, runErr := engine.Run()

	if !dryRun {
		recordRun(cfg, started, summary, runErr)
	}

	if runErr != nil {
		return runErr
	}

	fmt.Println(formatSummary(summary, dryRun))
	return nil
}

// recordRun writes the run's outcome to the local journal. Best effort: a
// journal failure never fails the sync.
func recordRun(cfg *config.Config, started time.Time, summary *sync.Summary, runErr error) {
	path, err := journalPath()
	if err != nil {
		logger.Warn("journal: %v", err)
		return
	}

	db, err := journal.Open(path)
	if err != nil {
		logger.Warn("journal: %v", err)
		return
	}
	defer db.Close()

	run := journal.Run{
		Repo:       cfg.RepoSlug(),
		DatabaseID: cfg.DatabaseID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Status:     journal.StatusOK,
	}
	if summary != nil {
		run.Fetched = summary.Fetched
		run.Created = summary.Created
		run.Updated = summary.Updated
	}
	if runErr != nil {
		run.Status = journal.StatusFailed
		run.Error = runErr.Error()
	}

	if err := db.Record(run); err != nil {
		logger.Warn("journal: %v", err)
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := journalPath()
	if err != nil {
		return err
	}

	db, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Recent(limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no sync runs recorded yet")
		return nil
	}

	for _, run := range runs {
		fmt.Println(formatRun(run))
	}
	return nil
}

// journalPath returns ~/.cache/ghnotion/journal.db, creating the directory.
func journalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".cache", "ghnotion")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create journal directory: %w", err)
	}

	return filepath.Join(dir, "journal.db"), nil
}

// formatSummary renders the end-of-run banner.
func formatSummary(s *sync.Summary, dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("dry run: %d issues fetched, would create %d and update %d rows",
			s.Fetched, s.Created, s.Updated)
	}
	return fmt.Sprintf("synced %d issues (%d created, %d updated) in %s",
		s.Fetched, s.Created, s.Updated, s.Duration.Round(time.Millisecond))
}

// formatRun renders one journal entry for the history listing.
func formatRun(run journal.Run) string {
	line := fmt.Sprintf("%s  %s → %s  fetched %d, created %d, updated %d  [%s]",
		humanize.Time(run.StartedAt), run.Repo, run.DatabaseID,
		run.Fetched, run.Created, run.Updated, run.Status)
	if run.Error != "" {
		line += "  " + run.Error
	}
	return line
}
