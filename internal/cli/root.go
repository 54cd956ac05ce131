// Package cli implements the coach CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/coach-context/internal/coach"
	"github.com/rcliao/coach-context/internal/config"
	"github.com/rcliao/coach-context/internal/history"
	"github.com/rcliao/coach-context/internal/logging"
	"github.com/rcliao/coach-context/internal/model"
	"github.com/rcliao/coach-context/internal/pack"
	"github.com/rcliao/coach-context/internal/quota"
	"github.com/rcliao/coach-context/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "coach",
	Short: "Recovery journal with a context-aware coach",
	Long:  "Record check-ins, journal entries and reasons, then chat with a coach that cites them. SQLite-backed, single binary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging.Level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $COACH_DB or ~/.coach/coach.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.coach/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.Data.DBPath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func newTracker(s *store.SQLiteStore) *quota.Tracker {
	return quota.NewTracker(s, quota.Config{
		DailyLimit:         cfg.Quota.DailyLimit,
		NearLimitThreshold: cfg.Quota.NearLimitThreshold,
	}, logger)
}

func newPacker(s *store.SQLiteStore, t *quota.Tracker) *pack.Packer {
	return pack.New(s, t, pack.Config{
		CheckInLimit: cfg.Pack.CheckIns,
		JournalLimit: cfg.Pack.Journals,
	}, logger)
}

// newService wires the full send pipeline over one store.
func newService(s *store.SQLiteStore) (*coach.Service, *quota.Tracker) {
	tracker := newTracker(s)
	client := coach.NewClient(coach.ClientConfig{
		Endpoint: cfg.Coach.Endpoint,
		// Read at send time so a key set after startup is honored.
		Credential: func() string {
			if key := os.Getenv("COACH_API_KEY"); key != "" {
				return key
			}
			return cfg.Coach.APIKey
		},
		Timeout: cfg.CoachTimeout(),
	}, logger)
	svc := coach.NewService(s, newPacker(s, tracker), history.NewEncoder(cfg.History.Limit, logger), client, tracker, logger)
	return svc, tracker
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textOutput() bool { return formatFlag == "text" }

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// readContent joins args, or reads piped stdin when there are none.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	return readPiped(os.Stdin)
}

// readPiped reads f unless it is a terminal or cannot be inspected.
func readPiped(f *os.File) string {
	stat, err := f.Stat()
	if err != nil {
		return ""
	}
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(f)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}
