package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/coach-context/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Track the current clean streak",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show streak statistics and the next milestone",
		Run:   runStreakShow,
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a streak",
		Run:   runStreakStart,
	}
	start.Flags().String("date", "", "Start day, YYYY-MM-DD (default: now)")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Record a relapse and restart the streak now",
		Run:   runStreakReset,
	}

	commit := &cobra.Command{
		Use:   "commit [YYYY-MM-DD]",
		Short: "Set a commitment date, or clear it with --clear",
		Args:  cobra.MaximumNArgs(1),
		Run:   runStreakCommit,
	}
	commit.Flags().Bool("clear", false, "Remove the commitment date")

	cmd.AddCommand(show, start, reset, commit)
	RootCmd.AddCommand(cmd)
}

type streakView struct {
	model.StreakStats
	NextMilestone *model.Milestone `json:"next_milestone,omitempty"`
}

func runStreakShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.CurrentStreakStats(cmd.Context())
	if err != nil {
		exitErr("streak", err)
	}
	view := streakView{StreakStats: st, NextMilestone: s.NextMilestone(st.CurrentDays)}
	if textOutput() {
		if st.StartedAt == nil {
			fmt.Println("No streak started.")
		} else {
			fmt.Printf("Current: %d days (longest %d, total %d)\n", st.CurrentDays, st.LongestDays, st.TotalCleanDays)
		}
		if view.NextMilestone != nil {
			fmt.Printf("Next: %s in %d days\n", view.NextMilestone.Title, view.NextMilestone.Days-st.CurrentDays)
		}
		return
	}
	printJSON(view)
}

func runStreakStart(cmd *cobra.Command, args []string) {
	date, _ := cmd.Flags().GetString("date")
	at, err := parseDay(date)
	if err != nil {
		exitErr("streak start", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.StartStreak(cmd.Context(), at)
	if err != nil {
		exitErr("streak start", err)
	}
	printJSON(st)
}

func runStreakReset(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.ResetStreak(cmd.Context(), time.Now())
	if err != nil {
		exitErr("streak reset", err)
	}
	printJSON(st)
}

func runStreakCommit(cmd *cobra.Command, args []string) {
	clearDate, _ := cmd.Flags().GetBool("clear")
	var date *time.Time
	if !clearDate {
		if len(args) == 0 {
			exitErr("streak commit", fmt.Errorf("a date is required unless --clear is set"))
		}
		d, err := parseDay(args[0])
		if err != nil {
			exitErr("streak commit", err)
		}
		date = &d
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.SetCommitment(cmd.Context(), date); err != nil {
		exitErr("streak commit", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"cleared":%t}`+"\n", clearDate)
}
