package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/coach-context/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Record and list daily check-ins",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Record a check-in (ratings 1-5)",
		Run:   runCheckInAdd,
	}
	add.Flags().String("date", "", "Day of the check-in, YYYY-MM-DD (default: today)")
	for _, name := range []string{"mood", "energy", "focus", "urges", "faith"} {
		add.Flags().Int(name, 0, fmt.Sprintf("%s rating 1-5 (required)", name))
		add.MarkFlagRequired(name)
	}
	add.Flags().String("progress", "", "Progress reflection")
	add.Flags().String("journey", "", "Journey reflection")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent check-ins, newest first",
		Run:   runCheckInList,
	}
	list.Flags().IntP("limit", "l", 7, "Max results")

	cmd.AddCommand(add, list)
	RootCmd.AddCommand(cmd)
}

func runCheckInAdd(cmd *cobra.Command, args []string) {
	date, _ := cmd.Flags().GetString("date")
	mood, _ := cmd.Flags().GetInt("mood")
	energy, _ := cmd.Flags().GetInt("energy")
	focus, _ := cmd.Flags().GetInt("focus")
	urges, _ := cmd.Flags().GetInt("urges")
	faith, _ := cmd.Flags().GetInt("faith")
	progress, _ := cmd.Flags().GetString("progress")
	journey, _ := cmd.Flags().GetString("journey")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c, err := s.AddCheckIn(cmd.Context(), store.CheckInParams{
		Date:               date,
		Mood:               mood,
		Energy:             energy,
		Focus:              focus,
		Urges:              urges,
		Faith:              faith,
		ProgressReflection: progress,
		JourneyReflection:  journey,
	})
	if err != nil {
		exitErr("checkin", err)
	}
	printJSON(c)
}

func runCheckInList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	checkIns, err := s.RecentCheckIns(cmd.Context(), limit)
	if err != nil {
		exitErr("list check-ins", err)
	}
	if textOutput() {
		for _, c := range checkIns {
			fmt.Printf("%s  mood %d  energy %d  focus %d  urges %d  faith %d\n",
				c.Date, c.Mood, c.Energy, c.Focus, c.Urges, c.Faith)
		}
		return
	}
	if len(checkIns) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(checkIns)
}
