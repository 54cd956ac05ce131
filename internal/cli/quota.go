package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show today's message usage",
		Run:   runQuota,
	}

	RootCmd.AddCommand(cmd)
}

type quotaView struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	NearLimit bool `json:"near_limit"`
	AtLimit   bool `json:"at_limit"`
}

func runQuota(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	t := newTracker(s)
	v := quotaView{
		Used:      t.Used(ctx),
		Limit:     t.Limit(),
		Remaining: t.Remaining(ctx),
		NearLimit: t.IsNearLimit(ctx),
		AtLimit:   t.IsAtLimit(ctx),
	}
	if textOutput() {
		fmt.Printf("%d/%d messages used today, %d remaining\n", v.Used, v.Limit, v.Remaining)
		return
	}
	printJSON(v)
}
