package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/coach-context/internal/citation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Print the context pack the coach would receive",
		Long:  "Build the data pack from current records. Text format prints the pack verbatim; json adds the citation map.",
		Run:   runPack,
	}

	RootCmd.AddCommand(cmd)
}

type packView struct {
	Text      string                          `json:"text"`
	Citations map[citation.ID]citation.Source `json:"citations"`
}

func runPack(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p, err := newPacker(s, newTracker(s)).Build(cmd.Context())
	if err != nil {
		exitErr("pack", err)
	}
	if textOutput() {
		fmt.Print(p.Text)
		return
	}
	printJSON(packView{Text: p.Text, Citations: p.Citations.Entries()})
}
