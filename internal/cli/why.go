package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/coach-context/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "why",
		Short: "Record and list reasons for staying on track",
	}

	add := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a why entry (positional arg or stdin)",
		Run:   runWhyAdd,
	}
	add.Flags().String("category", "", "Category, e.g. Family or Faith")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all why entries in the order they were added",
		Run:   runWhyList,
	}

	cmd.AddCommand(add, list)
	RootCmd.AddCommand(cmd)
}

func runWhyAdd(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("why", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	w, err := s.AddWhyEntry(cmd.Context(), store.WhyParams{Category: category, Content: content})
	if err != nil {
		exitErr("why", err)
	}
	printJSON(w)
}

func runWhyList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	whys, err := s.AllWhyEntries(cmd.Context())
	if err != nil {
		exitErr("list whys", err)
	}
	if textOutput() {
		for i, w := range whys {
			fmt.Printf("%d. [%s] %s\n", i, w.Category, w.Content)
		}
		return
	}
	if len(whys) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(whys)
}
