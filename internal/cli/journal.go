package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/coach-context/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Write and list journal entries",
	}

	add := &cobra.Command{
		Use:   "add [content]",
		Short: "Write a journal entry (positional arg or stdin)",
		Run:   runJournalAdd,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent journal entries, newest first",
		Run:   runJournalList,
	}
	list.Flags().IntP("limit", "l", 5, "Max results")

	cmd.AddCommand(add, list)
	RootCmd.AddCommand(cmd)
}

func runJournalAdd(cmd *cobra.Command, args []string) {
	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("journal", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	e, err := s.AddJournalEntry(cmd.Context(), store.JournalParams{Content: content})
	if err != nil {
		exitErr("journal", err)
	}
	printJSON(e)
}

func runJournalList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entries, err := s.RecentJournalEntries(cmd.Context(), limit)
	if err != nil {
		exitErr("list journal", err)
	}
	if textOutput() {
		for _, e := range entries {
			fmt.Printf("%s\n%s\n\n", e.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM"), e.Content)
		}
		return
	}
	if len(entries) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(entries)
}
