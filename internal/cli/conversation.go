package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "conversation",
		Aliases: []string{"conv"},
		Short:   "Manage stored conversations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently active first",
		Run:   runConversationList,
	}
	list.Flags().IntP("limit", "l", 20, "Max results")

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		Run:   runConversationShow,
	}

	rm := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a conversation and its messages (irreversible)",
		Args:  cobra.ExactArgs(1),
		Run:   runConversationRm,
	}

	export := &cobra.Command{
		Use:   "export [id]",
		Short: "Export one conversation, or all of them, as JSON",
		Args:  cobra.MaximumNArgs(1),
		Run:   runConversationExport,
	}

	cmd.AddCommand(list, show, rm, export)
	RootCmd.AddCommand(cmd)
}

func runConversationList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	convs, err := s.ListConversations(cmd.Context(), limit)
	if err != nil {
		exitErr("list conversations", err)
	}
	if textOutput() {
		for _, c := range convs {
			fmt.Printf("%s  %s  %s\n", c.ID, c.UpdatedAt.Local().Format("Jan 2 15:04"), c.Title)
		}
		return
	}
	if len(convs) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(convs)
}

func runConversationShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	export, err := s.ExportConversation(cmd.Context(), args[0])
	if err != nil {
		exitErr("show conversation", err)
	}
	if !textOutput() {
		printJSON(export)
		return
	}
	fmt.Printf("# %s\n\n", export.Title)
	for _, m := range export.Messages {
		fmt.Printf("%s: %s\n", m.Sender, m.Content)
		if m.IsError {
			fmt.Printf("  ! %s (id %s)\n", m.ErrorText, m.ID)
		}
	}
}

func runConversationRm(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.DeleteConversation(cmd.Context(), args[0]); err != nil {
		exitErr("rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}

func runConversationExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if len(args) == 1 {
		export, err := s.ExportConversation(cmd.Context(), args[0])
		if err != nil {
			exitErr("export", err)
		}
		printJSON(export)
		return
	}
	all, err := s.ExportAll(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	printJSON(all)
}
