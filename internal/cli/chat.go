package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/coach-context/internal/citation"
	"github.com/rcliao/coach-context/internal/coach"
	"github.com/rcliao/coach-context/internal/quota"
)

const titleLen = 40

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message to the coach",
		Long:  "Send a message (positional arg or stdin). Without --conversation a new conversation is started.",
		Run:   runChat,
	}
	cmd.Flags().StringP("conversation", "C", "", "Conversation ID to continue")

	retry := &cobra.Command{
		Use:   "retry [message-id]",
		Short: "Resend a failed message in place",
		Args:  cobra.ExactArgs(1),
		Run:   runChatRetry,
	}
	retry.Flags().StringP("conversation", "C", "", "Conversation ID (required)")
	retry.MarkFlagRequired("conversation")

	cmd.AddCommand(retry)
	RootCmd.AddCommand(cmd)
}

type sourceView struct {
	ID    citation.ID `json:"id"`
	Label string      `json:"label"`
	Icon  string      `json:"icon"`
	Known bool        `json:"known"`
}

type chatView struct {
	*coach.Exchange
	ConversationID string       `json:"conversation_id"`
	Sources        []sourceView `json:"sources,omitempty"`
	NearLimit      bool         `json:"near_limit"`
}

func runChat(cmd *cobra.Command, args []string) {
	convID, _ := cmd.Flags().GetString("conversation")
	text := strings.TrimSpace(readContent(args))
	if text == "" {
		exitErr("chat", fmt.Errorf("message is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if convID == "" {
		conv, err := s.CreateConversation(ctx, titleFrom(text))
		if err != nil {
			exitErr("create conversation", err)
		}
		convID = conv.ID
	} else if _, err := s.GetConversation(ctx, convID); err != nil {
		exitErr("chat", err)
	}

	svc, tracker := newService(s)
	ex, err := svc.Go(ctx, convID, text).Wait()
	report(ctx, convID, ex, err, tracker)
}

func runChatRetry(cmd *cobra.Command, args []string) {
	convID, _ := cmd.Flags().GetString("conversation")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	svc, tracker := newService(s)
	ex, err := svc.Retry(ctx, convID, args[0])
	report(ctx, convID, ex, err, tracker)
}

func report(ctx context.Context, convID string, ex *coach.Exchange, err error, tracker *quota.Tracker) {
	if err != nil {
		if ex == nil || ex.UserMessage == nil {
			if errors.Is(err, coach.ErrQuotaExceeded) {
				exitErr("chat", fmt.Errorf("%w (%d/%d used, resets tomorrow)", err, tracker.Used(ctx), tracker.Limit()))
			}
			exitErr("chat", err)
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", coach.UserMessage(err))
		fmt.Fprintf(os.Stderr, "retry with: coach chat retry %s -C %s\n", ex.UserMessage.ID, convID)
		os.Exit(1)
	}

	view := chatView{Exchange: ex, ConversationID: convID, NearLimit: tracker.IsNearLimit(ctx)}
	for _, id := range citation.FromStrings(ex.Reply.Citations) {
		view.Sources = append(view.Sources, sourceView{
			ID:    id,
			Label: ex.Citations.LabelFor(id),
			Icon:  ex.Citations.IconFor(id),
			Known: ex.Citations.Known(id),
		})
	}

	if !textOutput() {
		printJSON(view)
		return
	}
	fmt.Println(ex.Reply.Content)
	if len(view.Sources) > 0 {
		fmt.Println()
		for _, src := range view.Sources {
			fmt.Printf("  [%s] %s\n", src.Icon, src.Label)
		}
	}
	if ex.Reply.SuggestedAction != nil {
		fmt.Printf("\nSuggested: %s\n", *ex.Reply.SuggestedAction)
	}
	if view.NearLimit {
		fmt.Printf("\n%d messages left today.\n", ex.Remaining)
	}
}

func titleFrom(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= titleLen {
		return text
	}
	return string(r[:titleLen]) + "..."
}
