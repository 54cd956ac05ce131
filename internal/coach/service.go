package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/coach-context/internal/citation"
	"github.com/rcliao/coach-context/internal/history"
	"github.com/rcliao/coach-context/internal/model"
	"github.com/rcliao/coach-context/internal/pack"
	"github.com/rcliao/coach-context/internal/store"
)

// Quota is the narrow quota dependency of a send.
type Quota interface {
	CanSend(ctx context.Context) bool
	Record(ctx context.Context) error
	Remaining(ctx context.Context) int
}

// PackBuilder builds a fresh context pack.
type PackBuilder interface {
	Build(ctx context.Context) (*pack.Pack, error)
}

// Messenger performs the remote exchange.
type Messenger interface {
	SendMessage(ctx context.Context, userMessage string, turns []history.Turn, dataPack string) (*Reply, error)
}

// Exchange is the outcome of one send. On failure Reply is nil and
// UserMessage carries the error flag.
type Exchange struct {
	UserMessage      *model.ChatMessage `json:"user_message"`
	Reply            *model.ChatMessage `json:"reply,omitempty"`
	Citations        *citation.Map      `json:"-"`
	UnknownCitations []citation.ID      `json:"unknown_citations,omitempty"`
	Remaining        int                `json:"remaining"`
}

// Service runs sends for conversations. Pack assembly, history encoding and
// the network call happen strictly in sequence for a given send.
type Service struct {
	conversations store.ConversationStore
	packer        PackBuilder
	encoder       *history.Encoder
	client        Messenger
	quota         Quota
	logger        *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewService wires a Service.
func NewService(conversations store.ConversationStore, packer PackBuilder, encoder *history.Encoder,
	client Messenger, quota Quota, logger *zap.Logger) *Service {
	if encoder == nil {
		encoder = history.NewEncoder(history.DefaultLimit, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		conversations: conversations,
		packer:        packer,
		encoder:       encoder,
		client:        client,
		quota:         quota,
		logger:        logger,
		inFlight:      map[string]bool{},
	}
}

// Send delivers text as a new user turn. The user message and the reply are
// persisted only after a successful reply; a failed attempt persists the
// user message flagged as errored so it can be retried in place.
func (s *Service) Send(ctx context.Context, conversationID, text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message is empty")
	}
	if !s.begin(conversationID) {
		return nil, ErrSendInFlight
	}
	defer s.end(conversationID)

	prior, err := s.conversations.Messages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	ex, sendErr := s.exchange(ctx, text, prior)
	if ex == nil {
		return nil, sendErr
	}

	if sendErr != nil {
		ex.UserMessage, err = s.conversations.AppendMessage(ctx, store.MessageParams{
			ConversationID: conversationID,
			Sender:         model.SenderUser,
			Content:        text,
			IsError:        true,
			ErrorText:      UserMessage(sendErr),
		})
		if err != nil {
			s.logger.Error("persist failed turn", zap.Error(err))
		}
		return ex, sendErr
	}

	ex.UserMessage, err = s.conversations.AppendMessage(ctx, store.MessageParams{
		ConversationID: conversationID,
		Sender:         model.SenderUser,
		Content:        text,
	})
	if err != nil {
		return ex, fmt.Errorf("persist user message: %w", err)
	}
	if err := s.appendReply(ctx, conversationID, "", ex); err != nil {
		return ex, err
	}
	return ex, nil
}

// Retry resends a failed user turn in place.
func (s *Service) Retry(ctx context.Context, conversationID, messageID string) (*Exchange, error) {
	if !s.begin(conversationID) {
		return nil, ErrSendInFlight
	}
	defer s.end(conversationID)

	msg, err := s.conversations.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != conversationID || msg.Sender != model.SenderUser || !msg.IsError {
		return nil, fmt.Errorf("message %s is not a failed user turn in conversation %s", messageID, conversationID)
	}

	all, err := s.conversations.Messages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	var prior []model.ChatMessage
	for _, m := range all {
		if m.ID == messageID {
			break
		}
		prior = append(prior, m)
	}

	ex, sendErr := s.exchange(ctx, msg.Content, prior)
	if ex == nil {
		return nil, sendErr
	}
	ex.UserMessage = msg

	if sendErr != nil {
		msg.ErrorText = UserMessage(sendErr)
		if err := s.conversations.MarkMessageFailed(ctx, msg.ID, msg.ErrorText); err != nil {
			s.logger.Error("persist failed retry", zap.Error(err))
		}
		return ex, sendErr
	}

	if err := s.conversations.ClearMessageError(ctx, msg.ID); err != nil {
		return ex, fmt.Errorf("clear message error: %w", err)
	}
	msg.IsError, msg.ErrorText = false, ""
	if err := s.appendReply(ctx, conversationID, msg.ID, ex); err != nil {
		return ex, err
	}
	return ex, nil
}

// exchange runs quota check, pack, history and request. A nil Exchange means
// nothing was attempted; a non-nil Exchange with an error is a failed attempt.
func (s *Service) exchange(ctx context.Context, text string, prior []model.ChatMessage) (*Exchange, error) {
	if !s.quota.CanSend(ctx) {
		return nil, ErrQuotaExceeded
	}

	p, err := s.packer.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build context pack: %w", err)
	}
	turns := s.encoder.Encode(prior)

	ex := &Exchange{Citations: p.Citations}
	reply, err := s.client.SendMessage(ctx, text, turns, p.Text)

	kind := KindOf(err)
	if err == nil || kind.ConsumesQuota() {
		if qerr := s.quota.Record(ctx); qerr != nil {
			s.logger.Warn("quota record failed", zap.Error(qerr))
		}
	}
	ex.Remaining = s.quota.Remaining(ctx)

	if err != nil {
		s.logger.Warn("coach send failed", zap.String("error_kind", kind.String()), zap.Error(err))
		return ex, err
	}

	ex.UnknownCitations = p.Citations.Validate(reply.Citations)
	if len(ex.UnknownCitations) > 0 {
		s.logger.Warn("reply cites unknown identifiers",
			zap.Strings("citations", citation.Strings(ex.UnknownCitations)))
	}
	ex.Reply = &model.ChatMessage{
		Sender:          model.SenderAssistant,
		Content:         reply.ReplyText,
		Citations:       citation.Strings(reply.Citations),
		SuggestedAction: reply.SuggestedAction,
	}
	return ex, nil
}

// appendReply stores the reply at the end of the conversation, or directly
// behind the user message it answers when after is set.
func (s *Service) appendReply(ctx context.Context, conversationID, after string, ex *Exchange) error {
	saved, err := s.conversations.AppendMessage(ctx, store.MessageParams{
		After:           after,
		ConversationID:  conversationID,
		Sender:          model.SenderAssistant,
		Content:         ex.Reply.Content,
		Citations:       ex.Reply.Citations,
		SuggestedAction: ex.Reply.SuggestedAction,
	})
	if err != nil {
		return fmt.Errorf("persist reply: %w", err)
	}
	ex.Reply = saved
	return nil
}

// begin sets the conversation's in-flight flag. It is a state flag, not a
// queue: a second send is rejected rather than waiting.
func (s *Service) begin(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[conversationID] {
		return false
	}
	s.inFlight[conversationID] = true
	return true
}

func (s *Service) end(conversationID string) {
	s.mu.Lock()
	delete(s.inFlight, conversationID)
	s.mu.Unlock()
}

// Sending reports whether a send is outstanding for the conversation.
func (s *Service) Sending(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[conversationID]
}
