package coach

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/coach-context/internal/citation"
	"github.com/rcliao/coach-context/internal/history"
	"github.com/rcliao/coach-context/internal/model"
	"github.com/rcliao/coach-context/internal/pack"
	"github.com/rcliao/coach-context/internal/quota"
	"github.com/rcliao/coach-context/internal/store"
)

type fakeMessenger struct {
	mu     sync.Mutex
	calls  []fakeCall
	reply  *Reply
	err    error
	block  chan struct{}
	called chan struct{}
}

type fakeCall struct {
	userMessage string
	turns       []history.Turn
	dataPack    string
}

func (f *fakeMessenger) SendMessage(_ context.Context, userMessage string, turns []history.Turn, dataPack string) (*Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{userMessage, turns, dataPack})
	reply, err, block, called := f.reply, f.err, f.block, f.called
	f.mu.Unlock()
	if called != nil {
		called <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return reply, err
}

type harness struct {
	svc       *Service
	store     *store.SQLiteStore
	tracker   *quota.Tracker
	messenger *fakeMessenger
	conv      *model.Conversation
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "coach.db"), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.AddCheckIn(ctx, store.CheckInParams{Date: "2026-10-13", Mood: 4, Energy: 4, Focus: 3, Urges: 2, Faith: 5})
	require.NoError(t, err)
	_, err = s.AddWhyEntry(ctx, store.WhyParams{Category: "Family", Content: "my kids"})
	require.NoError(t, err)

	tracker := quota.NewTracker(s, quota.Config{DailyLimit: limit, Location: time.UTC, Now: clock}, nil)
	packer := pack.New(s, tracker, pack.Config{Location: time.UTC, Now: clock}, nil)
	m := &fakeMessenger{reply: &Reply{ReplyText: "Keep going", Citations: []citation.ID{"checkin:2026-10-13", "streak"}}}
	svc := NewService(s, packer, history.NewEncoder(10, nil), m, tracker, nil)

	conv, err := s.CreateConversation(ctx, "test")
	require.NoError(t, err)
	return &harness{svc: svc, store: s, tracker: tracker, messenger: m, conv: conv}
}

func TestSendSuccessPersistsBothTurns(t *testing.T) {
	h := newHarness(t, 30)
	ctx := context.Background()

	ex, err := h.svc.Send(ctx, h.conv.ID, "  rough morning  ")
	require.NoError(t, err)

	require.Len(t, h.messenger.calls, 1)
	call := h.messenger.calls[0]
	assert.Equal(t, "rough morning", call.userMessage)
	assert.Empty(t, call.turns)
	assert.Contains(t, call.dataPack, "[checkin:2026-10-13]")
	assert.Contains(t, call.dataPack, "Messages used today: 0/30")

	assert.Equal(t, "Keep going", ex.Reply.Content)
	assert.NotEmpty(t, ex.Reply.ID)
	assert.Empty(t, ex.UnknownCitations)
	assert.Equal(t, 29, ex.Remaining)
	assert.True(t, ex.Citations.Known("checkin:2026-10-13"))

	msgs, err := h.store.Messages(ctx, h.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, model.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, []string{"checkin:2026-10-13", "streak"}, msgs[1].Citations)
}

func TestSecondTurnCarriesStructuredHistory(t *testing.T) {
	h := newHarness(t, 30)
	ctx := context.Background()

	action := model.ActionDua
	h.messenger.reply.SuggestedAction = &action
	_, err := h.svc.Send(ctx, h.conv.ID, "first")
	require.NoError(t, err)
	_, err = h.svc.Send(ctx, h.conv.ID, "second")
	require.NoError(t, err)

	turns := h.messenger.calls[1].turns
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "first", turns[0].Content)

	p, err := history.DecodeAssistant(turns[1].Content)
	require.NoError(t, err)
	assert.Equal(t, []string{"checkin:2026-10-13", "streak"}, p.Citations)
	require.NotNil(t, p.SuggestedAction)
	assert.Equal(t, "dua", *p.SuggestedAction)
}

func TestUnknownCitationsPassThrough(t *testing.T) {
	h := newHarness(t, 30)
	h.messenger.reply = &Reply{ReplyText: "ok", Citations: []citation.ID{"why:0", "journal:2026-01-01-4", "bogus"}}

	ex, err := h.svc.Send(context.Background(), h.conv.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, []citation.ID{"journal:2026-01-01-4", "bogus"}, ex.UnknownCitations)
	assert.Equal(t, []string{"why:0", "journal:2026-01-01-4", "bogus"}, ex.Reply.Citations)
}

func TestQuotaExceededBlocksBeforeWork(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	_, err := h.svc.Send(ctx, h.conv.ID, "one")
	require.NoError(t, err)

	ex, err := h.svc.Send(ctx, h.conv.ID, "two")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Nil(t, ex)
	assert.Len(t, h.messenger.calls, 1)
}

func TestFailureQuotaAccounting(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		consumed bool
	}{
		{"missing configuration", &Error{Kind: KindMissingConfiguration}, false},
		{"network", &Error{Kind: KindNetwork, Err: errors.New("reset")}, false},
		{"rate limited", &Error{Kind: KindRateLimited, Status: 429}, false},
		{"invalid response", &Error{Kind: KindInvalidResponse, Message: "bad"}, true},
		{"api error", &Error{Kind: KindAPI, Status: 500, Message: "oops"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 30)
			ctx := context.Background()
			h.messenger.reply, h.messenger.err = nil, tt.err

			ex, err := h.svc.Send(ctx, h.conv.ID, "hello")
			require.Error(t, err)
			assert.Equal(t, KindOf(tt.err), KindOf(err))
			require.NotNil(t, ex)
			assert.Nil(t, ex.Reply)

			want := 30
			if tt.consumed {
				want = 29
			}
			assert.Equal(t, want, h.tracker.Remaining(ctx))
		})
	}
}

func TestFailedTurnStaysVisibleAndRetries(t *testing.T) {
	h := newHarness(t, 30)
	ctx := context.Background()
	h.messenger.err = &Error{Kind: KindNetwork, Err: errors.New("offline")}
	reply := h.messenger.reply
	h.messenger.reply = nil

	ex, err := h.svc.Send(ctx, h.conv.ID, "are you there?")
	require.ErrorIs(t, err, ErrNetwork)
	require.NotNil(t, ex.UserMessage)
	assert.True(t, ex.UserMessage.IsError)

	msgs, _ := h.store.Messages(ctx, h.conv.ID)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsError)
	assert.NotEmpty(t, msgs[0].ErrorText)

	h.messenger.err, h.messenger.reply = nil, reply
	ex, err = h.svc.Retry(ctx, h.conv.ID, msgs[0].ID)
	require.NoError(t, err)
	assert.False(t, ex.UserMessage.IsError)
	assert.Equal(t, "are you there?", h.messenger.calls[1].userMessage)
	assert.Empty(t, h.messenger.calls[1].turns, "the retried turn is not part of its own history")

	msgs, _ = h.store.Messages(ctx, h.conv.ID)
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].IsError)
	assert.Equal(t, model.SenderAssistant, msgs[1].Sender)
}

func TestRetryRejectsHealthyMessage(t *testing.T) {
	h := newHarness(t, 30)
	ctx := context.Background()
	ex, err := h.svc.Send(ctx, h.conv.ID, "hi")
	require.NoError(t, err)

	_, err = h.svc.Retry(ctx, h.conv.ID, ex.UserMessage.ID)
	assert.Error(t, err)
}

func TestConcurrentSendRejected(t *testing.T) {
	h := newHarness(t, 30)
	ctx := context.Background()
	h.messenger.block = make(chan struct{})
	h.messenger.called = make(chan struct{}, 1)

	pending := h.svc.Go(ctx, h.conv.ID, "first")
	<-h.messenger.called
	assert.True(t, h.svc.Sending(h.conv.ID))

	_, err := h.svc.Send(ctx, h.conv.ID, "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(h.messenger.block)
	ex, err := pending.Wait()
	require.NoError(t, err)
	assert.Equal(t, "Keep going", ex.Reply.Content)
	assert.False(t, h.svc.Sending(h.conv.ID))

	select {
	case <-pending.Done():
	default:
		t.Fatal("expected Done to be closed after Wait")
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	h := newHarness(t, 30)
	_, err := h.svc.Send(context.Background(), h.conv.ID, "   ")
	assert.Error(t, err)
	assert.Empty(t, h.messenger.calls)
}

func TestRetryReplyFollowsItsTurn(t *testing.T) {
	h := newHarness(t, 30)
	ctx := context.Background()
	reply := h.messenger.reply

	h.messenger.reply, h.messenger.err = nil, &Error{Kind: KindNetwork, Err: errors.New("offline")}
	_, err := h.svc.Send(ctx, h.conv.ID, "A")
	require.Error(t, err)
	msgs, err := h.store.Messages(ctx, h.conv.ID)
	require.NoError(t, err)
	failedID := msgs[0].ID

	h.messenger.err = nil
	h.messenger.reply = &Reply{ReplyText: "reply to B"}
	_, err = h.svc.Send(ctx, h.conv.ID, "B")
	require.NoError(t, err)

	h.messenger.reply = reply
	_, err = h.svc.Retry(ctx, h.conv.ID, failedID)
	require.NoError(t, err)

	msgs, err = h.store.Messages(ctx, h.conv.ID)
	require.NoError(t, err)
	var transcript []string
	for _, m := range msgs {
		transcript = append(transcript, string(m.Sender)+":"+m.Content)
	}
	assert.Equal(t, []string{"user:A", "assistant:Keep going", "user:B", "assistant:reply to B"}, transcript)

	_, err = h.svc.Send(ctx, h.conv.ID, "C")
	require.NoError(t, err)
	turns := h.messenger.calls[len(h.messenger.calls)-1].turns
	require.Len(t, turns, 4)
	assert.Equal(t, "A", turns[0].Content)
	p, err := history.DecodeAssistant(turns[1].Content)
	require.NoError(t, err)
	assert.Equal(t, "Keep going", p.ReplyText)
	assert.Equal(t, "B", turns[2].Content)
}
