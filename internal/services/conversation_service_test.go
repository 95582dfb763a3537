package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agrovet/go-vetcare-client/internal/api"
	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// ----- Fake messaging backend -----

// fakeMessaging holds a server-side message store so reconciliation fetches
// observe exactly what previous sends persisted.
type fakeMessaging struct {
	mu sync.Mutex

	conversations []domain.Conversation
	convErr       error
	convCalls     int

	history    []domain.Message
	historyErr error

	sendErr   error
	sendCalls int
	nextID    int

	// blockSend, when non-nil, is received from before a send resolves;
	// used to hold a round-trip open across another operation.
	blockSend chan struct{}

	// sendBarrier > 0 holds each SendMessage response until that many
	// messages have been persisted, so overlapping sends resolve only
	// once every reconciliation fetch can observe all of them.
	sendBarrier int
}

func (f *fakeMessaging) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convCalls++
	if f.convErr != nil {
		return nil, f.convErr
	}
	return append([]domain.Conversation(nil), f.conversations...), nil
}

func (f *fakeMessaging) ConversationMessages(ctx context.Context, participantID string, participantType domain.Role) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return append([]domain.Message(nil), f.history...), nil
}

func (f *fakeMessaging) SendMessage(ctx context.Context, req api.SendMessageRequest) (domain.Message, error) {
	if f.blockSend != nil {
		<-f.blockSend
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return domain.Message{}, f.sendErr
	}
	f.nextID++
	msg := domain.Message{
		ID:         fmt.Sprintf("srv-%d", f.nextID),
		SenderType: domain.RoleFarmer,
		Content:    req.Content,
		CreatedAt:  time.Now().UTC(),
	}
	f.history = append(f.history, msg)
	for f.sendBarrier > 0 && len(f.history) < f.sendBarrier {
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
		f.mu.Lock()
	}
	return msg, nil
}

func vetParticipant() domain.Participant {
	return domain.Participant{ID: "vet-1", Type: domain.RoleVet, Name: "Dr. Vera"}
}

func openTestSession(t *testing.T, f *fakeMessaging) (*ConversationService, *ChatSession) {
	t.Helper()
	svc := NewConversationService(f, domain.RoleFarmer)
	sess, err := svc.Open(context.Background(), domain.Conversation{Participant: vetParticipant()})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	return svc, sess
}

// ----- Open -----

func TestOpen_UnresolvedParticipant(t *testing.T) {
	svc := NewConversationService(&fakeMessaging{}, domain.RoleFarmer)

	_, err := svc.Open(context.Background(), domain.Conversation{
		Participant: domain.Participant{Name: "no id at all"},
	})
	if !errors.Is(err, ErrParticipantUnresolved) {
		t.Fatalf("expected ErrParticipantUnresolved, got %v", err)
	}
}

func TestOpen_FetchFailure(t *testing.T) {
	sentinel := errors.New("500")
	svc := NewConversationService(&fakeMessaging{historyErr: sentinel}, domain.RoleFarmer)

	_, err := svc.Open(context.Background(), domain.Conversation{Participant: vetParticipant()})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected fetch error to propagate, got %v", err)
	}
}

func TestOpen_LoadsFullHistory(t *testing.T) {
	f := &fakeMessaging{history: []domain.Message{
		{ID: "srv-a", SenderType: domain.RoleVet, Content: "hello"},
		{ID: "srv-b", SenderType: domain.RoleFarmer, Content: "hi"},
	}}
	_, sess := openTestSession(t, f)

	msgs := sess.Messages()
	if len(msgs) != 2 || msgs[0].ID != "srv-a" || msgs[1].ID != "srv-b" {
		t.Fatalf("history = %+v", msgs)
	}
	if sess.Title() != "Dr. Vera" {
		t.Fatalf("Title = %q", sess.Title())
	}
}

func TestSessionTitle_RoleFallback(t *testing.T) {
	cases := []struct {
		name        string
		participant domain.Participant
		want        string
	}{
		{"no name", domain.Participant{ID: "v2", Type: domain.RoleVet}, "Vet"},
		{"whitespace name", domain.Participant{ID: "v3", Type: domain.RoleVet, Name: "   "}, "Vet"},
		{"named", domain.Participant{ID: "f1", Type: domain.RoleFarmer, Name: "Jon"}, "Jon"},
	}
	svc := NewConversationService(&fakeMessaging{}, domain.RoleFarmer)
	for _, tc := range cases {
		sess, err := svc.Open(context.Background(), domain.Conversation{Participant: tc.participant})
		if err != nil {
			t.Fatalf("%s: Open error: %v", tc.name, err)
		}
		if got := sess.Title(); got != tc.want {
			t.Errorf("%s: Title = %q; want %q", tc.name, got, tc.want)
		}
	}
}

// ----- Send -----

func TestSend_RejectsBlankBeforeNetwork(t *testing.T) {
	f := &fakeMessaging{}
	_, sess := openTestSession(t, f)

	for _, content := range []string{"", "   ", "\t\n"} {
		if err := sess.Send(context.Background(), content); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("Send(%q) = %v; want ErrEmptyMessage", content, err)
		}
	}
	if f.sendCalls != 0 {
		t.Fatalf("blank sends must never hit the network, saw %d calls", f.sendCalls)
	}
	if len(sess.Messages()) != 0 {
		t.Fatal("blank sends must not insert optimistic messages")
	}
}

func TestSend_SuccessReconciles(t *testing.T) {
	f := &fakeMessaging{history: []domain.Message{
		{ID: "srv-old", SenderType: domain.RoleVet, Content: "how is the calf?"},
	}}
	_, sess := openTestSession(t, f)
	sess.SetDraft("better today")

	if err := sess.Send(context.Background(), "better today"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	msgs := sess.Messages()
	matches := 0
	for _, m := range msgs {
		if m.Temp {
			t.Fatalf("temp message survived reconciliation: %+v", m)
		}
		if m.Content == "better today" {
			matches++
		}
	}
	if matches != 1 {
		t.Fatalf("want exactly one persisted copy, got %d in %+v", matches, msgs)
	}
	if msgs[len(msgs)-1].Content != "better today" {
		t.Fatal("new message must come after all previously-existing messages")
	}
	if sess.Draft() != "" {
		t.Fatalf("draft should stay cleared on success, got %q", sess.Draft())
	}
	if f.convCalls == 0 {
		t.Fatal("successful send must refresh the conversation list")
	}
}

func TestSend_FailureRollsBackAndRestoresDraft(t *testing.T) {
	pre := []domain.Message{
		{ID: "srv-old", SenderType: domain.RoleVet, Content: "how is the calf?"},
	}
	f := &fakeMessaging{history: append([]domain.Message(nil), pre...), sendErr: errors.New("502")}
	_, sess := openTestSession(t, f)

	err := sess.Send(context.Background(), "  lost this one ")
	if err == nil {
		t.Fatal("expected send failure")
	}

	msgs := sess.Messages()
	if len(msgs) != len(pre) || msgs[0].ID != "srv-old" {
		t.Fatalf("list must return to its exact pre-send state, got %+v", msgs)
	}
	if sess.Draft() != "  lost this one " {
		t.Fatalf("draft = %q; want the text restored exactly as submitted", sess.Draft())
	}
}

func TestSend_ReconcileFallsBackToConfirmedOnFetchError(t *testing.T) {
	f := &fakeMessaging{}
	_, sess := openTestSession(t, f)

	// History fetches fail from now on; the POST itself still succeeds.
	f.mu.Lock()
	f.historyErr = errors.New("flaky")
	f.mu.Unlock()

	if err := sess.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	msgs := sess.Messages()
	if len(msgs) != 1 || msgs[0].Temp || msgs[0].Content != "ping" {
		t.Fatalf("confirmed record should replace the pending one, got %+v", msgs)
	}
}

func TestSend_ConcurrentSendsBothPersistOnce(t *testing.T) {
	f := &fakeMessaging{sendBarrier: 2}
	_, sess := openTestSession(t, f)

	var wg sync.WaitGroup
	for _, content := range []string{"A", "B"} {
		wg.Add(1)
		go func(c string) {
			defer wg.Done()
			if err := sess.Send(context.Background(), c); err != nil {
				t.Errorf("Send(%q): %v", c, err)
			}
		}(content)
	}
	wg.Wait()

	counts := map[string]int{}
	for _, m := range sess.Messages() {
		if m.Temp {
			t.Fatalf("temp message left after both reconciliations: %+v", m)
		}
		counts[m.Content]++
	}
	// Both present exactly once; relative order is deliberately unspecified.
	if counts["A"] != 1 || counts["B"] != 1 {
		t.Fatalf("want A and B exactly once each, got %v", counts)
	}
}

// ----- Liveness -----

func TestSend_OnClosedSession(t *testing.T) {
	f := &fakeMessaging{}
	_, sess := openTestSession(t, f)
	sess.Close()

	if err := sess.Send(context.Background(), "too late"); !errors.Is(err, ErrConversationClosed) {
		t.Fatalf("expected ErrConversationClosed, got %v", err)
	}
	if f.sendCalls != 0 {
		t.Fatal("closed sessions must not reach the network")
	}
}

func TestReconcile_AfterCloseIsNoop(t *testing.T) {
	f := &fakeMessaging{blockSend: make(chan struct{})}
	_, sess := openTestSession(t, f)

	done := make(chan error, 1)
	go func() { done <- sess.Send(context.Background(), "slow one") }()

	// The optimistic insert lands, then the screen unmounts while the
	// round-trip is still in flight.
	waitFor(t, func() bool { return len(sess.Messages()) == 1 })
	sess.Close()
	close(f.blockSend)

	if err := <-done; err != nil {
		t.Fatalf("Send error: %v", err)
	}
	msgs := sess.Messages()
	if len(msgs) != 1 || !msgs[0].Temp {
		t.Fatalf("a late reconciliation must not mutate a closed session, got %+v", msgs)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// ----- Conversation list cache -----

func TestConversations_ReadThroughAndInvalidate(t *testing.T) {
	f := &fakeMessaging{conversations: []domain.Conversation{
		{ID: "c1", Participant: vetParticipant(), UnreadCount: 2},
	}}
	svc := NewConversationService(f, domain.RoleFarmer)

	first, err := svc.Conversations(context.Background())
	if err != nil {
		t.Fatalf("Conversations error: %v", err)
	}
	if len(first) != 1 || first[0].UnreadCount != 2 {
		t.Fatalf("list = %+v", first)
	}

	// Fresh cache: no second fetch.
	if _, err := svc.Conversations(context.Background()); err != nil {
		t.Fatalf("cached read error: %v", err)
	}
	if f.convCalls != 1 {
		t.Fatalf("fetches = %d; want 1 while fresh", f.convCalls)
	}

	// Focus: stale again, next read re-fetches.
	svc.Invalidate()
	if _, err := svc.Conversations(context.Background()); err != nil {
		t.Fatalf("refetch error: %v", err)
	}
	if f.convCalls != 2 {
		t.Fatalf("fetches = %d; want 2 after invalidation", f.convCalls)
	}
}

func TestStartConversation_Synthesized(t *testing.T) {
	svc := NewConversationService(&fakeMessaging{}, domain.RoleFarmer)
	conv := svc.StartConversation(vetParticipant())
	if !conv.Synthesized() {
		t.Fatal("a first-contact conversation has no server identity yet")
	}
	if conv.Participant.ID != "vet-1" {
		t.Fatalf("participant = %+v", conv.Participant)
	}
}
