package turn_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lucasmaia/atende/internal/channel"
	"github.com/lucasmaia/atende/internal/model/order"
	"github.com/lucasmaia/atende/internal/service/ai"
	"github.com/lucasmaia/atende/internal/service/session"
	"github.com/lucasmaia/atende/internal/service/turn"
)

// fakeStore keeps serialized snapshots, like the real store: a loaded
// session never aliases a saved one.
type fakeStore struct {
	mu      sync.Mutex
	records map[string][]byte
	loadErr error
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string][]byte{}}
}

func (f *fakeStore) Load(_ context.Context, identity string) (*order.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return nil, f.loadErr
	}
	data, ok := f.records[identity]
	if !ok {
		return nil, order.ErrNotFound
	}
	var sess order.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrCorruptRecord, err)
	}
	return &sess, nil
}

func (f *fakeStore) Save(_ context.Context, identity string, sess *order.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	f.records[identity] = data
	f.saves++
	return nil
}

func (f *fakeStore) stored(t *testing.T, identity string) *order.Session {
	t.Helper()
	sess, err := f.Load(context.Background(), identity)
	if err != nil {
		t.Fatalf("stored(%s): %v", identity, err)
	}
	return sess
}

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	delay   time.Duration
	calls   [][]order.Turn
}

func (f *fakeGenerator) Complete(_ context.Context, transcript []order.Turn) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]order.Turn(nil), transcript...))
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

type sent struct {
	destination string
	text        string
}

type fakeSender struct {
	mu    sync.Mutex
	sends []sent
	err   error
}

func (f *fakeSender) SendText(_ context.Context, destination, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sends = append(f.sends, sent{destination, text})
	return f.err
}

func newOrchestrator(store *fakeStore, gen *fakeGenerator, sender *fakeSender, codes ...string) *turn.Orchestrator {
	i := 0
	mgr := session.NewManager("Lucas", ai.RenderSystemPrompt,
		session.WithCodeFunc(func() string {
			code := codes[i%len(codes)]
			i++
			return code
		}),
	)
	return turn.New(store, gen, sender, mgr, turn.Options{})
}

func inboundFrom(addr, text string) channel.Inbound {
	return channel.Inbound{SenderAddress: addr, SenderDisplayName: "Maria", Text: text}
}

func TestFirstMessageCreatesSession(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{replies: []string{"Qual tamanho você prefere?"}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Quero uma pizza de calabresa"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	sess := store.stored(t, "+5511999990000")
	if !sess.Open() {
		t.Fatal("session must be open")
	}
	if len(sess.Transcript) != 3 {
		t.Fatalf("expected system+user+agent, got %d turns", len(sess.Transcript))
	}
	if sess.Transcript[0].Role != order.RoleSystem {
		t.Fatalf("first turn must be the system prompt, got %s", sess.Transcript[0].Role)
	}
	if sess.Transcript[1].Role != order.RoleUser || sess.Transcript[1].Text != "Quero uma pizza de calabresa" {
		t.Fatalf("second turn must be the customer message: %+v", sess.Transcript[1])
	}
	if len(sender.sends) != 1 || sender.sends[0].text != "Qual tamanho você prefere?" {
		t.Fatalf("unexpected sends: %+v", sender.sends)
	}
	if sender.sends[0].destination != "5511999990000@c.us" {
		t.Fatalf("reply must go back to the raw sender address, got %s", sender.sends[0].destination)
	}
}

func TestOpenSessionContinuesWithSameCode(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{replies: []string{"Qual tamanho?", "Borda recheada?"}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042", "#sk-99999")
	ctx := context.Background()

	if err := orch.HandleInbound(ctx, inboundFrom("5511999990000@c.us", "Quero uma calabresa")); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if err := orch.HandleInbound(ctx, inboundFrom("5511999990000@c.us", "Grande, por favor")); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	sess := store.stored(t, "+5511999990000")
	if sess.OrderCode != "#sk-00042" {
		t.Fatalf("open session must keep its code, got %s", sess.OrderCode)
	}
	if len(sess.Transcript) != 5 {
		t.Fatalf("expected 5 turns after two rounds, got %d", len(sess.Transcript))
	}
}

func TestCompletionClosesSession(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{replies: []string{
		"Obrigada! Seu pedido #sk-00042 chega em 45 minutos.",
		"1x Calabresa Grande, Coca-Cola 2L, pagamento em Pix",
	}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Confirmo o pedido"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	sess := store.stored(t, "+5511999990000")
	if sess.Open() {
		t.Fatal("session must be closed after the reply echoes the code")
	}
	if sess.OrderSummary != "1x Calabresa Grande, Coca-Cola 2L, pagamento em Pix" {
		t.Fatalf("unexpected summary: %q", sess.OrderSummary)
	}

	// Summary comes from a second generator call over the extended
	// transcript that ends with the summary-request turn.
	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 generator calls, got %d", len(gen.calls))
	}
	last := gen.calls[1][len(gen.calls[1])-1]
	if last.Role != order.RoleUser || last.Text != ai.SummaryRequest {
		t.Fatalf("summary call must end with the summary request, got %+v", last)
	}

	// The summary is recorded, never sent to the customer.
	if len(sender.sends) != 1 {
		t.Fatalf("expected exactly 1 send, got %d", len(sender.sends))
	}
}

func TestNoPrematureClose(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{replies: []string{"Qual sabor você prefere?"}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	if err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Oi")); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	sess := store.stored(t, "+5511999990000")
	if !sess.Open() {
		t.Fatal("session closed without the reply carrying the code")
	}
	if sess.OrderSummary != "" {
		t.Fatalf("summary set on open session: %q", sess.OrderSummary)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("summary call made without completion: %d calls", len(gen.calls))
	}
}

func TestClosedSessionSupersededOnNextMessage(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{replies: []string{
		"Seu pedido #sk-00001 chega em 45 minutos.",
		"1x Mista Média",
		"Olá de novo! O que vai ser hoje?",
	}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00001", "#sk-00002")
	ctx := context.Background()

	if err := orch.HandleInbound(ctx, inboundFrom("5511999990000@c.us", "Confirmo o pedido")); err != nil {
		t.Fatalf("closing turn: %v", err)
	}
	closed := store.stored(t, "+5511999990000")
	if closed.Open() {
		t.Fatal("precondition: session should have closed")
	}

	if err := orch.HandleInbound(ctx, inboundFrom("5511999990000@c.us", "Quero pedir de novo")); err != nil {
		t.Fatalf("superseding turn: %v", err)
	}

	fresh := store.stored(t, "+5511999990000")
	if !fresh.Open() {
		t.Fatal("new session must be open")
	}
	if fresh.OrderCode == closed.OrderCode {
		t.Fatalf("order code reused across sessions: %s", fresh.OrderCode)
	}
	for _, entry := range fresh.Transcript {
		if entry.Text == "Confirmo o pedido" {
			t.Fatal("fresh transcript contains a turn from the closed session")
		}
	}
}

func TestFallbackOnEmptyReply(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{} // no scripted replies: empty result
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	if err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Oi")); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	if len(sender.sends) != 1 || sender.sends[0].text != ai.FallbackReply {
		t.Fatalf("fallback not sent: %+v", sender.sends)
	}

	sess := store.stored(t, "+5511999990000")
	agent := sess.Transcript[len(sess.Transcript)-1]
	if agent.Role != order.RoleAgent || agent.Text != ai.FallbackReply {
		t.Fatalf("fallback not recorded under role agent: %+v", agent)
	}
}

func TestFallbackOnGeneratorError(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	if err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Oi")); err != nil {
		t.Fatalf("generator trouble must not abort the turn: %v", err)
	}

	if len(sender.sends) != 1 || sender.sends[0].text != ai.FallbackReply {
		t.Fatalf("fallback not sent: %+v", sender.sends)
	}
}

func TestGroupAndEmptyMessagesIgnored(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")
	ctx := context.Background()

	group := channel.Inbound{SenderAddress: "556677@g.us", Text: "pizza?", IsGroup: true}
	if err := orch.HandleInbound(ctx, group); err != nil {
		t.Fatalf("group message: %v", err)
	}
	if err := orch.HandleInbound(ctx, channel.Inbound{SenderAddress: "5511999990000@c.us"}); err != nil {
		t.Fatalf("empty message: %v", err)
	}

	if store.saves != 0 {
		t.Fatalf("no session should be created: %d saves", store.saves)
	}
	if len(sender.sends) != 0 {
		t.Fatalf("no reply should be sent: %+v", sender.sends)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator must not be called: %d calls", len(gen.calls))
	}
}

func TestLoadFailureAbortsTurnWithoutReply(t *testing.T) {
	store := newFakeStore()
	store.loadErr = fmt.Errorf("%w: connection refused", order.ErrStoreUnavailable)
	gen := &fakeGenerator{replies: []string{"Oi!"}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Oi"))
	if !errors.Is(err, order.ErrStoreUnavailable) {
		t.Fatalf("expected store-unavailable error, got %v", err)
	}
	if len(sender.sends) != 0 {
		t.Fatalf("no reply may be sent when state is unknown: %+v", sender.sends)
	}
}

func TestCorruptRecordAbortsTurnWithoutReply(t *testing.T) {
	store := newFakeStore()
	store.records["+5511999990000"] = []byte("{not json")
	gen := &fakeGenerator{replies: []string{"Oi!"}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Oi"))
	if !errors.Is(err, order.ErrCorruptRecord) {
		t.Fatalf("expected corrupt-record error, got %v", err)
	}
	if len(sender.sends) != 0 {
		t.Fatalf("no reply may be sent over a corrupt record: %+v", sender.sends)
	}
	if _, ok := store.records["+5511999990000"]; !ok {
		t.Fatal("corrupt record must be left in place for inspection")
	}
}

func TestSaveFailureAfterReplySent(t *testing.T) {
	store := newFakeStore()
	store.saveErr = fmt.Errorf("%w: connection reset", order.ErrStoreUnavailable)
	gen := &fakeGenerator{replies: []string{"Qual sabor?"}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Oi"))
	if !errors.Is(err, order.ErrStoreUnavailable) {
		t.Fatalf("expected store-unavailable error, got %v", err)
	}
	if len(sender.sends) != 1 {
		t.Fatalf("reply must stand even when the save fails: %+v", sender.sends)
	}
}

func TestSendFailureStillPersistsReply(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{replies: []string{"Qual sabor?"}}
	sender := &fakeSender{err: errors.New("delivery failed")}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	if err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", "Oi")); err != nil {
		t.Fatalf("send failure must not abort the turn: %v", err)
	}

	sess := store.stored(t, "+5511999990000")
	agent := sess.Transcript[len(sess.Transcript)-1]
	if agent.Role != order.RoleAgent || agent.Text != "Qual sabor?" {
		t.Fatalf("reply must be in the transcript despite the failed send: %+v", agent)
	}
}

func TestConcurrentSameCustomerNoLostUpdate(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		replies: []string{"Anotado!", "Anotado!"},
		delay:   20 * time.Millisecond,
	}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00042")

	var wg sync.WaitGroup
	for _, text := range []string{"Quero uma calabresa", "E uma coca-cola"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			if err := orch.HandleInbound(context.Background(), inboundFrom("5511999990000@c.us", text)); err != nil {
				t.Errorf("HandleInbound(%q): %v", text, err)
			}
		}(text)
	}
	wg.Wait()

	sess := store.stored(t, "+5511999990000")
	var seen []string
	for _, entry := range sess.Transcript {
		if entry.Role == order.RoleUser {
			seen = append(seen, entry.Text)
		}
	}
	if len(seen) != 2 {
		t.Fatalf("lost update: user turns %v", seen)
	}
	// Both turns extended one session.
	if sess.OrderCode != "#sk-00042" {
		t.Fatalf("second turn minted a new session: %s", sess.OrderCode)
	}
}

func TestDistinctCustomersIndependent(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{replies: []string{"Oi!", "Oi!"}}
	sender := &fakeSender{}
	orch := newOrchestrator(store, gen, sender, "#sk-00001", "#sk-00002")
	ctx := context.Background()

	if err := orch.HandleInbound(ctx, inboundFrom("5511999990000@c.us", "Oi")); err != nil {
		t.Fatalf("first customer: %v", err)
	}
	if err := orch.HandleInbound(ctx, inboundFrom("5511888880000@c.us", "Oi")); err != nil {
		t.Fatalf("second customer: %v", err)
	}

	a := store.stored(t, "+5511999990000")
	b := store.stored(t, "+5511888880000")
	if a.OrderCode == b.OrderCode {
		t.Fatalf("customers share an order code: %s", a.OrderCode)
	}
}
