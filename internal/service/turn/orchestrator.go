// Package turn drives one inbound message through a full conversational
// turn: resolve the session, ask the model, reply, detect completion,
// persist.
package turn

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/lucasmaia/atende/internal/channel"
	"github.com/lucasmaia/atende/internal/model/order"
	"github.com/lucasmaia/atende/internal/service/ai"
	"github.com/lucasmaia/atende/internal/service/session"
)

// Store is the slice of the session store the orchestrator needs.
type Store interface {
	Load(ctx context.Context, identity string) (*order.Session, error)
	Save(ctx context.Context, identity string, sess *order.Session) error
}

// Generator produces the agent's next reply from a transcript.
type Generator interface {
	Complete(ctx context.Context, transcript []order.Turn) (string, error)
}

// Sender delivers outbound text to a customer.
type Sender interface {
	SendText(ctx context.Context, destination, text string) error
}

const (
	defaultGeneratorTimeout = 60 * time.Second
	defaultStoreTimeout     = 5 * time.Second
)

// Options bound the orchestrator's external calls.
type Options struct {
	GeneratorTimeout time.Duration
	StoreTimeout     time.Duration
}

// Orchestrator wires the session manager to its collaborators. All handles
// are injected so tests can substitute fakes; they are shared process-wide
// and safe for concurrent turns.
type Orchestrator struct {
	store    Store
	gen      Generator
	sender   Sender
	sessions *session.Manager

	locks      keyedMutex
	genTimeout time.Duration
	stTimeout  time.Duration
}

// New creates an Orchestrator.
func New(store Store, gen Generator, sender Sender, sessions *session.Manager, opts Options) *Orchestrator {
	if opts.GeneratorTimeout <= 0 {
		opts.GeneratorTimeout = defaultGeneratorTimeout
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}

	return &Orchestrator{
		store:      store,
		gen:        gen,
		sender:     sender,
		sessions:   sessions,
		genTimeout: opts.GeneratorTimeout,
		stTimeout:  opts.StoreTimeout,
	}
}

// HandleInbound processes one message end to end. Concurrent messages from
// the same customer are serialized for the whole turn, so two quick
// messages can never load the same record and overwrite each other's
// appends.
func (o *Orchestrator) HandleInbound(ctx context.Context, msg channel.Inbound) error {
	if msg.Text == "" || msg.IsGroup {
		return nil
	}

	identity := session.Identity(msg.SenderAddress)

	unlock := o.locks.lock(identity)
	defer unlock()

	prev, err := o.load(ctx, identity)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			prev = nil
		} else {
			// Session state cannot be established; the reply is withheld on
			// purpose so a fresh order code is never minted on top of
			// unknown state.
			log.Printf("[turn] %s load failed: %v", identity, err)
			return err
		}
	}

	sess := o.sessions.Resolve(prev, identity, msg.SenderDisplayName)
	o.sessions.AppendTurn(sess, order.RoleUser, msg.Text)
	log.Printf("[turn] %s customer: %s", identity, msg.Text)

	reply := o.complete(ctx, sess.Transcript)
	o.sessions.AppendTurn(sess, order.RoleAgent, reply)
	log.Printf("[turn] %s agent: %s", identity, reply)

	if err := o.sender.SendText(ctx, msg.SenderAddress, reply); err != nil {
		// The transcript keeps the reply either way; delivery confirmation
		// is not guaranteed by the platform.
		log.Printf("[turn] %s send failed: %v", identity, err)
	}

	if o.sessions.CheckCompletion(sess, reply) {
		o.sessions.AppendTurn(sess, order.RoleUser, ai.SummaryRequest)
		summary := o.complete(ctx, sess.Transcript)
		o.sessions.Close(sess, summary)
		log.Printf("[turn] %s order closed: %s", identity, summary)
	}

	if err := o.save(ctx, identity, sess); err != nil {
		// The reply already went out; the next message reloads pre-turn
		// state and redoes the missing appends.
		log.Printf("[turn] %s save failed, session state may be stale: %v", identity, err)
		return err
	}

	return nil
}

func (o *Orchestrator) load(ctx context.Context, identity string) (*order.Session, error) {
	lctx, cancel := context.WithTimeout(ctx, o.stTimeout)
	defer cancel()
	return o.store.Load(lctx, identity)
}

func (o *Orchestrator) save(ctx context.Context, identity string, sess *order.Session) error {
	sctx, cancel := context.WithTimeout(ctx, o.stTimeout)
	defer cancel()
	return o.store.Save(sctx, identity, sess)
}

// complete asks the generator for the next message, substituting the fixed
// fallback when it yields nothing usable. Generator trouble never aborts a
// turn.
func (o *Orchestrator) complete(ctx context.Context, transcript []order.Turn) string {
	gctx, cancel := context.WithTimeout(ctx, o.genTimeout)
	defer cancel()

	reply, err := o.gen.Complete(gctx, transcript)
	if err != nil {
		log.Printf("[turn] generator failed: %v", err)
		return ai.FallbackReply
	}
	if reply == "" {
		return ai.FallbackReply
	}
	return reply
}
