// Package bridge adapts a venom-style WhatsApp web bridge that exposes a
// websocket: the bridge forwards messages it sees as JSON frames and accepts
// send frames back.
package bridge

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lucasmaia/atende/internal/channel"
)

// frame is the JSON envelope exchanged with the bridge.
type frame struct {
	ID      string `json:"id,omitempty"`
	Event   string `json:"event"`
	From    string `json:"from,omitempty"`
	Author  string `json:"author,omitempty"`
	To      string `json:"to,omitempty"`
	Body    string `json:"body,omitempty"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

const (
	eventMessage = "message"
	eventSend    = "send"
)

// Adapter implements channel.Adapter over a bridge websocket.
type Adapter struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // the websocket allows one concurrent writer
	inbound chan channel.Inbound

	listenOnce sync.Once
	closeOnce  sync.Once
}

// Dial connects to the bridge.
func Dial(ctx context.Context, url string) (*Adapter, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bridge at %s: %w", url, err)
	}

	return &Adapter{
		conn:    conn,
		inbound: make(chan channel.Inbound, 64),
	}, nil
}

// Listen starts the read loop and returns the inbound stream.
func (a *Adapter) Listen(ctx context.Context) (<-chan channel.Inbound, error) {
	a.listenOnce.Do(func() {
		go a.readLoop(ctx)
	})
	return a.inbound, nil
}

func (a *Adapter) readLoop(ctx context.Context) {
	defer close(a.inbound)

	for {
		var f frame
		if err := a.conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil {
				log.Printf("[channel] bridge read failed: %v", err)
			}
			return
		}

		if f.Event != eventMessage || f.Body == "" {
			continue
		}

		msg := channel.Inbound{
			SenderAddress:     f.From,
			SenderDisplayName: f.Author,
			Text:              f.Body,
			IsGroup:           f.IsGroup,
		}

		select {
		case a.inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// SendText writes a send frame to the bridge. The frame carries a fresh
// client ID the bridge echoes in its ack.
func (a *Adapter) SendText(_ context.Context, destination, text string) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	f := frame{
		ID:    uuid.NewString(),
		Event: eventSend,
		To:    destination,
		Body:  text,
	}
	if err := a.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write send frame: %w", err)
	}
	return nil
}

// Close tears the websocket down; the read loop exits and the inbound
// channel closes.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.conn.Close()
	})
	return err
}
