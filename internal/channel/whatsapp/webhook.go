package whatsapp

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lucasmaia/atende/internal/channel"
	"github.com/lucasmaia/atende/pkg/utils"
)

// notification is the slice of the Cloud API webhook payload we consume.
type notification struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Routes mounts the webhook endpoints on the given router.
func (a *Adapter) Routes(r chi.Router) {
	r.Get("/webhook", a.handleVerify)
	r.Post("/webhook", a.handleNotification)
}

// handleVerify answers Meta's subscription handshake.
func (a *Adapter) handleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || token != a.cfg.VerifyToken {
		utils.RespondError(w, http.StatusForbidden, "verification failed")
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// handleNotification fans incoming text messages out to the listen channel.
// Non-text events (statuses, media) are acknowledged and dropped.
func (a *Adapter) handleNotification(w http.ResponseWriter, r *http.Request) {
	var payload notification
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text.Body == "" {
					continue
				}
				select {
				case a.inbound <- channel.Inbound{
					SenderAddress:     msg.From,
					SenderDisplayName: names[msg.From],
					Text:              msg.Text.Body,
				}:
				default:
					log.Printf("[channel] inbound buffer full, dropping message from %s", msg.From)
				}
			}
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
