package session

import "strings"

// Host suffixes WhatsApp transports attach to sender addresses.
var addressSuffixes = []string{"@c.us", "@s.whatsapp.net", "@g.us"}

// Identity canonicalizes a channel address into the stable identity the
// session record is keyed by: transport suffix stripped, digits prefixed
// with "+". Deterministic, so two deliveries from the same customer always
// map to the same key.
func Identity(address string) string {
	id := strings.TrimSpace(address)
	for _, suffix := range addressSuffixes {
		id = strings.TrimSuffix(id, suffix)
	}
	if id != "" && !strings.HasPrefix(id, "+") {
		id = "+" + id
	}
	return id
}
