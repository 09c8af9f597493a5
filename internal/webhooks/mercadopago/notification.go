package mpwebhook

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Mercado Pago delivers payment notifications in two shapes, an older
// one carried in the query string (?topic=payment&id=123) and a newer
// JSON body ({"type":"payment","data":{"id":"123"}}). Both arrive in
// production so both are parsed, query string first.
type notificationBody struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// ParsePaymentNotification extracts the payment id from either shape.
// It returns false for anything that is not a payment notification,
// merchant_order and plan topics included.
func ParsePaymentNotification(query url.Values, body []byte) (string, bool) {
	topic := query.Get("topic")
	if topic == "" {
		topic = query.Get("type")
	}
	if topic == "payment" {
		id := query.Get("id")
		if id == "" {
			id = query.Get("data.id")
		}
		if id != "" {
			return id, true
		}
	}

	if len(body) == 0 {
		return "", false
	}
	var parsed notificationBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if parsed.Type != "payment" {
		return "", false
	}
	id := strings.TrimSpace(parsed.Data.ID.String())
	if id == "" {
		return "", false
	}
	return id, true
}
