// Package queue defines message payloads exchanged over the message broker.
package queue

// ProductChangedQueue carries catalog change notifications.
const ProductChangedQueue = "catalog.product_changed"

// Product change actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ProductChangedEvent is published after a catalog write has committed and
// the catalog version was bumped.  Version is zero when the cache was
// unavailable at write time.
type ProductChangedEvent struct {
	Action    string `json:"action"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SellerID  string `json:"seller_id,omitempty"`
	Version   int64  `json:"version"`
	At        string `json:"at"`
}
