package usecase

import (
	"sync"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// AttributionKind identifies the producer of an inbound payload.
type AttributionKind int

const (
	// KindAttribution is the installation source payload.
	KindAttribution AttributionKind = iota
	// KindDeepLink is a deep-link payload resolved after install.
	KindDeepLink
)

func (k AttributionKind) String() string {
	if k == KindDeepLink {
		return "deep_link"
	}
	return "attribution"
}

// AttributionEvent is one payload delivered through the inbox.
type AttributionEvent struct {
	Kind    AttributionKind
	Payload entity.Payload
}

// AttributionInbox fans attribution SDK callbacks into a single channel.
// Any number of producers may publish; each kind is delivered at most once per session.
type AttributionInbox struct {
	events    chan AttributionEvent
	mu        sync.Mutex
	delivered map[AttributionKind]bool
}

// NewAttributionInbox creates an inbox for one session.
func NewAttributionInbox() *AttributionInbox {
	return &AttributionInbox{
		// One slot per kind, so publishing never blocks.
		events:    make(chan AttributionEvent, 2),
		delivered: make(map[AttributionKind]bool),
	}
}

// PublishAttribution delivers the attribution payload. It returns false if one was already delivered.
func (b *AttributionInbox) PublishAttribution(payload entity.Payload) bool {
	return b.publish(KindAttribution, payload)
}

// PublishDeepLink delivers the deep-link payload. It returns false if one was already delivered.
func (b *AttributionInbox) PublishDeepLink(payload entity.Payload) bool {
	return b.publish(KindDeepLink, payload)
}

// Events returns the single consumer channel.
func (b *AttributionInbox) Events() <-chan AttributionEvent {
	return b.events
}

func (b *AttributionInbox) publish(kind AttributionKind, payload entity.Payload) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.delivered[kind] {
		return false
	}
	b.delivered[kind] = true
	b.events <- AttributionEvent{Kind: kind, Payload: payload.Clone()}
	return true
}
