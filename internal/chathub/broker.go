package chathub

import (
	"fmt"
	"sync"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/models"

	"github.com/goccy/go-json"
)

// Subscriber receives topic payloads. Deliver must not block; it returns
// false when the payload was dropped.
type Subscriber interface {
	Deliver(subscriptionID, destination string, body []byte) bool
}

type subscription struct {
	subscriber Subscriber
	id         string
}

// Broker fans events out to the subscribers of in-process topics. Delivery
// is at most once per subscriber with no replay.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[subscription]struct{}
	owned  map[Subscriber]map[string]string // subscriber -> subscription id -> topic
}

func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]map[subscription]struct{}),
		owned:  make(map[Subscriber]map[string]string),
	}
}

// Subscribe registers s on topic under id. Reusing an id moves it.
func (b *Broker) Subscribe(s Subscriber, id, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeLocked(s, id)

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[subscription]struct{})
		b.topics[topic] = subs
	}
	subs[subscription{subscriber: s, id: id}] = struct{}{}

	ids, ok := b.owned[s]
	if !ok {
		ids = make(map[string]string)
		b.owned[s] = ids
	}
	ids[id] = topic
}

func (b *Broker) Unsubscribe(s Subscriber, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(s, id)
}

// UnsubscribeAll drops every subscription held by s.
func (b *Broker) UnsubscribeAll(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.owned[s] {
		b.removeLocked(s, id)
	}
	delete(b.owned, s)
}

func (b *Broker) removeLocked(s Subscriber, id string) {
	ids := b.owned[s]
	topic, ok := ids[id]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(b.owned, s)
	}
	subs := b.topics[topic]
	delete(subs, subscription{subscriber: s, id: id})
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// SubscriberCount returns the number of subscriptions on topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Publish encodes payload as JSON and offers it to every subscriber of
// topic. It returns how many accepted it.
func (b *Broker) Publish(topic string, payload interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload for %s: %w", topic, err)
	}

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.topics[topic]))
	for sub := range b.topics[topic] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if sub.subscriber.Deliver(sub.id, topic, body) {
			delivered++
		} else {
			logging.Debug().Str("topic", topic).Str("subscription", sub.id).Msg("slow subscriber, event dropped")
		}
	}
	return delivered, nil
}

// PublishMessage sends a stored message to its room topic.
func (b *Broker) PublishMessage(ev models.ChatMessageEvent) (int, error) {
	return b.Publish(config.ChatTopic(ev.SessionKey), ev)
}

// PublishTyping sends a typing indicator to the room's typing topic.
func (b *Broker) PublishTyping(ev models.TypingEvent) (int, error) {
	return b.Publish(config.TypingTopic(ev.SessionKey), ev)
}
