package live

import (
	"errors"
	"strconv"
	"strings"
	"sync"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// LiveNotification is the wire form pushed to connected subscribers. The
// durable row in the notifications table is the source of truth; delivery
// here is best effort.
type LiveNotification struct {
	NotificationID string `json:"notification_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"body,omitempty"`
	TargetEmpID    *int64 `json:"target_emp_id,omitempty"`
	TargetRole     string `json:"target_role,omitempty"`
	RefType        string `json:"ref_type,omitempty"`
	RefID          string `json:"ref_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// EmpChannel names the per-employee delivery channel.
func EmpChannel(empID int64) string {
	return "emp:" + strconv.FormatInt(empID, 10)
}

// RoleChannel names the shared delivery channel for a role audience.
func RoleChannel(role string) string {
	return "role:" + strings.ToLower(strings.TrimSpace(role))
}

type Hub struct {
	mu               sync.RWMutex
	channels         map[string]*channel
	bufferSize       int
	subscriberBuffer int
}

type channel struct {
	mu     sync.Mutex
	buffer []LiveNotification
	subs   map[uint64]chan LiveNotification
	nextID uint64
}

type Subscription struct {
	hub     *Hub
	channel string
	id      uint64
	ch      chan LiveNotification
	once    sync.Once
}

func NewHub() *Hub {
	return &Hub{
		channels:         make(map[string]*channel),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers to every subscriber of the channel without blocking.
// Slow subscribers lose events rather than stalling the publisher.
func (h *Hub) Publish(channelName string, event LiveNotification) {
	if h == nil {
		return
	}
	name := strings.TrimSpace(channelName)
	if name == "" {
		return
	}
	h.mu.RLock()
	ch := h.channels[name]
	h.mu.RUnlock()
	if ch == nil {
		return
	}

	ch.mu.Lock()
	ch.buffer = append(ch.buffer, event)
	if len(ch.buffer) > h.bufferSize {
		ch.buffer = ch.buffer[len(ch.buffer)-h.bufferSize:]
	}
	subs := make([]chan LiveNotification, 0, len(ch.subs))
	for _, sub := range ch.subs {
		subs = append(subs, sub)
	}
	ch.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Subscribe attaches to a channel and returns the recent replay buffer.
func (h *Hub) Subscribe(channelName string) (*Subscription, []LiveNotification, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	name := strings.TrimSpace(channelName)
	if name == "" {
		return nil, nil, errors.New("invalid_channel")
	}

	ch := h.ensureChannel(name)
	ch.mu.Lock()
	if ch.subs == nil {
		ch.subs = make(map[uint64]chan LiveNotification)
	}
	id := ch.nextID
	ch.nextID++
	sub := make(chan LiveNotification, h.subscriberBuffer)
	ch.subs[id] = sub
	buffer := append([]LiveNotification(nil), ch.buffer...)
	ch.mu.Unlock()

	return &Subscription{
		hub:     h,
		channel: name,
		id:      id,
		ch:      sub,
	}, buffer, nil
}

func (h *Hub) ensureChannel(name string) *channel {
	h.mu.RLock()
	current := h.channels[name]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.channels[name]
	if current == nil {
		current = &channel{subs: make(map[uint64]chan LiveNotification)}
		h.channels[name] = current
	}
	return current
}

func (h *Hub) unsubscribe(name string, id uint64) {
	if h == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	h.mu.RLock()
	ch := h.channels[name]
	h.mu.RUnlock()
	if ch == nil {
		return
	}

	ch.mu.Lock()
	delete(ch.subs, id)
	remaining := len(ch.subs)
	ch.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.channels[name]
	if current != ch {
		h.mu.Unlock()
		return
	}
	ch.mu.Lock()
	empty := len(ch.subs) == 0
	ch.mu.Unlock()
	if empty {
		delete(h.channels, name)
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan LiveNotification {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.channel, s.id)
	})
}
