package events

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"intentsettle/core/types"
)

const defaultHistoryLimit = 2048

// Record is a sequenced event as delivered to stream subscribers.
type Record struct {
	Sequence  uint64       `json:"sequence"`
	Cursor    string       `json:"cursor"`
	Timestamp int64        `json:"timestamp"`
	Event     *types.Event `json:"event"`
}

func cloneRecord(r Record) Record {
	cloned := r
	if r.Event != nil {
		attrs := make(map[string]string, len(r.Event.Attributes))
		for k, v := range r.Event.Attributes {
			attrs[k] = v
		}
		cloned.Event = &types.Event{Type: r.Event.Type, Attributes: attrs}
	}
	return cloned
}

// Broadcaster is an Emitter that sequences events, retains a bounded history
// and fans them out to subscribers. Slow subscribers miss events rather than
// blocking the emitter.
type Broadcaster struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	limit   int
	history []Record
	subs    map[uint64]chan Record
	nowFn   func() time.Time
}

// NewBroadcaster constructs a broadcaster retaining up to limit records. A
// non-positive limit selects the default.
func NewBroadcaster(limit int) *Broadcaster {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &Broadcaster{
		limit: limit,
		subs:  make(map[uint64]chan Record),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Emit implements the Emitter interface.
func (b *Broadcaster) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	payload := ToPayload(evt)

	b.mu.Lock()
	b.seq++
	record := Record{
		Sequence:  b.seq,
		Cursor:    strconv.FormatUint(b.seq, 10),
		Timestamp: b.nowFn().Unix(),
		Event:     payload,
	}
	b.history = append(b.history, cloneRecord(record))
	if len(b.history) > b.limit {
		excess := len(b.history) - b.limit
		trimmed := make([]Record, b.limit)
		copy(trimmed, b.history[excess:])
		b.history = trimmed
	}
	// Sends stay under the lock so cancel cannot close a channel mid-send.
	for _, ch := range b.subs {
		select {
		case ch <- cloneRecord(record):
		default:
		}
	}
	b.mu.Unlock()
}

// History returns retained records with a sequence greater than the cursor.
func (b *Broadcaster) History(cursor string) []Record {
	since := parseCursor(cursor)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, 0, len(b.history))
	for _, entry := range b.history {
		if entry.Sequence > since {
			out = append(out, cloneRecord(entry))
		}
	}
	return out
}

// Subscribe registers a subscriber for events emitted after the supplied
// cursor. Records already retained past the cursor are returned as backlog.
// The returned cancel function is idempotent and also runs when ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, cursor string) (<-chan Record, func(), []Record) {
	updates := make(chan Record, 32)
	since := parseCursor(cursor)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = updates
	backlog := make([]Record, 0, len(b.history))
	for _, entry := range b.history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneRecord(entry))
		}
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return updates, cancel, backlog
}

func parseCursor(cursor string) uint64 {
	trimmed := strings.TrimSpace(cursor)
	if trimmed == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
