package buffer

import (
	"sort"
	"sync"

	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
)

// EventBuffer is a fixed-size ring of the most recent change events.
// Events must be added in strictly increasing, gap-free Seq order.
type EventBuffer struct {
	mu     sync.RWMutex
	events []v1.Event
	size   int
	head   int
	isFull bool
}

func NewEventBuffer(size int) *EventBuffer {
	if size <= 0 {
		size = 1000
	}
	return &EventBuffer{
		events: make([]v1.Event, size),
		size:   size,
	}
}

func (b *EventBuffer) Add(ev v1.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.head] = ev
	b.head = (b.head + 1) % b.size
	if b.head == 0 {
		b.isFull = true
	}
}

// GetSince returns the events with Seq > lastSeq. ok is false when the ring no
// longer (or never did) cover lastSeq and the caller must resynchronise.
func (b *EventBuffer) GetSince(lastSeq int64) (events []v1.Event, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.head
	start := 0
	if b.isFull {
		count = b.size
		start = b.head
	}

	if count == 0 {
		return nil, lastSeq == 0
	}

	oldest := b.events[start].Seq
	newest := b.events[(start+count-1)%b.size].Seq

	if lastSeq < oldest-1 || lastSeq > newest {
		return nil, false
	}

	idx := sort.Search(count, func(i int) bool {
		return b.events[(start+i)%b.size].Seq > lastSeq
	})
	if idx == count {
		return nil, true
	}

	result := make([]v1.Event, 0, count-idx)
	for i := idx; i < count; i++ {
		result = append(result, b.events[(start+i)%b.size])
	}
	return result, true
}
