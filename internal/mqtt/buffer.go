package mqtt

import "log"

// pendingMsg is a serialized MQTT message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO of messages queued while disconnected.
// Once full, the oldest message is overwritten.
// Not safe for concurrent use; the caller must synchronize.
type backlog struct {
	msgs    []pendingMsg
	next    int // slot for the next push
	count   int
	dropped int // messages overwritten since the last drain
}

func newBacklog(capacity int) *backlog {
	if capacity <= 0 {
		capacity = 1
	}
	return &backlog{msgs: make([]pendingMsg, capacity)}
}

func (b *backlog) push(msg pendingMsg) {
	size := len(b.msgs)
	if b.count == size {
		if b.dropped == 0 {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", size)
		}
		b.dropped++
	} else {
		b.count++
	}
	b.msgs[b.next] = msg
	b.next = (b.next + 1) % size
}

// drain returns queued messages oldest first and empties the backlog.
func (b *backlog) drain() []pendingMsg {
	if b.count == 0 {
		return nil
	}

	size := len(b.msgs)
	out := make([]pendingMsg, 0, b.count)
	for i := b.next - b.count; i < b.next; i++ {
		out = append(out, b.msgs[(i+size)%size])
	}

	if b.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while disconnected", b.dropped)
	}
	b.count = 0
	b.next = 0
	b.dropped = 0
	return out
}

func (b *backlog) len() int {
	return b.count
}
