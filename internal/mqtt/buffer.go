package mqtt

import "log"

// bufferedMsg is a serialized MQTT message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is the fixed-capacity FIFO of messages waiting for the sender.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
		return
	}
	if r.dropped == 0 {
		log.Printf("mqtt: buffer full (%d messages), dropping oldest", len(r.buf))
	}
	r.dropped++
}

// pop removes and returns the oldest message.
func (r *ringBuffer) pop() (bufferedMsg, bool) {
	if r.count == 0 {
		return bufferedMsg{}, false
	}
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	msg := r.buf[start]
	r.buf[start] = bufferedMsg{}
	r.count--
	if r.count == 0 && r.dropped > 0 {
		log.Printf("mqtt: %d queued messages were dropped while the broker was unreachable", r.dropped)
		r.dropped = 0
	}
	return msg, true
}

// pushFront puts msg back at the head so it is the next one popped.
// A full buffer keeps its newer messages and drops msg.
func (r *ringBuffer) pushFront(msg bufferedMsg) {
	if r.count == len(r.buf) {
		r.dropped++
		return
	}
	start := (r.head - r.count - 1 + 2*len(r.buf)) % len(r.buf)
	r.buf[start] = msg
	r.count++
}

// drainAll empties the buffer and returns its messages oldest first.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	if r.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while disconnected", r.dropped)
	}

	out := make([]bufferedMsg, 0, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}

	r.head, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
