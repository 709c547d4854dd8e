package mqtt

import "log"

// pendingMsg is a serialized message waiting for the broker to come back.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while disconnected, oldest first.
// When full, the oldest message is dropped. Not safe for concurrent use.
type outbox struct {
	msgs     []pendingMsg
	capacity int
	dropped  int // dropped since the last flush
}

func newOutbox(capacity int) *outbox {
	return &outbox{capacity: capacity}
}

func (o *outbox) add(msg pendingMsg) {
	if o.capacity <= 0 {
		o.dropped++
		return
	}
	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.capacity)
		}
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// flush returns every held message and empties the outbox.
func (o *outbox) flush() (msgs []pendingMsg, dropped int) {
	msgs, dropped = o.msgs, o.dropped
	o.msgs = nil
	o.dropped = 0
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}

// requeue puts msgs back in front of anything added since they were
// flushed. The oldest are dropped if the result exceeds capacity.
func (o *outbox) requeue(msgs []pendingMsg) {
	all := append(append([]pendingMsg(nil), msgs...), o.msgs...)
	if over := len(all) - o.capacity; over > 0 {
		all = all[over:]
		o.dropped += over
	}
	o.msgs = all
}
