package mqtt

import (
	"log/slog"
	"sync"
)

// outbox orders outgoing messages across reconnects. Until a replay of the
// buffered messages has finished, every publish joins the buffer, so a newer
// retained state can never be overwritten by an older buffered one.
type outbox struct {
	send   func(bufferedMsg) error
	logger *slog.Logger

	mu     sync.Mutex
	buffer *ringBuffer
	online bool
	gen    uint64 // bumped on every connect and disconnect
}

func newOutbox(capacity int, send func(bufferedMsg) error, logger *slog.Logger) *outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &outbox{
		send:   send,
		logger: logger,
		buffer: newRingBuffer(capacity, logger),
	}
}

// publish sends msg directly once online, otherwise buffers it.
func (o *outbox) publish(msg bufferedMsg) error {
	o.mu.Lock()
	if !o.online {
		o.buffer.push(msg)
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()
	return o.send(msg)
}

// connected starts a new session. Publishes keep buffering until replay is
// called with the returned generation and drains the buffer.
func (o *outbox) connected() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.online = false
	return o.gen
}

func (o *outbox) disconnected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.online = false
}

// replay sends buffered messages oldest first until the buffer is empty, then
// goes online. Messages published meanwhile are picked up by the next drain.
// It stops early if the session it was started for has ended.
func (o *outbox) replay(gen uint64) {
	replayed := 0
	for {
		o.mu.Lock()
		if o.gen != gen {
			o.mu.Unlock()
			return
		}
		pending := o.buffer.drainAll()
		if len(pending) == 0 {
			o.online = true
			o.mu.Unlock()
			if replayed > 0 {
				o.logger.Info("replayed buffered mqtt messages", "count", replayed)
			}
			return
		}
		o.mu.Unlock()

		for _, m := range pending {
			if err := o.send(m); err != nil {
				o.logger.Warn("mqtt replay failed", "topic", m.topic, "error", err)
			}
		}
		replayed += len(pending)
	}
}
