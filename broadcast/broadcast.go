// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/network"
)

var (
	ErrOutboxFull   = errors.New("outbox full")
	ErrOutboxClosed = errors.New("outbox closed")
)

// Recipient is anything that can receive a framed message.
type Recipient interface {
	GetID() uint64
	Send(msgID uint16, data []byte) error
}

// Fanout sends data to every recipient not listed in exclude and returns how many sends succeeded.
// A failed send is logged and does not stop delivery to the others.
func Fanout[R Recipient](recipients []R, msgID uint16, data []byte, exclude ...uint64) int {
	delivered := 0
	for _, r := range recipients {
		if excluded(r.GetID(), exclude) {
			continue
		}
		if err := r.Send(msgID, data); err != nil {
			logger.Log.Debugw("broadcast send failed", "player", r.GetID(), "msg", msgID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func excluded(id uint64, exclude []uint64) bool {
	for _, e := range exclude {
		if e == id {
			return true
		}
	}
	return false
}

type frame struct {
	msgID uint16
	data  []byte
}

// Outbox decouples callers from a slow connection. Send only enqueues; a single writer goroutine
// delivers frames in order. The first write error closes the outbox.
type Outbox struct {
	conn  network.Connection
	queue chan frame
	done  chan struct{}
	once  sync.Once
}

// NewOutbox starts the writer goroutine for conn. size bounds the number of pending frames.
func NewOutbox(conn network.Connection, size int) *Outbox {
	if size < 1 {
		size = 1
	}
	o := &Outbox{
		conn:  conn,
		queue: make(chan frame, size),
		done:  make(chan struct{}),
	}
	go o.writeLoop()
	return o
}

func (o *Outbox) Send(msgID uint16, data []byte) error {
	select {
	case <-o.done:
		return ErrOutboxClosed
	default:
	}

	select {
	case o.queue <- frame{msgID: msgID, data: data}:
		return nil
	case <-o.done:
		return ErrOutboxClosed
	default:
		return ErrOutboxFull
	}
}

func (o *Outbox) writeLoop() {
	for {
		select {
		case f := <-o.queue:
			if err := o.conn.Send(f.msgID, f.data); err != nil {
				logger.Log.Debugw("outbox write failed", "remote", o.conn.RemoteAddr(), "error", err)
				o.shutdown()
				return
			}
		case <-o.done:
			return
		}
	}
}

func (o *Outbox) shutdown() {
	o.once.Do(func() { close(o.done) })
}

// Done is closed once the outbox stops accepting frames.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Close stops the writer and closes the underlying connection. Pending frames are dropped.
func (o *Outbox) Close() error {
	o.shutdown()
	return o.conn.Close()
}

func (o *Outbox) RemoteAddr() net.Addr {
	return o.conn.RemoteAddr()
}

func (o *Outbox) SetHeartbeat(interval time.Duration) {
	o.conn.SetHeartbeat(interval)
}

func (o *Outbox) ReadPacket() (*network.Packet, error) {
	return o.conn.ReadPacket()
}

var _ network.Connection = (*Outbox)(nil)
