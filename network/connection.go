// network/connection.go
package network

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	headerSize   = 4
	writeTimeout = 5 * time.Second
	maxFrameSize = headerSize + math.MaxUint16
)

var ErrPayloadTooLarge = errors.New("payload too large")

type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

type Connection interface {
	Send(msgID uint16, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadPacket() (*Packet, error)
}

// PongNotifier is implemented by connections that can report keepalive pongs.
type PongNotifier interface {
	OnPong(fn func())
}

// EncodePacket frames data as: 2 byte message id, 2 byte length, body. Both big endian.
func EncodePacket(msgID uint16, data []byte) ([]byte, error) {
	if len(data) > math.MaxUint16 {
		return nil, ErrPayloadTooLarge
	}
	packet := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[headerSize:], data)
	return packet, nil
}

// DecodePacket is the inverse of EncodePacket. Trailing bytes after the declared length are ignored.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < headerSize {
		return nil, io.ErrShortBuffer
	}

	msgID := binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])

	if len(data) < headerSize+int(length) {
		return nil, io.ErrShortBuffer
	}

	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   data[headerSize : headerSize+int(length)],
	}, nil
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
	onPong    func()
	closed    chan struct{}
	closeOnce sync.Once
	pingOnce  sync.Once
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	conn.SetReadLimit(maxFrameSize)
	return &WSConnection{conn: conn, closed: make(chan struct{})}
}

// OnPong registers fn to run on every pong from the peer. Call it before the first read.
func (c *WSConnection) OnPong(fn func()) {
	c.onPong = fn
}

// Send is safe for concurrent use; gorilla connections allow one writer at a time.
func (c *WSConnection) Send(msgID uint16, data []byte) error {
	packet, err := EncodePacket(msgID, data)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return DecodePacket(data)
}

// SetHeartbeat pings the peer every interval and makes reads fail when neither a message nor
// a pong arrives within twice the interval. Call it before the first read.
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.heartbeat = interval
	_ = c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	c.conn.SetPongHandler(func(string) error {
		if c.onPong != nil {
			c.onPong()
		}
		return c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	})
	c.pingOnce.Do(func() { go c.pingLoop(interval) })
}

func (c *WSConnection) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// WriteControl may run concurrently with Send
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

var (
	_ Connection   = (*WSConnection)(nil)
	_ PongNotifier = (*WSConnection)(nil)
)
