package main

import (
	"bufio"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/wordgame/network"
)

const help = `commands:
  name <name>      set your player name
  list             list rooms
  create <code>    create a room
  join <code>      join a room
  leave            leave the room
  say <text>       chat with the room
  start            start a match
  type <text>      send typing progress
  answer <text>    submit an answer
  state            query the room state
  errors           fetch the error code table
  quit`

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, body interface{}) error {
	var data []byte
	if body != nil {
		data = network.Marshal(body)
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

// command maps an input line to an outbound message.
func command(line string) (uint16, interface{}, error) {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch verb {
	case "name":
		return network.MsgTypeSetName, network.NameBody{Name: arg}, nil
	case "list":
		return network.MsgTypeListRooms, nil, nil
	case "create":
		return network.MsgTypeCreateRoom, network.CodeBody{Code: arg}, nil
	case "join":
		return network.MsgTypeJoinRoom, network.CodeBody{Code: arg}, nil
	case "leave":
		return network.MsgTypeLeaveRoom, nil, nil
	case "say":
		return network.MsgTypeRoomChat, network.TextBody{Text: arg}, nil
	case "start":
		return network.MsgTypeStartMatch, nil, nil
	case "type":
		return network.MsgTypeTyping, network.TextBody{Text: arg}, nil
	case "answer":
		return network.MsgTypeAnswer, network.TextBody{Text: arg}, nil
	case "state":
		return network.MsgTypeQueryState, nil, nil
	case "errors":
		return network.MsgTypeErrorTable, nil, nil
	case "ping":
		return network.MsgTypePing, nil, nil
	default:
		return 0, nil, fmt.Errorf("unknown command %q", verb)
	}
}

func run(addr string) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	fmt.Println(help)

	// Write loop
	for {
		select {
		case <-done:
			return nil
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			return closeConn(c, done)
		case line, ok := <-lines:
			if !ok || line == "quit" {
				return closeConn(c, done)
			}
			if line == "" {
				continue
			}
			msgID, body, err := command(line)
			if err != nil {
				log.Println(err)
				continue
			}
			if err := send(c, msgID, body); err != nil {
				return fmt.Errorf("write error: %w", err)
			}
			log.Printf("-> SENT (ID: %d)", msgID)
		}
	}
}

func closeConn(c *websocket.Conn, done <-chan struct{}) error {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return err
}

func main() {
	var addr string
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Interactive terminal client for the word game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8765", "server host:port")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
