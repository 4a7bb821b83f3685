package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/room"
	"github.com/wfunc/wordgame/session"
)

var msgNames = map[uint16]string{
	network.MsgTypePing:       "ping",
	network.MsgTypeSetName:    "set_name",
	network.MsgTypeListRooms:  "list_rooms",
	network.MsgTypeCreateRoom: "create_room",
	network.MsgTypeJoinRoom:   "join_room",
	network.MsgTypeLeaveRoom:  "leave_room",
	network.MsgTypeRoomChat:   "chat",
	network.MsgTypeStartMatch: "start_match",
	network.MsgTypeTyping:     "typing",
	network.MsgTypeAnswer:     "answer",
	network.MsgTypeQueryState: "query_state",
	network.MsgTypeErrorTable: "error_table",
}

func msgName(id uint16) string {
	if name, ok := msgNames[id]; ok {
		return name
	}
	return "unknown_" + strconv.Itoa(int(id))
}

// dispatch handles one inbound packet. Replies go to sess; room events go through the room.
func (s *GameServer) dispatch(sess *session.Session, packet *network.Packet) {
	s.monitor.IncMessagesReceived(msgName(packet.MsgID))

	var err error
	switch packet.MsgID {
	case network.MsgTypePing:
		reply(sess, network.MsgTypePong, struct{}{})
	case network.MsgTypeSetName:
		err = s.handleSetName(sess, packet.Data)
	case network.MsgTypeListRooms:
		reply(sess, network.MsgTypeRoomList, s.roomList())
	case network.MsgTypeCreateRoom:
		err = s.handleCreateRoom(sess, packet.Data)
	case network.MsgTypeJoinRoom:
		err = s.handleJoinRoom(sess, packet.Data)
	case network.MsgTypeLeaveRoom:
		err = s.handleLeaveRoom(sess)
	case network.MsgTypeRoomChat:
		err = s.handleChat(sess, packet.Data)
	case network.MsgTypeStartMatch:
		err = s.handleStartMatch(sess)
	case network.MsgTypeTyping:
		err = s.handleEntry(sess, packet.Data, room.EntryTyping)
	case network.MsgTypeAnswer:
		err = s.handleEntry(sess, packet.Data, room.EntryAnswer)
	case network.MsgTypeQueryState:
		err = s.handleQueryState(sess)
	case network.MsgTypeErrorTable:
		reply(sess, network.MsgTypeErrorCodes, network.ErrorCodesBody{Codes: ErrorCodes})
	default:
		logger.Log.Debugw("unknown message", "player", sess.ID, "msg", packet.MsgID)
		sendCode(sess, CodeUnknown)
	}

	if err != nil {
		sendError(sess, err)
	}
}

func decodeBody[T any](data []byte) (T, error) {
	var body T
	if err := json.Unmarshal(data, &body); err != nil {
		return body, errMalformed
	}
	return body, nil
}

func (s *GameServer) handleSetName(sess *session.Session, data []byte) error {
	if sess.RoomID() != 0 {
		return room.ErrAlreadyInRoom
	}
	body, err := decodeBody[network.NameBody](data)
	if err != nil {
		return err
	}
	name, err := session.ValidateName(body.Name)
	if err != nil {
		return err
	}
	sess.SetName(name)
	reply(sess, network.MsgTypeNameSet, network.NameBody{Name: name})
	return nil
}

func (s *GameServer) roomList() network.RoomListBody {
	rooms := s.roomManager.List()
	infos := make([]network.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	return network.RoomListBody{Rooms: infos}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, data []byte) error {
	if !sess.HasName() {
		return errNoName
	}
	body, err := decodeBody[network.CodeBody](data)
	if err != nil {
		return err
	}
	if _, err := s.roomManager.Create(body.Code, sess); err != nil {
		return err
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
	return nil
}

func (s *GameServer) handleJoinRoom(sess *session.Session, data []byte) error {
	if !sess.HasName() {
		return errNoName
	}
	body, err := decodeBody[network.CodeBody](data)
	if err != nil {
		return err
	}
	_, err = s.roomManager.Join(body.Code, sess)
	return err
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) error {
	r, removed, err := s.roomManager.Leave(sess)
	if errors.Is(err, room.ErrRoomNotFound) {
		// the room vanished underneath the player; report it like any other non-member
		return room.ErrNotInRoom
	}
	if err != nil {
		return err
	}
	if removed {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	}
	reply(sess, network.MsgTypeLeftRoom, network.RoomEnteredBody{RoomID: r.ID, Code: r.Code})
	return nil
}

// currentRoom resolves the room the player is in.
func (s *GameServer) currentRoom(sess *session.Session) (*room.Room, error) {
	id := sess.RoomID()
	if id == 0 {
		return nil, room.ErrNotInRoom
	}
	r, ok := s.roomManager.Get(id)
	if !ok {
		return nil, room.ErrNotInRoom
	}
	return r, nil
}

func (s *GameServer) handleChat(sess *session.Session, data []byte) error {
	r, err := s.currentRoom(sess)
	if err != nil {
		return err
	}
	body, err := decodeBody[network.TextBody](data)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		return nil
	}
	r.Chat(sess, text)
	return nil
}

func (s *GameServer) handleStartMatch(sess *session.Session) error {
	r, err := s.currentRoom(sess)
	if err != nil {
		return err
	}
	return r.StartMatch(s.matchCtx)
}

func (s *GameServer) handleEntry(sess *session.Session, data []byte, kind room.EntryKind) error {
	r, err := s.currentRoom(sess)
	if err != nil {
		return err
	}
	body, err := decodeBody[network.TextBody](data)
	if err != nil {
		return err
	}
	if err := r.Enqueue(room.Entry{PlayerID: sess.ID, Kind: kind, Text: body.Text}); err != nil {
		s.monitor.IncMessagesDropped()
	}
	return nil
}

func (s *GameServer) handleQueryState(sess *session.Session) error {
	r, err := s.currentRoom(sess)
	if err != nil {
		return err
	}
	st := r.State()
	reply(sess, network.MsgTypeGameState, network.GameStateBody{State: int(st.ID), Player: st.Player})
	return nil
}
