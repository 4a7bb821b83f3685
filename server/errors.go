package server

import (
	"errors"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/room"
	"github.com/wfunc/wordgame/session"
)

// Wire error codes.
const (
	CodeRoomNotFound      = "RNF"
	CodePlayerNotFound    = "PNF"
	CodeNoNameSet         = "NNS"
	CodeNotInRoom         = "NIR"
	CodeNotEnoughPlayers  = "NEP"
	CodeAlreadyInRoom     = "AIR"
	CodeRoomAlreadyExists = "RAE"
	CodePlayerNameLength  = "PNL"
	CodeRoomCodeLength    = "RCL"
	CodeMatchInProgress   = "MIP"
	CodeMalformedMessage  = "BAD"
	CodeUnknown           = "UNK"
)

// ErrorCodes is the table sent to clients on request.
var ErrorCodes = map[string]string{
	CodeRoomNotFound:      "room not found",
	CodePlayerNotFound:    "player not found",
	CodeNoNameSet:         "no name set",
	CodeNotInRoom:         "not in a room",
	CodeNotEnoughPlayers:  "not enough players",
	CodeAlreadyInRoom:     "already in a room",
	CodeRoomAlreadyExists: "room already exists",
	CodePlayerNameLength:  "player name must be 4 to 10 characters",
	CodeRoomCodeLength:    "room code must be 8 to 20 characters",
	CodeMatchInProgress:   "match in progress",
	CodeMalformedMessage:  "malformed message",
	CodeUnknown:           "unknown error",
}

var (
	errMalformed = errors.New("malformed message")
	errNoName    = errors.New("no name set")
)

// codeFor maps a domain error to its wire code.
func codeFor(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, room.ErrRoomExists):
		return CodeRoomAlreadyExists
	case errors.Is(err, room.ErrRoomCodeLength):
		return CodeRoomCodeLength
	case errors.Is(err, room.ErrAlreadyInRoom):
		return CodeAlreadyInRoom
	case errors.Is(err, room.ErrNotInRoom):
		return CodeNotInRoom
	case errors.Is(err, room.ErrNotEnoughPlayers):
		return CodeNotEnoughPlayers
	case errors.Is(err, room.ErrMatchInProgress):
		return CodeMatchInProgress
	case errors.Is(err, session.ErrNameLength):
		return CodePlayerNameLength
	case errors.Is(err, errNoName):
		return CodeNoNameSet
	case errors.Is(err, errMalformed):
		return CodeMalformedMessage
	default:
		return CodeUnknown
	}
}

func sendError(sess *session.Session, err error) {
	code := codeFor(err)
	if code == CodeUnknown {
		logger.Log.Warnw("unexpected error", "player", sess.ID, "error", err)
	}
	sendCode(sess, code)
}

func sendCode(sess *session.Session, code string) {
	reply(sess, network.MsgTypeError, network.ErrorBody{Code: code, Message: ErrorCodes[code]})
}

func reply(sess *session.Session, msgID uint16, body interface{}) {
	if err := sess.Send(msgID, network.Marshal(body)); err != nil {
		logger.Log.Debugw("reply failed", "player", sess.ID, "msg", msgID, "error", err)
	}
}
