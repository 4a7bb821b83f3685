package room

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
	ErrRoomCodeLength   = errors.New("room code length out of range")
	ErrAlreadyInRoom    = errors.New("player already in a room")
	ErrNotInRoom        = errors.New("player not in a room")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrMatchInProgress  = errors.New("match in progress")
	ErrMailboxFull      = errors.New("room mailbox full")
)
