package network

// Inbound message ids (client -> server).
const (
	MsgTypePing       = 1
	MsgTypeSetName    = 101
	MsgTypeListRooms  = 102
	MsgTypeCreateRoom = 103
	MsgTypeJoinRoom   = 104
	MsgTypeLeaveRoom  = 105
	MsgTypeRoomChat   = 106
	MsgTypeStartMatch = 201
	MsgTypeTyping     = 202
	MsgTypeAnswer     = 203
	MsgTypeQueryState = 204
	MsgTypeErrorTable = 205
)

// Outbound message ids (server -> client).
const (
	MsgTypePong         = 2
	MsgTypeError        = 300
	MsgTypeNameSet      = 301
	MsgTypeRoomList     = 302
	MsgTypeRoomEntered  = 303
	MsgTypeMembers      = 304
	MsgTypePlayerJoined = 305
	MsgTypePlayerLeft   = 306
	MsgTypeChat         = 307
	MsgTypeLeftRoom     = 308
	MsgTypeGameState    = 401
	MsgTypeFragment     = 402
	MsgTypePlayerTyping = 403
	MsgTypeAnswerResult = 404
	MsgTypePoints       = 405
	MsgTypeTimeUp       = 406
	MsgTypeErrorCodes   = 407
	MsgTypeMatchSummary = 408
)
