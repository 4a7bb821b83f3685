package network

import "encoding/json"

// TextBody is the body of every inbound message that carries a single string.
type TextBody struct {
	Text string `json:"text"`
}

type NameBody struct {
	Name string `json:"name"`
}

type CodeBody struct {
	Code string `json:"code"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PlayerInfo struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type RoomInfo struct {
	ID      uint64   `json:"id"`
	Code    string   `json:"code"`
	State   int      `json:"state"`
	Players []string `json:"players"`
}

type RoomListBody struct {
	Rooms []RoomInfo `json:"rooms"`
}

type RoomEnteredBody struct {
	RoomID uint64 `json:"room_id"`
	Code   string `json:"code"`
}

type MembersBody struct {
	Players []PlayerInfo `json:"players"`
}

type ChatBody struct {
	From string `json:"from"`
	Text string `json:"text"`
}

type GameStateBody struct {
	State  int    `json:"state"`
	Player uint64 `json:"player,omitempty"`
}

type FragmentBody struct {
	Fragment string `json:"fragment"`
}

type TypingBody struct {
	Player uint64 `json:"player"`
	Text   string `json:"text"`
}

type AnswerResultBody struct {
	Player   uint64 `json:"player"`
	Text     string `json:"text"`
	Accepted bool   `json:"accepted"`
	Points   int    `json:"points,omitempty"`
}

type PointsBody struct {
	Player uint64 `json:"player"`
	Points int    `json:"points"`
}

type TimeUpBody struct {
	Player uint64 `json:"player"`
}

type ErrorCodesBody struct {
	Codes map[string]string `json:"codes"`
}

type PlayerScore struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	RoundsPlayed int    `json:"rounds_played"`
	Points       int    `json:"points"`
}

type MatchSummaryBody struct {
	MatchID string        `json:"match_id"`
	Scores  []PlayerScore `json:"scores"`
	Words   []string      `json:"words"`
}

// Marshal encodes a message body. Bodies are plain structs, so an error here is a programming bug
// and is reported as an empty JSON object.
func Marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
