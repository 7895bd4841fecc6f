package game

import (
	"strings"
	"unicode/utf8"

	"belote.com/server/belote"
)

const MaxNameLength = 24

func validName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && utf8.RuneCountInString(trimmed) <= MaxNameLength
}

// seat adds a new connected player.
func (s *GameState) seat(sessionID string, name string) *Player {
	player := &Player{
		ID:        sessionID,
		Name:      name,
		Hand:      make([]belote.Card, 0, TricksPerRound),
		Connected: true,
	}
	s.Players = append(s.Players, player)
	return player
}

// rebind moves a disconnected seat to a new session. Every place the old
// session id is referenced follows the seat.
func (s *GameState) rebind(seatNo int, sessionID string) {
	player := s.Players[seatNo]
	oldID := player.ID
	player.ID = sessionID
	player.Connected = true

	if s.CurrentPlayerTurn == oldID {
		s.CurrentPlayerTurn = sessionID
	}
	if s.BeloteHolderID == oldID {
		s.BeloteHolderID = sessionID
	}
	if s.TrickWinnerID == oldID {
		s.TrickWinnerID = sessionID
	}
	for i := range s.CurrentTrick {
		if s.CurrentTrick[i].PlayerID == oldID {
			s.CurrentTrick[i].PlayerID = sessionID
		}
	}
}

func (s *GameState) unseat(seatNo int) {
	players := make([]*Player, 0, NumSeats)
	players = append(players, s.Players[:seatNo]...)
	players = append(players, s.Players[seatNo+1:]...)
	s.Players = players
}

func (s *GameState) allDisconnected() bool {
	if len(s.Players) < NumSeats {
		return false
	}
	return s.ConnectedSeats() == 0
}
