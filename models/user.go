package models

import (
	"time"
)

// Preferences holds per-user display flags
type Preferences struct {
	DisplayNickname    bool `db:"display_nickname"`
	ShowInLeaderboards bool `db:"show_in_leaderboards"`
}

// DefaultPreferences returns the flags applied to newly registered users
func DefaultPreferences() Preferences {
	return Preferences{
		DisplayNickname:    true,
		ShowInLeaderboards: true,
	}
}

// GamblingStats tracks cumulative wagering counters for one user on one server.
// TotalWagered, TotalWon and GamesPlayed only ever increase; BiggestWin is a
// running maximum.
type GamblingStats struct {
	TotalWagered int64      `db:"total_wagered"`
	TotalWon     int64      `db:"total_won"`
	GamesPlayed  int64      `db:"games_played"`
	BiggestWin   int64      `db:"biggest_win"`
	LastPlayed   *time.Time `db:"last_played"`
}

// RecordGame folds one resolved game into the counters
func (g *GamblingStats) RecordGame(bet, winnings int64, playedAt time.Time) {
	g.TotalWagered += bet
	g.TotalWon += winnings
	g.GamesPlayed++
	if winnings > g.BiggestWin {
		g.BiggestWin = winnings
	}
	t := playedAt
	g.LastPlayed = &t
}

// ServerState is a user's per-server sub-record: balance, clan membership
// and gambling counters. Balance never goes below zero; ClanTag is either
// empty or the tag of a clan that lists this user among its members.
type ServerState struct {
	ServerID string        `db:"server_id"`
	Balance  int64         `db:"balance"`
	ClanTag  string        `db:"clan_tag"`
	JoinedAt time.Time     `db:"joined_at"`
	IsActive bool          `db:"is_active"`
	Gambling GamblingStats `db:"-"`
}

// Clone returns a deep copy of the server state
func (s *ServerState) Clone() *ServerState {
	cp := *s
	if s.Gambling.LastPlayed != nil {
		t := *s.Gambling.LastPlayed
		cp.Gambling.LastPlayed = &t
	}
	return &cp
}

// User represents one registered user and their state on every server they
// have joined. A user with an empty Servers map exists but is not a member
// of any server's economy.
type User struct {
	UserID       string    `db:"user_id"`
	Nickname     string    `db:"nickname"`
	RegisteredAt time.Time `db:"registered_at"`
	LastSeen     time.Time `db:"last_seen"`
	Preferences  Preferences
	Servers      map[string]*ServerState
}

// ServerState returns the user's sub-record for serverID, or nil
func (u *User) ServerState(serverID string) *ServerState {
	if u.Servers == nil {
		return nil
	}
	return u.Servers[serverID]
}

// Clone returns a deep copy of the user including all server states
func (u *User) Clone() *User {
	cp := *u
	cp.Servers = make(map[string]*ServerState, len(u.Servers))
	for id, state := range u.Servers {
		cp.Servers[id] = state.Clone()
	}
	return &cp
}
