package models

// ScoreboardEntry represents one user's row in a per-server scoreboard
type ScoreboardEntry struct {
	Rank        int
	UserID      string
	Nickname    string
	Balance     int64
	ClanTag     string
	GamesPlayed int64
	NetWinnings int64 // TotalWon - TotalWagered
}

// ClanLeaderboardEntry represents one clan's row in a per-server clan ranking
type ClanLeaderboardEntry struct {
	Rank         int
	ClanID       string
	Name         string
	Tag          string
	TotalMembers int
	TotalWealth  int64
}

// ServerClanStats aggregates the clan economy of one server
type ServerClanStats struct {
	TotalClans   int
	TotalMembers int
	TotalWealth  int64
	Richest      []*ClanLeaderboardEntry
	Largest      []*ClanLeaderboardEntry
}

// UserStats combines a user's per-server record with derived gambling detail
type UserStats struct {
	User        *User
	ServerID    string
	Balance     int64
	Gambling    GamblingStats
	NetWinnings int64 // TotalWon - TotalWagered
}
