package models

import (
	"slices"
	"time"
)

// ClanStats holds derived aggregates, recomputed after every membership or
// balance-affecting change. AverageBalance is over active members only and
// is 0 when the clan has no active members.
type ClanStats struct {
	TotalMembers   int
	ActiveMembers  int
	TotalWealth    int64
	AverageBalance int64
}

// Clan is a named, tagged group of users scoped to one server. Members are
// referenced by user ID only; their per-server state is owned by the user
// store. The member list is kept sorted so leader selection and iteration
// are deterministic.
type Clan struct {
	ClanID      string    `db:"clan_id"`
	ServerID    string    `db:"server_id"`
	Name        string    `db:"name"`
	Tag         string    `db:"tag"`
	Description string    `db:"description"`
	LeaderID    string    `db:"leader_id"`
	Members     []string  `db:"-"`
	Stats       ClanStats `db:"-"`
	CreatedAt   time.Time `db:"created_at"`
}

// HasMember reports whether userID is in the member set
func (c *Clan) HasMember(userID string) bool {
	_, found := slices.BinarySearch(c.Members, userID)
	return found
}

// AddMember inserts userID keeping Members sorted; no-op on duplicates
func (c *Clan) AddMember(userID string) {
	idx, found := slices.BinarySearch(c.Members, userID)
	if found {
		return
	}
	c.Members = slices.Insert(c.Members, idx, userID)
}

// RemoveMember deletes userID from the member set; no-op if absent
func (c *Clan) RemoveMember(userID string) {
	idx, found := slices.BinarySearch(c.Members, userID)
	if !found {
		return
	}
	c.Members = slices.Delete(c.Members, idx, idx+1)
}

// NextLeader returns the lexicographically smallest member, excluding the
// departing user. Empty string when no candidate remains.
func (c *Clan) NextLeader(departing string) string {
	for _, m := range c.Members {
		if m != departing {
			return m
		}
	}
	return ""
}

// Clone returns a deep copy of the clan
func (c *Clan) Clone() *Clan {
	cp := *c
	cp.Members = slices.Clone(c.Members)
	return &cp
}
