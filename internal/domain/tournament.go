package domain

import "time"

// Tournament is one scored competition period. At most one is active.
type Tournament struct {
	ID        int64     `json:"id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is a capacity-bounded roster inside one bracket of one tournament.
// ParticipantCount is the reservation counter guarded by the store.
type Group struct {
	ID               int64     `json:"id"`
	TournamentID     int64     `json:"tournament_id"`
	Bracket          int       `json:"bracket"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Participation is a user's single entry into one tournament
type Participation struct {
	ID            int64     `json:"id"`
	TournamentID  int64     `json:"tournament_id"`
	GroupID       int64     `json:"group_id"`
	UserID        int64     `json:"user_id"`
	Score         int64     `json:"score"`
	RewardClaimed bool      `json:"reward_claimed"`
	JoinedAt      time.Time `json:"joined_at"`
}

// GroupLeaderboard is a group's participations in rank order
type GroupLeaderboard struct {
	GroupID        int64           `json:"group_id"`
	TournamentID   int64           `json:"tournament_id"`
	Ongoing        bool            `json:"ongoing"`
	Participations []Participation `json:"participations"`
}

// RankResponse is returned by the rank lookup
type RankResponse struct {
	TournamentID int64 `json:"tournament_id"`
	UserID       int64 `json:"user_id"`
	Rank         int   `json:"rank"`
}

// Bracket maps a user level to its level band. Multiples of 100 belong to the
// band below: 1-100 -> 0, 101-200 -> 1, 201-300 -> 2.
func Bracket(level int) int {
	if level%100 == 0 {
		return level/100 - 1
	}
	return level / 100
}
