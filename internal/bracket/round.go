package bracket

import "fmt"

// Round is an immutable value. Edits produce a new Round with a higher
// Version; the slices of a published Round are never written again.
type Round struct {
	Index       int
	Version     int
	PlayerNames []string
	Scores      []string
}

func newRound(index int, slots int) Round {
	return Round{
		Index:       index,
		Version:     1,
		PlayerNames: make([]string, slots),
		Scores:      make([]string, slots),
	}
}

func (r Round) SlotCount() int {
	return len(r.PlayerNames)
}

func (r Round) Title() string {
	return Title(r.SlotCount(), r.Index)
}

func (r Round) clone() Round {
	out := r
	out.PlayerNames = append([]string(nil), r.PlayerNames...)
	out.Scores = append([]string(nil), r.Scores...)
	return out
}

func (r Round) withPlayerName(slot int, name string) Round {
	out := r.clone()
	out.PlayerNames[slot] = name
	out.Version++
	return out
}

func (r Round) withScore(slot int, score string) Round {
	out := r.clone()
	out.Scores[slot] = score
	out.Version++
	return out
}

// Title names a round after its slot count: the two-slot round is the
// final and the one-slot pseudo-round is the champion.
func Title(slotCount int, roundIndex int) string {
	switch slotCount {
	case 1:
		return "Champion"
	case 2:
		return "Final"
	case 4:
		return "Semifinal"
	default:
		return fmt.Sprintf("Round %d", roundIndex+1)
	}
}

// Champion is the terminal one-slot pseudo-round.
type Champion struct {
	Name  string
	Score string
}

// ValidPlayerCount reports whether n players can fill a single-elimination
// bracket: a power of two, at least two.
func ValidPlayerCount(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// lastRoundIndex is the index of the two-slot final for n players.
func lastRoundIndex(playerCount int) int {
	idx := 0
	for slots := playerCount; slots > 2; slots /= 2 {
		idx++
	}
	return idx
}
