package game

import "slices"

const (
	InitialCards   = 3
	WinsToComplete = 3
	LossesToFail   = 3
)

func SortByScore(cards []Card) {
	slices.SortFunc(cards, func(a, b Card) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})
}

// CorrectIndex is the number of owned cards scoring strictly below score.
// Input order does not matter.
func CorrectIndex(owned []Card, score float64) int {
	n := 0
	for _, c := range owned {
		if c.Score < score {
			n++
		}
	}
	return n
}

// Judge scores a single placement. A timeout always loses.
func Judge(owned []Card, guess Card, position int, timedOut bool) (correct bool, correctIndex int) {
	correctIndex = CorrectIndex(owned, guess.Score)
	return !timedOut && position == correctIndex, correctIndex
}

// Decide is the termination rule shared by the server and the client mirror.
// wins and losses count non-initial rounds only.
func Decide(wins, losses int) (Status, Outcome) {
	if wins >= WinsToComplete {
		return StatusCompleted, OutcomeWon
	}
	if losses >= LossesToFail {
		return StatusCompleted, OutcomeLost
	}
	return StatusOngoing, OutcomeNone
}

// Tally counts non-initial won and lost entries.
func Tally(entries []Entry) (wins, losses int) {
	for _, e := range entries {
		if e.Initial {
			continue
		}
		if e.Won {
			wins++
		} else {
			losses++
		}
	}
	return wins, losses
}

// InsertSorted adds c keeping ascending score order.
func InsertSorted(owned []Card, c Card) []Card {
	i := CorrectIndex(owned, c.Score)
	return slices.Insert(owned, i, c)
}

// OrderEntries puts initial cards first, then rounds ascending.
func OrderEntries(cards []SessionCard) {
	slices.SortStableFunc(cards, func(a, b SessionCard) int {
		if a.Entry.Initial != b.Entry.Initial {
			if a.Entry.Initial {
				return -1
			}
			return 1
		}
		return a.Entry.RoundNumber - b.Entry.RoundNumber
	})
}
