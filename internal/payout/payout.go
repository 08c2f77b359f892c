// Package payout derives the In-The-Money distribution table: how many
// finishing places get paid from the net prize pool, and how much each
// place receives.
package payout

// MaxPlaces is the largest number of paid places any schedule supports.
const MaxPlaces = 10

// Entry is one paid place in the ITM table, ordered ascending by position.
// No rounding is applied here; consumers round for display.
type Entry struct {
	Position int     `json:"position"`
	Percent  float64 `json:"percent"`
	Amount   float64 `json:"amount"`
}

// placesByFieldSize maps field-size thresholds to the default number of paid
// places. First match wins, scanning upward.
var placesByFieldSize = []struct {
	maxPlayers int
	places     int
}{
	{5, 2},
	{17, 3},
	{26, 4},
	{35, 5},
	{53, 7},
	{62, 9},
}

// percentTables holds the hand-authored payout percentages keyed by the
// effective number of paid places. The rows are house convention and are
// not required to sum to exactly 100.
var percentTables = map[int][]float64{
	1:  {100},
	2:  {65, 35},
	3:  {50, 30, 20},
	4:  {44, 28, 18, 10},
	5:  {36, 26, 19, 12, 7},
	6:  {33, 21, 15, 11, 9, 7},
	7:  {31.5, 21, 15, 11.5, 9, 7, 5},
	8:  {30, 19.5, 14, 10.5, 8.5, 7, 5.5, 5},
	9:  {29, 19, 14, 10, 8, 6.5, 5.5, 4.5, 3.5},
	10: {26, 18.5, 13.5, 9.5, 7.8, 6.3, 5, 4.1, 3.5, 2.9},
}

// PlacesPaid returns the effective number of paid places for a field of
// playerCount entries. An operator override above zero takes precedence,
// clamped to [1, MaxPlaces].
func PlacesPaid(playerCount, override int) int {
	if override > 0 {
		if override > MaxPlaces {
			return MaxPlaces
		}
		return override
	}
	for _, row := range placesByFieldSize {
		if playerCount <= row.maxPlayers {
			return row.places
		}
	}
	return MaxPlaces
}

// Distribute builds the ITM table for a pool paid out over the given number
// of places. Places outside [1, MaxPlaces] are clamped.
func Distribute(pool float64, places int) []Entry {
	if places < 1 {
		places = 1
	}
	if places > MaxPlaces {
		places = MaxPlaces
	}

	percents := percentTables[places]
	entries := make([]Entry, len(percents))
	for i, pct := range percents {
		entries[i] = Entry{
			Position: i + 1,
			Percent:  pct,
			Amount:   pool * pct / 100,
		}
	}
	return entries
}

// DistributeFor combines PlacesPaid and Distribute for the common case.
func DistributeFor(pool float64, playerCount, override int) []Entry {
	return Distribute(pool, PlacesPaid(playerCount, override))
}
