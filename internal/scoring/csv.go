package scoring

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV exports the ranking standings, best first, in the column layout
// the dashboard export uses.
func WriteCSV(w io.Writer, players []PlayerAggregate) error {
	cw := csv.NewWriter(w)

	header := []string{"Position", "Name", "Total Points", "Previous Points", "Attendances", "Wins", "Day Points", "Accumulated Value"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, p := range Standings(players) {
		row := []string{
			fmt.Sprintf("%d", i+1),
			p.Name,
			fmt.Sprintf("%d", p.TotalPoints),
			fmt.Sprintf("%d", p.PrevPoints),
			fmt.Sprintf("%d", p.Attendances),
			fmt.Sprintf("%d", p.Wins),
			fmt.Sprintf("%d", p.DayPoints),
			fmt.Sprintf("%.2f", p.AccumulatedValue),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
