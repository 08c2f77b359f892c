// Package scoring folds settled stage results into the ranking's cumulative
// player standings, and reverses them exactly when a stage is deleted.
package scoring

// Table maps finishing positions to points. The attendance bonus is a
// separate named field rather than a magic key in the position map.
type Table struct {
	Positions      map[int]int
	BaseAttendance int
}

// DefaultTable returns the house default scoring schedule.
func DefaultTable() Table {
	return Table{
		Positions: map[int]int{
			1: 100,
			2: 80,
			3: 60,
			4: 50,
			5: 40,
			6: 30,
			7: 20,
			8: 10,
		},
		BaseAttendance: 20,
	}
}

// PointsFor returns the position points for a finishing place; positions
// outside the table score zero (attendance still counts).
func (t Table) PointsFor(position int) int {
	return t.Positions[position]
}

// StagePoints computes the points one placement earns: position points plus
// the attendance bonus, scaled by the stage multiplier.
func (t Table) StagePoints(position, multiplier int) int {
	return (t.PointsFor(position) + t.BaseAttendance) * multiplier
}
