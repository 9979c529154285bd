/*
Copyright © 2024 the synthhill authors.
This file is part of synthhill.

synthhill is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

synthhill is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with synthhill.  If not, see <http://www.gnu.org/licenses/>.
*/

package synthhill

import "math"

// Column holds the geometry of a single hillslope column.
type Column struct {
	ID         int     // global column index; 0 is reserved for "no column"
	DownhillID int     // index of the downhill column, or DownhillChannel
	Hillslope  int     // hillslope (aspect class) index, starting at 1
	Distance   float64 `desc:"Distance of column midpoint from stream channel" units:"m"`
	Area       float64 `desc:"Column area" units:"m2"`
	Width      float64 `desc:"Width of interface with downhill column or channel" units:"m"`
	Elevation  float64 `desc:"Mean column elevation above stream channel" units:"m"`
	Slope      float64 `desc:"Mean column slope" units:"m/m"`
	Aspect     float64 `desc:"Column azimuth" units:"radians"`
}

// Hillslope is one aspect class of a grid cell.
type Hillslope struct {
	Index   int     // aspect class, in [0, number of hillslopes)
	Percent float64 // percent of the landunit occupied by the hillslope
	Aspect  float64 // azimuth [radians]; 0 = north, π/2 = east
	Columns []Column
}

// Aspect returns the azimuth of aspect class k out of n classes evenly
// spaced around the compass.
func Aspect(k, n int) float64 {
	return 2 * math.Pi * float64(k) / float64(n)
}

// AssembleHillslope creates the columns of one hillslope from bins b,
// ordered from the stream channel (n = 0) to the ridge. Column IDs are
// assigned sequentially starting at firstID. Columns whose length bin
// has zero width are assigned zero slope.
func AssembleHillslope(b *Bins, p Profile, widthReach, delx, aspect float64, hillslope, firstID int) []Column {
	cols := make([]Column, b.Columns())
	for n := range cols {
		ledge, uedge := b.Length[n], b.Length[n+1]
		c := &cols[n]
		c.ID = firstID + n
		if n == 0 {
			c.DownhillID = DownhillChannel
		} else {
			c.DownhillID = c.ID - 1
		}
		c.Hillslope = hillslope + 1
		c.Distance = 0.5 * (uedge + ledge)
		c.Area = widthReach * (uedge - ledge)
		c.Width = widthReach
		c.Elevation = p.MeanElevation(ledge, uedge, delx)
		if dx := uedge - ledge; dx > 0 {
			c.Slope = (b.Height[n+1] - b.Height[n]) / dx
		}
		c.Aspect = aspect
	}
	return cols
}
