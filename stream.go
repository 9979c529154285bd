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

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Hydraulic geometry power law coefficients.
const (
	depthCoef, depthExp = 1e-3, 0.4
	widthCoef, widthExp = 1e-3, 0.6
	streamSlope         = 1e-2
)

// StreamChannel holds the bankfull geometry of the stream channel in a
// grid cell.
type StreamChannel struct {
	Depth float64 `desc:"stream channel bankfull depth" units:"m"`
	Width float64 `desc:"stream channel bankfull width" units:"m"`
	Slope float64 `desc:"stream channel slope" units:"m/m"`
}

// NewStreamChannel estimates stream channel geometry from the total area
// [m²] of the hillslopes draining into it. A zero area gives a channel of
// zero depth and width.
func NewStreamChannel(upslopeArea float64) StreamChannel {
	return StreamChannel{
		Depth: depthCoef * math.Pow(upslopeArea, depthExp),
		Width: widthCoef * math.Pow(upslopeArea, widthExp),
		Slope: streamSlope,
	}
}

// UpslopeArea returns the summed area of all columns in hillslopes.
func UpslopeArea(hillslopes []Hillslope) float64 {
	areas := make([]float64, 0, len(hillslopes)*6)
	for _, h := range hillslopes {
		for _, c := range h.Columns {
			areas = append(areas, c.Area)
		}
	}
	return floats.Sum(areas)
}
