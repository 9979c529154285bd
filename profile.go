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

// Profile is a cosine power law hypsometric profile of a single hillslope,
// giving elevation as a function of distance x from the stream channel
// (x = 0) to the ridge (x = Length). The profile is symmetric about x = 0,
// so the equivalent form measured from the ridge (x in [-Length, 0]) gives
// the same elevations. The form has a near-zero slope at the hill top.
type Profile struct {
	Length   float64 // distance from channel to ridge [m]
	Height   float64 // hill height [m]
	Exponent float64 // shape parameter
}

// PeakHeight estimates hill height [m] from the standard deviation of
// elevation within a grid cell and the hillslope length.
func PeakHeight(stdElev, length float64) float64 {
	beta := math.Min(stdElev, maxStdElev) / length // slope tangent (y/x)
	return math.Max(beta*length, minPeakHeight)
}

// At returns the elevation at distance x.
func (p Profile) At(x float64) float64 {
	fx := 0.5 * (1 + math.Cos(math.Pi*(1+x/p.Length)))
	return p.Height * math.Pow(fx, p.Exponent)
}

// Distance returns the distance from the channel, in [0, Length], at which
// the profile reaches elevation h. It returns 0 for flat (Height <= 0)
// profiles.
func (p Profile) Distance(h float64) float64 {
	if p.Height <= 0 {
		return 0
	}
	// Heights outside [0, Height] only arise from rounding.
	r := math.Max(0, math.Min(h/p.Height, 1))
	fh := math.Acos(2*math.Pow(r, 1/p.Exponent) - 1)
	// Acos returns [0,π]; the profile is defined on [π,2π].
	fh = 2*math.Pi - fh
	return p.Length * (fh/math.Pi - 1)
}

// MeanElevation numerically integrates the profile between the bin edges
// ledge and uedge using a backward midpoint sum with step delx, starting
// at uedge. Bins narrower than delx are evaluated at their midpoint.
func (p Profile) MeanElevation(ledge, uedge, delx float64) float64 {
	nx := int((uedge - ledge) / delx)
	if nx < 1 {
		return p.At(0.5 * (uedge + ledge))
	}
	var sum float64
	for k := 0; k < nx; k++ {
		sum += p.At(uedge - (float64(k)+0.5)*delx)
	}
	return sum / float64(nx)
}
