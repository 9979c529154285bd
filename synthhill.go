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

// Package synthhill generates synthetic sub-grid hillslope geometry for
// gridded land surface models. For each eligible land grid cell it creates
// a set of idealized hillslopes, one per aspect class, each divided into
// columns running from the stream channel to the ridge, along with a
// companion stream channel whose hydraulic geometry is estimated from the
// total upslope area.
package synthhill

import (
	"errors"
	"fmt"
)

// Version gives the version number.
const Version = "1.0.0"

// ErrConfig is returned (wrapped) for any invalid run configuration.
// Configuration errors are always detected before any grid cell is
// processed.
var ErrConfig = errors.New("synthhill: invalid configuration")

// configErrorf returns an error wrapping ErrConfig.
func configErrorf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConfig}, a...)...)
}

const (
	// DownhillChannel is the downhill column index of columns that drain
	// directly into the stream channel.
	DownhillChannel = -999

	// minPeakHeight is the lowest hill height [m] that will be generated.
	minPeakHeight = 4.0

	// maxStdElev is the largest elevation standard deviation [m] that
	// is used to estimate hill height.
	maxStdElev = 200.0
)

// ColumnPolicy is the number of columns in each hillslope. Each supported
// policy maps to a table of cumulative height fractions that divides the
// part of the hillslope above the lowland threshold into columns.
type ColumnPolicy int

// binFractions holds the supported column policies. Each table has
// policy-1 entries: the lowland column is bounded by the threshold height.
var binFractions = map[ColumnPolicy][]float64{
	4: {0.25, 0.75, 1.0},
	5: {0.25, 0.50, 0.75, 1.0},
	6: {0.20, 0.40, 0.60, 0.80, 1.0},
}

// Fractions returns the cumulative height fractions for p.
func (p ColumnPolicy) Fractions() ([]float64, error) {
	f, ok := binFractions[p]
	if !ok {
		return nil, configErrorf("unhandled number of columns per hillslope: %d", int(p))
	}
	return f, nil
}

// Params holds the run parameters for hillslope generation.
type Params struct {
	// NumHillslopes is the number of aspect classes (hillslopes) in each
	// grid cell.
	NumHillslopes int `toml:"num_hillslopes"`

	// MaxColumnsPerLandunit is the maximum number of hillslope columns in
	// each grid cell. It must be evenly divisible by NumHillslopes.
	MaxColumnsPerLandunit int `toml:"nmaxhillcol"`

	HillslopeDistance float64 `toml:"hillslope_distance"` // distance from channel to ridge [m]
	WidthReach        float64 `toml:"width_reach"`        // uniform width of reach [m]

	// Delx is the increment used in the numerical integration of
	// mean column elevation [m].
	Delx float64 `toml:"delx"`

	PHill  float64 `toml:"phill"`  // shape parameter (power law exponent)
	Thresh float64 `toml:"thresh"` // height of the lowland bin [m]

	// HCase is the hillslope classification. Only "slope_aspect" is
	// available.
	HCase string `toml:"hcase"`

	BedrockDepth float64 `toml:"bedrock_depth"` // depth to bedrock [m]
	PFTIndex     int     `toml:"pft_index"`     // plant functional type of hillslope columns

	// Workers is the number of grid cells processed in parallel.
	// Values < 1 use all available processors.
	Workers int `toml:"workers"`
}

// DefaultParams returns the parameters of the reference configuration.
func DefaultParams() Params {
	return Params{
		NumHillslopes:         4,
		MaxColumnsPerLandunit: 16,
		HillslopeDistance:     500,
		WidthReach:            500,
		Delx:                  1,
		PHill:                 1,
		Thresh:                2,
		HCase:                 "slope_aspect",
		BedrockDepth:          2,
		PFTIndex:              13,
	}
}

// ColumnsPerHillslope returns the column policy implied by p.
func (p *Params) ColumnsPerHillslope() ColumnPolicy {
	if p.NumHillslopes < 1 {
		return 0
	}
	return ColumnPolicy(p.MaxColumnsPerLandunit / p.NumHillslopes)
}

// Validate checks that p describes a supported configuration.
func (p *Params) Validate() error {
	if p.NumHillslopes < 1 {
		return configErrorf("num_hillslopes must be >= 1 but is %d", p.NumHillslopes)
	}
	if p.MaxColumnsPerLandunit%p.NumHillslopes != 0 {
		return configErrorf("nmaxhillcol (%d) must be evenly divisible by num_hillslopes (%d)",
			p.MaxColumnsPerLandunit, p.NumHillslopes)
	}
	if _, err := p.ColumnsPerHillslope().Fractions(); err != nil {
		return err
	}
	vars := []float64{p.HillslopeDistance, p.WidthReach, p.Delx, p.PHill}
	varNames := []string{"hillslope_distance", "width_reach", "delx", "phill"}
	for i, v := range vars {
		if !(v > 0) {
			return configErrorf("%s=%g but should be >0", varNames[i], v)
		}
	}
	// Bins must be non-decreasing for every possible hill height.
	if p.Thresh < 0 || p.Thresh >= minPeakHeight {
		return configErrorf("thresh=%g but should be in the range [0, %g)", p.Thresh, minPeakHeight)
	}
	if p.HCase != "slope_aspect" {
		return configErrorf("hcase %q is not supported; the only option is \"slope_aspect\"", p.HCase)
	}
	if p.BedrockDepth < 0 {
		return configErrorf("bedrock_depth=%g but should be >=0", p.BedrockDepth)
	}
	return nil
}
