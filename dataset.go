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
	"fmt"
	"sort"

	"github.com/ctessum/sparse"
)

// Dimension names used in surface datasets and hillslope files.
const (
	DimLat       = "lsmlat"
	DimLon       = "lsmlon"
	DimHillslope = "nhillslope"
	DimColumn    = "nmaxhillcol"
)

// Names of the variables holding hillslope geometry.
const (
	VarNHillColumns        = "nhillcolumns"
	VarPctHillslope        = "pct_hillslope"
	VarHillslopeIndex      = "hillslope_index"
	VarColumnIndex         = "column_index"
	VarDownhillColumnIndex = "downhill_column_index"
	VarDistance            = "hillslope_distance"
	VarWidth               = "hillslope_width"
	VarArea                = "hillslope_area"
	VarElevation           = "hillslope_elevation"
	VarSlope               = "hillslope_slope"
	VarAspect              = "hillslope_aspect"
	VarBedrockDepth        = "hillslope_bedrock_depth"
	VarPFTIndex            = "hillslope_pftndx"
	VarStreamDepth         = "hillslope_stream_depth"
	VarStreamWidth         = "hillslope_stream_width"
	VarStreamSlope         = "hillslope_stream_slope"
)

// Variable is a gridded variable along with its metadata.
type Variable struct {
	Dims        []string           // netcdf dimensions for this variable
	Description string             // variable description
	Units       string             // variable units
	Int         bool               // whether the variable is stored as an integer
	Data        *sparse.DenseArray // variable data
}

// Dataset holds a set of gridded variables and global attributes.
type Dataset struct {
	// Attributes holds global attributes. Values must be of type string,
	// []int32 or []float64.
	Attributes map[string]interface{}

	// Data holds the variables, with the keys being the variable names.
	Data map[string]*Variable
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Attributes: make(map[string]interface{}),
		Data:       make(map[string]*Variable),
	}
}

// AddVariable adds data for a new variable to d, replacing any existing
// variable with the same name.
func (d *Dataset) AddVariable(name string, dims []string, description, units string, isInt bool, data *sparse.DenseArray) {
	d.Data[name] = &Variable{
		Dims:        dims,
		Description: description,
		Units:       units,
		Int:         isInt,
		Data:        data,
	}
}

// Names returns the variable names in sorted order so that
// they write in the same order every time.
func (d *Dataset) Names() []string {
	names := make([]string, 0, len(d.Data))
	for n := range d.Data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dimensions returns the names and lengths of the dimensions used by the
// variables in d, in order of first use. It returns an error if
// variables disagree about the length of a dimension.
func (d *Dataset) Dimensions() ([]string, []int, error) {
	var names []string
	var lengths []int
	index := make(map[string]int)
	for _, name := range d.Names() {
		v := d.Data[name]
		if len(v.Dims) != len(v.Data.Shape) {
			return nil, nil, fmt.Errorf("synthhill: variable %s has %d dimensions but data has %d",
				name, len(v.Dims), len(v.Data.Shape))
		}
		for i, dim := range v.Dims {
			n := v.Data.Shape[i]
			if j, ok := index[dim]; ok {
				if lengths[j] != n {
					return nil, nil, fmt.Errorf("synthhill: variable %s has length %d in dimension %s; want %d",
						name, n, dim, lengths[j])
				}
				continue
			}
			index[dim] = len(names)
			names = append(names, dim)
			lengths = append(lengths, n)
		}
	}
	return names, lengths, nil
}

// Len returns the length of dimension dim, or -1 if no variable uses it.
func (d *Dataset) Len(dim string) int {
	for _, v := range d.Data {
		for i, dd := range v.Dims {
			if dd == dim {
				return v.Data.Shape[i]
			}
		}
	}
	return -1
}

// newGeometryDataset returns a dataset holding zeroed hillslope geometry
// variables for a grid of nlat × nlon cells.
func newGeometryDataset(nlat, nlon, nhillslope, ncol int) *Dataset {
	d := NewDataset()
	cell := []string{DimLat, DimLon}
	col := []string{DimColumn, DimLat, DimLon}
	d.AddVariable(VarNHillColumns, cell, "number of columns per landunit", "unitless", true,
		sparse.ZerosDense(nlat, nlon))
	d.AddVariable(VarPctHillslope, []string{DimHillslope, DimLat, DimLon}, "percent hillslope of landunit", "per cent", false,
		sparse.ZerosDense(nhillslope, nlat, nlon))
	colVars := []struct {
		name, desc, units string
		isInt             bool
	}{
		{VarHillslopeIndex, "hillslope_index", "unitless", true},
		{VarColumnIndex, "column index", "unitless", true},
		{VarDownhillColumnIndex, "downhill column index", "unitless", true},
		{VarDistance, "hillslope distance from channel", "m", false},
		{VarWidth, "hillslope width", "m", false},
		{VarArea, "hillslope area", "m2", false},
		{VarElevation, "hillslope elevation above channel", "m", false},
		{VarSlope, "hillslope slope", "m/m", false},
		{VarAspect, "hillslope aspect (clockwise from North)", "radians", false},
		{VarBedrockDepth, "hillslope bedrock depth", "m", false},
		{VarPFTIndex, "hillslope pft indices", "unitless", true},
	}
	for _, v := range colVars {
		d.AddVariable(v.name, col, v.desc, v.units, v.isInt, sparse.ZerosDense(ncol, nlat, nlon))
	}
	for _, v := range []struct{ name, desc, units string }{
		{VarStreamDepth, "stream channel bankfull depth", "m"},
		{VarStreamWidth, "stream channel bankfull width", "m"},
		{VarStreamSlope, "stream channel slope", "m/m"},
	} {
		d.AddVariable(v.name, cell, v.desc, v.units, false, sparse.ZerosDense(nlat, nlon))
	}
	return d
}

// setCell stores the geometry of cell c in d.
func (d *Dataset) setCell(c *Cell, bedrockDepth float64, pftIndex int) {
	j, i := c.J, c.I
	var ncols int
	for h, hill := range c.Hillslopes {
		d.Data[VarPctHillslope].Data.Set(hill.Percent, h, j, i)
		for n, col := range hill.Columns {
			k := h*len(hill.Columns) + n
			d.Data[VarHillslopeIndex].Data.Set(float64(col.Hillslope), k, j, i)
			d.Data[VarColumnIndex].Data.Set(float64(col.ID), k, j, i)
			d.Data[VarDownhillColumnIndex].Data.Set(float64(col.DownhillID), k, j, i)
			d.Data[VarDistance].Data.Set(col.Distance, k, j, i)
			d.Data[VarWidth].Data.Set(col.Width, k, j, i)
			d.Data[VarArea].Data.Set(col.Area, k, j, i)
			d.Data[VarElevation].Data.Set(col.Elevation, k, j, i)
			d.Data[VarSlope].Data.Set(col.Slope, k, j, i)
			d.Data[VarAspect].Data.Set(col.Aspect, k, j, i)
			d.Data[VarBedrockDepth].Data.Set(bedrockDepth, k, j, i)
			d.Data[VarPFTIndex].Data.Set(float64(pftIndex), k, j, i)
			ncols++
		}
	}
	d.Data[VarNHillColumns].Data.Set(float64(ncols), j, i)
	d.Data[VarStreamDepth].Data.Set(c.Stream.Depth, j, i)
	d.Data[VarStreamWidth].Data.Set(c.Stream.Width, j, i)
	d.Data[VarStreamSlope].Data.Set(c.Stream.Slope, j, i)
}
