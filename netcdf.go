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
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Names of the surface dataset variables that hillslope generation
// depends on.
const (
	VarStdElev   = "STD_ELEV"
	VarLandMask  = "PFTDATA_MASK"
	VarPctNatVeg = "PCT_NATVEG"
)

// ReadSurface reads the variables needed for hillslope generation from
// surface dataset f. Each variable must be dimensioned (lsmlat, lsmlon).
func ReadSurface(f *cdf.File) (*Surface, error) {
	s := new(Surface)
	for _, v := range []struct {
		name string
		dst  **sparse.DenseArray
	}{
		{VarStdElev, &s.StdElev},
		{VarLandMask, &s.LandMask},
		{VarPctNatVeg, &s.PctNatVeg},
	} {
		dims := f.Header.Dimensions(v.name)
		if dims == nil {
			return nil, fmt.Errorf("synthhill: reading surface dataset: variable %s not in file", v.name)
		}
		if len(dims) != 2 || dims[0] != DimLat || dims[1] != DimLon {
			return nil, configErrorf("surface variable %s has dimensions %v; want [%s %s]",
				v.name, dims, DimLat, DimLon)
		}
		data, err := readNCF(f, v.name)
		if err != nil {
			return nil, err
		}
		*v.dst = data
	}
	if _, _, err := s.Shape(); err != nil {
		return nil, err
	}
	return s, nil
}

// readNCF reads non-record numeric variable v out of netcdf file f.
func readNCF(f *cdf.File, v string) (*sparse.DenseArray, error) {
	if f.Header.IsRecordVariable(v) {
		return nil, fmt.Errorf("synthhill: read netcdf: %s is a record variable", v)
	}
	r := f.Reader(v, nil, nil)
	if r == nil {
		return nil, fmt.Errorf("synthhill: read netcdf: variable %s not in file", v)
	}
	if _, ok := f.Header.ZeroValue(v, 0).(string); ok {
		return nil, fmt.Errorf("synthhill: read netcdf: variable %s holds characters, not numbers", v)
	}
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("synthhill: read netcdf variable %s: %v", v, err)
	}
	data := sparse.ZerosDense(f.Header.Lengths(v)...)
	switch vals := buf.(type) {
	case []uint8:
		for i, val := range vals {
			data.Elements[i] = float64(int8(val))
		}
	case []int16:
		for i, val := range vals {
			data.Elements[i] = float64(val)
		}
	case []int32:
		for i, val := range vals {
			data.Elements[i] = float64(val)
		}
	case []float32:
		for i, val := range vals {
			data.Elements[i] = float64(val)
		}
	case []float64:
		copy(data.Elements, vals)
	default:
		return nil, fmt.Errorf("synthhill: read netcdf variable %s: unsupported type %T", v, buf)
	}
	if len(data.Elements) != lenOf(buf) {
		return nil, fmt.Errorf("synthhill: read netcdf variable %s: dims are %d but array length is %d",
			v, len(data.Elements), lenOf(buf))
	}
	return data, nil
}

func lenOf(buf interface{}) int {
	switch vals := buf.(type) {
	case []uint8:
		return len(vals)
	case []int16:
		return len(vals)
	case []int32:
		return len(vals)
	case []float32:
		return len(vals)
	case []float64:
		return len(vals)
	}
	return -1
}

// LoadDataset reads the numeric, non-record variables and the global
// attributes in a netcdf file.
func LoadDataset(rw cdf.ReaderWriterAt) (*Dataset, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("synthhill.LoadDataset: %v", err)
	}
	d := NewDataset()
	for _, a := range f.Header.Attributes("") {
		d.Attributes[a] = f.Header.GetAttribute("", a)
	}
	for _, v := range f.Header.Variables() {
		if f.Header.IsRecordVariable(v) {
			continue
		}
		var isInt bool
		switch f.Header.ZeroValue(v, 0).(type) {
		case string:
			continue
		case []uint8, []int16, []int32:
			isInt = true
		}
		data, err := readNCF(f, v)
		if err != nil {
			return nil, fmt.Errorf("synthhill.LoadDataset: %v", err)
		}
		desc := stringAttribute(f, v, "long_name")
		if desc == "" {
			desc = stringAttribute(f, v, "description")
		}
		d.AddVariable(v, f.Header.Dimensions(v), desc, stringAttribute(f, v, "units"), isInt, data)
	}
	return d, nil
}

func stringAttribute(f *cdf.File, v, a string) string {
	s, _ := f.Header.GetAttribute(v, a).(string)
	return s
}

// Write writes d to netcdf file w. If template is not nil, its
// dimensions, global attributes and non-record variables are copied to w
// as well, except where d holds a variable or attribute of the same name.
func (d *Dataset) Write(w *os.File, template *cdf.File) error {
	dims, lengths, err := d.Dimensions()
	if err != nil {
		return err
	}
	var copyVars []string
	if template != nil {
		dims, lengths, err = mergeDimensions(template, dims, lengths)
		if err != nil {
			return err
		}
		for _, v := range template.Header.Variables() {
			if _, ok := d.Data[v]; ok || template.Header.IsRecordVariable(v) {
				continue
			}
			copyVars = append(copyVars, v)
		}
	}

	h := cdf.NewHeader(dims, lengths)
	if template != nil {
		for _, a := range template.Header.Attributes("") {
			if _, ok := d.Attributes[a]; ok {
				continue
			}
			h.AddAttribute("", a, template.Header.GetAttribute("", a))
		}
		for _, v := range copyVars {
			h.AddVariable(v, template.Header.Dimensions(v), template.Header.ZeroValue(v, 0))
			for _, a := range template.Header.Attributes(v) {
				h.AddAttribute(v, a, template.Header.GetAttribute(v, a))
			}
		}
	}
	for _, a := range sortedKeys(d.Attributes) {
		h.AddAttribute("", a, d.Attributes[a])
	}

	names := d.Names()
	for _, name := range names {
		dd := d.Data[name]
		if dd.Int {
			h.AddVariable(name, dd.Dims, []int32{0})
		} else {
			h.AddVariable(name, dd.Dims, []float64{0})
		}
		h.AddAttribute(name, "long_name", dd.Description)
		h.AddAttribute(name, "units", dd.Units)
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}

	for _, v := range copyVars {
		if err = copyNCF(f, template, v); err != nil {
			return fmt.Errorf("synthhill: copying variable %s to netcdf file: %v", v, err)
		}
	}
	for _, name := range names {
		dd := d.Data[name]
		if err = writeNCF(f, name, dd.Data, dd.Int); err != nil {
			return fmt.Errorf("synthhill: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// mergeDimensions returns the dimensions of template followed by any of
// dims that template does not have. Dimensions that are in both must have
// the same length.
func mergeDimensions(template *cdf.File, dims []string, lengths []int) ([]string, []int, error) {
	outDims := template.Header.Dimensions("")
	outLengths := template.Header.Lengths("")
	index := make(map[string]int)
	for i, dim := range outDims {
		index[dim] = i
	}
	for i, dim := range dims {
		j, ok := index[dim]
		if !ok {
			outDims = append(outDims, dim)
			outLengths = append(outLengths, lengths[i])
			continue
		}
		if outLengths[j] != lengths[i] {
			return nil, nil, configErrorf("dimension %s has length %d in the input file but %d in the output",
				dim, outLengths[j], lengths[i])
		}
	}
	return outDims, outLengths, nil
}

// copyNCF copies the contents of non-record variable v from src to dst.
func copyNCF(dst, src *cdf.File, v string) error {
	r := src.Reader(v, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return err
	}
	_, err := dst.Writer(v, nil, nil).Write(buf)
	return err
}

func writeNCF(f *cdf.File, v string, data *sparse.DenseArray, isInt bool) error {
	// Check that data matches dimensions.
	n := 1
	for _, l := range data.Shape {
		n *= l
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}

	var buf interface{} = data.Elements
	if isInt {
		ints := make([]int32, len(data.Elements))
		for i, e := range data.Elements {
			ints[i] = int32(math.Round(e))
		}
		buf = ints
	}
	_, err := f.Writer(v, nil, nil).Write(buf)
	return err
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
