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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// TotalChunks is the number of chunks the global grid is divided into.
const TotalChunks = 36

// Variables in gridcell files that are copied when present in the first
// file.
var optionalCombineVars = []string{
	"longitude", "latitude", "LONGXY", "LATIXY", "chunk_mask",
	VarBedrockDepth, VarPFTIndex,
	VarStreamDepth, VarStreamWidth, VarStreamSlope,
}

// Variables that every gridcell file must hold.
var requiredCombineVars = []string{
	VarElevation, VarDistance, VarWidth, VarArea, VarSlope, VarAspect,
	VarNHillColumns, VarPctHillslope,
	VarHillslopeIndex, VarColumnIndex, VarDownhillColumnIndex,
}

// chunkBase returns the file name of chunk number chunk, without extension.
func chunkBase(chunk int, demSource string) (string, error) {
	if chunk < 1 || chunk > TotalChunks {
		return "", configErrorf("chunk must be 1-%d but is %d", TotalChunks, chunk)
	}
	return fmt.Sprintf("chunk_%02d_HAND_4_col_hillslope_geo_params_section_quad_%s", chunk, demSource), nil
}

// ChunkFiles returns the gridcell files in dir belonging to chunk number
// chunk derived from DEM demSource.
func ChunkFiles(dir string, chunk int, demSource string) ([]string, error) {
	base, err := chunkBase(chunk, demSource)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, base+"*.nc"))
	if err != nil {
		return nil, fmt.Errorf("synthhill: locating gridcell files: %v", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("synthhill: no gridcell files found for chunk %d in %s", chunk, dir)
	}
	return files, nil
}

// CombinedChunkPath returns the location in dir of the combined file for
// chunk number chunk.
func CombinedChunkPath(dir string, chunk int, demSource string) (string, error) {
	base, err := chunkBase(chunk, demSource)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "combined_"+base+".nc"), nil
}

var offsetRegexp = regexp.MustCompile(`j_(\d{3}).*i_(\d{3})`)

// ParseOffset returns the (lsmlat, lsmlon) position in the full grid of
// the gridcell file name, which must contain "j_JJJ" followed by "i_III".
func ParseOffset(name string) (j, i int, err error) {
	m := offsetRegexp.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, 0, configErrorf("gridcell file name %q does not contain j_ and i_ offsets", name)
	}
	j, _ = strconv.Atoi(m[1])
	i, _ = strconv.Atoi(m[2])
	return j, i, nil
}

// Combiner mosaics gridcell hillslope files into a single dataset on the
// full grid.
type Combiner struct {
	NLat, NLon int // size of the full grid

	Log logrus.FieldLogger

	// Now returns the creation time of the combined dataset. If nil,
	// time.Now is used.
	Now func() time.Time
}

// GridSize returns the size of the grid described by surface dataset f.
func GridSize(f *cdf.File) (nlat, nlon int, err error) {
	lengths := f.Header.Lengths("")
	for i, dim := range f.Header.Dimensions("") {
		switch dim {
		case DimLat:
			nlat = lengths[i]
		case DimLon:
			nlon = lengths[i]
		}
	}
	if nlat == 0 || nlon == 0 {
		return 0, 0, configErrorf("surface dataset is missing dimension %s or %s", DimLat, DimLon)
	}
	return nlat, nlon, nil
}

// Combine reads each of files and copies its variables into the full grid
// at the offset encoded in its name. Files are read in the order given,
// so later files overwrite earlier ones where they overlap.
func (c *Combiner) Combine(ctx context.Context, files []string) (*Dataset, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("synthhill: no gridcell files to combine")
	}
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	var out *Dataset
	var names []string
	for n, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j, i, err := ParseOffset(file)
		if err != nil {
			return nil, err
		}
		d, err := loadDatasetFile(file)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			out, names, err = c.newCombined(d)
			if err != nil {
				return nil, fmt.Errorf("synthhill: %s: %w", file, err)
			}
		}
		for _, name := range names {
			src, ok := d.Data[name]
			if !ok {
				return nil, fmt.Errorf("synthhill: gridcell file %s is missing variable %s", file, name)
			}
			if err := copyBlock(out.Data[name], src, j, i); err != nil {
				return nil, fmt.Errorf("synthhill: %s: variable %s: %w", file, name, err)
			}
		}
		log.WithFields(logrus.Fields{
			"file": filepath.Base(file),
			"j":    j,
			"i":    i,
		}).Debug("combined gridcell file")
	}
	out.Attributes["creation_date"] = now().Format("060102")
	log.WithField("files", len(files)).Info("combined gridcell files")
	return out, nil
}

func loadDatasetFile(file string) (*Dataset, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("synthhill: %v", err)
	}
	defer f.Close()
	d, err := LoadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("synthhill: reading %s: %v", file, err)
	}
	return d, nil
}

// newCombined creates an empty combined dataset with the variables of
// first, resized to the full grid. It also returns the names of the
// variables to be combined.
func (c *Combiner) newCombined(first *Dataset) (*Dataset, []string, error) {
	names := append([]string{}, requiredCombineVars...)
	for _, name := range optionalCombineVars {
		if _, ok := first.Data[name]; ok {
			names = append(names, name)
		}
	}
	out := NewDataset()
	for _, name := range names {
		v, ok := first.Data[name]
		if !ok {
			return nil, nil, fmt.Errorf("missing variable %s", name)
		}
		shape := make([]int, len(v.Dims))
		for k, dim := range v.Dims {
			switch dim {
			case DimLat:
				shape[k] = c.NLat
			case DimLon:
				shape[k] = c.NLon
			default:
				shape[k] = v.Data.Shape[k]
			}
		}
		out.AddVariable(name, v.Dims, v.Description, v.Units, v.Int, sparse.ZerosDense(shape...))
	}
	return out, names, nil
}

// copyBlock copies src into dst with the lsmlat and lsmlon dimensions
// offset by j0 and i0. Other dimensions must match.
func copyBlock(dst, src *Variable, j0, i0 int) error {
	if strings.Join(dst.Dims, ",") != strings.Join(src.Dims, ",") {
		return configErrorf("dimensions %v do not match %v", src.Dims, dst.Dims)
	}
	offset := make([]int, len(src.Dims))
	for k, dim := range src.Dims {
		switch dim {
		case DimLat:
			offset[k] = j0
		case DimLon:
			offset[k] = i0
		default:
			if src.Data.Shape[k] != dst.Data.Shape[k] {
				return configErrorf("dimension %s has length %d; want %d",
					dim, src.Data.Shape[k], dst.Data.Shape[k])
			}
		}
		if offset[k]+src.Data.Shape[k] > dst.Data.Shape[k] {
			return configErrorf("block at offset %d with length %d in dimension %s is outside of the grid (%d)",
				offset[k], src.Data.Shape[k], dim, dst.Data.Shape[k])
		}
	}
	// DenseArray.Set skips zeros, so write to the elements directly.
	index := make([]int, len(src.Dims))
	for _, val := range src.Data.Elements {
		dstIndex := make([]int, len(index))
		for k := range index {
			dstIndex[k] = index[k] + offset[k]
		}
		dst.Data.Elements[dst.Data.Index1d(dstIndex...)] = val
		// Advance the source index in row-major order.
		for k := len(index) - 1; k >= 0; k-- {
			index[k]++
			if index[k] < src.Data.Shape[k] {
				break
			}
			index[k] = 0
		}
	}
	return nil
}
