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
	"runtime"
	"strings"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Surface holds the land surface fields that hillslope geometry is
// derived from. All fields are dimensioned (lsmlat, lsmlon).
type Surface struct {
	StdElev   *sparse.DenseArray // standard deviation of elevation within the cell [m]
	LandMask  *sparse.DenseArray // nonzero where the cell contains land
	PctNatVeg *sparse.DenseArray // percent of the cell covered by natural vegetation
}

// Shape returns the number of rows (lsmlat) and columns (lsmlon) in s.
func (s *Surface) Shape() (nlat, nlon int, err error) {
	fields := []*sparse.DenseArray{s.StdElev, s.LandMask, s.PctNatVeg}
	names := []string{VarStdElev, VarLandMask, VarPctNatVeg}
	for i, f := range fields {
		if f == nil {
			return 0, 0, configErrorf("surface field %s is missing", names[i])
		}
		if len(f.Shape) != 2 {
			return 0, 0, configErrorf("surface field %s has %d dimensions; want 2", names[i], len(f.Shape))
		}
		if i == 0 {
			nlat, nlon = f.Shape[0], f.Shape[1]
		} else if f.Shape[0] != nlat || f.Shape[1] != nlon {
			return 0, 0, configErrorf("surface field %s has shape %v; want [%d %d]",
				names[i], f.Shape, nlat, nlon)
		}
	}
	if nlat == 0 || nlon == 0 {
		return 0, 0, configErrorf("surface grid is empty (%d×%d)", nlat, nlon)
	}
	return nlat, nlon, nil
}

// Eligible returns whether hillslopes should be created in cell (j, i):
// the cell must be land and contain natural vegetation.
func (s *Surface) Eligible(j, i int) bool {
	return s.LandMask.Get(j, i) != 0 && s.PctNatVeg.Get(j, i) > 0
}

// bareLand returns the number of land cells without natural vegetation.
func (s *Surface) bareLand() int {
	var n int
	for k, v := range s.PctNatVeg.Elements {
		if v == 0 && s.LandMask.Elements[k] != 0 {
			n++
		}
	}
	return n
}

// Cell holds the generated geometry of one grid cell.
type Cell struct {
	J, I       int // lsmlat and lsmlon indices
	Hillslopes []Hillslope
	Stream     StreamChannel
}

// Generator creates hillslope geometry for every cell in a surface
// dataset.
type Generator struct {
	Params

	// Log receives progress information. If nil, the standard logrus
	// logger is used.
	Log logrus.FieldLogger
}

// NewGenerator returns a generator for the given parameters.
func NewGenerator(p Params, log logrus.FieldLogger) *Generator {
	return &Generator{Params: p, Log: log}
}

func (g *Generator) log() logrus.FieldLogger {
	if g.Log == nil {
		return logrus.StandardLogger()
	}
	return g.Log
}

// Cell creates the hillslopes and stream channel of a single eligible grid
// cell at (j, i) with elevation standard deviation stdElev. Column IDs
// start at firstID.
func (g *Generator) Cell(ctx context.Context, j, i int, stdElev float64, firstID int) (*Cell, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g.cell(ctx, j, i, stdElev, firstID)
}

// cell is like Cell but without validation.
func (g *Generator) cell(ctx context.Context, j, i int, stdElev float64, firstID int) (*Cell, error) {
	policy := g.ColumnsPerHillslope()
	prof := Profile{
		Length:   g.HillslopeDistance,
		Height:   PeakHeight(stdElev, g.HillslopeDistance),
		Exponent: g.PHill,
	}
	b, err := cachedBins(ctx, binRequest{
		policy:   policy,
		thresh:   g.Thresh,
		length:   prof.Length,
		exponent: prof.Exponent,
		height:   prof.Height,
	})
	if err != nil {
		return nil, err
	}

	c := &Cell{J: j, I: i, Hillslopes: make([]Hillslope, g.NumHillslopes)}
	pct := 100 / float64(g.NumHillslopes)
	ncol := int(policy)
	for k := range c.Hillslopes {
		aspect := Aspect(k, g.NumHillslopes)
		c.Hillslopes[k] = Hillslope{
			Index:   k,
			Percent: pct,
			Aspect:  aspect,
			Columns: AssembleHillslope(b, prof, g.WidthReach, g.Delx, aspect, k, firstID+k*ncol),
		}
	}
	c.Stream = NewStreamChannel(UpslopeArea(c.Hillslopes))
	return c, nil
}

// cellIndex identifies an eligible cell and the first column ID
// assigned to it.
type cellIndex struct {
	j, i    int
	firstID int
}

// eligibleCells returns the eligible cells of s in processing order
// (lsmlon outer, lsmlat inner) along with their first column IDs, so
// that IDs are contiguous and unique no matter which order the cells are
// computed in.
func (g *Generator) eligibleCells(s *Surface, nlat, nlon int) []cellIndex {
	var cells []cellIndex
	id := 1
	for i := 0; i < nlon; i++ {
		for j := 0; j < nlat; j++ {
			if !s.Eligible(j, i) {
				continue
			}
			cells = append(cells, cellIndex{j: j, i: i, firstID: id})
			id += g.MaxColumnsPerLandunit
		}
	}
	return cells
}

// Generate creates hillslope geometry for every eligible cell in s. The
// returned dataset holds the geometry variables and the run provenance
// attributes. Configuration errors are returned before any cell is
// processed. Cells are processed concurrently, but the result does not
// depend on the number of workers.
func (g *Generator) Generate(ctx context.Context, s *Surface) (*Dataset, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	nlat, nlon, err := s.Shape()
	if err != nil {
		return nil, err
	}

	cells := g.eligibleCells(s, nlat, nlon)
	g.log().WithFields(logrus.Fields{
		"lsmlat":         nlat,
		"lsmlon":         nlon,
		"eligible_cells": len(cells),
		"no_natveg":      s.bareLand(),
	}).Info("generating synthetic hillslopes")

	nprocs := g.Workers
	if nprocs < 1 {
		nprocs = runtime.GOMAXPROCS(-1)
	}

	out := newGeometryDataset(nlat, nlon, g.NumHillslopes, g.MaxColumnsPerLandunit)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan cellIndex)
	results := make(chan *Cell)
	errc := make(chan error, nprocs)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func() {
			defer wg.Done()
			for ci := range jobs {
				c, err := g.cell(ctx, ci.j, ci.i, s.StdElev.Get(ci.j, ci.i), ci.firstID)
				if err != nil {
					errc <- fmt.Errorf("synthhill: cell (%d, %d): %w", ci.j, ci.i, err)
					cancel()
					return
				}
				select {
				case results <- c:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, ci := range cells {
			select {
			case jobs <- ci:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	// Only this goroutine writes to out.
	var n int
	for c := range results {
		out.setCell(c, g.BedrockDepth, g.PFTIndex)
		n++
	}
	select {
	case err := <-errc:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil && n < len(cells) {
		return nil, err
	}
	g.log().WithField("cells", n).Debug("finished generating hillslopes")

	g.addProvenance(out)
	return out, nil
}

// addProvenance records the run parameters as global attributes of d.
func (g *Generator) addProvenance(d *Dataset) {
	d.Attributes["synth_hillslopes_delx"] = []float64{g.Delx}
	d.Attributes["synth_hillslopes_hcase"] = g.HCase
	d.Attributes["synth_hillslopes_hillslope_distance"] = []float64{g.HillslopeDistance}
	d.Attributes["synth_hillslopes_nmaxhillcol"] = []int32{int32(g.MaxColumnsPerLandunit)}
	d.Attributes["synth_hillslopes_num_hillslopes"] = []int32{int32(g.NumHillslopes)}
	d.Attributes["synth_hillslopes_phill"] = []float64{g.PHill}
	d.Attributes["synth_hillslopes_thresh"] = []float64{g.Thresh}
	d.Attributes["synth_hillslopes_width_reach"] = []float64{g.WidthReach}
	d.Attributes["synthhill_version"] = Version
}

// OutputPath returns the default location of the hillslope file created
// from the surface dataset at path input.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".synth_hillslopes" + ext
}

// Run reads the surface dataset in, generates hillslope geometry, and
// writes it to out along with the contents of the surface dataset.
func (g *Generator) Run(ctx context.Context, in cdf.ReaderWriterAt, out *os.File) error {
	if err := g.Validate(); err != nil {
		return err
	}
	f, err := cdf.Open(in)
	if err != nil {
		return fmt.Errorf("synthhill: opening surface dataset: %v", err)
	}
	s, err := ReadSurface(f)
	if err != nil {
		return err
	}
	d, err := g.Generate(ctx, s)
	if err != nil {
		return err
	}
	for _, v := range f.Header.Variables() {
		if f.Header.IsRecordVariable(v) {
			g.log().WithField("variable", v).Warn("record variable not copied to output")
		}
	}
	if err := d.Write(out, f); err != nil {
		return fmt.Errorf("synthhill: writing output: %v", err)
	}
	return nil
}
