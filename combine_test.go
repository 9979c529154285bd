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
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/gonum/floats"
	"github.com/kr/pretty"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		name string
		j, i int
		err  bool
	}{
		{name: "chunk_01_HAND_4_col_hillslope_geo_params_section_quad_MERIT_j_000_i_000.nc", j: 0, i: 0},
		{name: "/data/chunk_12_HAND_4_col_hillslope_geo_params_section_quad_MERIT_j_120_i_007.nc", j: 120, i: 7},
		{name: "j_004_x_i_103.nc", j: 4, i: 103},
		{name: "chunk_01.nc", err: true},
		{name: "i_001_j_002.nc", err: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			j, i, err := ParseOffset(test.name)
			if test.err {
				if !errors.Is(err, ErrConfig) {
					t.Errorf("have error %v; want ErrConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if j != test.j || i != test.i {
				t.Errorf("have (%d, %d); want (%d, %d)", j, i, test.j, test.i)
			}
		})
	}
}

func TestCombinedChunkPath(t *testing.T) {
	p, err := CombinedChunkPath("out", 3, "MERIT")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("out", "combined_chunk_03_HAND_4_col_hillslope_geo_params_section_quad_MERIT.nc")
	if p != want {
		t.Errorf("have %s; want %s", p, want)
	}
	for _, chunk := range []int{0, TotalChunks + 1} {
		if _, err := CombinedChunkPath("out", chunk, "MERIT"); !errors.Is(err, ErrConfig) {
			t.Errorf("chunk %d: have error %v; want ErrConfig", chunk, err)
		}
	}
}

// writeBlock generates hillslopes for a 1 × 2 block with the given
// elevation standard deviation and writes it to dir at offset (j, i).
func writeBlock(t *testing.T, dir string, j, i int, stdElev float64, extra bool) string {
	s := testSurface(1, 2, constant(stdElev), constant(1), func(j, i int) float64 { return float64(i) })
	d, err := NewGenerator(DefaultParams(), testLogger()).Generate(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	lon := sparse.ZerosDense(1, 2)
	lon.Elements[0], lon.Elements[1] = float64(10*i), float64(10*i+10)
	d.AddVariable("LONGXY", []string{DimLat, DimLon}, "longitude", "degrees east", false, lon)
	if extra {
		d.AddVariable("chunk_mask", []string{DimLat, DimLon}, "chunk mask", "unitless", true, sparse.ZerosDense(1, 2))
	}
	name := filepath.Join(dir, fmt.Sprintf(
		"chunk_01_HAND_4_col_hillslope_geo_params_section_quad_MERIT_j_%03d_i_%03d.nc", j, i))
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := d.Write(f, nil); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestCombine(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_combine")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	writeBlock(t, dir, 0, 0, 50, false)
	writeBlock(t, dir, 1, 0, 100, false)
	writeBlock(t, dir, 1, 2, 150, false)
	if _, err := os.Create(filepath.Join(dir, "chunk_02_HAND_4_col_hillslope_geo_params_section_quad_MERIT_j_000_i_000.nc")); err != nil {
		t.Fatal(err)
	}

	files, err := ChunkFiles(dir, 1, "MERIT")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("found %d files; want 3: %v", len(files), files)
	}
	if _, err := ChunkFiles(dir, 1, "ASTER"); err == nil {
		t.Error("missing files did not cause an error")
	}

	c := &Combiner{
		NLat: 2,
		NLon: 4,
		Log:  testLogger(),
		Now:  func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) },
	}
	d, err := c.Combine(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	if d.Attributes["creation_date"] != "240305" {
		t.Errorf("creation date = %v", d.Attributes["creation_date"])
	}
	if _, ok := d.Data["chunk_mask"]; ok {
		t.Error("chunk_mask included but not in the first file")
	}
	for _, name := range append(requiredCombineVars, "LONGXY", VarStreamDepth, VarPFTIndex) {
		if _, ok := d.Data[name]; !ok {
			t.Errorf("variable %s missing from combined dataset", name)
		}
	}

	wantLon := []float64{
		0, 10, 0, 0,
		0, 10, 20, 30,
	}
	if diff := pretty.Diff(d.Data["LONGXY"].Data.Elements, wantLon); len(diff) > 0 {
		t.Errorf("LONGXY differs: %v", diff)
	}
	wantNHill := []float64{
		0, 16, 0, 0,
		0, 16, 0, 16,
	}
	if !floats.Equal(d.Data[VarNHillColumns].Data.Elements, wantNHill) {
		t.Errorf("nhillcolumns = %v; want %v", d.Data[VarNHillColumns].Data.Elements, wantNHill)
	}
	if s := d.Data[VarColumnIndex].Data.Shape; s[0] != 16 || s[1] != 2 || s[2] != 4 {
		t.Errorf("column_index shape = %v", s)
	}
	// Each block was numbered on its own, so the ids start at 1.
	if id := d.Data[VarColumnIndex].Data.Get(0, 1, 3); id != 1 {
		t.Errorf("column index at (1, 3) = %g; want 1", id)
	}
	e1 := d.Data[VarElevation].Data.Get(3, 1, 1)
	e2 := d.Data[VarElevation].Data.Get(3, 1, 3)
	if !(e2 > e1) {
		t.Errorf("top elevation of taller block %g is not greater than %g", e2, e1)
	}
}

func TestCombineOverwrite(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_combine")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	a := writeBlock(t, dir, 0, 0, 50, true)
	b := writeBlock(t, dir, 0, 1, 50, true)
	c := &Combiner{NLat: 1, NLon: 3, Log: testLogger()}
	d, err := c.Combine(context.Background(), []string{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Data["chunk_mask"]; !ok {
		t.Error("chunk_mask missing from combined dataset")
	}
	// Cell (0, 1) has vegetation in the first block but not in the
	// second, which is written last.
	if n := d.Data[VarNHillColumns].Data.Get(0, 1); n != 0 {
		t.Errorf("nhillcolumns at (0, 1) = %g; want 0", n)
	}
	if n := d.Data[VarNHillColumns].Data.Get(0, 2); n != 16 {
		t.Errorf("nhillcolumns at (0, 2) = %g; want 16", n)
	}
}

func TestCombineOutsideGrid(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_combine")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	f := writeBlock(t, dir, 1, 0, 50, false)
	c := &Combiner{NLat: 1, NLon: 2, Log: testLogger()}
	if _, err := c.Combine(context.Background(), []string{f}); !errors.Is(err, ErrConfig) {
		t.Errorf("have error %v; want ErrConfig", err)
	}
}

func TestCombineMissingVariable(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_combine")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	a := writeBlock(t, dir, 0, 0, 50, true)
	b := writeBlock(t, dir, 0, 2, 50, false)
	c := &Combiner{NLat: 1, NLon: 4, Log: testLogger()}
	if _, err := c.Combine(context.Background(), []string{a, b}); err == nil {
		t.Error("missing optional variable in a later file did not cause an error")
	}
}
