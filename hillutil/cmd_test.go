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

package hillutil

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/synthhill"
)

// testWriter sends log output to the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(bytes.TrimSpace(p)))
	return len(p), nil
}

func helperLog(t *testing.T) logrus.FieldLogger {
	l := logrus.New()
	l.Out = testWriter{t}
	return l
}

// writeSurface writes a surface dataset of nlat × nlon cells to path.
// Every cell is vegetated land except the last one, which is ocean.
func writeSurface(t *testing.T, path string, nlat, nlon int) {
	stdElev := sparse.ZerosDense(nlat, nlon)
	mask := sparse.ZerosDense(nlat, nlon)
	natVeg := sparse.ZerosDense(nlat, nlon)
	for k := range stdElev.Elements {
		stdElev.Elements[k] = float64(20 * (k + 1))
		mask.Elements[k] = 1
		natVeg.Elements[k] = 100
	}
	mask.Elements[len(mask.Elements)-1] = 0
	d := synthhill.NewDataset()
	d.AddVariable(synthhill.VarStdElev, []string{synthhill.DimLat, synthhill.DimLon}, "standard deviation of elevation", "m", false, stdElev)
	d.AddVariable(synthhill.VarLandMask, []string{synthhill.DimLat, synthhill.DimLon}, "land mask", "unitless", true, mask)
	d.AddVariable(synthhill.VarPctNatVeg, []string{synthhill.DimLat, synthhill.DimLon}, "percent natural vegetation", "unitless", false, natVeg)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := d.Write(f, nil); err != nil {
		t.Fatal(err)
	}
}

func loadFile(t *testing.T, path string) *synthhill.Dataset {
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := synthhill.LoadDataset(f)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// resetParams sets the hillslope parameters back to their defaults.
func resetParams() {
	p := synthhill.DefaultParams()
	Cfg.Set("nmaxhillcol", p.MaxColumnsPerLandunit)
	Cfg.Set("num-hillslopes", p.NumHillslopes)
	Cfg.Set("log-level", "warning")
}

func TestVersion(t *testing.T) {
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "synthhill v" + synthhill.Version + "\n"; buf.String() != want {
		t.Errorf("have %q; want %q", buf.String(), want)
	}
}

func TestSynthCommand(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	surf := filepath.Join(dir, "surfdata.nc")
	writeSurface(t, surf, 2, 3)
	resetParams()
	defer resetParams()

	Cfg.Set("input-file", surf)
	Cfg.Set("output-file", "")
	Cfg.Set("overwrite", false)
	Root.SetArgs([]string{"synth"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "surfdata.synth_hillslopes.nc")
	d := loadFile(t, out)
	want := []float64{16, 16, 16, 16, 16, 0}
	for k, w := range want {
		if have := d.Data[synthhill.VarNHillColumns].Data.Elements[k]; have != w {
			t.Errorf("nhillcolumns[%d] = %g; want %g", k, have, w)
		}
	}
	if _, ok := d.Data[synthhill.VarStdElev]; !ok {
		t.Error("input variable missing from output")
	}

	t.Run("exists", func(t *testing.T) {
		Root.SetArgs([]string{"synth"})
		if err := Root.Execute(); err == nil {
			t.Error("existing output file was replaced without overwrite")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		Cfg.Set("overwrite", true)
		defer Cfg.Set("overwrite", false)
		Cfg.Set("nmaxhillcol", 20)
		defer resetParams()
		Root.SetArgs([]string{"synth"})
		if err := Root.Execute(); err != nil {
			t.Fatal(err)
		}
		d := loadFile(t, out)
		if n := d.Data[synthhill.VarNHillColumns].Data.Elements[0]; n != 20 {
			t.Errorf("nhillcolumns = %g; want 20", n)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		Cfg.Set("output-file", filepath.Join(dir, "invalid.nc"))
		defer Cfg.Set("output-file", "")
		Cfg.Set("nmaxhillcol", 15)
		defer resetParams()
		Root.SetArgs([]string{"synth"})
		if err := Root.Execute(); !errors.Is(err, synthhill.ErrConfig) {
			t.Errorf("have error %v; want ErrConfig", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "invalid.nc")); err == nil {
			t.Error("output created for invalid configuration")
		}
	})

	t.Run("blob", func(t *testing.T) {
		bucket := filepath.Join(dir, "bucket")
		if err := os.Mkdir(bucket, os.ModePerm); err != nil {
			t.Fatal(err)
		}
		blobPath := "file://" + bucket + "/hills.nc"
		Cfg.Set("output-file", blobPath)
		defer Cfg.Set("output-file", "")
		Root.SetArgs([]string{"synth"})
		if err := Root.Execute(); err != nil {
			t.Fatal(err)
		}
		local, err := maybeDownload(context.Background(), blobPath, helperLog(t))
		if err != nil {
			t.Fatal(err)
		}
		d := loadFile(t, local)
		if n := d.Data[synthhill.VarNHillColumns].Data.Elements[0]; n != 16 {
			t.Errorf("nhillcolumns = %g; want 16", n)
		}
	})
}

func TestCombineCommand(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	resetParams()
	defer resetParams()

	// Create hillslopes for two 1 × 2 blocks of a 2 × 2 grid.
	blockDir := filepath.Join(dir, "blocks")
	if err := os.Mkdir(blockDir, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	for _, j := range []string{"000", "001"} {
		surf := filepath.Join(dir, "surf_j_"+j+".nc")
		writeSurface(t, surf, 1, 2)
		out := filepath.Join(blockDir,
			"chunk_07_HAND_4_col_hillslope_geo_params_section_quad_MERIT_j_"+j+"_i_000.nc")
		if _, err := Synth(context.Background(), surf, out, false, synthhill.DefaultParams()); err != nil {
			t.Fatal(err)
		}
	}
	grid := filepath.Join(dir, "grid.nc")
	writeSurface(t, grid, 2, 2)

	outDir := filepath.Join(dir, "combined")
	Cfg.Set("input-file", grid)
	Cfg.Set("input-dir", blockDir)
	Cfg.Set("output-dir", outDir)
	Cfg.Set("dem-source", "MERIT")
	Cfg.Set("overwrite", false)
	Root.SetArgs([]string{"combine", "7"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	d := loadFile(t, filepath.Join(outDir,
		"combined_chunk_07_HAND_4_col_hillslope_geo_params_section_quad_MERIT.nc"))
	want := []float64{16, 0, 16, 0}
	for k, w := range want {
		if have := d.Data[synthhill.VarNHillColumns].Data.Elements[k]; have != w {
			t.Errorf("nhillcolumns[%d] = %g; want %g", k, have, w)
		}
	}
	if _, ok := d.Attributes["creation_date"]; !ok {
		t.Error("creation_date attribute missing")
	}

	t.Run("exists", func(t *testing.T) {
		Root.SetArgs([]string{"combine", "7"})
		if err := Root.Execute(); err == nil {
			t.Error("existing output file was replaced without overwrite")
		}
	})

	t.Run("bad chunk", func(t *testing.T) {
		Root.SetArgs([]string{"combine", "37"})
		if err := Root.Execute(); !errors.Is(err, synthhill.ErrConfig) {
			t.Errorf("have error %v; want ErrConfig", err)
		}
	})
}
