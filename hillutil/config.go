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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/synthhill"
	"github.com/spf13/cast"
)

// params reads the hillslope generation parameters from cfg and checks
// that they are valid.
func params(cfg *viper.Viper) (synthhill.Params, error) {
	var p synthhill.Params
	var err error
	if p.NumHillslopes, err = cast.ToIntE(cfg.Get("num-hillslopes")); err != nil {
		return p, fmt.Errorf("synthhill: reading num-hillslopes: %v", err)
	}
	if p.MaxColumnsPerLandunit, err = cast.ToIntE(cfg.Get("nmaxhillcol")); err != nil {
		return p, fmt.Errorf("synthhill: reading nmaxhillcol: %v", err)
	}
	if p.PFTIndex, err = cast.ToIntE(cfg.Get("pft-index")); err != nil {
		return p, fmt.Errorf("synthhill: reading pft-index: %v", err)
	}
	if p.Workers, err = cast.ToIntE(cfg.Get("workers")); err != nil {
		return p, fmt.Errorf("synthhill: reading workers: %v", err)
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"delx", &p.Delx},
		{"hillslope-distance", &p.HillslopeDistance},
		{"phill", &p.PHill},
		{"thresh", &p.Thresh},
		{"width-reach", &p.WidthReach},
		{"bedrock-depth", &p.BedrockDepth},
	}
	for _, f := range floats {
		if *f.dst, err = cast.ToFloat64E(cfg.Get(f.name)); err != nil {
			return p, fmt.Errorf("synthhill: reading %s: %v", f.name, err)
		}
	}
	p.HCase = os.ExpandEnv(cast.ToString(cfg.Get("hcase")))
	return p, p.Validate()
}

// checkInputFile makes sure that the input file is specified and expands
// any environment variables.
func checkInputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`synthhill: you need to specify an input file (for example: --input-file="surfdata.nc")`)
	}
	return os.ExpandEnv(f), nil
}

// checkOutputFile expands any environment variables in the output file,
// fills in a default value based on input if it is empty, and makes sure
// that its location exists and that it will not replace an existing file
// unless overwrite is true.
func checkOutputFile(ctx context.Context, f, input string, overwrite bool) (string, error) {
	if f == "" {
		if isHTTP(input) {
			// Web inputs are written to the working directory.
			input = localName(input)
		}
		f = synthhill.OutputPath(input)
	}
	f = os.ExpandEnv(f)
	if IsBlob(f) {
		bucket, _, err := splitBlob(f)
		if err != nil {
			return f, err
		}
		if _, err = OpenBucket(ctx, bucket); err != nil {
			return f, fmt.Errorf("synthhill: error when checking output file location: %v", err)
		}
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("synthhill: the output file directory doesn't exist: %v", err)
	}
	if _, err := os.Stat(f); err == nil && !overwrite {
		return f, fmt.Errorf("synthhill: output file %s exists; use --overwrite to replace it", f)
	}
	return f, nil
}
