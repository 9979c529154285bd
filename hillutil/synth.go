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
	"time"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/synthhill"
)

// Synth creates synthetic hillslopes for the surface dataset at
// inputFile and writes them to outputFile, returning the path of the
// created file.
//
// inputFile can be a local path, a URL, or a blob storage location and
// can include environment variables.
//
// outputFile can be a local path or a blob storage location. If it is
// empty, it is derived from inputFile. An existing output file is an
// error unless overwrite is true.
func Synth(ctx context.Context, inputFile, outputFile string, overwrite bool, p synthhill.Params) (string, error) {
	startTime := time.Now()
	if err := p.Validate(); err != nil {
		return "", err
	}
	inputFile, err := checkInputFile(inputFile)
	if err != nil {
		return "", err
	}
	outputFile, err = checkOutputFile(ctx, outputFile, inputFile, overwrite)
	if err != nil {
		return "", err
	}
	localInput, err := maybeDownload(ctx, inputFile, Log)
	if err != nil {
		return "", err
	}

	upload := uploader{log: Log}
	localOutput := upload.maybeUpload(outputFile)
	if upload.err != nil {
		return "", fmt.Errorf("synthhill: preparing output upload: %v", upload.err)
	}

	in, err := os.Open(localInput)
	if err != nil {
		return "", fmt.Errorf("synthhill: opening input file: %v", err)
	}
	defer in.Close()
	out, err := os.Create(localOutput)
	if err != nil {
		return "", fmt.Errorf("synthhill: creating output file: %v", err)
	}
	g := synthhill.NewGenerator(p, Log)
	if err := g.Run(ctx, in, out); err != nil {
		out.Close()
		os.Remove(localOutput)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("synthhill: closing output file: %v", err)
	}
	if err := upload.uploadOutput(ctx); err != nil {
		return "", err
	}
	Log.WithFields(logrus.Fields{
		"output":  outputFile,
		"runtime": time.Since(startTime).String(),
	}).Info("created synthetic hillslopes")
	return outputFile, nil
}

// Combine combines the gridcell files of chunk number chunk in inputDir
// into a single file in outputDir on the grid of the surface dataset at
// inputFile, returning the path of the created file.
func Combine(ctx context.Context, inputFile, inputDir, outputDir, demSource string, chunk int, overwrite bool) (string, error) {
	inputFile, err := checkInputFile(inputFile)
	if err != nil {
		return "", err
	}
	inputDir, outputDir = os.ExpandEnv(inputDir), os.ExpandEnv(outputDir)
	if _, err := os.Stat(inputDir); err != nil {
		return "", fmt.Errorf("synthhill: input directory not found: %v", err)
	}
	outputFile, err := synthhill.CombinedChunkPath(outputDir, chunk, demSource)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("synthhill: creating output directory: %v", err)
	}
	if _, err := os.Stat(outputFile); err == nil {
		if !overwrite {
			return "", fmt.Errorf("synthhill: %s exists; stopping", outputFile)
		}
		Log.WithField("file", outputFile).Info("output exists; overwriting")
	}

	localInput, err := maybeDownload(ctx, inputFile, Log)
	if err != nil {
		return "", err
	}
	in, err := os.Open(localInput)
	if err != nil {
		return "", fmt.Errorf("synthhill: opening input file: %v", err)
	}
	defer in.Close()
	f, err := cdf.Open(in)
	if err != nil {
		return "", fmt.Errorf("synthhill: opening input file: %v", err)
	}
	nlat, nlon, err := synthhill.GridSize(f)
	if err != nil {
		return "", err
	}

	files, err := synthhill.ChunkFiles(inputDir, chunk, demSource)
	if err != nil {
		return "", err
	}
	c := &synthhill.Combiner{NLat: nlat, NLon: nlon, Log: Log}
	d, err := c.Combine(ctx, files)
	if err != nil {
		return "", err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return "", fmt.Errorf("synthhill: creating output file: %v", err)
	}
	if err := d.Write(out, nil); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return outputFile, nil
}
