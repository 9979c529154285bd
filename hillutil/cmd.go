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
	"strconv"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/synthhill"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used by the command line interface. Its level and
// format are set from the configuration.
var Log logrus.FieldLogger = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	defaults := synthhill.DefaultParams()
	paramSets := []*pflag.FlagSet{synthCmd.Flags()}

	// Options are the configuration options available to synthhill.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-level",
			usage: `
              log-level sets the logging verbosity. Valid levels are
              "debug", "info", "warning" and "error".`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "input-file",
			usage: `
              input-file is the path to the input surface dataset. For the
              combine command it is the surface dataset that defines the
              full grid. The path can include environment variables and
              can be a URL or a blob storage location (gs://, s3://, file://).`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{synthCmd.Flags(), combineCmd.Flags()},
		},
		{
			name: "output-file",
			usage: `
              output-file is the path where the hillslope file should be
              created. If empty, ".synth_hillslopes" is inserted before the
              extension of input-file. The path can include environment
              variables and can be a blob storage location.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "overwrite",
			usage: `
              overwrite specifies whether an existing output file should
              be replaced.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags(), combineCmd.Flags()},
		},
		{
			name: "delx",
			usage: `
              delx is the increment [m] used in the numerical integration
              of mean column elevation.`,
			defaultVal: defaults.Delx,
			flagsets:   paramSets,
		},
		{
			name: "hcase",
			usage: `
              hcase is the hillslope classification. Only "slope_aspect"
              is available.`,
			defaultVal: defaults.HCase,
			flagsets:   paramSets,
		},
		{
			name: "hillslope-distance",
			usage: `
              hillslope-distance is the distance [m] from the stream
              channel to the ridge.`,
			defaultVal: defaults.HillslopeDistance,
			flagsets:   paramSets,
		},
		{
			name: "nmaxhillcol",
			usage: `
              nmaxhillcol is the maximum number of hillslope columns in
              each grid cell. It must be evenly divisible by num-hillslopes,
              with 4, 5 or 6 columns per hillslope.`,
			defaultVal: defaults.MaxColumnsPerLandunit,
			flagsets:   paramSets,
		},
		{
			name: "num-hillslopes",
			usage: `
              num-hillslopes is the number of aspect classes (hillslopes)
              in each grid cell.`,
			defaultVal: defaults.NumHillslopes,
			flagsets:   paramSets,
		},
		{
			name: "phill",
			usage: `
              phill is the shape parameter (power law exponent) of the
              hillslope profile.`,
			defaultVal: defaults.PHill,
			flagsets:   paramSets,
		},
		{
			name: "thresh",
			usage: `
              thresh is the height [m] of the lowland bin.`,
			defaultVal: defaults.Thresh,
			flagsets:   paramSets,
		},
		{
			name: "width-reach",
			usage: `
              width-reach is the uniform width [m] of each reach.`,
			defaultVal: defaults.WidthReach,
			flagsets:   paramSets,
		},
		{
			name: "bedrock-depth",
			usage: `
              bedrock-depth is the depth [m] to bedrock in every
              hillslope column.`,
			defaultVal: defaults.BedrockDepth,
			flagsets:   paramSets,
		},
		{
			name: "pft-index",
			usage: `
              pft-index is the plant functional type assigned to every
              hillslope column.`,
			defaultVal: defaults.PFTIndex,
			flagsets:   paramSets,
		},
		{
			name: "workers",
			usage: `
              workers is the number of grid cells to process in parallel.
              Values < 1 use all available processors.`,
			defaultVal: 0,
			flagsets:   paramSets,
		},
		{
			name: "input-dir",
			usage: `
              input-dir is the directory containing the gridcell files
              to be combined.`,
			shorthand:  "d",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{combineCmd.Flags()},
		},
		{
			name: "output-dir",
			usage: `
              output-dir is the directory where the combined file should
              be saved. It is created if it does not exist.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{combineCmd.Flags()},
		},
		{
			name: "dem-source",
			usage: `
              dem-source is the name of the digital elevation model the
              gridcell files were derived from.`,
			defaultVal: "MERIT",
			flagsets:   []*pflag.FlagSet{combineCmd.Flags()},
		},
		{
			name: "verbose",
			usage: `
              verbose prints information about each combined file.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{combineCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SYNTHHILL")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(synthCmd)
	Root.AddCommand(combineCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and configures logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("synthhill: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("synthhill: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "synthhill",
	Short: "A synthetic hillslope geometry generator.",
	Long: `synthhill creates idealized hillslope geometry for the grid cells of a
land surface model surface dataset. Use the subcommands specified below to
access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SYNTHHILL_VAR' where 'VAR' is the
name of the variable to be set, with dashes replaced by underscores.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of synthhill.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("synthhill v%s\n", synthhill.Version)
	},
	DisableAutoGenTag: true,
}

// synthCmd creates synthetic hillslopes for a surface dataset.
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Create synthetic hillslopes.",
	Long: `synth creates synthetic hillslope geometry for every land grid cell with
natural vegetation in the input surface dataset, and writes it, together with
the contents of the input file, to the output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := params(Cfg)
		if err != nil {
			return err
		}
		path, err := Synth(context.Background(), Cfg.GetString("input-file"),
			Cfg.GetString("output-file"), Cfg.GetBool("overwrite"), p)
		if err != nil {
			return err
		}
		cmd.Printf("%s created\n", path)
		return nil
	},
	DisableAutoGenTag: true,
}

// combineCmd combines gridcell files into a single file.
var combineCmd = &cobra.Command{
	Use:   "combine [chunk]",
	Short: "Combine gridcell files into a single file.",
	Long: `combine mosaics the hillslope gridcell files of one chunk of the global
grid into a single file on the grid of the input surface dataset. chunk
must be between 1 and ` + strconv.Itoa(synthhill.TotalChunks) + `.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunk, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("synthhill: invalid chunk %q: %v", args[0], err)
		}
		if Cfg.GetBool("verbose") && logrus.GetLevel() < logrus.DebugLevel {
			logrus.SetLevel(logrus.DebugLevel)
		}
		path, err := Combine(context.Background(), Cfg.GetString("input-file"),
			Cfg.GetString("input-dir"), Cfg.GetString("output-dir"),
			Cfg.GetString("dem-source"), chunk, Cfg.GetBool("overwrite"))
		if err != nil {
			return err
		}
		cmd.Printf("%s created\n", path)
		return nil
	},
	DisableAutoGenTag: true,
}
