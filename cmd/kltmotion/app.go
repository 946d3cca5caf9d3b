package main

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/klt/logging"
	rutils "go.viam.com/klt/utils"
)

const (
	flagConfig   = "config"
	flagLevels   = "levels"
	flagRadius   = "radius"
	flagMin      = "min"
	flagMax      = "max"
	flagModel    = "model"
	flagDebug    = "debug"
	flagParallel = "parallel"
	flagSummary  = "summary"
)

// newApp returns the command line application. A nil logger is replaced by a stdout logger
// honoring --debug.
func newApp(clk clock.Clock, logger logging.Logger) *cli.App {
	return &cli.App{
		Name:  "kltmotion",
		Usage: "track features through image sequences",
		Commands: []*cli.Command{
			{
				Name:      "track",
				Usage:     "track features through frames and estimate the motion between them",
				ArgsUsage: "<frame> <frame> [frame...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagConfig,
						Usage: "json configuration with tracking, detector, motion and pyramid sections",
					},
					&cli.IntFlag{
						Name:  flagLevels,
						Usage: "number of pyramid levels, each half the size of the previous one",
					},
					&cli.IntFlag{
						Name:  flagRadius,
						Usage: "radius of the feature windows",
					},
					&cli.IntFlag{
						Name:  flagMin,
						Usage: "number of active tracks under which new ones are spawned",
					},
					&cli.IntFlag{
						Name:  flagMax,
						Usage: "largest number of active tracks",
					},
					&cli.StringFlag{
						Name:  flagModel,
						Usage: "motion model: translation, affine or homography",
					},
					&cli.BoolFlag{
						Name:  flagParallel,
						Usage: "track features concurrently",
					},
					&cli.BoolFlag{
						Name:  flagSummary,
						Usage: "print a table of the per frame results when done",
					},
					&cli.BoolFlag{
						Name:  flagDebug,
						Usage: "enable debug logging",
					},
				},
				Action: func(c *cli.Context) error {
					return trackAction(c, clk, logger)
				},
			},
		},
	}
}

func trackAction(c *cli.Context, clk clock.Clock, logger logging.Logger) error {
	if c.NArg() < 2 {
		return errors.New("at least two frames are required")
	}
	cfg := defaultTrackConfig()
	if path := c.String(flagConfig); path != "" {
		if err := rutils.DecodeJSONFile(path, &cfg); err != nil {
			return err
		}
	}
	if c.IsSet(flagLevels) {
		cfg.Levels = c.Int(flagLevels)
	}
	if c.IsSet(flagRadius) {
		cfg.Tracking.TemplateRadius = c.Int(flagRadius)
	}
	if c.IsSet(flagMin) {
		cfg.Tracking.MinFeatures = c.Int(flagMin)
	}
	if c.IsSet(flagMax) {
		cfg.Tracking.MaxFeatures = c.Int(flagMax)
	}
	if c.IsSet(flagModel) {
		cfg.Motion.Model = c.String(flagModel)
	}
	if c.IsSet(flagParallel) {
		cfg.Tracking.Parallel = c.Bool(flagParallel)
	}
	if err := cfg.Validate(c.String(flagConfig)); err != nil {
		return err
	}

	ctx := c.Context
	debug := c.Bool(flagDebug)
	if logger == nil {
		if debug {
			logger = logging.NewDebugLogger("kltmotion")
		} else {
			logger = logging.NewLogger("kltmotion")
		}
	}
	if debug {
		ctx = logging.EnableDebugMode(ctx, "")
	}
	defer utils.UncheckedErrorFunc(logger.Sync)

	results, err := runTrack(ctx, cfg, c.Args().Slice(), clk, logger)
	if err != nil {
		return err
	}
	if c.Bool(flagSummary) {
		writeSummary(c.App.Writer, results)
	}
	return nil
}
