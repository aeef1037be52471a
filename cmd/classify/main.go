// Command classify labels image files with the bundled model.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/Brownie44l1/seascape/internal/classify"
	"github.com/Brownie44l1/seascape/internal/log"
	"github.com/Brownie44l1/seascape/internal/model"
)

func main() {
	app := &cli.App{
		Name:      "classify",
		Usage:     "label photographs as sea or mountain",
		ArgsUsage: "IMAGE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "model config JSON",
				Value:   "models/model_metadata.json",
				EnvVars: []string{"MODEL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "ort-lib",
				Usage:   "path to the ONNX Runtime shared library",
				EnvVars: []string{"ORT_LIB_PATH"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print one JSON object per image",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "classify:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) (err error) {
	log.Init(c.String("log-level"), "")
	defer log.Sync()

	if c.NArg() == 0 {
		return cli.Exit("at least one image path is required", 2)
	}

	cfg, err := model.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	runtime, err := model.NewRuntime(cfg, c.String("ort-lib"))
	if err != nil {
		return err
	}
	defer closeRuntime(runtime, &err)

	classifier := &classify.Classifier{
		Loader: runtime,
		Labels: cfg.Classes,
		Size:   cfg.ImageSize,
		Filter: cfg.Filter(),
	}

	failed := classifyAll(c.Context, classifier, c.Args().Slice(), c.Bool("json"), c.App.Writer, c.App.ErrWriter)
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d images failed", failed, c.NArg()), 1)
	}
	return nil
}

// closeRuntime releases c and reports its failure through err unless an
// earlier error is already set.
func closeRuntime(c io.Closer, err *error) {
	cerr := c.Close()
	if cerr == nil {
		return
	}
	log.Warn("failed to destroy ONNX environment", "error", cerr)
	if *err == nil {
		*err = errors.Wrap(cerr, "destroy ONNX environment")
	}
}

type result struct {
	Path string `json:"path"`
	*classify.Prediction
}

// classifyAll makes one attempt per path and returns how many failed.
func classifyAll(ctx context.Context, classifier *classify.Classifier, paths []string, asJSON bool, out, errOut io.Writer) int {
	enc := json.NewEncoder(out)
	failed := 0
	for _, path := range paths {
		pred, err := classifyFile(ctx, classifier, path)
		if err != nil {
			failed++
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			continue
		}
		if asJSON {
			if err := enc.Encode(result{Path: path, Prediction: pred}); err != nil {
				failed++
				fmt.Fprintf(errOut, "%s: %v\n", path, err)
			}
			continue
		}
		fmt.Fprintf(out, "%s: %s (%.4f)\n", path, pred.Class, pred.Confidence)
	}
	return failed
}

func classifyFile(ctx context.Context, classifier *classify.Classifier, path string) (*classify.Prediction, error) {
	img, _, err := classify.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	pred, err := classifier.Classify(ctx, img)
	if err != nil {
		return nil, errors.Wrap(err, "classify")
	}
	return pred, nil
}
