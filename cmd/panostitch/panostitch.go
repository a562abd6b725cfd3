package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/panostitch/pkg/pano"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "panostitch",
		Short: "panostitch composites overlapping photos into one panorama",
		Long: `panostitch warps a batch of photos into a shared frame, using homographies
that map each photo onto the first one, and feathers the overlaps together.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newStitchCmd())
	rootCmd.AddCommand(newSynthCmd())
	rootCmd.AddCommand(newCompareCmd())

	return rootCmd
}

func newStitchCmd() *cobra.Command {
	var (
		output      string
		mode        string
		workers     int
		epsilon     float64
		diagnostics string
		verbosity   int
	)

	cmd := &cobra.Command{
		Use:   "stitch <job.yaml|image|dir>...",
		Short: "Stitch images into a panorama",
		Long: `Loads a job file and/or images (directories are walked in filename order),
then warps and blends them. The first image is the reference frame.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := pano.NewJob()
			if err := job.LoadFilesAndDirs(args...); err != nil {
				return err
			}

			// Override the job file with command line args, if relevant
			if cmd.Flags().Changed("mode") {
				m, err := pano.ParseBlendMode(mode)
				if err != nil {
					return err
				}
				job.Mode = m
			}
			if output != "" {
				job.Output = output
			}
			if job.Output == "" {
				job.Output = "pano.png"
			}
			if workers > 0 {
				job.Workers = workers
			}
			if epsilon > 0 {
				job.Epsilon = epsilon
			}
			if diagnostics != "" {
				job.DiagnosticsDir = diagnostics
			}
			if cmd.Flags().Changed("verbosity") {
				job.Verbosity = verbosity
			}

			if job.Verbosity > 0 {
				log.Printf("Final configuration:-\n\n%s\n", job.Config.AsYaml())
			}

			img, err := job.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("stitch failed: %w", err)
			}

			if err := pano.WriteImage(img, job.Output); err != nil {
				return err
			}
			log.Printf("Panorama (%dx%d) written to '%s'\n", img.Rect.Dx(), img.Rect.Dy(), job.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output image file (.png, .tif, .jpg)")
	cmd.Flags().StringVar(&mode, "mode", "global", "blend mode: global or sequential")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of parallel warp workers (default: number of CPUs)")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "weight-sum epsilon, for uncovered canvas regions")
	cmd.Flags().StringVar(&diagnostics, "diagnostics", "", "write weight maps and coverage overlays into this dir")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "how verbose to get")

	return cmd
}

type synthOutput struct {
	Forward []float64 `yaml:"forward,flow"` // original -> synthetic
	Stitch  []float64 `yaml:"h,flow"`       // synthetic -> original, for a job file
}

func newSynthCmd() *cobra.Command {
	var (
		output string
		angle  float64
		tx, ty float64
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "synth <image>",
		Short: "Make a rotated/scaled/shifted copy of an image, for testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := pano.NewJob()
			if err := job.LoadFilesAndDirs(args[0]); err != nil {
				return err
			}
			if len(job.Layers) != 1 {
				return fmt.Errorf("synth: '%s' is not an image", args[0])
			}

			img, h := pano.SyntheticPair(job.Layers[0].Image, angle, tx, ty, scale)
			inv, err := h.Inverse()
			if err != nil {
				return err
			}

			if err := pano.WriteImage(img, output); err != nil {
				return err
			}

			b, err := yaml.Marshal(synthOutput{Forward: h[:], Stitch: inv[:]})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "synth.png", "output image file")
	cmd.Flags().Float64Var(&angle, "angle", 10, "anticlockwise rotation about the image centre, in degrees")
	cmd.Flags().Float64Var(&tx, "tx", 30, "horizontal shift, in pixels")
	cmd.Flags().Float64Var(&ty, "ty", 15, "vertical shift, in pixels")
	cmd.Flags().Float64Var(&scale, "scale", 1, "scale factor")

	return cmd
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Print the RMSE between two equally sized images",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := pano.NewJob()
			if err := job.LoadFilesAndDirs(args...); err != nil {
				return err
			}
			if len(job.Layers) != 2 {
				return fmt.Errorf("compare: need two images, got %d", len(job.Layers))
			}

			rmse, err := pano.RMSE(job.Layers[0], job.Layers[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", rmse)
			return nil
		},
	}
}
