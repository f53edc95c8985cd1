package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/reelpolish/internal/analysis"
	"github.com/keagan/reelpolish/internal/config"
	"github.com/keagan/reelpolish/internal/enhance"
	"github.com/keagan/reelpolish/internal/export"
	"github.com/keagan/reelpolish/internal/ffmpeg"
	"github.com/keagan/reelpolish/internal/logging"
	"github.com/keagan/reelpolish/internal/progress"
	"github.com/keagan/reelpolish/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reelpolish",
	Short: "reelpolish - video enhancement and platform export engine",
	Long:  "Analyzes short videos, derives color/tone enhancements, and re-encodes them for social platform constraints.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	exportCmd.Flags().StringP("platform", "p", "", "target platform preset (tiktok, instagram, youtube, custom)")
	exportCmd.Flags().String("preset", "", "enhancement style preset (cinematic, vibrant, natural)")
	exportCmd.Flags().StringP("output", "o", "", "output directory")
	exportCmd.Flags().Float64("skin-smooth", 0, "skin retouch amount, 0-100 (0 disables)")
	exportCmd.Flags().Float64("skin-texture", 60, "detail kept inside smoothed skin, 0-100")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(configCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input video]",
	Short: "Sample a video and report its perceptual properties",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		logger := logging.WithComponent("cli")

		if !util.FileExists(args[0]) {
			return fmt.Errorf("input not found: %s", args[0])
		}

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		analyzer := analysis.New(log.Logger, exec)
		result, err := analyzer.Analyze(cmd.Context(), args[0], func(r progress.Report) {
			logger.Debug().
				Str("stage", string(r.Stage)).
				Float64("percent", r.Percent).
				Msg(r.Message)
		})
		if err != nil {
			return err
		}

		settings := enhance.FromAnalysis(result)

		logger.Info().
			Float64("brightness", result.AverageBrightness).
			Float64("contrast", result.ContrastLevel).
			Float64("noise", result.NoiseLevel).
			Bool("temperature_estimated", result.TemperatureEstimated).
			Msg("analysis complete")

		for _, c := range result.DominantColors {
			logger.Info().Str("color", c.HSL()).Int("count", c.Count).Msg("dominant color")
		}

		out, err := yaml.Marshal(settings)
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [input video]",
	Short: "Enhance a video and re-encode it for a target platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		logger := logging.WithComponent("cli")

		if !util.FileExists(args[0]) {
			return fmt.Errorf("input not found: %s", args[0])
		}

		platform, _ := cmd.Flags().GetString("platform")
		stylePreset, _ := cmd.Flags().GetString("preset")
		outputDir, _ := cmd.Flags().GetString("output")

		if platform == "" {
			platform = cfg.Export.DefaultPlatform
		}
		if outputDir == "" {
			outputDir = cfg.OutputDir
		}

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		// Derive enhancement settings from analysis, then overlay the
		// requested style preset if any
		analyzer := analysis.New(log.Logger, exec)
		result, err := analyzer.Analyze(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		settings := enhance.FromAnalysis(result)

		if stylePreset != "" {
			preset, ok := enhance.Presets()[stylePreset]
			if !ok {
				return fmt.Errorf("unknown enhancement preset: %s", stylePreset)
			}
			settings = preset.Apply(settings)
		}

		settings.SkinSmooth, _ = cmd.Flags().GetFloat64("skin-smooth")
		settings.SkinTexture, _ = cmd.Flags().GetFloat64("skin-texture")

		exportSettings := export.PlatformPreset(platform)
		exportSettings.EncoderPreset = cfg.FFmpeg.Preset

		engine := export.NewEngine(log.Logger, exec)
		if cfg.Export.FinalizeDelayMS > 0 {
			engine.SetFinalizeDelay(time.Duration(cfg.Export.FinalizeDelayMS) * time.Millisecond)
		}

		start := time.Now()
		exported, err := engine.Export(cmd.Context(), export.Request{
			SourcePath:  args[0],
			Enhancement: settings,
			Settings:    exportSettings,
			OutputDir:   outputDir,
			WorkDir:     cfg.WorkDir,
		}, func(r progress.Report) {
			logger.Info().
				Str("stage", string(r.Stage)).
				Float64("percent", r.Percent).
				Int("frame", r.CurrentFrame).
				Int("total", r.TotalFrames).
				Msg("export progress")
		})
		if err != nil {
			return err
		}

		logger.Info().
			Str("output", exported.OutputPath).
			Str("mime", exported.MimeType).
			Int64("size", exported.SizeBytes).
			Dur("took", time.Since(start)).
			Msg("export finished")

		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List platform and enhancement presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range export.PlatformNames() {
			p := export.PlatformPreset(name)
			fmt.Printf("%-10s %dx%d @ %.0ffps, %.0f Mbps, %s/%s, %s %dkbps %dHz\n",
				name, p.Width, p.Height, p.FrameRate, p.BitrateMbps,
				p.Format, p.VideoCodec, p.AudioCodec, p.AudioBitrateKbps, p.AudioSampleRate)
		}

		fmt.Println()
		for name := range enhance.Presets() {
			fmt.Printf("style: %s\n", name)
		}

		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("config file already exists: %s", path)
		}

		cfg := config.FromContext(cmd.Context())
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Println("wrote", path)

		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
