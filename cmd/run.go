package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/gnolang/pgrename/formatter"
	"github.com/gnolang/pgrename/obfuscate"
)

var (
	okStyle  = color.New(color.FgGreen, color.Bold)
	delStyle = color.New(color.FgRed)
	addStyle = color.New(color.FgGreen)

	showBar bool
)

var runCmd = &cobra.Command{
	Use:   "run [container]",
	Short: "Match rules, rename and rewrite a class container",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadRunConfig(cmd.Flags(), args)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine := obfuscate.New(logger)
		var bar *progressbar.ProgressBar
		if showBar {
			engine.Progress = func(done, total int) {
				if bar == nil {
					bar = newProgressBar(total, "verify")
				}
				_ = bar.Set(done)
			}
		}

		res, err := engine.Run(ctx, cfg)
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}
		if res != nil {
			printDiagnostics(res)
		}
		if err != nil {
			exitWithError(res, err)
		}

		verb := "wrote"
		if cfg.DryRun {
			verb = "checked"
		}
		fmt.Printf("%s %s %s (run %s, %s)\n", okStyle.Sprint("ok"), verb, cfg.OutputPath(), res.RunID, res.Elapsed.Round(time.Millisecond))
		fmt.Println(res.Summary())
	},
}

func init() {
	addPipelineFlags(runCmd.Flags())
	runCmd.Flags().StringP("output", "o", "", "Where to write the rewritten container (default: in place)")
	runCmd.Flags().StringP("mapping", "m", "", "Write the mapping here (overrides -printmapping)")
	runCmd.Flags().String("expect-mapping", "", "Fail if the produced mapping differs from this file")
	runCmd.Flags().Bool("dry-run", false, "Do everything except writing files")
	runCmd.Flags().BoolVar(&showBar, "progress", true, "Show a progress bar while verifying")
}

// addPipelineFlags registers the flags shared by every command that loads
// a container and rules. obfuscate.LoadConfig picks them up by name.
func addPipelineFlags(fs *pflag.FlagSet) {
	fs.StringP("input", "i", "", "Class container (.json or .json.lz4)")
	fs.StringSliceP("rules", "r", nil, "Proguard rule files, comma separated or repeated")
	fs.String("apply-mapping", "", "Reuse names from this mapping (overrides -applymapping)")
	fs.Int("workers", 0, "Parallel matching workers (default: one per CPU)")
	fs.Bool("unique-members", false, "Give every member a globally unique name")
}

// loadRunConfig reads the configuration with the command's flags layered
// on top. A positional container argument is the same as --input.
func loadRunConfig(fs *pflag.FlagSet, args []string) (*obfuscate.Config, error) {
	if len(args) == 1 {
		if err := fs.Set("input", args[0]); err != nil {
			return nil, err
		}
	}
	return obfuscate.LoadConfig(cfgFile, fs)
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// printDiagnostics renders parser warnings and rule diagnostics with their
// source lines.
func printDiagnostics(res *obfuscate.Result) {
	var diags []formatter.Diagnostic
	for _, w := range res.Rules.Warnings {
		diags = append(diags, formatter.FromWarning(w))
	}
	for _, err := range res.Diagnostics {
		if d, ok := formatter.FromError(err); ok {
			diags = append(diags, d)
			continue
		}
		logger.Warn("Diagnostic", zap.Error(err))
	}
	if len(diags) > 0 {
		fmt.Fprint(os.Stderr, formatter.Format(diags, formatter.Sources(diags)))
	}
}

// exitWithError reports err in the most readable form available and exits.
func exitWithError(res *obfuscate.Result, err error) {
	if d, ok := formatter.FromError(err); ok {
		fmt.Fprint(os.Stderr, formatter.Format([]formatter.Diagnostic{d}, formatter.Sources([]formatter.Diagnostic{d})))
		os.Exit(1)
	}
	if errors.Is(err, obfuscate.ErrMappingMismatch) && res != nil {
		fmt.Fprintln(os.Stderr, "mapping differs from expected:")
		printDiff(res.MappingDiff)
		os.Exit(1)
	}
	logger.Fatal("Run failed", zap.Error(err))
}

func printDiff(diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "-"):
			delStyle.Fprint(os.Stderr, line)
		case strings.HasPrefix(line, "+"):
			addStyle.Fprint(os.Stderr, line)
		default:
			fmt.Fprint(os.Stderr, line)
		}
	}
}
