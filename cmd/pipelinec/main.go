// Command pipelinec compiles a pipeline source file to SPIR-V.
//
// Usage:
//
//	pipelinec [flags] <input.pipe>
//
// Examples:
//
//	pipelinec shader.pipe                 # Compile and print to stdout
//	pipelinec -o shader.spv shader.pipe    # Compile to file
//	pipelinec --debug shader.pipe          # Compile with debug tracing
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gogpu/pipeline"
)

var (
	output       string
	debugFlag    bool
	validateFlag bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipelinec <input.pipe>",
		Short: "Compile pipeline source to a SPIR-V module",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&debugFlag, "debug", false, "enable debug tracing")
	cmd.Flags().BoolVar(&validateFlag, "validate", true, "validate IR before emission")

	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	opts := pipeline.CompileOptions{
		Validate: validateFlag,
		Debug:    debugFlag,
		Logger:   logrus.StandardLogger(),
	}

	spirvBytes, err := pipeline.CompileWithOptions(string(source), opts)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", inputPath, err)
	}

	if output != "" {
		if err := os.WriteFile(output, spirvBytes, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %s to %s (%d bytes)\n", inputPath, output, len(spirvBytes))
		return nil
	}

	_, err = os.Stdout.Write(spirvBytes)
	return err
}
