/*
Copyright © 2025 IFRC GO

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/pipeline"
	"github.com/IFRCGo/extractor-operational-learnings/internal/quality"
	"github.com/spf13/cobra"
)

// NewQualityCmd creates the parent quality command with subcommands
func NewQualityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Evaluate the quality of generated summaries",
		Long: `Score primary and secondary summaries with G-Eval prompts.

Subcommands:
  evaluate  - Score saved summaries against the prompts they were built from

Examples:
  # Evaluate the summaries of a request filter
  opslearning quality evaluate data/request_filter.json

  # Evaluate summaries written elsewhere
  opslearning quality evaluate --primary out/primary.json --secondary out/secondary.json filter.json`,
	}

	// Add subcommands
	cmd.AddCommand(NewQualityEvaluateCmd())

	return cmd
}

// NewQualityEvaluateCmd creates the quality evaluate command
func NewQualityEvaluateCmd() *cobra.Command {
	var primaryPath string
	var secondaryPath string
	var inputPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "evaluate [request-filter.json]",
		Short: "Score saved summaries on relevance, coherence, consistency and fluency",
		Long: `Rebuild the prompts of a request filter and score saved summaries.

The excerpts are retrieved and prioritized again, without generating new
summaries, so each summary is scored against the data it was built from.
Every summary gets a 1-5 relevance, coherence and consistency score and a
1-3 fluency score, along with the number of retrieved, prioritized and
cited excerpts and the input and output token counts.

Missing summary files are skipped.

Examples:
  opslearning quality evaluate filter.json
  opslearning quality evaluate --input learnings.csv --output out/evaluation.json filter.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return qualityEvaluateRun(cmd, args[0], map[core.Mode]string{
				core.ModePrimary:   primaryPath,
				core.ModeSecondary: secondaryPath,
			}, inputPath, outputPath)
		},
	}

	cmd.Flags().StringVar(&primaryPath, "primary", "primary_summary.json", "Primary summary to evaluate")
	cmd.Flags().StringVar(&secondaryPath, "secondary", "secondary_summary.json", "Secondary summary to evaluate")
	cmd.Flags().StringVar(&inputPath, "input", "", "CSV of excerpts used instead of querying the GO API")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "evaluation.json", "Output path of the evaluation")

	return cmd
}

func qualityEvaluateRun(cmd *cobra.Command, filterPath string, summaryPaths map[core.Mode]string, inputPath, outputPath string) error {
	filter, err := pipeline.LoadRequestFilter(filterPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireGemini(); err != nil {
		return err
	}

	summaries := make(map[core.Mode]map[string]any)
	var date time.Time
	for _, mode := range []core.Mode{core.ModePrimary, core.ModeSecondary} {
		path := summaryPaths[mode]
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Summary file not found, skipping", "mode", mode, "path", path)
			continue
		} else if err != nil {
			return fmt.Errorf("failed to stat summary %s: %w", path, err)
		}

		content, err := pipeline.LoadSummary(path)
		if err != nil {
			return err
		}
		summaries[mode] = content
		if info.ModTime().After(date) {
			date = info.ModTime()
		}
	}
	if len(summaries) == 0 {
		return fmt.Errorf("no summary found to evaluate")
	}

	ctx := context.Background()
	pipe, err := pipeline.NewBuilder(cfg).ForDryRun().WithoutStore().WithEvaluation().Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := pipe.Close(); err != nil {
			logger.Error("Failed to close pipeline", err)
		}
	}()

	result, err := pipe.Run(ctx, pipeline.Options{
		Filter:    filter,
		InputPath: inputPath,
		DryRun:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild prompts: %w", err)
	}

	return writeEvaluation(ctx, cmd, pipe, result, summaries, date, outputPath)
}

// writeEvaluation scores the summaries, saves the evaluation and prints the
// report
func writeEvaluation(ctx context.Context, cmd *cobra.Command, pipe *pipeline.Pipeline, result *pipeline.Result, summaries map[core.Mode]map[string]any, date time.Time, outputPath string) error {
	evals, err := pipe.Evaluate(ctx, result, summaries, date)
	if err != nil {
		return err
	}
	if err := quality.Write(outputPath, evals); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, quality.FormatReport(evals))
	fmt.Fprintf(out, "Evaluation written to %s\n", outputPath)
	return nil
}
