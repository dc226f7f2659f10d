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
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewSummarizeCmd creates the summarize command
func NewSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [request-filter.json]",
		Short: "Summarize the operational learnings matching a request filter",
		Long: `Generate a primary and a secondary summary of operational learnings.

The command runs the full summarization pipeline:
1. Query the GO ops-learning table with the request filter
2. Contextualize excerpts with their appeal year and name
3. Deduplicate, prioritize and budget excerpts per summary
4. Build the prompt and generate the summary with Gemini
5. Validate, repair or regenerate the JSON and write it to disk
6. Optionally score the summaries with G-Eval prompts (--evaluate)

Examples:
  opslearning summarize data/request_filter.json
  opslearning summarize --primary-out out/primary.json --secondary-out out/secondary.json filter.json
  opslearning summarize --input learnings.csv --export-dir out filter.json
  opslearning summarize --evaluate --evaluation-out out/evaluation.json filter.json
  opslearning summarize --dry-run filter.json`,
		Args: cobra.ExactArgs(1),
		RunE: summarizeRun,
	}

	// Flags
	cmd.Flags().String("primary-out", "primary_summary.json", "Output path of the primary summary")
	cmd.Flags().String("secondary-out", "secondary_summary.json", "Output path of the secondary summary")
	cmd.Flags().String("input", "", "CSV of excerpts used instead of querying the GO API")
	cmd.Flags().String("export-dir", "", "Directory for the intermediate CSV tables")
	cmd.Flags().Bool("dry-run", false, "Print the prompts without calling the model")
	cmd.Flags().Bool("evaluate", false, "Score the generated summaries")
	cmd.Flags().String("evaluation-out", "evaluation.json", "Output path of the evaluation")

	return cmd
}

func summarizeRun(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	// Get flags
	filterPath := args[0]
	primaryOut, _ := cmd.Flags().GetString("primary-out")
	secondaryOut, _ := cmd.Flags().GetString("secondary-out")
	inputPath, _ := cmd.Flags().GetString("input")
	exportDir, _ := cmd.Flags().GetString("export-dir")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	evaluate, _ := cmd.Flags().GetBool("evaluate")
	evaluationOut, _ := cmd.Flags().GetString("evaluation-out")

	if dryRun && evaluate {
		return fmt.Errorf("--evaluate needs generated summaries and cannot be combined with --dry-run")
	}

	filter, err := pipeline.LoadRequestFilter(filterPath)
	if err != nil {
		return err
	}

	builder := pipeline.NewBuilder(cfg)
	if dryRun {
		builder = builder.ForDryRun().WithoutStore()
	} else if err := cfg.RequireGemini(); err != nil {
		return err
	}
	if evaluate {
		builder = builder.WithEvaluation()
	}

	ctx := context.Background()
	pipe, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := pipe.Close(); err != nil {
			logger.Error("Failed to close pipeline", err)
		}
	}()

	result, err := pipe.Run(ctx, pipeline.Options{
		Filter:        filter,
		InputPath:     inputPath,
		PrimaryPath:   primaryOut,
		SecondaryPath: secondaryOut,
		ExportDir:     exportDir,
		DryRun:        dryRun,
	})
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if dryRun {
		for _, mr := range result.Modes {
			fmt.Fprintf(out, "===== %s prompt (%d excerpts) =====\n%s\n\n", mr.Mode, mr.Prioritized, mr.Prompt)
		}
		estimate := pipe.EstimateCost(result, cfg.AI.Gemini.Model, cfg.Summary.MaxAttempts, cfg.AI.Gemini.PromptTokenLimit)
		fmt.Fprint(out, estimate.FormatEstimate())
		return nil
	}

	var failed []error
	fmt.Fprintf(out, "Run %s: %d learnings retrieved\n", result.RunID, result.Retrieved)
	for _, mr := range result.Modes {
		if mr.Err != nil {
			fmt.Fprintf(out, "  %s: failed after validation: %v\n", mr.Mode, mr.Err)
			failed = append(failed, mr.Err)
			continue
		}
		fmt.Fprintf(out, "  %s: %d excerpts, %d attempt(s) -> %s\n", mr.Mode, mr.Prioritized, mr.Summary.Attempts, mr.Path)
	}
	fmt.Fprintf(out, "Done in %s\n", time.Since(startTime).Round(time.Millisecond))

	if evaluate {
		if err := writeEvaluation(ctx, cmd, pipe, result, pipeline.SummaryContents(result), result.Stats.StartTime, evaluationOut); err != nil {
			failed = append(failed, fmt.Errorf("evaluation failed: %w", err))
		}
	}

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	return nil
}
