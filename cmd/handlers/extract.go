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
	"fmt"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/classify"
	"github.com/IFRCGo/extractor-operational-learnings/internal/extract"
	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/spf13/cobra"
)

// NewExtractCmd creates the extract command
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract and tag learnings from DREF final reports",
		Long: `Extract lessons learnt and challenges from public DREF final reports
that have not been processed yet, tag them with a PER component and a sector,
and post them to the GO ops-learning table.

Examples:
  opslearning extract
  opslearning extract --dry-run --export learnings.csv`,
		Args: cobra.NoArgs,
		RunE: extractRun,
	}

	cmd.Flags().Bool("dry-run", false, "Extract and tag without posting")
	cmd.Flags().String("export", "", "Write the extracted records to a CSV file")
	cmd.Flags().Duration("post-delay", 200*time.Millisecond, "Pause between posts")

	return cmd
}

func extractRun(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	exportPath, _ := cmd.Flags().GetString("export")
	postDelay, _ := cmd.Flags().GetDuration("post-delay")

	if !dryRun {
		if err := cfg.RequireGoToken(); err != nil {
			return err
		}
	}

	logger.Info("Starting extraction", "dry_run", dryRun, "export", exportPath)

	api := goapi.NewClientFromConfig(cfg.GoAPI)
	classifier := classify.NewClientFromConfig(cfg.Classifier)

	result, err := extract.NewExtractor(api, classifier).Run(context.Background(), extract.Options{
		DryRun:     dryRun,
		ExportPath: exportPath,
		PostDelay:  postDelay,
	})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reports processed: %d\n", result.Reports)
	fmt.Fprintf(out, "Excerpts extracted: %d\n", result.Rows)
	fmt.Fprintf(out, "Learnings formatted: %d\n", len(result.Records))
	if !dryRun {
		fmt.Fprintf(out, "Posted: %d, failed: %d\n", result.Posted, result.Failed)
	}
	return nil
}
