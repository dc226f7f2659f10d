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

	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/reports"
	"github.com/spf13/cobra"
)

// NewUnclosedReportsCmd creates the unclosed-reports command
func NewUnclosedReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unclosed-reports",
		Short: "List DREF final reports that are not published yet",
		Long: `List unpublished DREF final reports whose final report document has
already been uploaded, with their National Society, region and document link.`,
		Args: cobra.NoArgs,
		RunE: unclosedReportsRun,
	}

	cmd.Flags().StringP("output", "o", "unclosed_reports.csv", "Output CSV file")

	return cmd
}

func unclosedReportsRun(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	if err := cfg.RequireGoToken(); err != nil {
		logger.Warn("No GO API token set, unpublished reports may not be visible")
	}

	api := goapi.NewClientFromConfig(cfg.GoAPI)
	unclosed, err := reports.Find(context.Background(), api)
	if err != nil {
		return fmt.Errorf("failed to find unclosed reports: %w", err)
	}

	if err := reports.Write(output, unclosed); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d unclosed reports written to %s\n", len(unclosed), output)
	return nil
}
