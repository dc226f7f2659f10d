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
	"github.com/IFRCGo/extractor-operational-learnings/internal/pipeline"
	"github.com/IFRCGo/extractor-operational-learnings/internal/preferences"
	"github.com/spf13/cobra"
)

// NewPrioritizationListsCmd creates the prioritization-lists command
func NewPrioritizationListsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prioritization-lists",
		Short: "Regenerate the PER component preference lists",
		Long: `Rebuild the country, region and global component preference lists from
the latest PER prioritization of every National Society. The files are
written to the paths configured under preferences.`,
		Args: cobra.NoArgs,
		RunE: prioritizationListsRun,
	}

	cmd.Flags().String("countries", "", "Output path of the country list (overrides config)")
	cmd.Flags().String("regions", "", "Output path of the region list (overrides config)")
	cmd.Flags().String("global", "", "Output path of the global list (overrides config)")

	return cmd
}

func prioritizationListsRun(cmd *cobra.Command, args []string) error {
	paths := preferences.Paths{
		Countries: cfg.Preferences.Countries,
		Regions:   cfg.Preferences.Regions,
		Global:    cfg.Preferences.Global,
	}
	if v, _ := cmd.Flags().GetString("countries"); v != "" {
		paths.Countries = v
	}
	if v, _ := cmd.Flags().GetString("regions"); v != "" {
		paths.Regions = v
	}
	if v, _ := cmd.Flags().GetString("global"); v != "" {
		paths.Global = v
	}

	api := goapi.NewClientFromConfig(cfg.GoAPI)
	lists, err := pipeline.GeneratePreferenceLists(context.Background(), api, paths)
	if err != nil {
		return fmt.Errorf("failed to generate preference lists: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Countries: %d -> %s\n", len(lists.Countries), paths.Countries)
	fmt.Fprintf(out, "Regions: %d -> %s\n", len(lists.Regions), paths.Regions)
	fmt.Fprintf(out, "Global components: %d -> %s\n", len(lists.Global), paths.Global)
	return nil
}
