package main

import (
	"fmt"
	"strings"

	"github.com/klothoplatform/platform/pkg/site"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "site <framework> <dir>",
		Short: "Print the deployment plan of a built site",
		Long:  "Print the deployment plan of a built site. Supported frameworks: " + strings.Join(site.Frameworks(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// planners may write files (eg the Remix server handler), keep them off the disk
			fsys := afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(afero.NewOsFs()), afero.NewMemMapFs())
			plan, err := site.PlanFramework(fsys, args[0], args[1])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(plan); err != nil {
				return fmt.Errorf("could not write plan: %w", err)
			}
			return enc.Close()
		},
	}
}
