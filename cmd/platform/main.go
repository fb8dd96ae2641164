package main

import (
	"context"
	"fmt"
	"os"

	clicommon "github.com/klothoplatform/platform/pkg/cli_common"
	"github.com/spf13/cobra"
)

var commonCfg clicommon.CommonConfig

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "platform",
		Short:         "Plan cloud components declared in a project file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	clicommon.SetupRoot(root, &commonCfg)

	root.AddCommand(newPlanCmd())
	root.AddCommand(newSiteCmd())
	root.AddCommand(newTypesCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
