package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/klothoplatform/platform/pkg/closenicely"
	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/config"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/program"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type planFlags struct {
	stage  string
	output string
}

func newPlanCmd() *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:   "plan <project file>",
		Short: "Print the resources and outputs of a project's components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := config.ReadProject(args[0])
			if err != nil {
				return err
			}
			if flags.stage != "" {
				project.Stage = flags.stage
			}
			stack, err := program.Run(cmd.Context(), project)
			if err != nil {
				return err
			}
			defer stack.Close()

			out := cmd.OutOrStdout()
			if flags.output != "" {
				f, err := os.Create(flags.output)
				if err != nil {
					return err
				}
				defer closenicely.OrDebug(f, zap.String("file", flags.output))
				out = f
			}
			if err := writePlan(out, stack); err != nil {
				return err
			}
			printSummary(cmd.ErrOrStderr(), stack)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.stage, "stage", "s", "", "Stage to plan, overriding the project file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "File to write the plan to instead of stdout")
	return cmd
}

// writePlan writes the resource graph followed by a second document with the outputs of each top-level component.
func writePlan(w io.Writer, stack *component.Stack) error {
	if err := construct.GraphToYAML(stack.Graph(), w); err != nil {
		return fmt.Errorf("could not write resources: %w", err)
	}

	outputs := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range stack.Components() {
		if c.Parent() != nil {
			continue
		}
		var value yaml.Node
		if err := value.Encode(c.RegisteredOutputs()); err != nil {
			return fmt.Errorf("could not encode outputs of %s: %w", c.URN(), err)
		}
		outputs.Content = append(outputs.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c.Name()}, &value)
	}
	if _, err := fmt.Fprintln(w, "---"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "outputs"},
			outputs,
		},
	}); err != nil {
		return err
	}
	return enc.Close()
}

func printSummary(w io.Writer, stack *component.Stack) {
	resources, _ := stack.Graph().Order()
	pending := stack.Outputs().Pending()

	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s/%s: ", stack.App, stack.Stage) //nolint:errcheck
	fmt.Fprintf(w, "%s, %s",
		color.GreenString("%d components", len(stack.Components())),
		color.GreenString("%d resources", resources),
	)
	if digest, err := construct.Hash(stack.Graph()); err == nil {
		fmt.Fprint(w, color.HiBlackString(" (%x)", digest[:6]))
	}
	fmt.Fprintln(w)
	if len(pending) > 0 {
		fmt.Fprintln(w, color.YellowString("%d attributes are known after deploy", len(pending)))
	}
}
