package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sasquatch989/mockingj/pkg/cli/internal/output"
	"github.com/sasquatch989/mockingj/pkg/engine"
)

func newEndpointsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "endpoints <spec>",
		Aliases: []string{"ls"},
		Short:   "List the operations a document declares",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			graph, err := loadSpec(cmd.Context(), args[0], cfg, quietLogger(cmd, cfg))
			if err != nil {
				return err
			}

			eps := graph.Endpoints()
			infos := make([]engine.EndpointInfo, 0, len(eps))
			for _, ep := range eps {
				infos = append(infos, engine.DescribeEndpoint(ep))
			}
			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), infos)
			}

			tw := output.Table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "METHOD\tPATH\tSTATUSES\tDEFAULT\tOPERATION")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					info.Method, info.Path, strings.Join(info.Statuses, ","), info.Default, info.OperationID)
			}
			return tw.Flush()
		},
	}
}
