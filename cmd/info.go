package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/clustermanager"
	"gopkg.in/yaml.v3"
)

// infoCmd lists the servers of a cluster
var infoCmd = &cobra.Command{
	Use:     "info <cluster>",
	Aliases: []string{"ls"},
	Short:   "lists name, addresses and status of every server in a cluster",
	Args:    cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		switch output {
		case "table", "json", "yaml":
		default:
			return fmt.Errorf("unknown output format '%s', use table, json or yaml", output)
		}
		return validateClusterInArgumentExists(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		spec := AppConf.ClusterSpec(args[0])
		nodes, err := AppConf.Reconciler.ClusterInfo(AppConf.Context, spec)
		FatalOnError(err)

		output, _ := cmd.Flags().GetString("output")
		FatalOnError(writeNodes(os.Stdout, output, nodes))
	},
}

func writeNodes(w io.Writer, output string, nodes []clustermanager.Node) error {
	if nodes == nil {
		nodes = []clustermanager.Node{}
	}

	switch output {
	case "json":
		data, err := json.MarshalIndent(nodes, "", "    ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(nodes); err != nil {
			return err
		}
		return encoder.Close()
	}

	tw := new(tabwriter.Writer)
	tw.Init(w, 0, 8, 2, '\t', 0)
	fmt.Fprintln(tw, "NAME\tPUBLIC IP\tPRIVATE IP\tSTATUS\tSIZE")
	for _, node := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s", node.Name, node.PublicIP, node.PrivateIP, node.Status, node.SizeSlug)
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringP("output", "o", "table", "output format: table, json or yaml")
}
