package cmd

import (
	"reflect"
	"testing"

	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/tasks"
)

func parseNodeCommand(t *testing.T, cmd *cobra.Command, args ...string) []string {
	t.Helper()
	t.Cleanup(func() {
		cmd.Flags().Set("parallel", "0")
		cmd.Flags().Set("sudo", "false")
	})

	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parsing %v: %v", args, err)
	}
	return cmd.Flags().Args()
}

func TestNodeCommandsPassFlagsToTheNode(t *testing.T) {
	tests := []struct {
		cmd          *cobra.Command
		build        func(cmd *cobra.Command, args []string) []tasks.CommandSpec
		args         []string
		expected     tasks.CommandSpec
		wantParallel int
	}{
		{execCmd, buildExec, []string{"web", "ls", "-la"}, tasks.Raw("ls -la"), 0},
		{execCmd, buildExec, []string{"web", "ps", "-p", "1"}, tasks.Raw("ps -p 1"), 0},
		{execCmd, buildExec, []string{"-p", "3", "--sudo", "web", "ps", "-p", "1"}, tasks.Raw("ps -p 1").WithSudo(true), 3},
		{installCmd, buildInstall, []string{"web", "nginx", "-y"}, tasks.Install("nginx", "-y"), 0},
		{stopCmd, buildStop, []string{"--sudo", "web", "nginx"}, tasks.Stop("nginx").WithSudo(true), 0},
	}

	for _, test := range tests {
		args := parseNodeCommand(t, test.cmd, test.args...)
		if len(args) == 0 || args[0] != "web" {
			t.Fatalf("%v: expected the cluster as first argument, got %v", test.args, args)
		}

		commands := test.build(test.cmd, args)
		if len(commands) != 1 || !reflect.DeepEqual(commands[0], test.expected) {
			t.Errorf("%v: expected %+v, got %+v", test.args, test.expected, commands)
		}
		if parallel := readExecutionFlags(test.cmd).parallel; parallel != test.wantParallel {
			t.Errorf("%v: expected parallel %d, got %d", test.args, test.wantParallel, parallel)
		}

		test.cmd.Flags().Set("parallel", "0")
		test.cmd.Flags().Set("sudo", "false")
	}
}
