package cli

import (
	"os"
	"strconv"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"

	"github.com/eniac111/fleetctl/internal/tasks/download"
	"github.com/eniac111/fleetctl/internal/tasks/exec"
	"github.com/eniac111/fleetctl/internal/tasks/info"
	"github.com/eniac111/fleetctl/internal/tasks/module"
	"github.com/eniac111/fleetctl/internal/tasks/upload"
	"github.com/eniac111/fleetctl/internal/types"
)

func newCmdInfo(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Report the selected hosts as the inventory describes them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(a, info.New())
		},
	}
}

func newCmdDo(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "do -- COMMAND...",
		Short: "Run a command on every selected host",
		Long: `Run a command on every selected host.

The command is a template: {{ .host.id }}, {{ .host.address }},
{{ .host.user }}, {{ .host.tags }} and {{ .host.vars.NAME }} are expanded
per host. A single argument is passed to the remote shell as is; several
arguments are quoted and joined.`,
		Example: `  fleetctl -t web do -- 'systemctl reload nginx'
  fleetctl -i hosts.toml do -- echo '{{ .host.id }} says {{ .host.vars.msg }}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connector()
			if err != nil {
				return err
			}
			return execute(a, exec.New(conn, joinCommand(args)))
		},
	}
}

func joinCommand(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return shellescape.QuoteCommand(args)
}

func newCmdUpload(a *app) *cobra.Command {
	var template bool
	cmd := &cobra.Command{
		Use:   "upload [-T] LOCAL REMOTE [MODE]",
		Short: "Copy a local file to every selected host",
		Long: `Copy a local file to every selected host.

MODE is octal and defaults to 0644. With -T the file is a template rendered
for each host before it is sent.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := upload.DefaultMode
			if len(args) == 3 {
				v, err := strconv.ParseUint(args[2], 8, 32)
				if err != nil {
					return types.Wrapf(types.ErrOther, err, "invalid file mode %q", args[2])
				}
				mode = os.FileMode(v)
			}
			conn, err := a.connector()
			if err != nil {
				return err
			}
			if template {
				return execute(a, upload.NewTemplate(conn, args[0], args[1], mode))
			}
			return execute(a, upload.NewFile(conn, args[0], args[1], mode))
		},
	}
	cmd.Flags().BoolVarP(&template, "template", "T", false, "render LOCAL as a template for each host")
	return cmd
}

func newCmdDownload(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download REMOTE LOCAL",
		Short: "Fetch a file from every selected host",
		Long: `Fetch a file from every selected host into ./<host id>/LOCAL.

LOCAL must be a relative path.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connector()
			if err != nil {
				return err
			}
			return execute(a, download.New(conn, args[0], args[1]))
		},
	}
}

func newCmdModule(a *app) *cobra.Command {
	var modulePath, dataPath string
	cmd := &cobra.Command{
		Use:   "module --module PATH [--data PATH]",
		Short: "Upload an executable to every selected host and run it",
		Long: `Upload an executable to $HOME/.local/fleetctl/modules on every selected
host and run it with a JSON document on stdin.

The document is the --data file deep-merged with the host variable
module_<executable name>; either may be absent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := a.connector()
			if err != nil {
				return err
			}
			return execute(a, module.New(conn, modulePath, dataPath))
		},
	}
	cmd.Flags().StringVarP(&modulePath, "module", "m", "", "module executable")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON document with the module's default data")
	_ = cmd.MarkFlagRequired("module")
	return cmd
}
