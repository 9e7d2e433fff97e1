// Package cli is the fleetctl command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eniac111/fleetctl/internal/config"
	"github.com/eniac111/fleetctl/internal/inventory"
	"github.com/eniac111/fleetctl/internal/logging"
	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/types"
)

var rootLong = `Run one task against many hosts over SSH, without an agent.

Hosts come from an inventory (-i): a TOML, JSON or YAML file, or an
executable printing a JSON inventory. Narrow them with -H (one host id) or
-t (a tag expression such as 'web & !(canary | staging)'). -H wins over -t.

The result is a JSON (or YAML) report on stdout, one entry per host, in
inventory order. Any other subcommand NAME runs fleetctl-NAME from $PATH
with FLEETCTL_INVENTORY, FLEETCTL_HOST_ID and FLEETCTL_HOST_TAGS set.`

// ExitError carries the process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// app is the state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger zerolog.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func NewDefaultCommand() *cobra.Command {
	return NewCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewCommand(in io.Reader, out io.Writer, errOut io.Writer) *cobra.Command {
	a := &app{v: config.New(), logger: log.Logger, in: in, out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           "fleetctl [flags] COMMAND",
		Short:         "Agentless task execution over SSH",
		Long:          rootLong,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.external(args[0], args[1:])
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	// Everything after an external subcommand name belongs to it.
	cmd.Flags().SetInterspersed(false)

	flags := cmd.PersistentFlags()
	flags.StringP("inventory", "i", "", "inventory file, or executable printing a JSON inventory")
	flags.StringP("host-id", "H", "", "run on the host with this id only")
	flags.StringP("host-tags", "t", "", "run on the hosts matching this tag expression")
	flags.BoolP("parallel", "p", false, "run hosts concurrently")
	flags.Int("workers", 0, "parallel worker count (default GOMAXPROCS)")
	flags.StringP("output", "o", config.OutputJSON, "report format: json or yaml")
	flags.Duration("connect-timeout", ssh.DefaultConnectTimeout, "bound on TCP dial plus SSH handshake, 0 for none")
	flags.String("known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts, which trusts no host when missing)")
	flags.StringSlice("identity", nil, "private key offered to every host, repeatable")
	flags.Bool("insecure-ignore-host-key", false, "skip host key verification")
	flags.String("ssh-config", "", "ssh_config file for host aliases (default ~/.ssh/config)")
	flags.String("log-level", "", "trace, debug, info, warn, error or off")

	bind := map[string]string{
		config.KeyInventory:             "inventory",
		config.KeyHostID:                "host-id",
		config.KeyHostTags:              "host-tags",
		config.KeyParallel:              "parallel",
		config.KeyWorkers:               "workers",
		config.KeyOutput:                "output",
		config.KeyConnectTimeout:        "connect-timeout",
		config.KeyKnownHosts:            "known-hosts",
		config.KeyIdentityFiles:         "identity",
		config.KeyInsecureIgnoreHostKey: "insecure-ignore-host-key",
		config.KeySSHConfig:             "ssh-config",
		config.KeyLogLevel:              "log-level",
	}
	for key, name := range bind {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	cmd.AddCommand(newCmdInfo(a))
	cmd.AddCommand(newCmdDo(a))
	cmd.AddCommand(newCmdUpload(a))
	cmd.AddCommand(newCmdDownload(a))
	cmd.AddCommand(newCmdModule(a))
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.Configure(logging.ProfileRuntime, cfg.LogLevel, a.errOut)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) inventory() (*inventory.Inventory, error) {
	if a.cfg.Inventory == "" {
		a.logger.Info().Msg("no inventory provided, using empty inventory")
		return inventory.New(), nil
	}
	start := time.Now()
	inv, err := inventory.Load(a.cfg.Inventory)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Str("inventory", a.cfg.Inventory).
		Int("hosts", len(inv.Hosts)).
		Dur("took", time.Since(start)).
		Msg("inventory loaded")
	return inv, nil
}

// hosts resolves the selected host list.
func (a *app) hosts() ([]types.Host, error) {
	inv, err := a.inventory()
	if err != nil {
		return nil, err
	}
	return selectHosts(inv, a.cfg.HostID, a.cfg.HostTags, a.logger)
}

// selectHosts narrows inv by host id, else by tag expression, else returns
// every host.
func selectHosts(inv *inventory.Inventory, hostID, hostTags string, logger zerolog.Logger) ([]types.Host, error) {
	if hostID != "" {
		id, err := types.NewHostID(hostID)
		if err != nil {
			return nil, err
		}
		host, ok := inv.GetHostByID(id)
		if !ok {
			logger.Warn().Str("host", hostID).Msg("host not found in inventory, ignoring")
			return []types.Host{}, nil
		}
		return []types.Host{host}, nil
	}
	if hostTags != "" {
		return inv.GetHostsByTagQuery(hostTags)
	}
	return inv.Hosts, nil
}

func (a *app) connector() (ssh.Connector, error) {
	cfg := a.cfg.SSH()
	cfg.Logger = &a.logger
	return ssh.NewClient(cfg)
}
