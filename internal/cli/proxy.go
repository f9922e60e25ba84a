package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeff-barlow-spady/mediascribe/config"
)

type proxyFlags struct {
	enable  bool
	disable bool
	kind    string
	host    string
	port    string
	user    string
	pass    string
	noAuth  bool
}

func newProxyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Show, change or test the download proxy",
	}
	cmd.AddCommand(newProxyShowCommand())
	cmd.AddCommand(newProxySetCommand())
	cmd.AddCommand(newProxyTestCommand())
	return cmd
}

// maskedProxy hides the password in output
func maskedProxy(cfg config.ProxyConfig) config.ProxyConfig {
	if cfg.Pass != "" {
		cfg.Pass = "****"
	}
	return cfg
}

func newProxyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved proxy settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := resolvePaths()
			if err != nil {
				return err
			}
			cfg := maskedProxy(config.LoadProxyConfig(paths.ConfigFile))
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Enabled: %v\n", cfg.Enabled)
			fmt.Fprintf(out, "Type:    %s\n", cfg.Type)
			fmt.Fprintf(out, "Host:    %s\n", cfg.Host)
			fmt.Fprintf(out, "Port:    %s\n", cfg.Port)
			if cfg.HasAuth() {
				fmt.Fprintf(out, "Auth:    basic (%s)\n", cfg.User)
			} else {
				fmt.Fprintln(out, "Auth:    none")
			}
			return nil
		},
	}
}

// apply merges the changed flags into cfg and validates the result
func (f *proxyFlags) apply(cmd *cobra.Command, cfg config.ProxyConfig) (config.ProxyConfig, error) {
	if f.enable && f.disable {
		return cfg, fmt.Errorf("--enable and --disable are mutually exclusive")
	}
	if f.enable {
		cfg.Enabled = true
	}
	if f.disable {
		cfg.Enabled = false
	}
	if cmd.Flags().Changed("type") {
		cfg.Type = f.kind
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	if cmd.Flags().Changed("user") {
		cfg.User = f.user
	}
	if cmd.Flags().Changed("pass") {
		cfg.Pass = f.pass
	}
	if f.noAuth {
		cfg.User, cfg.Pass = "", ""
	}

	known := false
	for _, t := range config.ProxyTypes {
		if cfg.Type == t {
			known = true
		}
	}
	if !known {
		return cfg, fmt.Errorf("unknown proxy type %q (want one of %v)", cfg.Type, config.ProxyTypes)
	}
	if cfg.Enabled {
		if cfg.Host == "" {
			return cfg, fmt.Errorf("proxy host is required")
		}
		if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
			return cfg, fmt.Errorf("invalid proxy port %q", cfg.Port)
		}
	}
	return cfg, nil
}

func newProxySetCommand() *cobra.Command {
	flags := &proxyFlags{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the saved proxy settings",
		Example: `  mediascribe proxy set --enable --type socks5h --host 127.0.0.1 --port 1080
  mediascribe proxy set --disable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			cfg, err := flags.apply(cmd, svc.Proxy())
			if err != nil {
				return err
			}
			if err := svc.SaveProxy(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proxy saved (enabled=%v %s)\n", cfg.Enabled, maskedURL(cfg))
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.enable, "enable", false, "Use the proxy")
	cmd.Flags().BoolVar(&flags.disable, "disable", false, "Do not use the proxy")
	cmd.Flags().StringVar(&flags.kind, "type", config.ProxyHTTP, "Proxy type: http, socks5, socks5h")
	cmd.Flags().StringVar(&flags.host, "host", "", "Proxy host")
	cmd.Flags().StringVar(&flags.port, "port", "", "Proxy port")
	cmd.Flags().StringVar(&flags.user, "user", "", "User for basic auth")
	cmd.Flags().StringVar(&flags.pass, "pass", "", "Password for basic auth")
	cmd.Flags().BoolVar(&flags.noAuth, "no-auth", false, "Remove saved credentials")
	return cmd
}

func maskedURL(cfg config.ProxyConfig) string {
	return maskedProxy(cfg).URL()
}

func newProxyTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the model hub is reachable through the saved proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			ok, msg := svc.TestProxy(cmd.Context(), svc.Proxy())
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"ok": ok, "message": msg})
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			if !ok {
				return fmt.Errorf("proxy test failed")
			}
			return nil
		},
	}
}
