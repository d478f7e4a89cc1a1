package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultGatewayURL = "http://localhost:8080"

// errInvalid makes the process exit 1 after the error map was printed.
var errInvalid = errors.New("validation failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// options are the settings shared by every subcommand.
type options struct {
	cfgFile    string
	gatewayURL string
	debounce   time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "doozictl",
		Short: "Doozi form normalization and validation toolkit",
		Long: `doozictl runs the Doozi input normalizer, validation presets and
response reconciler locally, and watches username availability against a
running gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ~/.doozi/config.yaml)")
	root.PersistentFlags().StringVar(&opts.gatewayURL, "gateway", "", "gateway base URL (default "+defaultGatewayURL+")")

	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newUsernameCmd(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the doozictl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "doozictl %s\n", version)
		},
	})
	return root
}

// load reads ~/.doozi/config.yaml and DOOZI_* variables. Flags win.
func (o *options) load(cmd *cobra.Command) error {
	v := viper.New()
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".doozi"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("doozi")
	v.AutomaticEnv()
	v.SetDefault("gateway_url", defaultGatewayURL)
	v.SetDefault("debounce", "500ms")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if o.gatewayURL == "" {
		o.gatewayURL = v.GetString("gateway_url")
	}
	o.debounce = v.GetDuration("debounce")
	return nil
}
