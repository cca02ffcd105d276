// Command tbs-dealer runs a trusted dealer for a mint federation: it splits
// per-denomination signing keys between guardians and writes their encrypted
// keystores.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newRootCommand(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "tbs-dealer",
		Short:         "Trusted dealer for threshold blind signature keys",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return loadConfigFile(v)
		},
	}
	flags := root.PersistentFlags()
	flags.String(ConfigFileKey, "", "Config file (yaml, json or toml)")
	flags.Bool(DebugKey, false, "Enable debug logging")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	root.AddCommand(newKeygenCommand(v), newInspectCommand(v))
	return root
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if v.GetBool(DebugKey) {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	v := newViper()
	if err := newRootCommand(v).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
