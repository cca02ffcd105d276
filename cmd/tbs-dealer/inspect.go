package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/canopy-network/canopy/lib/tbs"
	"github.com/canopy-network/canopy/lib/tbs/keystore"
	"github.com/canopy-network/canopy/lib/tbs/tiered"
)

// inspectReport is what inspect prints. It never contains secrets.
type inspectReport struct {
	ShareIndex tbs.ShareIndex                   `json:"share_index"`
	Tiers      []tiered.Amount                  `json:"tiers"`
	Decrypted  bool                             `json:"decrypted"`
	PublicKeys tiered.Tiered[*tbs.PublicKeySet] `json:"public_keys"`
}

func newInspectCommand(v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "inspect <keystore>",
		Short: "Print the public part of a guardian keystore",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runInspect(v, args[0], c.OutOrStdout())
		},
	}
	c.Flags().Bool(DecryptKey, false, "Also decrypt the keystore with TBS_PASSPHRASE to check it")
	if err := v.BindPFlags(c.Flags()); err != nil {
		panic(err)
	}
	return c
}

func runInspect(v *viper.Viper, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	header, err := keystore.ReadHeader(data)
	if err != nil {
		return err
	}
	report := inspectReport{
		ShareIndex: header.ShareIndex,
		Tiers:      header.PublicKeys.Tiers(),
		PublicKeys: header.PublicKeys,
	}

	if v.GetBool(DecryptKey) {
		passphrase, err := passphraseFor(v, header.ShareIndex)
		if err != nil {
			return err
		}
		defer tbs.ZeroizeBytes(passphrase)
		if _, err := keystore.Open(data, passphrase); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		report.Decrypted = true
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
