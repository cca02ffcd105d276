package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/canopy-network/canopy/lib/tbs"
	"github.com/canopy-network/canopy/lib/tbs/keystore"
	"github.com/canopy-network/canopy/lib/tbs/tiered"
)

const federationFile = "federation.json"

// Federation is the public output of a dealer run.
type Federation struct {
	Guardians  int                              `json:"guardians"`
	Threshold  int                              `json:"threshold"`
	PublicKeys tiered.Tiered[*tbs.PublicKeySet] `json:"public_keys"`
}

func newKeygenCommand(v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "keygen",
		Short: "Deal per-denomination keys and write guardian keystores",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			log, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runKeygen(v, log)
		},
	}
	flags := c.Flags()
	flags.Int(GuardiansKey, 4, "Number of guardians")
	flags.Int(ThresholdKey, 0, "Signing threshold (0 selects the byzantine threshold)")
	flags.Uint(DenominationBaseKey, 2, "Base of the generated note denominations")
	flags.Uint64(MaxAmountKey, 1_000_000_000_000, "Largest note denomination in msat")
	flags.String(OutputDirKey, ".", "Directory for federation.json and guardian keystores")
	flags.Bool(RequireByzantineKey, false, "Reject thresholds below the byzantine threshold")
	flags.Uint32(KDFTimeKey, keystore.DefaultParams.Time, "Argon2id passes over keystore passphrases")
	flags.Uint32(KDFMemoryKey, keystore.DefaultParams.Memory, "Argon2id memory in KiB")
	flags.Uint8(KDFThreadsKey, keystore.DefaultParams.Threads, "Argon2id parallelism")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return c
}

func runKeygen(v *viper.Viper, log *zap.Logger) error {
	audit := tbs.NewLoggingAuditHandler(log)
	cfg, result, err := parseFederationConfig(v, audit)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		log.Warn("threshold parameters", zap.String("warning", w))
	}

	// Fail before dealing if any guardian lacks a passphrase.
	passphrases := make(map[tbs.ShareIndex][]byte, cfg.Guardians)
	for i := 1; i <= cfg.Guardians; i++ {
		p, err := passphraseFor(v, tbs.ShareIndex(i))
		if err != nil {
			return err
		}
		passphrases[tbs.ShareIndex(i)] = p
	}
	defer func() {
		for _, p := range passphrases {
			tbs.ZeroizeBytes(p)
		}
	}()

	denominations, err := tiered.GenDenominations(cfg.DenominationBase, cfg.MaxAmount)
	if err != nil {
		return err
	}
	log.Info("dealing keys",
		zap.Int("guardians", cfg.Guardians),
		zap.Int("threshold", cfg.Threshold),
		zap.Int("tiers", denominations.Len()))

	dealer := &tbs.Dealer{
		Threshold: cfg.Threshold,
		Keys:      cfg.Guardians,
		Audit:     audit,
	}
	keys, err := dealer.GenerateTiered(denominations)
	if err != nil {
		return fmt.Errorf("dealer failed: %w", err)
	}
	defer keys.Range(func(_ tiered.Amount, k tbs.TierKeys) bool {
		for i := range k.SecretKeyShares {
			k.SecretKeyShares[i].Zeroize()
		}
		return true
	})

	public := tbs.TieredPublicKeySets(keys)
	if err := writeFederation(cfg, public); err != nil {
		return err
	}

	store := keystore.NewStore(cfg.OutputDir,
		keystore.WithParams(cfg.KDF),
		keystore.WithLogger(log))
	for i := 1; i <= cfg.Guardians; i++ {
		idx := tbs.ShareIndex(i)
		secrets, err := tbs.TieredSecretKeyShares(keys, idx)
		if err != nil {
			return err
		}
		ks := &keystore.Keystore{ShareIndex: idx, Secrets: secrets, PublicKeys: public}
		if err := store.Save(ks, passphrases[idx]); err != nil {
			return fmt.Errorf("guardian %d: %w", idx, err)
		}
	}
	log.Info("dealer finished", zap.String("output_dir", cfg.OutputDir))
	return nil
}

func writeFederation(cfg *FederationConfig, public tiered.Tiered[*tbs.PublicKeySet]) error {
	data, err := json.MarshalIndent(Federation{
		Guardians:  cfg.Guardians,
		Threshold:  cfg.Threshold,
		PublicKeys: public,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o700); err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(cfg.OutputDir, federationFile), data, 0o644)
}
