package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/canopy-network/canopy/lib/tbs"
	"github.com/canopy-network/canopy/lib/tbs/keystore"
	"github.com/canopy-network/canopy/lib/tbs/tiered"
)

const (
	envPrefix = "TBS"

	ConfigFileKey       = "config"
	DebugKey            = "debug"
	GuardiansKey        = "guardians"
	ThresholdKey        = "threshold"
	DenominationBaseKey = "denomination-base"
	MaxAmountKey        = "max-amount-msat"
	OutputDirKey        = "output-dir"
	RequireByzantineKey = "require-byzantine"
	PassphraseKey       = "passphrase"
	DecryptKey          = "decrypt"
	KDFTimeKey          = "kdf-time"
	KDFMemoryKey        = "kdf-memory-kib"
	KDFThreadsKey       = "kdf-threads"
)

// FederationConfig describes the federation the dealer sets up.
type FederationConfig struct {
	Guardians        int
	Threshold        int
	DenominationBase uint16
	MaxAmount        tiered.Amount
	OutputDir        string
	RequireByzantine bool
	KDF              keystore.Params
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(GuardiansKey, 4)
	v.SetDefault(DenominationBaseKey, 2)
	v.SetDefault(MaxAmountKey, uint64(1_000_000_000_000))
	v.SetDefault(OutputDirKey, ".")
	v.SetDefault(KDFTimeKey, keystore.DefaultParams.Time)
	v.SetDefault(KDFMemoryKey, keystore.DefaultParams.Memory)
	v.SetDefault(KDFThreadsKey, keystore.DefaultParams.Threads)
	return v
}

func loadConfigFile(v *viper.Viper) error {
	path := v.GetString(ConfigFileKey)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// parseFederationConfig reads and validates the dealer parameters. A zero
// threshold selects the byzantine threshold for the guardian count. Rejected
// threshold parameters are reported to audit when it is non-nil.
func parseFederationConfig(v *viper.Viper, audit tbs.AuditEventHandler) (*FederationConfig, *tbs.ValidationResult, error) {
	cfg := &FederationConfig{
		Guardians:        v.GetInt(GuardiansKey),
		Threshold:        v.GetInt(ThresholdKey),
		MaxAmount:        tiered.FromMsats(v.GetUint64(MaxAmountKey)),
		OutputDir:        v.GetString(OutputDirKey),
		RequireByzantine: v.GetBool(RequireByzantineKey),
	}
	cfg.KDF = keystore.Params{
		Time:    v.GetUint32(KDFTimeKey),
		Memory:  v.GetUint32(KDFMemoryKey),
		Threads: uint8(v.GetUint(KDFThreadsKey)),
	}
	base := v.GetUint(DenominationBaseKey)
	if base < 2 || base > 0xffff {
		return nil, nil, fmt.Errorf("%s must be between 2 and 65535, got %d", DenominationBaseKey, base)
	}
	cfg.DenominationBase = uint16(base)
	if cfg.Threshold == 0 {
		cfg.Threshold = tbs.ThresholdForGuardians(cfg.Guardians)
	}
	if cfg.OutputDir == "" {
		return nil, nil, fmt.Errorf("%s is required", OutputDirKey)
	}
	if cfg.KDF.Time == 0 || cfg.KDF.Threads == 0 {
		return nil, nil, fmt.Errorf("%s and %s must be positive", KDFTimeKey, KDFThreadsKey)
	}

	validator := tbs.NewDefaultThresholdValidator()
	validator.RequireByzantine = cfg.RequireByzantine
	validator.Audit = audit
	result := validator.ValidateThresholdParameters(cfg.Guardians, cfg.Threshold)
	if err := result.Err(); err != nil {
		return nil, result, err
	}
	return cfg, result, nil
}

// passphraseFor returns TBS_PASSPHRASE_<idx>, falling back to
// TBS_PASSPHRASE.
func passphraseFor(v *viper.Viper, idx tbs.ShareIndex) ([]byte, error) {
	if p := v.GetString(fmt.Sprintf("%s_%d", PassphraseKey, idx)); p != "" {
		return []byte(p), nil
	}
	if p := v.GetString(PassphraseKey); p != "" {
		return []byte(p), nil
	}
	return nil, fmt.Errorf("no passphrase for guardian %d: set %s_%s_%d or %s_%s",
		idx, envPrefix, strings.ToUpper(PassphraseKey), idx, envPrefix, strings.ToUpper(PassphraseKey))
}
