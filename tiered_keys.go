package tbs

import (
	"github.com/canopy-network/canopy/lib/tbs/tiered"
)

// TierKeys is the dealer output for one denomination.
type TierKeys struct {
	PublicKeySet    *PublicKeySet
	SecretKeyShares []SecretKeyShare
}

// GenerateTiered runs an independent dealer for every denomination, so a
// signature on one amount tier is worthless on another.
func (d *Dealer) GenerateTiered(tiers tiered.Tiered[struct{}]) (tiered.Tiered[TierKeys], error) {
	if tiers.Len() == 0 {
		return tiered.Tiered[TierKeys]{}, ErrInvalidParameters.WithDetails("no denominations given")
	}
	return tiered.Map(tiers, func(amount tiered.Amount, _ struct{}) (TierKeys, error) {
		apk, pks, sks, err := d.Generate()
		if err != nil {
			return TierKeys{}, err
		}
		return TierKeys{
			PublicKeySet:    NewPublicKeySet(d.Threshold, apk, pks),
			SecretKeyShares: sks,
		}, nil
	})
}

// TieredPublicKeySets strips the secret material from dealer output.
func TieredPublicKeySets(keys tiered.Tiered[TierKeys]) tiered.Tiered[*PublicKeySet] {
	out, _ := tiered.Map(keys, func(_ tiered.Amount, k TierKeys) (*PublicKeySet, error) {
		return k.PublicKeySet, nil
	})
	return out
}

// TieredSecretKeyShares extracts guardian idx's secret share for every tier.
func TieredSecretKeyShares(keys tiered.Tiered[TierKeys], idx ShareIndex) (tiered.Tiered[SecretKeyShare], error) {
	return tiered.Map(keys, func(_ tiered.Amount, k TierKeys) (SecretKeyShare, error) {
		if idx == 0 {
			return SecretKeyShare{}, ErrReservedShareIndex.WithContext("index", idx)
		}
		if uint64(idx) > uint64(len(k.SecretKeyShares)) {
			return SecretKeyShare{}, ErrUnknownShareIndex.WithContext("index", idx)
		}
		return k.SecretKeyShares[idx-1], nil
	})
}

// SignTiered produces a guardian's share for a note of the given amount.
func SignTiered(keys tiered.Tiered[SecretKeyShare], amount tiered.Amount, bmsg BlindedMessage) (BlindedSignatureShare, error) {
	sk, err := keys.Tier(amount)
	if err != nil {
		return BlindedSignatureShare{}, err
	}
	return SignMessage(bmsg, sk), nil
}
