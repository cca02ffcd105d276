package tbs

import (
	"fmt"
	"testing"
)

func BenchmarkDealerKeygen(b *testing.B) {
	for _, tc := range []struct{ threshold, keys int }{{3, 4}, {7, 10}, {67, 100}} {
		b.Run(fmt.Sprintf("%d-of-%d", tc.threshold, tc.keys), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, _, _, err := DealerKeygen(tc.threshold, tc.keys); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSignMessage(b *testing.B) {
	f := newFederation(b, 3, 4)
	bmsg, _, err := Blind(MessageFromBytes([]byte("bench")))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SignMessage(bmsg, f.sks[0])
	}
}

func BenchmarkVerifyBlindShare(b *testing.B) {
	f := newFederation(b, 3, 4)
	bmsg, _, err := Blind(MessageFromBytes([]byte("bench")))
	if err != nil {
		b.Fatal(err)
	}
	share := SignMessage(bmsg, f.sks[0])
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !VerifyBlindShare(bmsg, share, f.pks[0]) {
			b.Fatal("share does not verify")
		}
	}
}

func BenchmarkAggregateSignatureShares(b *testing.B) {
	for _, tc := range []struct{ threshold, keys int }{{3, 4}, {7, 10}, {67, 100}} {
		b.Run(fmt.Sprintf("%d-of-%d", tc.threshold, tc.keys), func(b *testing.B) {
			f := newFederation(b, tc.threshold, tc.keys)
			bmsg, _, err := Blind(MessageFromBytes([]byte("bench")))
			if err != nil {
				b.Fatal(err)
			}
			peers := make([]int, tc.threshold)
			for k := range peers {
				peers[k] = k
			}
			shares := f.signWith(bmsg, peers...)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := AggregateSignatureShares(shares); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkVerify(b *testing.B) {
	f := newFederation(b, 3, 4)
	msg := MessageFromBytes([]byte("bench"))
	bmsg, bk, err := Blind(msg)
	if err != nil {
		b.Fatal(err)
	}
	bsig, err := AggregateSignatureShares(f.signWith(bmsg, 0, 1, 2))
	if err != nil {
		b.Fatal(err)
	}
	sig, err := UnblindSignature(bk, bsig)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !Verify(msg, sig, f.apk) {
			b.Fatal("signature does not verify")
		}
	}
}

func BenchmarkPublicKeySetValidate(b *testing.B) {
	f := newFederation(b, 7, 10)
	set := NewPublicKeySet(7, f.apk, f.pks)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := set.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
