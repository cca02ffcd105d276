package tbs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

type combinerFixture struct {
	federation
	set     *PublicKeySet
	msg     Message
	bmsg    BlindedMessage
	bk      BlindingKey
	metrics *Metrics
	reg     *prometheus.Registry
	audit   *recordingAuditHandler
	logs    *observer.ObservedLogs
}

func newCombinerFixture(t *testing.T, threshold, keys int) (*combinerFixture, *Combiner) {
	t.Helper()
	f := &combinerFixture{federation: newFederation(t, threshold, keys)}
	f.set = NewPublicKeySet(threshold, f.apk, f.pks)
	f.msg = MessageFromBytes([]byte("combiner"))

	var err error
	f.bmsg, f.bk, err = Blind(f.msg)
	require.NoError(t, err)

	f.reg = prometheus.NewRegistry()
	f.metrics, err = NewMetrics(f.reg)
	require.NoError(t, err)

	f.audit = newRecordingAuditHandler()
	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs

	c, err := NewCombiner(f.set, f.bmsg,
		WithLogger(zap.New(core)),
		WithAuditHandler(f.audit),
		WithMetrics(f.metrics))
	require.NoError(t, err)
	return f, c
}

func (f *combinerFixture) share(peer int) BlindedSignatureShare {
	return SignMessage(f.bmsg, f.sks[peer])
}

func TestCombinerHappyPath(t *testing.T) {
	f, c := newCombinerFixture(t, 3, 4)

	for peer := 0; peer < 3; peer++ {
		require.False(t, c.HasQuorum())
		require.NoError(t, c.AddShare(ShareIndex(peer+1), f.share(peer)))
	}
	require.True(t, c.HasQuorum())
	require.Equal(t, 3, c.Len())
	require.Equal(t, float64(3), testutil.ToFloat64(f.metrics.pendingShares))

	bsig, err := c.Combine()
	require.NoError(t, err)
	sig, err := UnblindSignature(f.bk, bsig)
	require.NoError(t, err)
	require.True(t, Verify(f.msg, sig, f.apk))

	require.Equal(t, float64(3), testutil.ToFloat64(f.metrics.sharesAccepted))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.aggregations.WithLabelValues("success")))
	require.Equal(t, float64(0), testutil.ToFloat64(f.metrics.pendingShares))

	require.Len(t, f.audit.aggregations, 1)
	require.True(t, f.audit.aggregations[0].Success)
	require.Equal(t, []ShareIndex{1, 2, 3}, f.audit.aggregations[0].ShareIndices)

	// One signature per combiner.
	_, err = c.Combine()
	require.ErrorIs(t, err, ErrInvalidParameters)
	require.ErrorIs(t, c.AddShare(4, f.share(3)), ErrInvalidParameters)
}

func TestCombinerInsufficientShares(t *testing.T) {
	f, c := newCombinerFixture(t, 3, 4)
	require.NoError(t, c.AddShare(1, f.share(0)))
	require.NoError(t, c.AddShare(4, f.share(3)))

	_, err := c.Combine()
	require.ErrorIs(t, err, ErrInsufficientShares)
	require.Equal(t, 2, GetErrorContext(err)["have"])
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.aggregations.WithLabelValues("failure")))
	require.False(t, f.audit.aggregations[0].Success)

	// Still open: a late guardian completes the quorum.
	require.NoError(t, c.AddShare(2, f.share(1)))
	bsig, err := c.Combine()
	require.NoError(t, err)
	sig, err := UnblindSignature(f.bk, bsig)
	require.NoError(t, err)
	require.True(t, Verify(f.msg, sig, f.apk))
}

func TestCombinerRejectsBadShares(t *testing.T) {
	f, c := newCombinerFixture(t, 2, 3)

	require.ErrorIs(t, c.AddShare(7, f.share(0)), ErrUnknownShareIndex)
	require.ErrorIs(t, c.AddShare(0, f.share(0)), ErrUnknownShareIndex)
	require.ErrorIs(t, c.AddShare(2, f.share(0)), ErrInvalidShare)

	require.NoError(t, c.AddShare(1, f.share(0)))
	require.ErrorIs(t, c.AddShare(1, f.share(0)), ErrDuplicateShareIndex)
	require.Equal(t, 1, c.Len())

	require.Equal(t, float64(2), testutil.ToFloat64(f.metrics.sharesRejected.WithLabelValues(string(ReasonUnknownGuardian))))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.sharesRejected.WithLabelValues(string(ReasonInvalidShare))))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.sharesRejected.WithLabelValues(string(ReasonDuplicateShare))))

	require.Len(t, f.audit.shareRejections, 4)
	require.Equal(t, ShareIndex(2), f.audit.shareRejections[2].ShareIndex)
	require.Equal(t, ReasonInvalidShare, f.audit.shareRejections[2].Reason)

	rejected := f.logs.FilterMessage("rejected signature share")
	require.Equal(t, 4, rejected.Len())
	require.Equal(t, zapcore.WarnLevel, rejected.All()[0].Level)

	// The honest quorum still signs.
	require.NoError(t, c.AddShare(3, f.share(2)))
	_, err := c.Combine()
	require.NoError(t, err)
}

func TestCombinerConcurrentAddShare(t *testing.T) {
	f, c := newCombinerFixture(t, 5, 7)

	var g errgroup.Group
	for peer := 0; peer < 7; peer++ {
		peer := peer
		g.Go(func() error {
			return c.AddShare(ShareIndex(peer+1), f.share(peer))
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 7, c.Len())

	// Racing duplicates: exactly one of each pair lands.
	f2, c2 := newCombinerFixture(t, 2, 3)
	var dup errgroup.Group
	errs := make([]error, 2)
	for i := range errs {
		i := i
		dup.Go(func() error {
			errs[i] = c2.AddShare(1, f2.share(0))
			return nil
		})
	}
	require.NoError(t, dup.Wait())
	require.Equal(t, 1, c2.Len())
	require.True(t, (errs[0] == nil) != (errs[1] == nil))

	bsig, err := c.Combine()
	require.NoError(t, err)
	sig, err := UnblindSignature(f.bk, bsig)
	require.NoError(t, err)
	require.True(t, Verify(f.msg, sig, f.apk))
}

func TestCombinerKeepsSharesWhenAggregationFails(t *testing.T) {
	f := newFederation(t, 2, 3)
	// Share index 0 passes the per-share check but cannot be interpolated.
	set := &PublicKeySet{
		Threshold:          2,
		AggregatePublicKey: f.apk,
		Shares:             map[ShareIndex]PublicKeyShare{0: f.pks[0], 2: f.pks[1]},
	}
	bmsg, _, err := Blind(MessageFromBytes([]byte("retry")))
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	c, err := NewCombiner(set, bmsg, WithMetrics(metrics))
	require.NoError(t, err)

	require.NoError(t, c.AddShare(0, SignMessage(bmsg, f.sks[0])))
	require.NoError(t, c.AddShare(2, SignMessage(bmsg, f.sks[1])))

	for attempt := 0; attempt < 2; attempt++ {
		_, err = c.Combine()
		require.ErrorIs(t, err, ErrReservedShareIndex)
		require.Equal(t, 2, c.Len())
		require.True(t, c.HasQuorum())
	}
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.aggregations.WithLabelValues("failure")))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.pendingShares))

	c.Close()
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.pendingShares))
}

func TestCombinerClose(t *testing.T) {
	f, c := newCombinerFixture(t, 2, 3)
	require.NoError(t, c.AddShare(1, f.share(0)))
	c.Close()
	c.Close()
	require.Equal(t, float64(0), testutil.ToFloat64(f.metrics.pendingShares))
	require.Error(t, c.AddShare(2, f.share(1)))
}

func TestNewCombinerValidation(t *testing.T) {
	_, err := NewCombiner(nil, BlindedMessage{})
	require.ErrorIs(t, err, ErrInvalidParameters)

	f := newFederation(t, 2, 3)
	_, err = NewCombiner(&PublicKeySet{Threshold: 4, AggregatePublicKey: f.apk}, BlindedMessage{})
	require.ErrorIs(t, err, ErrInvalidParameters)

	// A nil *Metrics is a valid no-op.
	c, err := NewCombiner(NewPublicKeySet(2, f.apk, f.pks), BlindedMessage{})
	require.NoError(t, err)
	c.metrics.shareAccepted()
}

func TestMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	require.Error(t, err)
}
