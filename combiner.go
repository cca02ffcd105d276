package tbs

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Combiner collects guardian responses to a single blinded message. Shares
// are checked against their guardian's public key on arrival, so Combine
// never mixes in a bad contribution. It is safe for concurrent use.
type Combiner struct {
	keys *PublicKeySet
	bmsg BlindedMessage

	log     *zap.Logger
	audit   AuditEventHandler
	metrics *Metrics

	mu     sync.Mutex
	shares map[ShareIndex]BlindedSignatureShare
	closed bool
}

// CombinerOption configures a Combiner.
type CombinerOption func(*Combiner)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) CombinerOption {
	return func(c *Combiner) {
		if log != nil {
			c.log = log
		}
	}
}

// WithAuditHandler sets the audit event sink.
func WithAuditHandler(h AuditEventHandler) CombinerOption {
	return func(c *Combiner) {
		if h != nil {
			c.audit = h
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) CombinerOption {
	return func(c *Combiner) {
		c.metrics = m
	}
}

// NewCombiner prepares to collect shares for bmsg under keys.
func NewCombiner(keys *PublicKeySet, bmsg BlindedMessage, opts ...CombinerOption) (*Combiner, error) {
	if keys == nil {
		return nil, ErrInvalidParameters.WithDetails("public key set is required")
	}
	if keys.Threshold < 1 || keys.Keys() < keys.Threshold {
		return nil, ErrInvalidParameters.WithDetails("public key set has threshold %d with %d shares", keys.Threshold, keys.Keys())
	}
	c := &Combiner{
		keys:   keys,
		bmsg:   bmsg,
		log:    zap.NewNop(),
		audit:  &NullAuditHandler{},
		shares: make(map[ShareIndex]BlindedSignatureShare, keys.Threshold),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.Stringer("blinded_message", bmsg))
	return c, nil
}

// AddShare verifies and stores a guardian's share. A rejected share leaves
// the combiner unchanged; the caller may keep polling other guardians.
func (c *Combiner) AddShare(idx ShareIndex, share BlindedSignatureShare) error {
	if _, err := c.keys.Share(idx); err != nil {
		return c.reject(idx, ReasonUnknownGuardian, err)
	}
	if c.has(idx) {
		return c.reject(idx, ReasonDuplicateShare, ErrDuplicateShareIndex.WithContext("index", idx))
	}

	// Pairing checks run outside the lock.
	if err := c.keys.VerifyShare(idx, c.bmsg, share); err != nil {
		return c.reject(idx, ReasonInvalidShare, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrInvalidParameters.WithDetails("combiner is closed")
	}
	if _, ok := c.shares[idx]; ok {
		c.mu.Unlock()
		return c.reject(idx, ReasonDuplicateShare, ErrDuplicateShareIndex.WithContext("index", idx))
	}
	c.shares[idx] = share
	pooled := len(c.shares)
	c.mu.Unlock()

	c.metrics.shareAccepted()
	c.log.Debug("accepted signature share",
		zap.Uint64("share_index", uint64(idx)),
		zap.Int("pooled", pooled),
		zap.Int("threshold", c.keys.Threshold))
	return nil
}

func (c *Combiner) has(idx ShareIndex) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.shares[idx]
	return ok
}

func (c *Combiner) reject(idx ShareIndex, reason AuditEventReason, err error) error {
	c.metrics.shareRejected(reason)
	c.log.Warn("rejected signature share",
		zap.Uint64("share_index", uint64(idx)),
		zap.String("reason", string(reason)),
		zap.Error(err))
	c.audit.OnShareRejected(
		NewAuditEventBuilder(AuditEventShareRejected, reason).
			WithThreshold(c.keys.Threshold, c.keys.Keys()).
			WithError(err).
			BuildShareRejected(idx))
	return err
}

// Len returns the number of accepted shares.
func (c *Combiner) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.shares)
}

// HasQuorum reports whether Combine would succeed.
func (c *Combiner) HasQuorum() bool {
	return c.Len() >= c.keys.Threshold
}

// Combine aggregates the threshold lowest-indexed accepted shares. Extra
// shares are not needed since each was verified individually. The pool is
// consumed only when aggregation succeeds, so a failed attempt can be retried.
func (c *Combiner) Combine() (BlindedSignature, error) {
	start := time.Now()

	var (
		bsig     BlindedSignature
		err      error
		consumed int
	)
	selected := make(map[ShareIndex]BlindedSignatureShare, c.keys.Threshold)

	// Held across aggregation so concurrent callers cannot both consume the pool.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return BlindedSignature{}, ErrInvalidParameters.WithDetails("combiner is closed")
	}
	pooled := len(c.shares)
	if pooled < c.keys.Threshold {
		err = ErrInsufficientShares.
			WithContext("have", pooled).
			WithContext("need", c.keys.Threshold)
	} else {
		for _, idx := range sortedIndices(c.shares)[:c.keys.Threshold] {
			selected[idx] = c.shares[idx]
		}
		bsig, err = AggregateSignatureShares(selected)
		if err == nil {
			// A combiner yields at most one signature.
			c.shares = nil
			c.closed = true
			consumed = pooled
		}
	}
	c.mu.Unlock()

	elapsed := time.Since(start)
	c.metrics.aggregated(elapsed.Seconds(), consumed, err)

	b := NewAuditEventBuilder(AuditEventAggregation, ReasonIssuance).
		WithThreshold(c.keys.Threshold, c.keys.Keys()).
		WithShareIndices(sortedIndices(selected))
	if err != nil {
		b = b.WithError(err)
		c.log.Warn("aggregation failed", zap.Int("pooled", pooled), zap.Error(err))
	} else {
		c.log.Debug("aggregated signature shares", zap.Int("pooled", pooled), zap.Duration("took", elapsed))
	}
	c.audit.OnAggregation(b.BuildAggregation(elapsed, len(selected), pooled))

	if err != nil {
		return BlindedSignature{}, err
	}
	return bsig, nil
}

// Close drops any pooled shares. Further AddShare calls fail.
func (c *Combiner) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.metrics.discarded(len(c.shares))
	c.shares = nil
	c.closed = true
}
