package tbs

import (
	"crypto/rand"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	// Dealer events
	AuditEventKeyGeneration AuditEventType = "key_generation"

	// Combiner events
	AuditEventShareRejected AuditEventType = "share_rejected"
	AuditEventAggregation   AuditEventType = "aggregation"

	// Error events
	AuditEventValidationFailure AuditEventType = "validation_failure"
)

// AuditEventReason represents why an event occurred
type AuditEventReason string

const (
	ReasonDealerSetup     AuditEventReason = "dealer_setup"
	ReasonIssuance        AuditEventReason = "issuance"
	ReasonInvalidShare    AuditEventReason = "invalid_share"
	ReasonUnknownGuardian AuditEventReason = "unknown_guardian"
	ReasonDuplicateShare  AuditEventReason = "duplicate_share"
	ReasonValidationError AuditEventReason = "validation_error"
)

// AuditEvent represents a single audit event in the mint signing path
type AuditEvent struct {
	// Event metadata
	EventID   string           `json:"event_id"`
	Timestamp time.Time        `json:"timestamp"`
	EventType AuditEventType   `json:"event_type"`
	Reason    AuditEventReason `json:"reason"`

	// Threshold information
	Threshold int `json:"threshold,omitempty"`
	Keys      int `json:"keys,omitempty"`

	// Guardian information
	ShareIndices []ShareIndex `json:"share_indices,omitempty"`

	// Success/failure information
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Additional context
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// KeyGenerationEvent contains details about a dealer run
type KeyGenerationEvent struct {
	AuditEvent

	Duration        time.Duration `json:"duration"`
	SharesGenerated int           `json:"shares_generated"`
}

// ShareRejectedEvent is raised when a combiner refuses a signature share
type ShareRejectedEvent struct {
	AuditEvent

	ShareIndex ShareIndex `json:"share_index"`
}

// AggregationEvent contains details about a signature combination
type AggregationEvent struct {
	AuditEvent

	Duration     time.Duration `json:"duration"`
	SharesUsed   int           `json:"shares_used"`
	SharesPooled int           `json:"shares_pooled"`
}

// ValidationFailureEvent contains details about validation failures
type ValidationFailureEvent struct {
	AuditEvent

	// Validation-specific fields
	ValidationType string                 `json:"validation_type"` // "threshold", "public_key_set", "configuration"
	FailureReason  string                 `json:"failure_reason"`
	InputValues    map[string]interface{} `json:"input_values,omitempty"`
}

// AuditEventHandler defines the interface for handling audit events
// Applications implement this interface to record events according to their needs
type AuditEventHandler interface {
	// OnKeyGeneration is called after every dealer run
	OnKeyGeneration(event *KeyGenerationEvent)

	// OnShareRejected is called when a signature share is refused
	OnShareRejected(event *ShareRejectedEvent)

	// OnAggregation is called after a combine attempt
	OnAggregation(event *AggregationEvent)

	// OnValidationFailure is called when validation fails
	OnValidationFailure(event *ValidationFailureEvent)
}

// NullAuditHandler is a no-op implementation of AuditEventHandler
// Used when no audit handling is needed
type NullAuditHandler struct{}

func (n *NullAuditHandler) OnKeyGeneration(event *KeyGenerationEvent)         {}
func (n *NullAuditHandler) OnShareRejected(event *ShareRejectedEvent)         {}
func (n *NullAuditHandler) OnAggregation(event *AggregationEvent)             {}
func (n *NullAuditHandler) OnValidationFailure(event *ValidationFailureEvent) {}

// LoggingAuditHandler writes every audit event as a structured log line.
type LoggingAuditHandler struct {
	log *zap.Logger
}

// NewLoggingAuditHandler returns a handler logging under the "audit" name.
func NewLoggingAuditHandler(log *zap.Logger) *LoggingAuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingAuditHandler{log: log.Named("audit")}
}

func (h *LoggingAuditHandler) fields(e *AuditEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", e.EventID),
		zap.String("event_type", string(e.EventType)),
		zap.String("reason", string(e.Reason)),
		zap.Bool("success", e.Success),
	}
	if e.Threshold > 0 {
		fields = append(fields, zap.Int("threshold", e.Threshold), zap.Int("keys", e.Keys))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	for k, v := range e.Metadata {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

func (h *LoggingAuditHandler) emit(e *AuditEvent, msg string, extra ...zap.Field) {
	fields := append(h.fields(e), extra...)
	if e.Success {
		h.log.Info(msg, fields...)
		return
	}
	h.log.Warn(msg, fields...)
}

func (h *LoggingAuditHandler) OnKeyGeneration(event *KeyGenerationEvent) {
	h.emit(&event.AuditEvent, "key generation",
		zap.Duration("duration", event.Duration),
		zap.Int("shares_generated", event.SharesGenerated))
}

func (h *LoggingAuditHandler) OnShareRejected(event *ShareRejectedEvent) {
	h.emit(&event.AuditEvent, "signature share rejected",
		zap.Uint64("share_index", uint64(event.ShareIndex)))
}

func (h *LoggingAuditHandler) OnAggregation(event *AggregationEvent) {
	h.emit(&event.AuditEvent, "signature shares aggregated",
		zap.Duration("duration", event.Duration),
		zap.Int("shares_used", event.SharesUsed),
		zap.Int("shares_pooled", event.SharesPooled))
}

func (h *LoggingAuditHandler) OnValidationFailure(event *ValidationFailureEvent) {
	h.emit(&event.AuditEvent, "validation failure",
		zap.String("validation_type", event.ValidationType),
		zap.String("failure_reason", event.FailureReason))
}

// AuditEventBuilder helps construct audit events with proper defaults
type AuditEventBuilder struct {
	event *AuditEvent
}

// NewAuditEventBuilder creates a new audit event builder
func NewAuditEventBuilder(eventType AuditEventType, reason AuditEventReason) *AuditEventBuilder {
	return &AuditEventBuilder{
		event: &AuditEvent{
			EventID:   generateEventID(),
			Timestamp: time.Now(),
			EventType: eventType,
			Reason:    reason,
			Success:   true, // Default to success, can be overridden
			Metadata:  make(map[string]interface{}),
		},
	}
}

// WithThreshold sets the threshold parameters for the event
func (b *AuditEventBuilder) WithThreshold(threshold, keys int) *AuditEventBuilder {
	b.event.Threshold = threshold
	b.event.Keys = keys
	return b
}

// WithShareIndices records which guardians took part
func (b *AuditEventBuilder) WithShareIndices(indices []ShareIndex) *AuditEventBuilder {
	b.event.ShareIndices = indices
	return b
}

// WithError marks the event as failed and sets error information
func (b *AuditEventBuilder) WithError(err error) *AuditEventBuilder {
	b.event.Success = false
	if err != nil {
		b.event.Error = err.Error()
	}
	return b
}

// WithMetadata adds metadata to the event
func (b *AuditEventBuilder) WithMetadata(key string, value interface{}) *AuditEventBuilder {
	b.event.Metadata[key] = value
	return b
}

// Build returns the constructed audit event
func (b *AuditEventBuilder) Build() *AuditEvent {
	return b.event
}

// BuildKeyGeneration returns a KeyGenerationEvent
func (b *AuditEventBuilder) BuildKeyGeneration(duration time.Duration, sharesGenerated int) *KeyGenerationEvent {
	return &KeyGenerationEvent{
		AuditEvent:      *b.event,
		Duration:        duration,
		SharesGenerated: sharesGenerated,
	}
}

// BuildShareRejected returns a ShareRejectedEvent
func (b *AuditEventBuilder) BuildShareRejected(idx ShareIndex) *ShareRejectedEvent {
	b.event.Success = false
	return &ShareRejectedEvent{
		AuditEvent: *b.event,
		ShareIndex: idx,
	}
}

// BuildAggregation returns an AggregationEvent
func (b *AuditEventBuilder) BuildAggregation(duration time.Duration, sharesUsed, sharesPooled int) *AggregationEvent {
	return &AggregationEvent{
		AuditEvent:   *b.event,
		Duration:     duration,
		SharesUsed:   sharesUsed,
		SharesPooled: sharesPooled,
	}
}

// BuildValidationFailure returns a ValidationFailureEvent
func (b *AuditEventBuilder) BuildValidationFailure(validationType, failureReason string, inputValues map[string]interface{}) *ValidationFailureEvent {
	b.event.Success = false
	return &ValidationFailureEvent{
		AuditEvent:     *b.event,
		ValidationType: validationType,
		FailureReason:  failureReason,
		InputValues:    inputValues,
	}
}

// generateEventID generates a unique event ID
// Uses a combination of timestamp and random bytes to ensure uniqueness
func generateEventID() string {
	timestamp := time.Now().Format("20060102150405.000000")

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("%s.%d", timestamp, time.Now().UnixNano()%10000)
	}

	return fmt.Sprintf("%s.%x", timestamp, randomBytes)
}
