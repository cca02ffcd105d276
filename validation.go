package tbs

import (
	"fmt"
	"strings"
)

// SecurityLevel represents the security level of threshold parameters
type SecurityLevel string

const (
	SecurityLevelLow    SecurityLevel = "low"
	SecurityLevelMedium SecurityLevel = "medium"
	SecurityLevelHigh   SecurityLevel = "high"
)

// ThresholdForGuardians returns the Byzantine fault tolerant threshold for a
// federation of n guardians, n - floor((n-1)/3). It tolerates f faulty
// guardians out of n = 3f+1.
func ThresholdForGuardians(n int) int {
	if n <= 0 {
		return 0
	}
	return n - (n-1)/3
}

// ValidationResult contains the result of parameter validation
type ValidationResult struct {
	Valid                   bool          `json:"valid"`
	SecurityLevel           SecurityLevel `json:"security_level"`
	ByzantineFaultTolerance bool          `json:"byzantine_fault_tolerance"`
	Warnings                []string      `json:"warnings,omitempty"`
	Errors                  []string      `json:"errors,omitempty"`
	Recommendations         []string      `json:"recommendations,omitempty"`
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:           true,
		SecurityLevel:   SecurityLevelMedium,
		Warnings:        []string{},
		Errors:          []string{},
		Recommendations: []string{},
	}
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.SecurityLevel = SecurityLevelLow
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Err folds the result into an ErrInvalidParameters, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return ErrInvalidParameters.WithDetails("%v", r.Errors)
}

// ThresholdValidator checks federation parameters before a dealer run.
type ThresholdValidator struct {
	MinGuardians int `json:"min_guardians"`
	MaxGuardians int `json:"max_guardians"`
	// RequireByzantine rejects thresholds below ThresholdForGuardians.
	RequireByzantine bool `json:"require_byzantine"`

	// Audit receives a validation failure event per rejected parameter set;
	// nil disables it.
	Audit AuditEventHandler `json:"-"`
}

// NewDefaultThresholdValidator accepts anything from a single-guardian mint
// up to a large federation, warning on non-BFT thresholds.
func NewDefaultThresholdValidator() *ThresholdValidator {
	return &ThresholdValidator{
		MinGuardians: 1,
		MaxGuardians: 1024,
	}
}

// ValidateThresholdParameters validates threshold and guardian count
func (tv *ThresholdValidator) ValidateThresholdParameters(keys, threshold int) *ValidationResult {
	result := tv.validateThresholdParameters(keys, threshold)
	if !result.Valid && tv.Audit != nil {
		tv.Audit.OnValidationFailure(
			NewAuditEventBuilder(AuditEventValidationFailure, ReasonValidationError).
				WithThreshold(threshold, keys).
				WithError(result.Err()).
				BuildValidationFailure("threshold", strings.Join(result.Errors, "; "), map[string]interface{}{
					"keys":              keys,
					"threshold":         threshold,
					"require_byzantine": tv.RequireByzantine,
				}))
	}
	return result
}

func (tv *ThresholdValidator) validateThresholdParameters(keys, threshold int) *ValidationResult {
	result := newValidationResult()

	if threshold <= 0 {
		result.fail("threshold must be positive")
	}
	if keys <= 0 {
		result.fail("guardian count must be positive")
	}
	if threshold > keys {
		result.fail("threshold %d cannot exceed guardian count %d", threshold, keys)
	}
	if !result.Valid {
		return result
	}

	if keys < tv.MinGuardians {
		result.fail("minimum %d guardians required", tv.MinGuardians)
	}
	if tv.MaxGuardians > 0 && keys > tv.MaxGuardians {
		result.fail("guardian count exceeds maximum of %d", tv.MaxGuardians)
	}
	if !result.Valid {
		return result
	}

	bft := ThresholdForGuardians(keys)
	result.ByzantineFaultTolerance = threshold >= bft
	switch {
	case threshold == 1 && keys > 1:
		result.SecurityLevel = SecurityLevelLow
		result.Warnings = append(result.Warnings, "threshold of 1 lets any single guardian sign alone")
	case result.ByzantineFaultTolerance:
		result.SecurityLevel = SecurityLevelHigh
	case 2*threshold <= keys:
		result.SecurityLevel = SecurityLevelLow
		result.Warnings = append(result.Warnings, "a minority of guardians can sign")
	}

	if !result.ByzantineFaultTolerance {
		if tv.RequireByzantine {
			result.fail("threshold %d is below the byzantine threshold %d for %d guardians", threshold, bft, keys)
			return result
		}
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("byzantine fault tolerant threshold for %d guardians is %d", keys, bft))
	}

	if threshold == keys && keys > 1 {
		result.Warnings = append(result.Warnings, "threshold equals guardian count - no guardian may go offline")
	}

	return result
}

// ValidateShareIndices reports every zero and duplicate index at once, as
// opposed to LagrangeCoefficientsAtZero which stops at the first.
func ValidateShareIndices(indices []ShareIndex) *ValidationResult {
	result := newValidationResult()

	if len(indices) == 0 {
		result.fail("share index list cannot be empty")
		return result
	}

	seen := make(map[ShareIndex]bool, len(indices))
	var duplicates []ShareIndex
	for _, idx := range indices {
		if idx == 0 {
			result.fail("share index 0 is reserved for the secret")
			continue
		}
		if seen[idx] {
			duplicates = append(duplicates, idx)
		}
		seen[idx] = true
	}
	if len(duplicates) > 0 {
		result.fail("duplicate share indices found: %v", duplicates)
	}
	return result
}

// SecurityAssessment summarizes how a federation degrades under faults.
type SecurityAssessment struct {
	OverallRating           SecurityLevel `json:"overall_rating"`
	ByzantineFaultTolerance bool          `json:"byzantine_fault_tolerance"`
	FaultTolerance          int           `json:"fault_tolerance"`   // guardians that may be offline
	AttackResistance        int           `json:"attack_resistance"` // colluding guardians needed to forge
	AvailabilityRisk        string        `json:"availability_risk"`
}

// AssessSecurity rates a (keys, threshold) pair.
func AssessSecurity(keys, threshold int) *SecurityAssessment {
	if keys <= 0 || threshold <= 0 || threshold > keys {
		return &SecurityAssessment{
			OverallRating:    SecurityLevelLow,
			AvailabilityRisk: "critical - invalid parameters",
		}
	}

	tolerance := keys - threshold
	assessment := &SecurityAssessment{
		FaultTolerance:          tolerance,
		AttackResistance:        threshold,
		ByzantineFaultTolerance: threshold >= ThresholdForGuardians(keys),
	}

	switch {
	case assessment.ByzantineFaultTolerance:
		assessment.OverallRating = SecurityLevelHigh
	case 2*threshold > keys:
		assessment.OverallRating = SecurityLevelMedium
	default:
		assessment.OverallRating = SecurityLevelLow
	}

	switch {
	case tolerance == 0:
		assessment.AvailabilityRisk = "critical - no fault tolerance"
	case tolerance == 1:
		assessment.AvailabilityRisk = "high - single point of failure"
	case tolerance <= 3:
		assessment.AvailabilityRisk = "medium - limited fault tolerance"
	default:
		assessment.AvailabilityRisk = "low - good fault tolerance"
	}
	return assessment
}
