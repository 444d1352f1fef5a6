package traffic

import "fmt"

// ErrorCode represents specific failure conditions of the intersection model
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Cycle, service rate, rates or schedule are unusable
	ErrCodeInvalidConfiguration
	// A green split leaves some approach without enough capacity
	ErrCodeInfeasibleAllocation
	// A search ended without meeting its tolerance
	ErrCodeNonConvergence
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNone:
		return "none"
	case ErrCodeInvalidConfiguration:
		return "invalid configuration"
	case ErrCodeInfeasibleAllocation:
		return "infeasible allocation"
	case ErrCodeNonConvergence:
		return "non-convergence"
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// ConfigError is returned by constructors that reject their parameters
type ConfigError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %s", e.Field, e.Message)
}

// NewInvalidConfigError creates an invalid configuration error for field
func NewInvalidConfigError(field string, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidConfiguration,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// ConvergenceError reports an optimization outcome that must not be trusted
type ConvergenceError struct {
	Code    ErrorCode
	Status  string
	Message string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Status, e.Message)
}

// NewNonConvergenceError creates an error for a search that did not converge
func NewNonConvergenceError(status string, message string) *ConvergenceError {
	return &ConvergenceError{
		Code:    ErrCodeNonConvergence,
		Status:  status,
		Message: message,
	}
}

// NewInfeasibleError creates an error for a problem with no stable split
func NewInfeasibleError(message string) *ConvergenceError {
	return &ConvergenceError{
		Code:    ErrCodeInfeasibleAllocation,
		Status:  "infeasible",
		Message: message,
	}
}
