// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekit.
//
// go-josekit is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for josekit
// operations: an operation counter, a latency histogram and an error
// counter keyed by result code.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace prefixes every josekit metric.
	Namespace = "josekit"

	LabelOperation = "operation"
	LabelAlgorithm = "algorithm"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation names, one per engine entry point.
const (
	OpGenerateKey   = "generate_key"
	OpEncrypt       = "encrypt"
	OpDecrypt       = "decrypt"
	OpEncryptJSON   = "encrypt_json"
	OpDecryptJSON   = "decrypt_json"
	OpSign          = "sign"
	OpVerify        = "verify"
	OpReleaseOutput = "release_output"
)

var (
	// OperationsTotal counts operations by name, algorithm and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of JOSE operations by operation, algorithm and status",
		},
		[]string{LabelOperation, LabelAlgorithm, LabelStatus},
	)

	// OperationDuration observes operation latency in seconds. The buckets
	// span cheap AEAD calls up to large RSA key generation.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of JOSE operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelOperation, LabelAlgorithm},
	)

	// ErrorsTotal counts failed operations by result code name.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of failed JOSE operations by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records one completed operation.
func RecordOperation(operation, algorithm, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, algorithm, status).Inc()
	OperationDuration.WithLabelValues(operation, algorithm).Observe(duration)
}

// RecordError records a failure. errorType is the result code name, e.g.
// "SignatureInvalid".
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Timer measures one operation.
type Timer struct {
	operation string
	algorithm string
	start     time.Time
}

// Start begins timing an operation.
//
// Example:
//
//	t := metrics.Start(metrics.OpSign, "EdDSA")
//	defer func() { t.Done(code.String(), err == nil) }()
func Start(operation, algorithm string) *Timer {
	return &Timer{operation: operation, algorithm: algorithm, start: time.Now()}
}

// Done records the operation outcome. errorType is ignored on success.
func (t *Timer) Done(errorType string, ok bool) {
	status := StatusSuccess
	if !ok {
		status = StatusError
		RecordError(t.operation, errorType)
	}
	RecordOperation(t.operation, t.algorithm, status, time.Since(t.start).Seconds())
}

// Enable turns recording on.
func Enable() {
	enabled.Store(true)
}

// Disable turns recording off.
func Disable() {
	enabled.Store(false)
}

// IsEnabled reports whether recording is on.
func IsEnabled() bool {
	return enabled.Load()
}
