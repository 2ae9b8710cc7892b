// Package errs defines the sentinel errors shared by the mmv packages.
//
// Errors fall into three groups. Registry validation errors are returned before
// any file I/O happens and are fatal to the registry that produced them. I/O
// errors during file creation or mapping are wrapped around the underlying
// system error and are fatal to writer setup. Reader consistency errors are
// recoverable: callers retry the scan or treat the metric as temporarily
// unavailable.
package errs

import "errors"

// Registry validation errors.
var (
	ErrInvalidMetricName      = errors.New("mmv: invalid metric name")
	ErrDuplicateMetricName    = errors.New("mmv: duplicate metric name")
	ErrDuplicateMetricItem    = errors.New("mmv: duplicate metric item")
	ErrInvalidMetricItem      = errors.New("mmv: metric item out of range")
	ErrInvalidValueType       = errors.New("mmv: invalid value type")
	ErrInvalidSemantics       = errors.New("mmv: invalid semantics")
	ErrInvalidTypeSemantics   = errors.New("mmv: value type and semantics mismatch")
	ErrInvalidUnits           = errors.New("mmv: malformed units")
	ErrDuplicateIndom         = errors.New("mmv: instance domain serial collision")
	ErrUnknownIndom           = errors.New("mmv: unknown instance domain")
	ErrEmptyIndom             = errors.New("mmv: instance domain has no instances")
	ErrDuplicateInstance      = errors.New("mmv: duplicate instance")
	ErrInvalidInstanceName    = errors.New("mmv: invalid instance name")
	ErrTextTooLong            = errors.New("mmv: text exceeds string slot size")
	ErrInvalidLabel           = errors.New("mmv: invalid label")
	ErrInvalidVersion         = errors.New("mmv: unsupported format version")
	ErrInvalidRegistryName    = errors.New("mmv: invalid registry name")
	ErrInvalidCluster         = errors.New("mmv: cluster id out of range")
	ErrNoMetricsAdded         = errors.New("mmv: registry has no metrics")
	ErrRegistryAlreadyStarted = errors.New("mmv: registry already materialized")
)

// Writer errors.
var (
	ErrWriterStopped     = errors.New("mmv: writer stopped")
	ErrShortTruncate     = errors.New("mmv: backing file shorter than layout")
	ErrUnknownSlot       = errors.New("mmv: no value slot for metric and instance")
	ErrValueTypeMismatch = errors.New("mmv: value type mismatch")
	ErrIntervalNotOpen   = errors.New("mmv: elapsed interval not started")
)

// Reader consistency errors.
var (
	ErrInvalidHeaderSize   = errors.New("mmv: invalid header size")
	ErrInvalidMagicNumber  = errors.New("mmv: invalid magic number")
	ErrInvalidHeader       = errors.New("mmv: invalid header")
	ErrInvalidTOC          = errors.New("mmv: invalid table of contents")
	ErrWriteInProgress     = errors.New("mmv: write in progress")
	ErrGenerationChanged   = errors.New("mmv: generation changed since last scan")
	ErrOffsetOutOfRange    = errors.New("mmv: offset out of range")
	ErrMappingGone         = errors.New("mmv: mapping no longer backed by a file")
	ErrReaderClosed        = errors.New("mmv: reader closed")
	ErrMetricNotFound      = errors.New("mmv: metric not found")
	ErrInstanceNotFound    = errors.New("mmv: instance not found")
	ErrInvalidSnapshot     = errors.New("mmv: invalid snapshot")
	ErrChecksumMismatch    = errors.New("mmv: snapshot checksum mismatch")
	ErrNotPinned           = errors.New("mmv: address not inside a pinned region")
	ErrUnsupportedPlatform = errors.New("mmv: memory mapping not supported on this platform")
)
