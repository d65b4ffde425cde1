package mpa

import (
	"encoding/binary"
	"io"
	"log/slog"
)

// AnalyzeMode selects what AnalyzerView reports.
type AnalyzeMode int

const (
	// AnalyzeOff disables the analyzer taps.
	AnalyzeOff AnalyzeMode = iota
	// AnalyzeSpectrum reports the mean magnitude of each of the 32 subbands.
	AnalyzeSpectrum
	// AnalyzeWaveform reports the normalized time-domain output of the first channel.
	AnalyzeWaveform
)

func (m AnalyzeMode) String() string {
	switch m {
	case AnalyzeSpectrum:
		return "spectrum"
	case AnalyzeWaveform:
		return "waveform"
	}

	return "off"
}

const (
	// DefaultScanLimit is the default number of bytes probed for a sync pattern.
	DefaultScanLimit = 128 * 1024
	// DefaultSyncFrames is the default number of consecutive headers that must agree.
	DefaultSyncFrames = 3
	// DefaultVerificationDepth is the default number of bytes a resync may skip.
	DefaultVerificationDepth = 64 * 1024
)

// Config holds the decoder options. The zero value is usable, zero fields take their defaults.
type Config struct {
	// BufferSize is the size of a single read from the source.
	BufferSize int
	// ScanLimit is the number of bytes Detect probes for the first valid frame.
	ScanLimit int
	// SyncFrames is the number of consecutive consistent frame headers that confirm a stream.
	SyncFrames int
	// VerificationDepth is the number of bytes the decoder may skip while resyncing
	// after a corrupt frame before giving up with ErrUnsupportedFormat.
	VerificationDepth int

	// ByteOrder of the PCM produced by Read. Defaults to big endian.
	ByteOrder binary.ByteOrder

	// FastSeeking seeks by TOC or bitrate arithmetic instead of walking frame headers.
	FastSeeking bool
	// TrimPadding drops the encoder delay and padding announced in a LAME tag.
	TrimPadding bool
	// Analyze enables the analyzer taps.
	Analyze AnalyzeMode

	// Logger receives debug events, nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	var c Config
	c.setDefaults()

	return c
}

func (c *Config) setDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = BufferSize
	}
	if c.ScanLimit <= 0 {
		c.ScanLimit = DefaultScanLimit
	}
	if c.SyncFrames <= 0 {
		c.SyncFrames = DefaultSyncFrames
	}
	if c.VerificationDepth <= 0 {
		c.VerificationDepth = DefaultVerificationDepth
	}
	if c.ByteOrder == nil {
		c.ByteOrder = binary.BigEndian
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
