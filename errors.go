package mpa

import "errors"

var (
	// ErrUnsupportedFormat is returned when no MPEG audio sync could be verified within the scan window,
	// or when the stream is of a layer this package does not decode.
	ErrUnsupportedFormat = errors.New("mpa: unsupported or corrupted media")

	// ErrLayerIII is wrapped by ErrUnsupportedFormat for MPEG Audio Layer III (mp3) streams.
	ErrLayerIII = errors.New("mpa: layer III is not supported")

	// ErrInvalidHeader is returned by ParseHeader for words that are not a valid Layer I/II frame header.
	ErrInvalidHeader = errors.New("mpa: invalid frame header")

	// ErrCorruptFrame marks a frame with a CRC mismatch or an illegal bit allocation.
	// It is recovered internally and never returned by Read.
	ErrCorruptFrame = errors.New("mpa: corrupt frame")

	// ErrNeedMoreData is returned when a progressive source ran dry but has not ended yet.
	// The call can be retried after more data was written.
	ErrNeedMoreData = errors.New("mpa: need more data")

	// ErrSeekFailed is returned when active seeking hit a corrupted frame.
	ErrSeekFailed = errors.New("mpa: active seeking failed")

	// ErrSeekAborted is returned when active seeking ran out of available input.
	ErrSeekAborted = errors.New("mpa: active seeking aborted")

	// ErrNotSeekable is returned when a backward reposition is requested on a source that cannot seek.
	ErrNotSeekable = errors.New("mpa: source is not seekable")

	// ErrClosed is returned by every method of a closed Decoder.
	ErrClosed = errors.New("mpa: decoder is closed")
)
