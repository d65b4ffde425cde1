// Package mpa implements an MPEG-1 and MPEG-2 Audio Layer I and Layer II decoder (mp1/mp2).
//
// A Decoder reads from a Source, which is any io.Reader wrapped by NewSource, or a
// StreamBuffer fed progressively through Write and SignalEnd. NewDecoder verifies a chain
// of consistent frame headers before it accepts the stream, skipping a leading ID3v2 tag
// and junk, and reads the Xing, Info, VBRI and LAME side data of the first frame.
// Layer III streams are rejected with ErrUnsupportedFormat wrapping ErrLayerIII.
//
// Decoded audio is signed 16-bit PCM, interleaved for stereo. You have three options:
//
// 1. Read, the decoder is an io.Reader producing PCM bytes in the configured byte order.
//
// 2. DecodeFrame, decodes exactly one frame (384 or 1152 samples per channel).
//
// 3. PCMBuffer, fills a go-audio IntBuffer, EncodeWAV uses it to write a WAV file.
//
// Frames with a CRC mismatch are dropped, frames with an illegal bit allocation are
// replaced by silence and the decoder resyncs on the next valid header.
//
// Seek moves to a byte offset, either by walking frame headers (active) or by TOC and
// bitrate arithmetic when FastSeeking is set (passive). SetPlaytime moves to a time.
// Output is muted for a few frames after every reposition.
//
// See https://github.com/gen2brain/mpa/tree/main/examples for players and a converter.
package mpa
