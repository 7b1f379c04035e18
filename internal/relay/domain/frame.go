package domain

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const (
	// MaxChunkSize is the hard upper bound for a single data frame.
	MaxChunkSize = 64 * 1024

	// DefaultQueueCapacity is the per-transfer byte budget when none is configured.
	DefaultQueueCapacity = 1024 * 1024

	frameHeaderSize = 5
)

var (
	ErrChunkTooLarge   = errors.New("chunk exceeds maximum size")
	ErrEmptyChunk      = errors.New("data frame must not be empty")
	ErrInvalidChecksum = errors.New("invalid frame checksum")
	ErrMalformedFrame  = errors.New("malformed frame")
)

// FrameKind tags a Frame.
type FrameKind byte

const (
	FrameData      FrameKind = 1
	FrameDone      FrameKind = 2
	FrameInterrupt FrameKind = 3
)

func (k FrameKind) String() string {
	switch k {
	case FrameData:
		return "data"
	case FrameDone:
		return "done"
	case FrameInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Frame is one element of a Chunk Channel: a data chunk or a terminal sentinel.
type Frame struct {
	Kind FrameKind
	// Data holds the chunk bytes for FrameData.
	Data []byte
	// Reason holds the client-facing interrupt reason for FrameInterrupt.
	Reason string
}

// DataFrame wraps a chunk.
func DataFrame(data []byte) Frame {
	return Frame{Kind: FrameData, Data: data}
}

// DoneFrame is the clean end-of-stream sentinel.
func DoneFrame() Frame {
	return Frame{Kind: FrameDone}
}

// InterruptFrame is the abnormal end-of-stream sentinel.
func InterruptFrame(reason string) Frame {
	return Frame{Kind: FrameInterrupt, Reason: reason}
}

// IsSentinel reports whether the frame terminates the stream.
func (f Frame) IsSentinel() bool {
	return f.Kind == FrameDone || f.Kind == FrameInterrupt
}

// Size is the number of buffered bytes the frame accounts for. Sentinels are free.
func (f Frame) Size() int64 {
	if f.Kind != FrameData {
		return 0
	}
	return int64(len(f.Data))
}

// Validate checks the frame shape.
func (f Frame) Validate() error {
	switch f.Kind {
	case FrameData:
		if len(f.Data) == 0 {
			return ErrEmptyChunk
		}
		if len(f.Data) > MaxChunkSize {
			return ErrChunkTooLarge
		}
		return nil
	case FrameDone, FrameInterrupt:
		return nil
	default:
		return ErrMalformedFrame
	}
}

// Encode serializes the frame as kind | crc32(payload) | payload.
func (f Frame) Encode() []byte {
	var payload []byte
	switch f.Kind {
	case FrameData:
		payload = f.Data
	case FrameInterrupt:
		payload = []byte(f.Reason)
	}

	buf := make([]byte, frameHeaderSize+len(payload))
	buf[0] = byte(f.Kind)
	binary.BigEndian.PutUint32(buf[1:frameHeaderSize], crc32.ChecksumIEEE(payload))
	copy(buf[frameHeaderSize:], payload)
	return buf
}

// DecodeFrame parses an encoded frame and verifies its checksum.
func DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) < frameHeaderSize {
		return Frame{}, ErrMalformedFrame
	}

	kind := FrameKind(raw[0])
	checksum := binary.BigEndian.Uint32(raw[1:frameHeaderSize])
	payload := raw[frameHeaderSize:]
	if crc32.ChecksumIEEE(payload) != checksum {
		return Frame{}, ErrInvalidChecksum
	}

	var f Frame
	switch kind {
	case FrameData:
		f = DataFrame(payload)
	case FrameDone:
		f = DoneFrame()
	case FrameInterrupt:
		f = InterruptFrame(string(payload))
	default:
		return Frame{}, ErrMalformedFrame
	}

	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}
