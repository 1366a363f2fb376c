// Package relay frames raw PCM audio and fans it out to recipient
// connections.
package relay

import "encoding/binary"

const (
	headerSize     = 44
	bytesPerSample = 2 // 16-bit PCM
	fmtChunkSize   = 16
	pcmFormat      = 1
	bitsPerSample  = 16
)

// EncodeWAV wraps raw 16-bit PCM bytes in a 44-byte RIFF/WAVE header.
// Pure function of its inputs; multi-byte fields are little-endian.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	dataSize := len(pcm)
	out := make([]byte, headerSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(headerSize+dataSize-8))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(out[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[32:34], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	copy(out[headerSize:], pcm)
	return out
}
