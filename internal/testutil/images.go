package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// PNGHeader returns the signature and IHDR chunk of an 8-bit grayscale PNG
// claiming w x h pixels. image.DecodeConfig accepts it; a full decode fails
// for lack of pixel data.
func PNGHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // depth, gray, deflate, filter, no interlace

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}
