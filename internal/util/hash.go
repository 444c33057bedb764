package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}

// ChunkID is stable for the same file name, position and text.
func ChunkID(filename string, ordinal int, text string) string {
	return SHA256Hex([]byte(fmt.Sprintf("%s:%d:%s", filename, ordinal, SHA256Hex([]byte(text)))))
}
