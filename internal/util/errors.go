package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrNoChunks          = errors.New("document produced no chunks")
)
