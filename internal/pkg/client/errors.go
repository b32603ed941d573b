package client

import "github.com/pkg/errors"

// ErrChecksumMismatch indicates the locally-computed sequence checksum does
// not match the server's "checksum" trailer.
var ErrChecksumMismatch = errors.New("checksum mismatch")
