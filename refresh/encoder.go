package refresh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/MrEthical07/authcore"
)

const recordFormatVersion = 1

// ErrCorruptRecord is returned when a stored value cannot be decoded.
var ErrCorruptRecord = errors.New("refresh record corrupt")

// Encode serialises rec without its digest, which is the key.
//
// Layout: version(1) | len(identity)(1) | identity | created_at(8) | expires_at(8),
// times as big-endian Unix nanoseconds. The consume script reads the identity from
// bytes 2.. so the prefix must not change without bumping the version.
func Encode(rec authcore.RefreshRecord) ([]byte, error) {
	if rec.IdentityID == "" {
		return nil, errors.New("identity id is required")
	}
	if len(rec.IdentityID) > 255 {
		return nil, errors.New("identity id too long")
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(rec.IdentityID) + 16)
	buf.WriteByte(recordFormatVersion)
	buf.WriteByte(byte(len(rec.IdentityID)))
	buf.WriteString(rec.IdentityID)

	var ts [16]byte
	binary.BigEndian.PutUint64(ts[:8], uint64(rec.CreatedAt.UnixNano()))
	binary.BigEndian.PutUint64(ts[8:], uint64(rec.ExpiresAt.UnixNano()))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode is the inverse of Encode. digest is copied into the result.
func Decode(digest string, data []byte) (authcore.RefreshRecord, error) {
	if len(data) < 2 || data[0] != recordFormatVersion {
		return authcore.RefreshRecord{}, ErrCorruptRecord
	}
	n := int(data[1])
	if n == 0 || len(data) != 2+n+16 {
		return authcore.RefreshRecord{}, ErrCorruptRecord
	}

	idEnd := 2 + n
	created := int64(binary.BigEndian.Uint64(data[idEnd : idEnd+8]))
	expires := int64(binary.BigEndian.Uint64(data[idEnd+8:]))

	return authcore.RefreshRecord{
		Digest:     digest,
		IdentityID: string(data[2:idEnd]),
		CreatedAt:  time.Unix(0, created).UTC(),
		ExpiresAt:  time.Unix(0, expires).UTC(),
	}, nil
}
