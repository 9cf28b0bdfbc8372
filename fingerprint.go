package gvm

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

var _ driver.Valuer = Fingerprint{}

const (
	FingerprintSize = 32
	// Base64Alphabet is used when encoding Fingerprints as strings.
	// It is URL safe and maintains ordering.
	Base64Alphabet = "-0123456789" + "ABCDEFGHIJKLMNOPQRSTUVWXYZ" + "_" + "abcdefghijklmnopqrstuvwxyz"
)

// Fingerprint identifies a program by the hash of its canonical encoding.
type Fingerprint [FingerprintSize]byte

var enc = base64.NewEncoding(Base64Alphabet).WithPadding(base64.NoPadding)

// ParseFingerprint decodes the output of Fingerprint.String.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	err := fp.UnmarshalText([]byte(s))
	return fp, err
}

func (fp Fingerprint) String() string {
	return enc.EncodeToString(fp[:])
}

func (fp Fingerprint) IsZero() bool {
	return fp == (Fingerprint{})
}

func (fp Fingerprint) MarshalText() ([]byte, error) {
	buf := make([]byte, enc.EncodedLen(len(fp)))
	enc.Encode(buf, fp[:])
	return buf, nil
}

func (fp *Fingerprint) UnmarshalText(data []byte) error {
	if enc.DecodedLen(len(data)) != FingerprintSize {
		return fmt.Errorf("fingerprint has wrong length %d", len(data))
	}
	_, err := enc.Decode(fp[:], data)
	return err
}

func (fp Fingerprint) MarshalJSON() ([]byte, error) {
	return json.Marshal(fp.String())
}

func (fp *Fingerprint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return fp.UnmarshalText([]byte(s))
}

func (fp *Fingerprint) Scan(x any) error {
	switch x := x.(type) {
	case []byte:
		if len(x) != FingerprintSize {
			return fmt.Errorf("wrong length for Fingerprint HAVE: %d WANT: %d", len(x), FingerprintSize)
		}
		copy(fp[:], x)
		return nil
	default:
		return fmt.Errorf("cannot scan type %T", x)
	}
}

func (fp Fingerprint) Value() (driver.Value, error) {
	return fp[:], nil
}
