package gvmprog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"gvm.dev/gvm"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("gvmprog: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCBOR encodes p using canonical CBOR.
// Equal programs always have equal encodings.
func MarshalCBOR(p Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

func UnmarshalCBOR(data []byte) (Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return Program{}, fmt.Errorf("gvmprog: unmarshal cbor: %w", err)
	}
	return p, nil
}

func MarshalJSON(p Program) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

func UnmarshalJSON(data []byte) (Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return Program{}, fmt.Errorf("gvmprog: unmarshal json: %w", err)
	}
	return p, nil
}

// Fingerprint hashes the canonical encoding of the program's globals and instructions.
// Debug symbols do not contribute.
func Fingerprint(p Program) gvm.Fingerprint {
	data, err := MarshalCBOR(Program{Globals: p.Globals, Instrs: p.Instrs})
	if err != nil {
		panic(err)
	}
	return gvm.Hash(nil, data)
}

// Format is a storage format for programs.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
	FormatAsm  Format = "asm"
)

// FormatFromPath returns the format implied by the file extension of p.
func FormatFromPath(p string) (Format, error) {
	switch ext := filepath.Ext(p); ext {
	case ".json":
		return FormatJSON, nil
	case ".cbor":
		return FormatCBOR, nil
	case ".gvms", ".s":
		return FormatAsm, nil
	default:
		return "", fmt.Errorf("gvmprog: unknown program extension %q", ext)
	}
}

// Parse decodes data in format f and validates the result.
func Parse(f Format, data []byte) (Program, error) {
	var p Program
	var err error
	switch f {
	case FormatJSON:
		p, err = UnmarshalJSON(data)
	case FormatCBOR:
		p, err = UnmarshalCBOR(data)
	case FormatAsm:
		p, err = ParseAsm(data)
	default:
		return Program{}, fmt.Errorf("gvmprog: unknown format %q", f)
	}
	if err != nil {
		return Program{}, err
	}
	if err := p.Validate(); err != nil {
		return Program{}, err
	}
	return p, nil
}

// Marshal encodes p in format f.
func Marshal(f Format, p Program) ([]byte, error) {
	switch f {
	case FormatJSON:
		return MarshalJSON(p)
	case FormatCBOR:
		return MarshalCBOR(p)
	case FormatAsm:
		return FormatAsmText(p), nil
	default:
		return nil, fmt.Errorf("gvmprog: unknown format %q", f)
	}
}

// LoadFile reads and validates the program at path, choosing the format by extension.
func LoadFile(path string) (Program, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Program{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	p, err := Parse(f, data)
	if err != nil {
		return Program{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
