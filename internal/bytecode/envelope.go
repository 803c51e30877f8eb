package bytecode

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Magic is the 4-byte prefix every on-disk Module envelope starts with
// ("LLMB" — the bytecode's own initialism, kept from the original
// escapeboy/boruna source format this spec was distilled from).
var Magic = [4]byte{'L', 'L', 'M', 'B'}

const envelopeHeaderLen = 4 + 2 + 4 // magic + version(u16 LE) + length(u32 LE)

// ToBytes serializes m into the framed binary envelope: magic, little
// -endian u16 version, little-endian u32 payload length, then the Module
// encoded as JSON.
func ToBytes(m *Module) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal module: %w", err)
	}
	out := make([]byte, envelopeHeaderLen+len(payload))
	copy(out[0:4], Magic[:])
	binary.LittleEndian.PutUint16(out[4:6], m.Version)
	binary.LittleEndian.PutUint32(out[6:10], uint32(len(payload)))
	copy(out[10:], payload)
	return out, nil
}

// FromBytes parses the framed binary envelope produced by ToBytes. Any
// prefix whose first four bytes don't match Magic is rejected, as is a
// version exceeding CurrentVersion.
func FromBytes(data []byte) (*Module, error) {
	if len(data) < envelopeHeaderLen {
		return nil, fmt.Errorf("bytecode: envelope too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != string(Magic[:]) {
		return nil, fmt.Errorf("bytecode: bad magic %q, want %q", data[0:4], Magic[:])
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version > CurrentVersion {
		return nil, fmt.Errorf("bytecode: unsupported version %d (max %d)", version, CurrentVersion)
	}
	length := binary.LittleEndian.Uint32(data[6:10])
	payload := data[envelopeHeaderLen:]
	if uint32(len(payload)) != length {
		return nil, fmt.Errorf("bytecode: payload length mismatch: header says %d, have %d", length, len(payload))
	}

	var m Module
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal module: %w", err)
	}
	if m.Version == 0 {
		m.Version = 1
	}
	return &m, nil
}

// FromJSON parses a Module from its JSON form (the payload ToBytes embeds).
func FromJSON(data []byte) (*Module, error) {
	var m Module
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal module: %w", err)
	}
	if m.Version == 0 {
		m.Version = 1
	}
	return &m, nil
}

// ToJSON renders m as the JSON form used inside the binary envelope.
func ToJSON(m *Module) ([]byte, error) {
	return json.Marshal(m)
}
