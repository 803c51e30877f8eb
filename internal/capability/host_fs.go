package capability

import (
	"fmt"
	"os"

	"boruna/internal/value"
)

// HostFsRead reads a file. Args: [path string]. Grounded on
// internal/foreign/slug_io_fs.go.
func HostFsRead(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, fmt.Errorf("fs.read: want [path], got %d args", len(args))
	}
	data, err := os.ReadFile(args[0].String)
	if err != nil {
		return value.Value{}, fmt.Errorf("fs.read: %w", err)
	}
	return value.Str(string(data)), nil
}

// HostFsWrite writes a file, returning the number of bytes written. Args:
// [path string, content string].
func HostFsWrite(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, fmt.Errorf("fs.write: want [path, content], got %d args", len(args))
	}
	if err := os.WriteFile(args[0].String, []byte(args[1].String), 0o644); err != nil {
		return value.Value{}, fmt.Errorf("fs.write: %w", err)
	}
	return value.Int(int64(len(args[1].String))), nil
}
