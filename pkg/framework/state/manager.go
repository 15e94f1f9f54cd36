// Package state saves and restores parameter values as a host state blob.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/justyntemme/stylefx/pkg/framework/param"
)

const magic = "STYLEFX"

// ErrInvalidState is returned when a blob is not a recognizable state
var ErrInvalidState = errors.New("invalid state")

// maxParams bounds the count read from a blob before anything is allocated
const maxParams = 1 << 12

// Manager handles plugin state saving and loading
type Manager struct {
	version  uint32
	registry *param.Registry
}

// NewManager creates a new state manager
func NewManager(registry *param.Registry) *Manager {
	return &Manager{
		version:  1,
		registry: registry,
	}
}

// Save writes the plugin state to a writer
func (m *Manager) Save(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString(magic)

	params := m.registry.All()
	// bytes.Buffer writes cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, m.version)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(params)))
	for _, p := range params {
		_ = binary.Write(&buf, binary.LittleEndian, p.ID)
		_ = binary.Write(&buf, binary.LittleEndian, p.GetValue())
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Load reads the plugin state from a reader. Values are clamped to their
// parameter's range on the way in; unknown IDs are skipped for forward
// compatibility. Nothing is applied unless the whole blob parses.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrInvalidState, err)
	}
	if string(header) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidState, header)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("%w: version: %v", ErrInvalidState, err)
	}
	if version > m.version {
		return fmt.Errorf("%w: version %d is newer than supported version %d", ErrInvalidState, version, m.version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: count: %v", ErrInvalidState, err)
	}
	if count > maxParams {
		return fmt.Errorf("%w: %d parameters", ErrInvalidState, count)
	}

	type entry struct {
		ID    uint32
		Value float64
	}
	entries := make([]entry, count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrInvalidState, err)
	}

	for _, e := range entries {
		if p := m.registry.Get(e.ID); p != nil {
			p.SetValue(e.Value)
		}
	}
	return nil
}
