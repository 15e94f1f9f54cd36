package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Info contains plugin metadata
type Info struct {
	ID       string // Unique plugin identifier (e.g., "com.example.myplugin")
	Name     string // Display name
	Version  string // Semantic version (e.g., "1.0.0")
	Vendor   string // Company/developer name
	Category string // Plugin category (e.g., "Fx|MIDI")
}

// UID derives a stable 16-byte class ID from the plugin ID (name-based
// SHA-1 UUID), so the same ID always maps to the same host class.
func (i Info) UID() [16]byte {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(i.ID))
}

// ValidateUID reports whether the plugin ID can produce a usable UID.
func (i Info) ValidateUID() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New("plugin ID is empty")
	}
	if i.UID() == [16]byte{} {
		return fmt.Errorf("plugin ID %q produced a zero UID", i.ID)
	}
	return nil
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s) [%s]", i.Name, i.Version, i.Vendor, uuid.UUID(i.UID()))
}
