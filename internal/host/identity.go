package host

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/host"
)

// Identity keys stored preferences to the physical machine. Both fields are
// opaque to the rest of the system.
type Identity struct {
	Hostname  string `json:"hostname"`
	MachineID string `json:"machine_id"`
}

// ReadIdentity reads the machine's hostname and stable host ID.
func ReadIdentity(ctx context.Context) (Identity, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to read host info: %w", err)
	}
	return Identity{Hostname: info.Hostname, MachineID: info.HostID}, nil
}
