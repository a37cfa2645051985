package cluster

import "sync"

// Role is the cluster-wide function of a device. Exactly one device holds
// the coordinator role at a time per term.
type Role string

const (
	RoleWorker      Role = "WORKER"
	RoleCoordinator Role = "COORDINATOR"
)

// Device is the local appliance's registry record. The election core only
// flips the role field on leader/follower transitions; everything else about
// the device belongs to the registry.
type Device struct {
	mu   sync.RWMutex
	id   string
	role Role
}

func NewDevice(id string) *Device {
	return &Device{id: id, role: RoleWorker}
}

func (d *Device) ID() string {
	return d.id
}

func (d *Device) Role() Role {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.role
}

func (d *Device) SetRole(r Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.role = r
}
