//go:build !linux

package cmdline

import "github.com/ndnfw/ndnfw/internal/core"

// startEthernetFace is a no-op outside Linux: direct-Ethernet faces need
// an AF_PACKET raw socket, which pkg/face only implements for Linux.
func (d *daemon) startEthernetFace() {
	if d.cfg.Faces.EthernetIfName != "" {
		core.Log.Warn(d, "ethernet faces are only supported on Linux; ignoring configured interface", "ifname", d.cfg.Faces.EthernetIfName)
	}
}
