//go:build linux

package cmdline

import (
	"net"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/face"
)

// startEthernetFace opens the configured direct-Ethernet interface as a
// single multi-access face (spec.md §4.7), if one is named in the config.
func (d *daemon) startEthernetFace() {
	ifname := d.cfg.Faces.EthernetIfName
	if ifname == "" {
		return
	}
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		core.Log.Error(d, "failed to resolve ethernet interface", "ifname", ifname, "err", err)
		return
	}

	id := d.faces.NextID()
	t, err := face.OpenEthernet(id, iface.Index)
	if err != nil {
		core.Log.Error(d, "failed to open ethernet face", "ifname", ifname, "err", err)
		return
	}
	d.faces.Add(t)
	go t.Recv(func(pkt []byte) {
		d.thread(uint64(t.ID())).DispatchInboundFast(d.classifier, pkt, t.ID())
	})
	core.Log.Info(d, "ethernet face up", "ifname", ifname, "face", id)
}
