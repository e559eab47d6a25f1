// Package hostnet inspects and adjusts host networking for the provisioner.
package hostnet

import (
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

var ErrNoUplink = errors.New("no non-loopback link is up with an IPv4 address")

// CheckUplink verifies that at least one non-loopback interface is up and
// carries an IPv4 address. Package downloads are doomed without one, so the
// pipeline checks this before touching any persistent state.
func CheckUplink() error {
	links, err := netlink.LinkList()
	if err != nil {
		return fmt.Errorf("listing network links: %w", err)
	}

	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Flags&net.FlagLoopback != 0 || attrs.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return fmt.Errorf("listing addresses of %s: %w", attrs.Name, err)
		}

		if len(addrs) > 0 {
			return nil
		}
	}

	return ErrNoUplink
}
