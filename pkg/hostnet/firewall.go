package hostnet

import (
	"fmt"
	"strconv"

	"github.com/coreos/go-iptables/iptables"
)

// OpenTCPPort inserts an ACCEPT rule for inbound TCP traffic on port.
// AppendUnique keeps re-runs from stacking duplicate rules.
func OpenTCPPort(port int) error {
	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("initializing iptables: %w", err)
	}

	err = ipt.AppendUnique("filter", "INPUT", "-p", "tcp", "--dport", strconv.Itoa(port), "-j", "ACCEPT")
	if err != nil {
		return fmt.Errorf("opening tcp port %d: %w", port, err)
	}

	return nil
}
