package agent

import (
	"bufio"
	"net"
	"os"
	"strings"
)

const agentIDFileName = "agent_id.txt"

// readAgentID returns the previously assigned node_id from dataDir's
// identity file, or "" if the Agent has never registered. Grounded on
// the original agent's readAgentIdFromFile/writeAgentIdToFile pair: a
// single-line, UTF-8 file next to the Agent's working data.
func readAgentID(dataDir string) string {
	f, err := os.Open(identityPath(dataDir))
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

// writeAgentID persists the node_id the Manager assigned, so a restarted
// Agent presents the same identity on its next registration.
func writeAgentID(dataDir, id string) error {
	return os.WriteFile(identityPath(dataDir), []byte(id+"\n"), 0o644)
}

func identityPath(dataDir string) string {
	if dataDir == "" {
		return agentIDFileName
	}
	return dataDir + "/" + agentIDFileName
}

// detectAddress returns the IPv4 address of preferredInterface if set and
// present, else the first non-loopback, non-docker-bridge interface's
// address, else "127.0.0.1". Grounded on the original agent's
// getLocalIpAddress (configured interface first, then first real
// interface, skipping "lo" and anything prefixed "docker").
func detectAddress(preferredInterface string) string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}

	if preferredInterface != "" {
		for _, ifc := range ifaces {
			if ifc.Name != preferredInterface {
				continue
			}
			if addr, ok := firstIPv4(ifc); ok {
				return addr
			}
		}
	}

	for _, ifc := range ifaces {
		if ifc.Name == "lo" || strings.HasPrefix(ifc.Name, "docker") {
			continue
		}
		if ifc.Flags&net.FlagUp == 0 {
			continue
		}
		if addr, ok := firstIPv4(ifc); ok {
			return addr
		}
	}

	return "127.0.0.1"
}

func firstIPv4(ifc net.Interface) (string, bool) {
	addrs, err := ifc.Addrs()
	if err != nil {
		return "", false
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), true
		}
	}
	return "", false
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
