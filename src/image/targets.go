package image

import "fmt"

// Target describes one container image a release produces: where the binary
// lands inside the image, which ports the service listens on, and the image
// environment.
type Target struct {
	// Name is the image repository name without the registry namespace,
	// e.g. "iroh-relay".
	Name string
	// Binary is the absolute path of the executable inside the image. It is
	// also the image entrypoint.
	Binary string
	// ExposedPorts in OCI "port/proto" form.
	ExposedPorts []string
	// Env entries appended to the base image environment.
	Env []string
}

// The relay serves HTTP on 80, HTTPS on 443, STUN on 3478/udp and metrics on
// 9090. The staging relay flag is forced on for release images.
var relayTarget = Target{
	Name:         "iroh-relay",
	Binary:       "/iroh-relay",
	ExposedPorts: []string{"80/tcp", "443/tcp", "3478/udp", "9090/tcp"},
	Env:          []string{"IROH_RELAY_STAGING=true"},
}

// The DNS server answers queries on 53/udp and serves metrics on 9090.
var dnsServerTarget = Target{
	Name:         "iroh-dns-server",
	Binary:       "/iroh-dns-server",
	ExposedPorts: []string{"53/udp", "9090/tcp"},
}

var targets = map[string]Target{
	"relay":      relayTarget,
	"dns-server": dnsServerTarget,
}

// TargetFor maps an executable name to its image target.
func TargetFor(executable string) (Target, error) {
	t, ok := targets[executable]
	if !ok {
		return Target{}, fmt.Errorf("image: no target for executable %q", executable)
	}
	return t, nil
}
