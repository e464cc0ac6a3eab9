package release

import (
	"fmt"
	"path"
)

// Executable names one of the two binaries a release ships.
type Executable string

const (
	Relay     Executable = "relay"
	DNSServer Executable = "dns-server"
)

// Executables lists every binary included in a release, in build order.
var Executables = []Executable{Relay, DNSServer}

// Platform is an OS/architecture pair a release binary is built for.
type Platform struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

var (
	LinuxAmd64 = Platform{OS: "linux", Arch: "amd64"}
	LinuxArm64 = Platform{OS: "linux", Arch: "arm64"}

	// Platforms lists every platform a release covers.
	Platforms = []Platform{LinuxAmd64, LinuxArm64}
)

// artifactArch maps a platform architecture to the name the artifact store
// uses. The store keys ARM binaries under "aarch64", not "arm64".
var artifactArch = map[string]string{
	"amd64": "amd64",
	"arm64": "aarch64",
}

// ArtifactKey returns the artifact store key for one platform binary,
// following the iroh-{name}-{os}-{arch}-{hash} naming convention. The key is
// a pure formatting convention; a hash with no uploaded artifacts surfaces
// only as a missing-artifact error at fetch time.
func ArtifactKey(exe Executable, p Platform, baseHash string) string {
	arch, ok := artifactArch[p.Arch]
	if !ok {
		arch = p.Arch
	}
	return fmt.Sprintf("iroh-%s-%s-%s-%s", exe, p.OS, arch, baseHash)
}

// Request describes one release run. It is immutable once the workflow
// starts.
type Request struct {
	// Version is the tag the released images carry, e.g. "v0.1.0".
	Version string `json:"version"`
	// BaseHash is the commit hash the binaries were built and uploaded for.
	BaseHash string `json:"base_hash"`
	// Publish gates the registry push. When false the workflow builds and
	// tags locally but never touches the registry.
	Publish bool `json:"publish"`
}

// Validate rejects a request before any side effect happens.
func (r Request) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("release version must not be empty")
	}
	if r.BaseHash == "" {
		return fmt.Errorf("base hash must not be empty")
	}
	return nil
}

// WorkDir returns the run-scoped directory name all activities of one
// release share, relative to the worker's workspace root.
func (r Request) WorkDir() string {
	return "iroh-release-" + r.BaseHash
}

// BinaryPath returns where a fetched platform binary lives inside the run's
// work directory. The layout mirrors the artifact keys so a partially fetched
// tree is self-describing.
func (r Request) BinaryPath(exe Executable, p Platform) string {
	return path.Join(r.WorkDir(), p.String(), string(exe))
}

// Result is what a finished workflow reports back to the trigger.
type Result struct {
	Version  string            `json:"version"`
	BaseHash string            `json:"base_hash"`
	// Digests maps executable name to the digest of its multi-platform
	// image index.
	Digests map[string]string `json:"digests"`
	// Pushed lists every registry reference written, empty when the run was
	// not published.
	Pushed []string `json:"pushed,omitempty"`
}

// Event is the payload announced after a successful publish.
type Event struct {
	Version  string            `json:"version"`
	BaseHash string            `json:"base_hash"`
	Digests  map[string]string `json:"digests"`
}
