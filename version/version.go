package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = NCCoreSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// NCCoreSemVer is the current version of naivechain.
	// It's the Semantic Version of the software.
	NCCoreSemVer = "0.1.0"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

var (
	// P2PProtocol versions the peer wire messages. Nodes speaking the same
	// protocol can exchange chains.
	P2PProtocol Protocol = 1
)
