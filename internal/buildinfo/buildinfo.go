// Package buildinfo exposes version metadata injected at build time via
// -ldflags "-X github.com/router-for-me/OrgQuotaService/internal/buildinfo.Version=...".
package buildinfo

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = ""
	// BuildDate is the UTC build timestamp.
	BuildDate = ""
)
