// Package version provides version information for the price-attestor application.
package version

// Version is the current version of the price-attestor application.
const Version = "0.3.1"

// AgentString returns the full agent string with versioning.
// Format: @tc/price-attestor@v{version}
func AgentString() string {
	return "@tc/price-attestor@v" + Version
}
