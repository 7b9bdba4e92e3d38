// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import "fmt"

var (
	version     = "0.1.0"
	buildCommit = "none"
)

// String returns a human-readable version string for diagnostics.
func String() string {
	return fmt.Sprintf("gitwire/%s (%s)", version, buildCommit)
}

// BannerVersion returns the software-version token sent as part of the
// SSH client identification string (RFC 4253 §4.2): "SSH-2.0-<banner>".
func BannerVersion() string {
	return "gitwire-" + version
}
