// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import "regexp"

var secretPattern = regexp.MustCompile(`(?i)((?:oauth_)?(?:token|key|secret|signature)["']?\s*[=:]\s*["']?)[^&"'\s,}]+`)

// redact masks credential-looking values in diagnostic strings.
func redact(s string) string {
	return secretPattern.ReplaceAllString(s, "${1}[REDACTED]")
}
