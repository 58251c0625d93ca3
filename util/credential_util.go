// util/credential_util.go

package util

import "strings"

// ExtractCredential returns the bearer token from one of the three
// locations a caller may present it in, searched in fixed priority order:
// request body field, query parameter, Authorization header. The first
// non-empty match wins; an optional "Bearer " prefix on the header value
// is stripped. An empty result means no credential was presented, which
// is not an error.
func ExtractCredential(bodyToken, queryToken, authorizationHeader string) string {
	token := bodyToken

	if token == "" {
		token = queryToken
	}

	if token == "" {
		token = strings.TrimPrefix(authorizationHeader, "Bearer ")
	}

	return strings.TrimSpace(token)
}
