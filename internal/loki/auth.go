package loki

import "strings"

// AuthorizationHeader turns a configured credential into an Authorization
// header value. A credential that already names its scheme ("Basic" or
// "Bearer") is passed through unchanged; anything else is sent as a bearer token.
// Surrounding whitespace is dropped; an empty credential yields an empty string.
func AuthorizationHeader(credential string) string {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ""
	}
	if strings.Contains(credential, "Basic") || strings.Contains(credential, "Bearer") {
		return credential
	}
	return "Bearer " + credential
}
