// Package oauth implements provider.Client for OAuth2 identity providers using the
// authorization-code flow with PKCE.
//
// The host opens the authorization URL (in a browser or an embedded view) and later hands
// the redirect back, either as a provider.Event whose URI is the redirect URL or as a
// result triple whose payload carries the redirect parameters. The code exchange runs in
// its own goroutine and delivers exactly one callback per attempt.
package oauth
