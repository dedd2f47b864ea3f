// Package provider defines the boundary between the account session manager and an
// external identity provider.
//
// # Contract
//
// A [Client] performs the actual sign-in handshake out of band. For every call to
// [Client.StartSignIn] it delivers at most one terminal outcome through the supplied
// [Callbacks]: OnSuccess or OnFailure. Platform-level results and events are handed to the
// client through [Client.HandleResult] and [Client.HandleEvent]; both report whether the
// client consumed the input so the host can route it elsewhere. When the manager ends an
// attempt on its own it calls [Client.Abandon]; the client then forgets the attempt
// without invoking callbacks.
//
// # What this package must NOT do
//
//   - Import goAccount (no upward imports).
//   - Persist credentials; ownership of the resulting credential belongs to the manager.
package provider
