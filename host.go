package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/provider"
)

// HostAdapter is the thin entry point a host application wires its platform callbacks to.
// Every method reports whether the manager consumed the input; false means the input
// belongs to another subsystem.
type HostAdapter struct {
	manager *Manager
}

// NewHostAdapter returns the adapter that routes host callbacks to m.
func NewHostAdapter(m *Manager) *HostAdapter {
	return &HostAdapter{manager: m}
}

// OnActivityResult forwards a result triple to [Manager.OnExternalResult].
func (h *HostAdapter) OnActivityResult(ctx context.Context, requestCode provider.RequestCode, resultCode provider.ResultCode, payload provider.Payload) bool {
	return h.manager.OnExternalResult(ctx, requestCode, resultCode, payload)
}

// OnNewIntent forwards a provider event to [Manager.OnExternalEvent].
func (h *HostAdapter) OnNewIntent(ctx context.Context, event provider.Event) bool {
	return h.manager.OnExternalEvent(ctx, event)
}
