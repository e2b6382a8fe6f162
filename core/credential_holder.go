package core

import "sync"

// MemoryCredentialHolder keeps the access credential in process memory.
// Every mutation replaces the credential wholesale; there is no partial
// update path.
type MemoryCredentialHolder struct {
	mu   sync.RWMutex
	cred AccessCredential
	set  bool
}

func NewMemoryCredentialHolder() *MemoryCredentialHolder {
	return &MemoryCredentialHolder{}
}

func (h *MemoryCredentialHolder) Set(cred AccessCredential) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cred = cred
	h.set = !cred.Empty()
}

func (h *MemoryCredentialHolder) Get() (AccessCredential, bool) {
	if h == nil {
		return AccessCredential{}, false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.set {
		return AccessCredential{}, false
	}

	return h.cred, true
}

func (h *MemoryCredentialHolder) Clear() {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cred = AccessCredential{}
	h.set = false
}
