package onboarding

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-onboarding/core"
)

// HookPack is a named set of flow hooks a host application registers as a
// unit, e.g. an analytics pack or an audit pack.
type HookPack struct {
	Name  string
	Hooks []core.FlowHook
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	hookPacks map[string]HookPack
	bundles   map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		hookPacks: map[string]HookPack{},
		bundles:   map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterHookPack(pack HookPack) error {
	if h == nil {
		return fmt.Errorf("onboarding: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("onboarding: hook pack name is required")
	}
	if len(pack.Hooks) == 0 {
		return fmt.Errorf("onboarding: hook pack %q has no hooks", name)
	}
	for _, hook := range pack.Hooks {
		if hook == nil {
			return fmt.Errorf("onboarding: hook pack %q contains nil hook", name)
		}
	}

	normalized := HookPack{
		Name:  name,
		Hooks: append([]core.FlowHook(nil), pack.Hooks...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.hookPacks[name]; exists {
		return fmt.Errorf("onboarding: hook pack %q already registered", name)
	}
	h.hookPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("onboarding: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("onboarding: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("onboarding: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("onboarding: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// FlowHookOptions flattens the registered packs into service options, in
// pack-name order, so hosts can splice them into NewService.
func (h *ExtensionHooks) FlowHookOptions() []core.Option {
	packs := h.HookPacks()
	var opts []core.Option
	for _, pack := range packs {
		for _, hook := range pack.Hooks {
			opts = append(opts, core.WithFlowHook(hook))
		}
	}
	return opts
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("onboarding: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) HookPacks() []HookPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.hookPacks))
	for name := range h.hookPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HookPack, 0, len(names))
	for _, name := range names {
		pack := h.hookPacks[name]
		out = append(out, HookPack{
			Name:  pack.Name,
			Hooks: append([]core.FlowHook(nil), pack.Hooks...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
