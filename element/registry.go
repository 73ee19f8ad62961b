package element

import (
	"sort"
	"sync"

	"corestream/pad"
)

// Info is a point-in-time snapshot of a running element, the shape the
// debug HTTP surface in cmd/elementctl serializes.
type Info struct {
	Name  string
	State string
	Pads  []string
}

// PadInfo is a point-in-time snapshot of one pad, the detail level
// GET /elements/:name/pads reports: demand, current_size (pull mode only),
// and the monotone stream flags from spec.md §3.
type PadInfo struct {
	Ref           string
	Direction     string
	Mode          string
	Demand        int64
	CurrentSize   int
	HasBuffer     bool
	StartOfStream bool
	EndOfStream   bool
	Linked        bool
}

// Registry tracks every running Runtime by name for introspection, the
// same role ChannelState plays for connected sessions in the source
// framework: a process-wide, mutex-protected directory with no
// persistence.
type Registry struct {
	mu   sync.RWMutex
	live map[string]*Runtime
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[string]*Runtime)}
}

func (r *Registry) add(rt *Runtime) {
	r.mu.Lock()
	r.live[rt.name] = rt
	r.mu.Unlock()
}

func (r *Registry) remove(name string) {
	r.mu.Lock()
	delete(r.live, name)
	r.mu.Unlock()
}

// Lookup returns the Address of a running element by name.
func (r *Registry) Lookup(name string) (*Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.live[name]
	if !ok {
		return nil, false
	}
	return rt.addr, true
}

// Snapshot returns a stable, name-sorted list of every running element.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.live))
	for _, rt := range r.live {
		out = append(out, rt.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PadNames returns the pad names of one running element, for callers that
// only need identity rather than the full PadInfo snapshot.
func (r *Registry) PadNames(name string) ([]string, bool) {
	r.mu.RLock()
	rt, ok := r.live[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return rt.info().Pads, true
}

// Pads returns a name-sorted PadInfo snapshot for one running element, the
// payload GET /elements/:name/pads serializes.
func (r *Registry) Pads(name string) ([]PadInfo, bool) {
	r.mu.RLock()
	rt, ok := r.live[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	pads := rt.pads.All()
	out := make([]PadInfo, 0, len(pads))
	for _, p := range pads {
		info := PadInfo{
			Ref:           p.Ref.String(),
			Direction:     p.Direction.String(),
			Mode:          p.Mode.String(),
			Demand:        p.Demand(),
			StartOfStream: p.StartOfStream(),
			EndOfStream:   p.EndOfStream(),
			Linked:        p.Linked(),
		}
		if p.Direction == pad.Input && p.Mode == pad.Pull && p.Buffer() != nil {
			info.HasBuffer = true
			info.CurrentSize = p.Buffer().CurrentSize()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, true
}
