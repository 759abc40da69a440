package adapter

// Registry holds the known platform adapters in priority order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry over the default adapter set.
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewGemini(),
			NewChatGPT(),
			NewDeepSeek(),
		},
	}
}

// NewRegistryWith builds a registry over an explicit adapter list.
func NewRegistryWith(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Match returns the first adapter whose Detect accepts the page, or nil.
func (r *Registry) Match(page *Page) Adapter {
	for _, a := range r.adapters {
		if a.Detect(page) {
			return a
		}
	}
	return nil
}

// All returns the registered adapters.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}
