package safedrive

import "time"

// defaultSubscriptionBudget is the soft per-handler time budget inside a
// Selector's subscription try-receive loop, carried verbatim from the
// original implementation's constant (spec.md §4.6, Open Question (c)).
const defaultSubscriptionBudget = 10 * time.Millisecond

// --- Context options ---

type contextOptions struct {
	name string
}

// ContextOption configures Context construction.
type ContextOption interface{ applyContext(*contextOptions) }

type contextOptionFunc func(*contextOptions)

func (f contextOptionFunc) applyContext(o *contextOptions) { f(o) }

// WithContextName attaches a diagnostic name to a Context, used only in log
// fields.
func WithContextName(name string) ContextOption {
	return contextOptionFunc(func(o *contextOptions) { o.name = name })
}

func resolveContextOptions(opts []ContextOption) *contextOptions {
	o := &contextOptions{name: "context"}
	for _, opt := range opts {
		if opt != nil {
			opt.applyContext(o)
		}
	}
	return o
}

// --- Node options ---

type nodeOptions struct {
	namespace string
}

// NodeOption configures Node construction.
type NodeOption interface{ applyNode(*nodeOptions) }

type nodeOptionFunc func(*nodeOptions)

func (f nodeOptionFunc) applyNode(o *nodeOptions) { f(o) }

// WithNamespace sets a Node's namespace; the zero value is the empty
// (root) namespace.
func WithNamespace(ns string) NodeOption {
	return nodeOptionFunc(func(o *nodeOptions) { o.namespace = ns })
}

func resolveNodeOptions(opts []NodeOption) *nodeOptions {
	o := &nodeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyNode(o)
		}
	}
	return o
}

// --- Selector options ---

type selectorOptions struct {
	subscriptionBudget time.Duration
	metricsEnabled     bool
}

// SelectorOption configures Selector construction.
type SelectorOption interface{ applySelector(*selectorOptions) }

type selectorOptionFunc func(*selectorOptions)

func (f selectorOptionFunc) applySelector(o *selectorOptions) { f(o) }

// WithSubscriptionBudget overrides the soft per-handler time budget a
// Selector spends draining one subscription's try-receive loop before
// yielding to the rest of the wait-set (spec.md §4.6, §9 Open Question (c)).
func WithSubscriptionBudget(d time.Duration) SelectorOption {
	return selectorOptionFunc(func(o *selectorOptions) { o.subscriptionBudget = d })
}

// WithSelectorMetrics enables Prometheus instrumentation on a Selector; see
// metrics.go.
func WithSelectorMetrics(enabled bool) SelectorOption {
	return selectorOptionFunc(func(o *selectorOptions) { o.metricsEnabled = enabled })
}

func resolveSelectorOptions(opts []SelectorOption) *selectorOptions {
	o := &selectorOptions{subscriptionBudget: defaultSubscriptionBudget}
	for _, opt := range opts {
		if opt != nil {
			opt.applySelector(o)
		}
	}
	return o
}
