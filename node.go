package safedrive

import (
	"github.com/google/uuid"
	"github.com/xbroquer/safe-drive/runtime"
)

// Node is a named, namespaced participant and the factory for typed
// endpoints (spec.md §2 item 3). Grounded on
// original_source/src/node.rs: Node holds a strong back-reference to its
// Context and does not itself track the endpoints it creates — each
// endpoint instead keeps a strong reference back to its Node (see
// publisher.go, subscriber.go, server.go, client.go), so the Node cannot be
// finalized while endpoints still exist but the Node carries no bookkeeping
// for them (§9 "Back-references without cycles").
type Node struct {
	ctx       *Context
	handle    runtime.NodeHandle
	name      string
	namespace string
	id        uuid.UUID
}

// Context returns the Node's owning Context.
func (n *Node) Context() *Context { return n.ctx }

// Name returns the Node's name.
func (n *Node) Name() string { return n.name }

// Namespace returns the Node's namespace, empty for the root namespace.
func (n *Node) Namespace() string { return n.namespace }

// Close unregisters the Node from the runtime via the serialized façade.
func (n *Node) Close() error {
	logf(LevelDebug, "node closed", map[string]any{"name": n.name, "namespace": n.namespace, "id": n.id.String()})
	return n.ctx.gate.DestroyNode(n.handle)
}
