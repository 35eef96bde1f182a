package cozy

import (
	"cmp"
	"sync"

	"github.com/google/btree"
)

// MeshGroupKey is the unit of batching. Keys are totally ordered: z-index
// first, then blend mode, texture, shader instance and render target.
type MeshGroupKey struct {
	ZIndex  int32
	Blend   BlendMode
	Texture TextureHandle
	Shader  ShaderInstanceID
	Target  RenderTargetID
}

// Compare returns -1, 0 or +1 as k sorts before, equal to or after o.
func (k MeshGroupKey) Compare(o MeshGroupKey) int {
	if c := cmp.Compare(k.ZIndex, o.ZIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Blend, o.Blend); c != 0 {
		return c
	}
	if c := k.Texture.Compare(o.Texture); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Shader, o.Shader); c != 0 {
		return c
	}
	return cmp.Compare(k.Target, o.Target)
}

// Less reports whether k sorts before o.
func (k MeshGroupKey) Less(o MeshGroupKey) bool { return k.Compare(o) < 0 }

// MeshGroup is one drained batch: every mesh queued under Key, in
// submission order.
type MeshGroup struct {
	Key    MeshGroupKey
	Meshes []Mesh
}

// queueDegree is the btree node degree. Frames rarely hold more than a few
// hundred distinct keys.
const queueDegree = 8

// renderQueue is an ordered multi-map from MeshGroupKey to pending meshes.
type renderQueue struct {
	mu   sync.Mutex
	tree *btree.BTreeG[*MeshGroup]
}

func lessGroup(a, b *MeshGroup) bool { return a.Key.Less(b.Key) }

func newRenderQueue() *renderQueue {
	return &renderQueue{tree: btree.NewG(queueDegree, lessGroup)}
}

// push files mesh under key, creating the group if absent.
func (q *renderQueue) push(key MeshGroupKey, mesh Mesh) {
	q.mu.Lock()
	defer q.mu.Unlock()

	probe := &MeshGroup{Key: key}
	if g, ok := q.tree.Get(probe); ok {
		g.Meshes = append(g.Meshes, mesh)
		return
	}
	probe.Meshes = []Mesh{mesh}
	q.tree.ReplaceOrInsert(probe)
}

// drain swaps in an empty tree and returns the old contents in key order.
func (q *renderQueue) drain() []MeshGroup {
	q.mu.Lock()
	old := q.tree
	q.tree = btree.NewG(queueDegree, lessGroup)
	q.mu.Unlock()

	groups := make([]MeshGroup, 0, old.Len())
	old.Ascend(func(g *MeshGroup) bool {
		groups = append(groups, *g)
		return true
	})
	return groups
}

// len returns the number of distinct keys currently queued.
func (q *renderQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tree.Len()
}
