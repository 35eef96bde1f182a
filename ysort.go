package cozy

import (
	"cmp"
	"slices"
)

// SortByY orders meshes for painter's-algorithm layering: descending
// Origin.Y + YSortOffset, so the mesh with the greater y is drawn first
// and ends up behind.
// Meshes with equal sort values keep their submission order.
func SortByY(meshes []Mesh) {
	slices.SortStableFunc(meshes, func(a, b Mesh) int {
		return cmp.Compare(b.Origin.Y()+b.YSortOffset, a.Origin.Y()+a.YSortOffset)
	})
}

// PrepareGroup applies the y-sort flag of the group's z-index to its meshes.
func (dc *DrawContext) PrepareGroup(g *MeshGroup) {
	if dc.YSort(g.Key.ZIndex) {
		SortByY(g.Meshes)
	}
}
