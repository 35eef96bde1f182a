package cozy

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSortByYDescending(t *testing.T) {
	meshes := []Mesh{meshAt(0, 10), meshAt(0, 30), meshAt(0, 20)}
	SortByY(meshes)
	for i, want := range []float32{30, 20, 10} {
		if got := meshes[i].Origin.Y(); got != want {
			t.Errorf("meshes[%d].y = %v, want %v", i, got, want)
		}
	}
}

func TestSortByYOffsetAndStability(t *testing.T) {
	a := meshAt(0, 10)
	a.Origin[0] = 1
	b := meshAt(0, 0)
	b.YSortOffset = 10
	b.Origin[0] = 2
	c := meshAt(0, 50)

	meshes := []Mesh{a, b, c}
	SortByY(meshes)
	if meshes[0].Origin.Y() != 50 {
		t.Fatalf("first mesh y = %v, want 50", meshes[0].Origin.Y())
	}
	// a and b tie at 10; submission order is kept.
	if meshes[1].Origin.X() != 1 || meshes[2].Origin.X() != 2 {
		t.Errorf("tie order = %v, %v; want a then b", meshes[1].Origin.X(), meshes[2].Origin.X())
	}
}

func TestPrepareGroupHonorsFlag(t *testing.T) {
	dc := NewDrawContext()
	dc.SetYSort(1, true)

	sorted := MeshGroup{Key: MeshGroupKey{ZIndex: 1}, Meshes: []Mesh{meshAt(1, 1), meshAt(1, 2)}}
	dc.PrepareGroup(&sorted)
	if sorted.Meshes[0].Origin.Y() != 2 {
		t.Error("y-sorted group was not sorted")
	}

	plain := MeshGroup{Key: MeshGroupKey{ZIndex: 2}, Meshes: []Mesh{meshAt(2, 1), meshAt(2, 2)}}
	dc.PrepareGroup(&plain)
	if plain.Meshes[0].Origin.Y() != 1 {
		t.Error("group without y-sort was reordered")
	}

	dc.SetYSort(1, false)
	if dc.YSort(1) {
		t.Error("YSort(1) still enabled")
	}
}

func TestDrawSpriteYSortOffset(t *testing.T) {
	dc := NewDrawContext()
	dc.DrawSprite(WhiteTexture(), mgl32.Vec2{0, 5}, mgl32.Vec2{1, 1}, White, 0, SpriteParams{YSortOffset: 3})
	g := dc.ConsumeRenderQueues()[0]
	if g.Meshes[0].YSortOffset != 3 {
		t.Errorf("YSortOffset = %v, want 3", g.Meshes[0].YSortOffset)
	}
}
