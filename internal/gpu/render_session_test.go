//go:build !nogpu

package gpu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cozy"
)

func TestRenderQuad(t *testing.T) {
	r := newTestRenderer(t)
	dc := cozy.NewDrawContext()
	dc.DrawRect(mgl32.Vec2{100, 100}, mgl32.Vec2{32, 32}, cozy.White, 0)

	st := renderOnce(t, r, dc)
	if st.Groups != 1 || st.PipelinesCreated != 1 || st.PipelinesCached != 1 {
		t.Errorf("stats = %+v", st)
	}
	if len(st.Passes) != 1 {
		t.Fatalf("passes = %+v, want 1", st.Passes)
	}
	p := st.Passes[0]
	if p.Kind != DrawIndexed || p.Count != 6 || p.ColorLoad != gputypes.LoadOpClear {
		t.Errorf("pass = %+v", p)
	}
	if p.Target != cozy.DefaultRenderTarget || p.Texture != cozy.WhiteTexture() {
		t.Errorf("pass target/texture = %v/%v", p.Target, p.Texture)
	}
	if p.DepthLoad != 0 {
		t.Error("depth attachment without z-buffer")
	}
	if st.VertexBytes != 4*cozy.VertexSize || st.IndexBytes != 6*4 {
		t.Errorf("uploaded %d vertex and %d index bytes", st.VertexBytes, st.IndexBytes)
	}
	if r.vertices.length != 0 || r.indices.length != 0 {
		t.Error("frame buffers not cleared after the frame")
	}
	if dc.QueuedGroups() != 0 {
		t.Error("queue not drained")
	}
	if n := r.Surface().(*OffscreenSurface).Presented(); n != 1 {
		t.Errorf("presented %d frames, want 1", n)
	}

	// The pipeline is reused on the next frame.
	dc.DrawRect(mgl32.Vec2{100, 100}, mgl32.Vec2{32, 32}, cozy.White, 0)
	st = renderOnce(t, r, dc)
	if st.PipelinesCreated != 0 || st.PipelinesCached != 1 || st.Frame != 2 {
		t.Errorf("second frame stats = %+v", st)
	}
}

func TestEmptyFrameClearsDefaultTarget(t *testing.T) {
	r := newTestRenderer(t)
	st := renderOnce(t, r, cozy.NewDrawContext())
	if st.Groups != 0 || len(st.Passes) != 1 {
		t.Fatalf("stats = %+v", st)
	}
	p := st.Passes[0]
	if p.ColorLoad != gputypes.LoadOpClear || p.Count != 0 || p.Kind != DrawVertices {
		t.Errorf("clear pass = %+v", p)
	}
}

func TestGroupsOnOneTargetLoadAfterFirst(t *testing.T) {
	r := newTestRenderer(t)
	dc := cozy.NewDrawContext()
	dc.DrawRect(mgl32.Vec2{1, 1}, mgl32.Vec2{1, 1}, cozy.White, 1)
	dc.DrawRect(mgl32.Vec2{1, 1}, mgl32.Vec2{1, 1}, cozy.White, 0)
	dc.DrawRect(mgl32.Vec2{1, 1}, mgl32.Vec2{1, 1}, cozy.White, 2)

	st := renderOnce(t, r, dc)
	if len(st.Passes) != 3 {
		t.Fatalf("passes = %d, want 3", len(st.Passes))
	}
	want := []gputypes.LoadOp{gputypes.LoadOpClear, gputypes.LoadOpLoad, gputypes.LoadOpLoad}
	for i, p := range st.Passes {
		if p.ColorLoad != want[i] {
			t.Errorf("pass %d load = %v, want %v", i, p.ColorLoad, want[i])
		}
	}
	if st.PipelinesCreated != 1 {
		t.Errorf("created %d pipelines for one key", st.PipelinesCreated)
	}
}

func TestPipelinePerBlendMode(t *testing.T) {
	r := newTestRenderer(t)
	dc := cozy.NewDrawContext()
	dc.DrawSprite(cozy.WhiteTexture(), mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0, cozy.SpriteParams{Blend: cozy.BlendAlpha})
	dc.DrawSprite(cozy.WhiteTexture(), mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0, cozy.SpriteParams{Blend: cozy.BlendAdditive})

	st := renderOnce(t, r, dc)
	if st.PipelinesCreated != 2 {
		t.Fatalf("created %d pipelines, want 2", st.PipelinesCreated)
	}
	if st.Passes[0].Pipeline != "sprite:Alpha:shader0:zfalse:x1" ||
		st.Passes[1].Pipeline != "sprite:Additive:shader0:zfalse:x1" {
		t.Errorf("pipelines = %s, %s", st.Passes[0].Pipeline, st.Passes[1].Pipeline)
	}
}

func TestPipelineCacheIdentity(t *testing.T) {
	r := newTestRenderer(t)
	key := pipelineKey{Blend: cozy.BlendAlpha, Shader: spriteShaderID, Samples: 1}
	a, created, err := r.pipelines.resolve(key)
	if err != nil || !created {
		t.Fatalf("first resolve: created=%v err=%v", created, err)
	}
	b, created, err := r.pipelines.resolve(key)
	if err != nil || created || a != b {
		t.Errorf("second resolve: same=%v created=%v err=%v", a == b, created, err)
	}
	c, created, _ := r.pipelines.resolve(pipelineKey{Blend: cozy.BlendAlpha, Shader: spriteShaderID, ZBuffer: true, Samples: 1})
	if !created || c == a {
		t.Error("z-buffer key shares a pipeline with the plain key")
	}

	if _, _, err := r.pipelines.resolve(pipelineKey{User: true, Shader: 42, Samples: 1}); !errors.Is(err, cozy.ErrUnknownShader) {
		t.Errorf("unknown shader: err = %v", err)
	}
	if _, _, err := r.pipelines.resolve(pipelineKey{User: true, Shader: spriteShaderID, Samples: 1}); !errors.Is(err, cozy.ErrUnknownShader) {
		t.Errorf("sprite shader as user: err = %v", err)
	}
}

const tintFragment = `
var<uniform> power: f32 = 0.03;
var<uniform> tint: vec4<f32> = 1.0, 1.0, 1.0, 1.0;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return in.color * tint * power;
}
`

// Two groups use one user pipeline but separate uniform sets: the first
// keeps the declared default, the second carries the override.
func TestUserShaderUniformFallback(t *testing.T) {
	r := newTestRenderer(t)
	id, err := r.CreateShader("tint", tintFragment)
	if err != nil {
		t.Fatal(err)
	}
	dc := cozy.NewDrawContext()
	dc.UseShader(id)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	dc.SetUniform("power", cozy.F32(0.5))
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)

	st := renderOnce(t, r, dc)
	if st.Groups != 2 || st.PipelinesCreated != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if st.Passes[0].Pipeline != "user:Alpha:shader1:zfalse:x1" {
		t.Errorf("pipeline = %s", st.Passes[0].Pipeline)
	}

	ub := r.pipelines.bindings[id]
	if ub == nil || len(ub.sets) != 2 {
		t.Fatalf("uniform sets = %+v", ub)
	}
	// Bindings are sorted: power(0), time(1), tint(2).
	if got := ub.sets[0].shadow[0]; !bytes.Equal(got, cozy.F32(0.03).Bytes()) {
		t.Errorf("first group power = %v", got)
	}
	if got := ub.sets[1].shadow[0]; !bytes.Equal(got, cozy.F32(0.5).Bytes()) {
		t.Errorf("second group power = %v", got)
	}
	if ub.used != 0 {
		t.Error("uniform sets not returned to the pool")
	}

	// The pool is reused on the next frame.
	dc.UseShader(id)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	renderOnce(t, r, dc)
	if len(ub.sets) != 2 {
		t.Errorf("pool grew to %d sets", len(ub.sets))
	}
}

func TestTimeUniformFollowsFrame(t *testing.T) {
	r := newTestRenderer(t)
	id, err := r.CreateShader("tint", tintFragment)
	if err != nil {
		t.Fatal(err)
	}
	dc := cozy.NewDrawContext()
	dc.UseShader(id)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	f := &cozy.Frame{Context: dc, Time: cozy.Time{Elapsed: 2500e6}}
	if err := r.Render(f); err != nil {
		t.Fatal(err)
	}
	got := r.pipelines.bindings[id].sets[0].shadow[1]
	if v := binary.LittleEndian.Uint32(got); v != binary.LittleEndian.Uint32(cozy.F32(2.5).Bytes()) {
		t.Errorf("time uniform bytes = %v, want 2.5", got)
	}
}

func TestMissingUniformStopsFrame(t *testing.T) {
	r := newTestRenderer(t)
	id, err := r.CreateShader("pulse", pulseFragment) // offset has no default
	if err != nil {
		t.Fatal(err)
	}
	dc := cozy.NewDrawContext()
	dc.UseShader(id)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	err = r.Render(&cozy.Frame{Context: dc})
	if !errors.Is(err, cozy.ErrMissingUniform) {
		t.Fatalf("err = %v, want ErrMissingUniform", err)
	}
	if _, ok := dc.ShaderInstance(1); ok {
		t.Error("instance table not cleared after a failed frame")
	}

	dc.UseShader(id)
	dc.SetUniform("offset", cozy.Vec2Uniform(1, 1))
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	renderOnce(t, r, dc)
}

func TestUnknownShaderStopsFrame(t *testing.T) {
	r := newTestRenderer(t)
	dc := cozy.NewDrawContext()
	dc.UseShader(77)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	if err := r.Render(&cozy.Frame{Context: dc}); !errors.Is(err, cozy.ErrUnknownShader) {
		t.Errorf("err = %v, want ErrUnknownShader", err)
	}
}

func TestFailedFrameDiscardsSurfaceTexture(t *testing.T) {
	r := newTestRenderer(t)
	surf := r.Surface().(*OffscreenSurface)
	dc := cozy.NewDrawContext()
	dc.UseShader(77)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	if err := r.Render(&cozy.Frame{Context: dc}); err == nil {
		t.Fatal("frame with an unknown shader succeeded")
	}
	if surf.Discarded() != 1 || surf.Presented() != 0 {
		t.Errorf("discarded %d, presented %d; want 1, 0", surf.Discarded(), surf.Presented())
	}

	renderOnce(t, r, dc)
	if surf.Discarded() != 1 || surf.Presented() != 1 {
		t.Errorf("after a good frame: discarded %d, presented %d; want 1, 1", surf.Discarded(), surf.Presented())
	}
}

func TestUnknownRenderTargetStopsFrame(t *testing.T) {
	r := newTestRenderer(t)
	dc := cozy.NewDrawContext()
	dc.UseRenderTarget(9)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	if err := r.Render(&cozy.Frame{Context: dc}); !errors.Is(err, cozy.ErrUnknownRenderTarget) {
		t.Errorf("err = %v, want ErrUnknownRenderTarget", err)
	}
}

func TestMissingTextureFallsBackToErrorTexture(t *testing.T) {
	r := newTestRenderer(t)
	dc := cozy.NewDrawContext()
	dc.DrawSprite(cozy.TextureRaw(42), mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0, cozy.SpriteParams{})
	st := renderOnce(t, r, dc)
	if got := st.Passes[0].Texture; got != cozy.ErrorTexture() {
		t.Errorf("texture = %v, want error texture", got)
	}
}

func TestRenderTargetPasses(t *testing.T) {
	r := newTestRenderer(t)
	canvas, err := r.CreateRenderTarget(RenderTargetParams{Label: "canvas", Size: cozy.Resolution{Width: 64, Height: 64}})
	if err != nil {
		t.Fatal(err)
	}
	dc := cozy.NewDrawContext()
	dc.UseRenderTarget(canvas)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	// Sampling the target being drawn into is not allowed.
	self := cozy.TextureOfTarget(canvas)
	dc.DrawQuad(mgl32.Vec2{}, mgl32.Vec2{1, 1}, 0, cozy.White, 1, &self)
	dc.UseDefaultRenderTarget()
	tex := cozy.TextureOfTarget(canvas)
	dc.DrawQuad(mgl32.Vec2{}, mgl32.Vec2{1, 1}, 0, cozy.White, 0, &tex)
	def := cozy.TextureOfTarget(cozy.DefaultRenderTarget)
	dc.DrawQuad(mgl32.Vec2{}, mgl32.Vec2{1, 1}, 0, cozy.White, 2, &def)

	st := renderOnce(t, r, dc)
	if len(st.Passes) != 4 {
		t.Fatalf("passes = %+v", st.Passes)
	}
	want := []struct {
		target cozy.RenderTargetID
		load   gputypes.LoadOp
		tex    cozy.TextureHandle
	}{
		{canvas, gputypes.LoadOpClear, cozy.WhiteTexture()},
		{cozy.DefaultRenderTarget, gputypes.LoadOpClear, tex},
		{canvas, gputypes.LoadOpLoad, cozy.ErrorTexture()},
		{cozy.DefaultRenderTarget, gputypes.LoadOpLoad, cozy.ErrorTexture()},
	}
	for i, w := range want {
		p := st.Passes[i]
		if p.Target != w.target || p.ColorLoad != w.load || p.Texture != w.tex {
			t.Errorf("pass %d = {%v %v %v}, want {%v %v %v}", i, p.Target, p.ColorLoad, p.Texture, w.target, w.load, w.tex)
		}
	}
}

func TestZBufferPasses(t *testing.T) {
	r := newTestRenderer(t, WithZBuffer(true))
	dc := cozy.NewDrawContext()
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 1)
	st := renderOnce(t, r, dc)
	if st.Passes[0].DepthLoad != gputypes.LoadOpClear || st.Passes[1].DepthLoad != gputypes.LoadOpLoad {
		t.Errorf("depth loads = %v, %v", st.Passes[0].DepthLoad, st.Passes[1].DepthLoad)
	}
	if st.Passes[0].Pipeline != "sprite:Alpha:shader0:ztrue:x1" {
		t.Errorf("pipeline = %s", st.Passes[0].Pipeline)
	}
}

func TestSurfaceUnavailableSkipsFrame(t *testing.T) {
	surf := &lostSurface{w: 100, h: 100}
	r := newTestRenderer(t, WithSurface(surf))
	dc := cozy.NewDrawContext()
	id, _ := r.CreateShader("tint", tintFragment)
	dc.UseShader(id)
	dc.DrawRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}, cozy.White, 0)

	st := renderOnce(t, r, dc)
	if !st.Skipped || st.Groups != 1 || len(st.Passes) != 0 {
		t.Errorf("stats = %+v", st)
	}
	if dc.QueuedGroups() != 0 {
		t.Error("skipped frame left draws queued")
	}
	if _, ok := dc.ShaderInstance(1); ok {
		t.Error("skipped frame kept the instance table")
	}
	if r.pipelines.len() != 0 {
		t.Error("skipped frame built pipelines")
	}
}

func TestDefaultTargetFollowsSurfaceSize(t *testing.T) {
	r := newTestRenderer(t)
	surf, err := NewOffscreenSurface(r.device, 50, 40)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(surf.Destroy)
	r.surface = surf

	renderOnce(t, r, cozy.NewDrawContext())
	def, _ := r.targets.get(cozy.DefaultRenderTarget)
	if def.attachments.width != 50 || def.attachments.height != 40 {
		t.Errorf("default target = %dx%d, want 50x40", def.attachments.width, def.attachments.height)
	}
}

func TestPackGroups(t *testing.T) {
	tri := cozy.Mesh{Vertices: make([]cozy.Vertex, 3), Indices: []uint32{0, 1, 2}}
	bare := cozy.Mesh{Vertices: make([]cozy.Vertex, 3)}
	groups := []cozy.MeshGroup{
		{Meshes: []cozy.Mesh{tri, tri}},
		{Meshes: []cozy.Mesh{bare, bare}},
		{Meshes: []cozy.Mesh{tri, bare}},
	}
	pf := packGroups(groups)

	want := []drawRange{
		{indexed: true, first: 0, count: 6, vertexCount: 6},
		{indexed: false, first: 6, count: 6, vertexCount: 6},
		{indexed: true, first: 6, count: 6, vertexCount: 6},
	}
	for i, w := range want {
		if pf.ranges[i] != w {
			t.Errorf("range %d = %+v, want %+v", i, pf.ranges[i], w)
		}
	}
	if len(pf.vertices) != 18*cozy.VertexSize {
		t.Errorf("vertex bytes = %d", len(pf.vertices))
	}

	idx := make([]uint32, len(pf.indices)/4)
	for i := range idx {
		idx[i] = binary.LittleEndian.Uint32(pf.indices[i*4:])
	}
	wantIdx := []uint32{0, 1, 2, 3, 4, 5, 12, 13, 14, 15, 16, 17}
	if len(idx) != len(wantIdx) {
		t.Fatalf("indices = %v", idx)
	}
	for i := range idx {
		if idx[i] != wantIdx[i] {
			t.Errorf("indices = %v, want %v", idx, wantIdx)
			break
		}
	}
}
