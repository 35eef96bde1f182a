package cozy

import (
	"strings"
	"testing"
)

func TestUseShaderReturnsFreshInstance(t *testing.T) {
	dc := NewDrawContext()
	if got := dc.CurrentShader(); got != DefaultShaderInstance {
		t.Fatalf("initial shader = %v, want default", got)
	}
	a := dc.UseShader(3)
	b := dc.UseShader(3)
	if a == b {
		t.Errorf("UseShader returned the same instance twice: %v", a)
	}
	if a == DefaultShaderInstance {
		t.Error("UseShader returned the default instance")
	}
	si, ok := dc.ShaderInstance(b)
	if !ok || si.Shader != 3 || len(si.Uniforms) != 0 {
		t.Errorf("ShaderInstance(%v) = %+v, %v", b, si, ok)
	}
}

// Meshes queued before SetUniform keep the uniform values in force when
// they were queued.
func TestSetUniformCopyOnWrite(t *testing.T) {
	dc := NewDrawContext()
	dc.UseShader(1)
	dc.QueueMeshDraw(meshAt(0, 0), BlendAlpha)
	dc.SetUniform("power", F32(0.5))
	dc.QueueMeshDraw(meshAt(0, 0), BlendAlpha)
	dc.SetUniform("power", F32(0.9))
	dc.SetUniform("tint", Vec4Uniform(1, 0, 0, 1))
	dc.QueueMeshDraw(meshAt(0, 0), BlendAlpha)

	groups := dc.ConsumeRenderQueues()
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}

	first, _ := dc.ShaderInstance(groups[0].Key.Shader)
	if _, ok := first.Uniform("power"); ok {
		t.Error("first mesh sees a power override")
	}

	second, _ := dc.ShaderInstance(groups[1].Key.Shader)
	if u, ok := second.Uniform("power"); !ok || u.V[0] != 0.5 {
		t.Errorf("second power = %v, %v; want 0.5", u, ok)
	}
	if _, ok := second.Uniform("tint"); ok {
		t.Error("second mesh sees a later tint override")
	}

	third, _ := dc.ShaderInstance(groups[2].Key.Shader)
	if u, _ := third.Uniform("power"); u.V[0] != 0.9 {
		t.Errorf("third power = %v, want 0.9", u)
	}
	if u, ok := third.Uniform("tint"); !ok || u.Kind != UniformVec4 {
		t.Errorf("third tint = %v, %v", u, ok)
	}
}

func TestSetUniformWithoutShaderPanics(t *testing.T) {
	dc := NewDrawContext()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("SetUniform did not panic")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "no shader active") {
			t.Errorf("panic = %v", r)
		}
	}()
	dc.SetUniform("power", F32(1))
}

func TestUseDefaultShaderAfterSetUniform(t *testing.T) {
	dc := NewDrawContext()
	dc.UseShader(1)
	dc.SetUniform("power", F32(1))
	dc.UseDefaultShader()
	dc.QueueMeshDraw(meshAt(0, 0), BlendAlpha)
	groups := dc.ConsumeRenderQueues()
	if groups[0].Key.Shader != DefaultShaderInstance {
		t.Errorf("shader = %v, want default", groups[0].Key.Shader)
	}
}

func TestShaderInstanceLookupBounds(t *testing.T) {
	dc := NewDrawContext()
	id := dc.UseShader(2)
	for _, bad := range []ShaderInstanceID{DefaultShaderInstance, id + 1, 100} {
		if _, ok := dc.ShaderInstance(bad); ok {
			t.Errorf("ShaderInstance(%v) found an instance", bad)
		}
	}
}

func TestEndFrameClearsInstances(t *testing.T) {
	dc := NewDrawContext()
	id := dc.UseShader(2)
	dc.SetUniform("power", F32(1))
	dc.EndFrame()

	if _, ok := dc.ShaderInstance(id); ok {
		t.Error("instance survived EndFrame")
	}
	if got := dc.CurrentShader(); got != DefaultShaderInstance {
		t.Errorf("current shader after EndFrame = %v", got)
	}
	if again := dc.UseShader(2); again != id {
		t.Errorf("first instance of new frame = %v, want %v", again, id)
	}
}

func TestRenderTargetSelection(t *testing.T) {
	dc := NewDrawContext()
	if dc.CurrentRenderTarget() != DefaultRenderTarget {
		t.Fatal("initial target is not the default")
	}
	dc.UseRenderTarget(7)
	if got := dc.CurrentRenderTarget(); got != 7 {
		t.Errorf("CurrentRenderTarget() = %v, want 7", got)
	}
	dc.UseDefaultRenderTarget()
	if got := dc.CurrentRenderTarget(); got != DefaultRenderTarget {
		t.Errorf("CurrentRenderTarget() = %v, want default", got)
	}
}
