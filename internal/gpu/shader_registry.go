//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/cozy"
	"github.com/gogpu/wgpu/hal"
)

// spriteShaderID is the built-in sprite shader. User shaders start at 1.
const spriteShaderID cozy.ShaderID = 0

// shader is a registered shader program.
type shader struct {
	id       cozy.ShaderID
	name     string
	path     string // watched source file, empty for in-memory shaders
	fragment string
	user     bool

	parsed *parsedShader
	module hal.ShaderModule
}

// uniformValue resolves name for inst: the instance override first, then
// the shader default.
func (s *shader) uniformValue(inst *cozy.ShaderInstance, name string) (cozy.Uniform, error) {
	if inst != nil {
		if u, ok := inst.Uniform(name); ok {
			return u, nil
		}
	}
	if def, ok := s.parsed.defs[name]; ok && def.Default != nil {
		return *def.Default, nil
	}
	return cozy.Uniform{}, fmt.Errorf("%w: %s.%s", cozy.ErrMissingUniform, s.name, name)
}

// shaderRegistry owns shader modules. Creation and replacement happen on
// the render goroutine; lookups may come from any goroutine.
type shaderRegistry struct {
	mu     sync.RWMutex
	device hal.Device

	byID   map[cozy.ShaderID]*shader
	byName map[string]cozy.ShaderID
	nextID cozy.ShaderID

	// validate checks a complete WGSL module before it reaches the device.
	validate func(string) error
}

func newShaderRegistry(device hal.Device, validate func(string) error) *shaderRegistry {
	return &shaderRegistry{
		device:   device,
		byID:     make(map[cozy.ShaderID]*shader),
		byName:   make(map[string]cozy.ShaderID),
		nextID:   spriteShaderID + 1,
		validate: validate,
	}
}

// initSprite registers the built-in sprite shader as shader 0.
func (r *shaderRegistry) initSprite() error {
	src := spriteSource()
	module, err := r.compile("sprite_shader", src)
	if err != nil {
		return fmt.Errorf("sprite shader: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[spriteShaderID] = &shader{
		id:     spriteShaderID,
		name:   "sprite",
		parsed: &parsedShader{defs: map[string]cozy.UniformDef{}, source: src},
		module: module,
	}
	return nil
}

func (r *shaderRegistry) compile(label, src string) (hal.ShaderModule, error) {
	if r.validate != nil {
		if err := r.validate(src); err != nil {
			return nil, err
		}
	}
	module, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	return module, nil
}

// create registers a user fragment shader.
func (r *shaderRegistry) create(name, fragment, path string) (cozy.ShaderID, error) {
	r.mu.RLock()
	_, dup := r.byName[name]
	r.mu.RUnlock()
	if dup {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateShader, name)
	}

	parsed, err := parseShader(fragment)
	if err != nil {
		return 0, fmt.Errorf("shader %q: %w", name, err)
	}
	module, err := r.compile(name+" Shader", parsed.source)
	if err != nil {
		return 0, fmt.Errorf("shader %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		r.device.DestroyShaderModule(module)
		return 0, fmt.Errorf("%w: %q", ErrDuplicateShader, name)
	}
	id := r.nextID
	r.nextID++
	r.byID[id] = &shader{
		id:       id,
		name:     name,
		path:     path,
		fragment: fragment,
		user:     true,
		parsed:   parsed,
		module:   module,
	}
	r.byName[name] = id
	slogger().Debug("shader created", "name", name, "id", id, "uniforms", len(parsed.bindings))
	return id, nil
}

// replace recompiles shader id from new fragment source. The old module
// is returned so the caller can destroy it once no pipeline uses it.
func (r *shaderRegistry) replace(id cozy.ShaderID, fragment string) (hal.ShaderModule, error) {
	s, ok := r.get(id)
	if !ok || !s.user {
		return nil, fmt.Errorf("%w: %s", cozy.ErrUnknownShader, id)
	}
	parsed, err := parseShader(fragment)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", s.name, err)
	}
	module, err := r.compile(s.name+" Shader", parsed.source)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", s.name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	old := s.module
	r.byID[id] = &shader{
		id:       id,
		name:     s.name,
		path:     s.path,
		fragment: fragment,
		user:     true,
		parsed:   parsed,
		module:   module,
	}
	return old, nil
}

func (r *shaderRegistry) get(id cozy.ShaderID) (*shader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *shaderRegistry) lookup(name string) (cozy.ShaderID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// setTime updates the default of every shader's time uniform.
func (r *shaderRegistry) setTime(seconds float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		def, ok := s.parsed.defs[timeUniform]
		if !ok {
			continue
		}
		u := cozy.Uniform{Kind: def.Kind}
		u.V[0] = seconds
		def.Default = &u
		s.parsed.defs[timeUniform] = def
	}
}

// destroy releases every shader module.
func (r *shaderRegistry) destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.byID {
		if s.module != nil {
			r.device.DestroyShaderModule(s.module)
		}
		delete(r.byID, id)
	}
	clear(r.byName)
}
