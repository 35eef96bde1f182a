//go:build !nogpu

package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/cozy"
)

// shaderReloader watches shader source files. Changes are only recorded
// here; the render goroutine applies them before the next frame.
type shaderReloader struct {
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	paths   map[string]cozy.ShaderID // cleaned absolute path
	dirs    map[string]bool
	pending map[cozy.ShaderID]string

	done chan struct{}
	wg   sync.WaitGroup
}

func newShaderReloader() (*shaderReloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create shader watcher: %w", err)
	}
	sr := &shaderReloader{
		watcher: w,
		paths:   make(map[string]cozy.ShaderID),
		dirs:    make(map[string]bool),
		pending: make(map[cozy.ShaderID]string),
		done:    make(chan struct{}),
	}
	sr.wg.Add(1)
	go sr.run()
	return sr, nil
}

// watch starts tracking path for shader id. The parent directory is
// watched so that editors replacing the file by rename are noticed.
func (sr *shaderReloader) watch(id cozy.ShaderID, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch shader %s: %w", path, err)
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)

	sr.mu.Lock()
	defer sr.mu.Unlock()
	if !sr.dirs[dir] {
		if err := sr.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch shader dir %s: %w", dir, err)
		}
		sr.dirs[dir] = true
	}
	sr.paths[abs] = id
	return nil
}

func (sr *shaderReloader) run() {
	defer sr.wg.Done()
	for {
		select {
		case <-sr.done:
			return
		case ev, ok := <-sr.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			sr.mark(ev.Name)
		case err, ok := <-sr.watcher.Errors:
			if !ok {
				return
			}
			slogger().Warn("shader watcher error", "err", err)
		}
	}
}

// mark queues a reload for the shader watching name, if any.
func (sr *shaderReloader) mark(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if id, ok := sr.paths[filepath.Clean(abs)]; ok {
		sr.pending[id] = abs
		slogger().Debug("shader change detected", "path", abs, "shader", id)
	}
}

// takePending returns and clears the queued reloads.
func (sr *shaderReloader) takePending() map[cozy.ShaderID]string {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if len(sr.pending) == 0 {
		return nil
	}
	out := sr.pending
	sr.pending = make(map[cozy.ShaderID]string)
	return out
}

func (sr *shaderReloader) close() error {
	close(sr.done)
	err := sr.watcher.Close()
	sr.wg.Wait()
	return err
}

// applyReloads recompiles every shader whose file changed. A shader that
// fails to compile keeps its previous version.
func (r *Renderer) applyReloads() {
	if r.reloader == nil {
		return
	}
	for id, path := range r.reloader.takePending() {
		if err := r.reloadShader(id, path); err != nil {
			slogger().Warn("shader reload failed", "shader", id, "path", path, "err", err)
		}
	}
}

func (r *Renderer) reloadShader(id cozy.ShaderID, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read shader: %w", err)
	}
	old, err := r.shaders.replace(id, string(src))
	if err != nil {
		return err
	}
	n := r.pipelines.invalidateShader(id)
	if old != nil {
		r.device.DestroyShaderModule(old)
	}
	slogger().Info("shader reloaded", "shader", id, "path", path, "pipelines_dropped", n)
	return nil
}
