// Command cozydemo runs a small scene through the cozy renderer.
//
// Without a Vulkan device the demo runs on the noop device, which exercises
// batching and pipeline resolution without drawing anything.
package main

import (
	"context"
	_ "embed"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"

	"github.com/gogpu/cozy"
	"github.com/gogpu/cozy/gpu"
)

//go:embed shaders/pulse.wgsl
var pulseShader string

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		frames     = flag.Uint64("frames", 300, "frames to run, 0 runs until interrupted")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	cozy.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := cozy.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = cozy.LoadConfig(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	dev, err := gpu.OpenDevice()
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	closer.Bind(dev.Close)

	renderer, err := gpu.NewRenderer(dev, gpu.WithConfig(cfg))
	if err != nil {
		log.Fatalf("create renderer: %v", err)
	}
	closer.Bind(func() { _ = renderer.Close() })

	scene, err := newScene(renderer, cfg)
	if err != nil {
		log.Fatalf("create scene: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	closer.Bind(stop)

	loop := cozy.NewLoop(cfg, scene, renderer, cozy.WithMaxFrames(*frames))
	loop.DrawContext().SetYSort(1, true)

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("loop stopped", "err", err)
		closer.Exit(1)
	}
	st := renderer.LastFrameStats()
	slog.Info("demo finished", "frames", st.Frame, "groups", st.Groups,
		"passes", len(st.Passes), "pipelines", st.PipelinesCached)
	closer.Close()
}

// scene draws a few sprites into an offscreen target and blits the target
// onto the screen through a pulsing user shader.
type scene struct {
	width, height float32
	canvas        cozy.RenderTargetID
	pulse         cozy.ShaderID
}

func newScene(r *gpu.Renderer, cfg cozy.Config) (*scene, error) {
	canvas, err := r.CreateRenderTarget(gpu.RenderTargetParams{
		Label: "canvas",
		Size:  cozy.Resolution{Width: cfg.Resolution.Width / 2, Height: cfg.Resolution.Height / 2},
	})
	if err != nil {
		return nil, err
	}
	var pulse cozy.ShaderID
	if cfg.ShaderDir != "" {
		pulse, err = r.CreateShaderFromFile("pulse", "pulse.wgsl")
	} else {
		pulse, err = r.CreateShader("pulse", pulseShader)
	}
	if err != nil {
		return nil, err
	}
	return &scene{
		width:  float32(cfg.Resolution.Width),
		height: float32(cfg.Resolution.Height),
		canvas: canvas,
		pulse:  pulse,
	}, nil
}

// Update implements cozy.Game.
func (s *scene) Update(f *cozy.Frame) error {
	dc := f.Context
	t := f.Time.ElapsedSeconds()

	dc.UseRenderTarget(s.canvas)
	for i := range 6 {
		x := 40 + float32(i)*50
		y := 90 + 30*float32(i%3)
		dc.DrawSprite(cozy.WhiteTexture(), mgl32.Vec2{x, y}, mgl32.Vec2{32, 48},
			cozy.RGB(0.3+0.1*float32(i), 0.6, 0.9), 1, cozy.SpriteParams{Rotation: t * 0.5, Blend: cozy.BlendAlpha})
	}
	dc.DrawCircle(mgl32.Vec2{160, 40}, 20, cozy.RGB(1, 0.8, 0.2), 2)
	dc.UseDefaultRenderTarget()

	dc.UseShader(s.pulse)
	dc.SetUniform("power", cozy.F32(0.2))
	canvas := cozy.TextureOfTarget(s.canvas)
	dc.DrawQuad(mgl32.Vec2{s.width / 2, s.height / 2}, mgl32.Vec2{s.width, s.height}, 0, cozy.White, 0, &canvas)
	dc.UseDefaultShader()

	dc.DrawLine(mgl32.Vec2{0, s.height - 10}, mgl32.Vec2{s.width, s.height - 10}, 4, cozy.Red, 5)
	return nil
}
