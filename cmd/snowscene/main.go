package main

import (
	"fmt"
	"os"
	"time"

	"snowscene/core"
	sceneio "snowscene/io"
	"snowscene/renderer"
	"snowscene/scene"
)

const manifestPath = "assets/scene.json"

// flakeSize is the edge of the procedural sprite used when the manifest
// names no sprite file.
const flakeSize = 64

func main() {
	log := core.NewDefaultLogger("snowscene", false)
	if err := run(log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(log *core.DefaultLogger) error {
	m, found, err := sceneio.LoadManifestOrDefault(manifestPath)
	if err != nil {
		return err
	}
	if m.Debug {
		log.SetDebug(true)
	}
	if found {
		log.Infof("Loaded manifest %s (%s)", manifestPath, m.Name)
	} else {
		log.Infof("No %s, using the built-in scene", manifestPath)
	}

	seed := uint64(time.Now().UnixNano())
	if m.Particles.Seed != nil {
		seed = *m.Particles.Seed
	}
	log.Debugf("particle seed %d", seed)
	initial := scene.InitParticles(scene.NewSeededRand(seed), m.Particles.Count)

	cfg := core.DefaultWindowConfig()
	cfg.Width = m.Window.Width
	cfg.Height = m.Window.Height
	cfg.Title = m.Window.Title
	cfg.VSync = m.Window.VSync
	cfg.Samples = m.Window.Samples

	window, err := core.NewWindow(cfg)
	if err != nil {
		return err
	}
	defer window.Destroy()

	fbW, fbH := window.GetFramebufferSize()
	ctx := renderer.NewRenderContext(fbW, fbH, m.NewCamera(), m.PointLight(), log)

	window.SetSizeCallback(func(int, int) {
		ctx.Resize(window.GetFramebufferSize())
	})
	ctx.SetCursor(window.GetCursorPos())
	window.SetCursorPosCallback(ctx.CursorMoved)
	window.SetMouseButtonCallback(func(button int, pressed bool) {
		if button == core.MouseButtonLeft {
			ctx.SetDragging(pressed)
		}
	})
	window.SetKeyCallback(func(key int) {
		if key == core.KeyEscape {
			window.RequestClose()
		}
	})

	loader := scene.Loader{Log: log, Overrides: m.Overrides()}
	terrain, err := loader.Load(m.MeshPath(), m.TexturePaths())
	if err != nil {
		return fmt.Errorf("load terrain: %w", err)
	}
	terrain.Transform = m.TerrainTransform()

	sprite, err := loadSprite(m.SpritePath())
	if err != nil {
		return err
	}

	opts := renderer.DefaultEngineOptions()
	opts.MinY = m.Particles.MinY
	opts.UseCPU = m.Particles.Backend == sceneio.BackendCPU
	opts.Config.MaxStep = m.Particles.MaxStep

	engine, err := renderer.NewRenderEngine(window, ctx, terrain, initial, sprite, opts)
	if err != nil {
		return err
	}
	defer engine.Destroy()

	start := time.Now()
	if err := engine.Run(); err != nil {
		return err
	}
	frames := engine.Driver().Frames()
	secs := time.Since(start).Seconds()
	if secs > 0 {
		log.Infof("%d frames in %.1fs (%.1f fps)", frames, secs, float64(frames)/secs)
	}
	return nil
}

func loadSprite(path string) (*scene.Texture, error) {
	if path == "" {
		return scene.NewFlakeTexture(flakeSize), nil
	}
	tex, err := scene.LoadTexture(path)
	if err != nil {
		return nil, fmt.Errorf("sprite: %w", err)
	}
	return tex, nil
}
