// Command snowassets regenerates the bundled demo scene under ./assets.
package main

import (
	"flag"
	"os"

	"snowscene/core"
	"snowscene/internal/assets"
)

func main() {
	opts := assets.DefaultOptions()
	dir := flag.String("out", "assets", "output directory")
	flag.IntVar(&opts.Subdivisions, "grid", opts.Subdivisions, "terrain grid cells per side")
	flag.IntVar(&opts.TextureSize, "texsize", opts.TextureSize, "texture edge in pixels")
	flag.BoolVar(&opts.Manifest, "manifest", opts.Manifest, "also write scene.json")
	flag.Parse()

	log := core.NewDefaultLogger("snowassets", false)
	if err := assets.Generate(*dir, opts, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
