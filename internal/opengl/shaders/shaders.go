// Package shaders holds the GLSL sources of the renderer and the text
// preprocessing applied before compilation. Source files carry no #version
// line; it is prepended together with the injected defines.
package shaders

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"snowscene/core"
	"snowscene/scene"
)

// Version is the GLSL version line matching the 4.1 core context.
const Version = "#version 410 core"

//go:embed *.vert *.geom *.frag
var FS embed.FS

// Preprocess returns version, a newline, one "#define name value" line per
// define in name order, then body. A leading #version line in body is
// dropped so the injected one is the only one.
func Preprocess(version, body string, defines map[string]string) string {
	if strings.HasPrefix(strings.TrimSpace(body), "#version") {
		body = strings.TrimSpace(body)
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		} else {
			body = ""
		}
	}

	names := make([]string, 0, len(defines))
	for name := range defines {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString(version)
	b.WriteByte('\n')
	for _, name := range names {
		fmt.Fprintf(&b, "#define %s %s\n", name, defines[name])
	}
	b.WriteString(body)
	return b.String()
}

// Load reads path from fsys and preprocesses it.
func Load(fsys fs.FS, path string, defines map[string]string) (string, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return "", fmt.Errorf("read shader %q: %w: %w", path, core.ErrResourceLoad, err)
	}
	return Preprocess(Version, string(data), defines), nil
}

// ParticleDefines injects the particle count, record width and every field
// offset so the shaders address the state texture the way the host lays it
// out.
func ParticleDefines(count int) map[string]string {
	d := map[string]string{
		"nparticles": strconv.Itoa(count),
		"szparticle": strconv.Itoa(scene.RecordWidth),
	}
	for i, name := range scene.FieldNames {
		d[name] = strconv.Itoa(i)
	}
	return d
}
