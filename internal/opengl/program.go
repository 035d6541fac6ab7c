package opengl

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"snowscene/core"
	"snowscene/internal/opengl/shaders"
)

// StageSource names one shader stage of a program.
type StageSource struct {
	Type    uint32 // gl.VERTEX_SHADER, gl.GEOMETRY_SHADER or gl.FRAGMENT_SHADER
	Path    string
	Defines map[string]string
}

func stageName(t uint32) string {
	switch t {
	case gl.VERTEX_SHADER:
		return "vertex"
	case gl.GEOMETRY_SHADER:
		return "geometry"
	case gl.FRAGMENT_SHADER:
		return "fragment"
	}
	return fmt.Sprintf("stage 0x%x", t)
}

// BuildProgram reads, preprocesses, compiles and links the given stages.
// Compile and link failures are returned as *core.ShaderError carrying the
// driver's info log.
func BuildProgram(fsys fs.FS, stages []StageSource) (uint32, error) {
	compiled := make([]uint32, 0, len(stages))
	defer func() {
		for _, s := range compiled {
			gl.DeleteShader(s)
		}
	}()

	for _, st := range stages {
		src, err := shaders.Load(fsys, st.Path, st.Defines)
		if err != nil {
			return 0, err
		}
		shader, err := compileShader(src, st.Type)
		if err != nil {
			return 0, &core.ShaderError{Kind: core.ErrCompile, Stage: stageName(st.Type), Path: st.Path, Log: err.Error()}
		}
		compiled = append(compiled, shader)
	}

	prog := gl.CreateProgram()
	for _, s := range compiled {
		gl.AttachShader(prog, s)
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, &core.ShaderError{Kind: core.ErrLink, Stage: "program", Path: stagePaths(stages), Log: strings.TrimRight(log, "\x00")}
	}

	for _, s := range compiled {
		gl.DetachShader(prog, s)
	}
	return prog, nil
}

func stagePaths(stages []StageSource) string {
	paths := make([]string, len(stages))
	for i, st := range stages {
		paths[i] = st.Path
	}
	return strings.Join(paths, "+")
}

// compileShader returns the info log as the error text on failure.
func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, errors.New(strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func uniform(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}
