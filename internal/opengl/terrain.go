package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
	"snowscene/internal/opengl/shaders"
	"snowscene/scene"
)

// TerrainModel holds the OpenGL objects of one uploaded model. Texture
// handles are 0 when the channel is unused.
type TerrainModel struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32

	TexDiffuse  uint32
	TexNormal   uint32
	TexSpecular uint32
}

// GPUScene is a scene after upload.
type GPUScene struct {
	Scene  *scene.Scene
	Models []*TerrainModel
}

// UploadScene validates s, uploads every texture in its map and creates a
// vertex array per model. Nothing is uploaded when validation fails.
func UploadScene(s *scene.Scene) (*GPUScene, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	gs := &GPUScene{Scene: s}
	for _, tex := range s.Textures {
		if tex.GLID != 0 {
			continue
		}
		if err := UploadTexture(tex); err != nil {
			gs.Destroy()
			return nil, err
		}
	}

	for i, m := range s.Models {
		gpu, err := uploadModel(m.Mesh)
		if err != nil {
			gs.Destroy()
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		gpu.TexDiffuse = textureID(s, m.Textures[scene.SlotDiffuse])
		gpu.TexNormal = textureID(s, m.Textures[scene.SlotNormal])
		gpu.TexSpecular = textureID(s, m.Textures[scene.SlotSpecular])
		gs.Models = append(gs.Models, gpu)
	}
	return gs, nil
}

func textureID(s *scene.Scene, name string) uint32 {
	if name == "" {
		return 0
	}
	return s.Textures[name].GLID
}

func uploadModel(mesh *scene.Mesh) (*TerrainModel, error) {
	if mesh == nil || len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("%w: empty mesh", core.ErrInvariant)
	}

	stride := int32(unsafe.Sizeof(core.Vertex{}))
	gpu := &TerrainModel{IndexCount: int32(len(mesh.Indices))}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.GenBuffers(1, &gpu.EBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*int(stride), gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)

	// Attribute order matches phong.vert: pos, uv, norm, tng, bitng.
	var v core.Vertex
	attribs := []struct {
		size   int32
		offset uintptr
	}{
		{3, unsafe.Offsetof(v.Position)},
		{2, unsafe.Offsetof(v.UV)},
		{3, unsafe.Offsetof(v.Normal)},
		{3, unsafe.Offsetof(v.Tangent)},
		{3, unsafe.Offsetof(v.Bitangent)},
	}
	for i, a := range attribs {
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), a.size, gl.FLOAT, false, stride, gl.PtrOffset(int(a.offset)))
	}

	gl.BindVertexArray(0)
	return gpu, nil
}

func (gs *GPUScene) Destroy() {
	for _, m := range gs.Models {
		gl.DeleteVertexArrays(1, &m.VAO)
		gl.DeleteBuffers(1, &m.VBO)
		gl.DeleteBuffers(1, &m.EBO)
	}
	gs.Models = nil
	for _, tex := range gs.Scene.Textures {
		DeleteTexture(tex)
	}
}

// ── TerrainRenderer ──────────────────────────────────────────────────────────

// TerrainRenderer shades the scene's models with a single point light.
type TerrainRenderer struct {
	prog uint32

	projViewModelLoc int32
	modelLoc         int32
	modelNormalLoc   int32
	camposLoc        int32
	lightposLoc      int32

	texDiffLoc    int32
	texNormLoc    int32
	texSpecLoc    int32
	useTexDiffLoc int32
	useTexNormLoc int32
	useTexSpecLoc int32
}

func NewTerrainRenderer() (*TerrainRenderer, error) {
	prog, err := BuildProgram(shaders.FS, []StageSource{
		{Type: gl.VERTEX_SHADER, Path: "phong.vert"},
		{Type: gl.FRAGMENT_SHADER, Path: "phong.frag"},
	})
	if err != nil {
		return nil, fmt.Errorf("terrain shader: %w", err)
	}

	tr := &TerrainRenderer{
		prog:             prog,
		projViewModelLoc: uniform(prog, "projViewModel"),
		modelLoc:         uniform(prog, "model"),
		modelNormalLoc:   uniform(prog, "modelNormal"),
		camposLoc:        uniform(prog, "campos"),
		lightposLoc:      uniform(prog, "lightpos"),
		texDiffLoc:       uniform(prog, "texdiff"),
		texNormLoc:       uniform(prog, "texnorm"),
		texSpecLoc:       uniform(prog, "texspec"),
		useTexDiffLoc:    uniform(prog, "usetexdiff"),
		useTexNormLoc:    uniform(prog, "usetexnorm"),
		useTexSpecLoc:    uniform(prog, "usetexspec"),
	}

	// Texture units: diffuse=0, normal=1, specular=2
	gl.UseProgram(prog)
	gl.Uniform1i(tr.texDiffLoc, 0)
	gl.Uniform1i(tr.texNormLoc, 1)
	gl.Uniform1i(tr.texSpecLoc, 2)
	return tr, nil
}

func (tr *TerrainRenderer) Draw(gs *GPUScene, cam *scene.Camera, light scene.PointLight, view, proj mgl32.Mat4) {
	model := gs.Scene.ModelMatrix()
	normal := gs.Scene.Transform.GetNormalMatrix()
	pvm := proj.Mul4(view).Mul4(model)

	gl.UseProgram(tr.prog)
	gl.UniformMatrix4fv(tr.projViewModelLoc, 1, false, &pvm[0])
	gl.UniformMatrix4fv(tr.modelLoc, 1, false, &model[0])
	gl.UniformMatrix3fv(tr.modelNormalLoc, 1, false, &normal[0])
	gl.Uniform3f(tr.camposLoc, cam.Position.X(), cam.Position.Y(), cam.Position.Z())
	gl.Uniform3f(tr.lightposLoc, light.Position.X(), light.Position.Y(), light.Position.Z())

	for _, m := range gs.Models {
		bindOptional(gl.TEXTURE0, m.TexDiffuse, tr.useTexDiffLoc)
		bindOptional(gl.TEXTURE1, m.TexNormal, tr.useTexNormLoc)
		bindOptional(gl.TEXTURE2, m.TexSpecular, tr.useTexSpecLoc)

		gl.BindVertexArray(m.VAO)
		gl.DrawElements(gl.TRIANGLES, m.IndexCount, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
	gl.ActiveTexture(gl.TEXTURE0)
}

func bindOptional(unit, tex uint32, useLoc int32) {
	gl.ActiveTexture(unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	if tex != 0 {
		gl.Uniform1i(useLoc, 1)
	} else {
		gl.Uniform1i(useLoc, 0)
	}
}

func (tr *TerrainRenderer) Destroy() {
	gl.DeleteProgram(tr.prog)
}
