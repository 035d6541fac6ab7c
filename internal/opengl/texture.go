package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"snowscene/core"
	"snowscene/scene"
)

// UploadTexture uploads a scene.Texture to the GPU and sets its GLID field.
// Call this from the main goroutine (OpenGL context must be current).
func UploadTexture(tex *scene.Texture) error {
	if tex == nil {
		return fmt.Errorf("%w: nil texture", core.ErrResourceLoad)
	}
	if len(tex.Pixels) == 0 || len(tex.Pixels) != tex.Width*tex.Height*4 {
		return fmt.Errorf("%w: texture %q has %d bytes for %dx%d",
			core.ErrResourceLoad, tex.Name, len(tex.Pixels), tex.Width, tex.Height)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(tex.Width),
		int32(tex.Height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		unsafe.Pointer(&tex.Pixels[0]),
	)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)

	tex.GLID = id
	return nil
}

// DeleteTexture frees a previously uploaded GPU texture and zeroes its GLID.
func DeleteTexture(tex *scene.Texture) {
	if tex == nil || tex.GLID == 0 {
		return
	}
	gl.DeleteTextures(1, &tex.GLID)
	tex.GLID = 0
}

// newStateTexture allocates a single-channel float rectangle texture of
// width x height texels, sampled with texelFetch. data may be nil.
func newStateTexture(width, height int, data []float32) (uint32, error) {
	if data != nil && len(data) != width*height {
		return 0, fmt.Errorf("%w: state data has %d floats for %dx%d",
			core.ErrInvariant, len(data), width, height)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_RECTANGLE, id)

	gl.TexParameteri(gl.TEXTURE_RECTANGLE, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_RECTANGLE, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_RECTANGLE, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_RECTANGLE, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	var ptr unsafe.Pointer
	if data != nil {
		ptr = gl.Ptr(data)
	}
	gl.TexImage2D(gl.TEXTURE_RECTANGLE, 0, gl.R32F, int32(width), int32(height), 0, gl.RED, gl.FLOAT, ptr)

	gl.BindTexture(gl.TEXTURE_RECTANGLE, 0)
	return id, nil
}

// writeStateTexture replaces the whole content of a state texture.
func writeStateTexture(id uint32, buf *scene.StateBuffer) {
	gl.BindTexture(gl.TEXTURE_RECTANGLE, id)
	gl.TexSubImage2D(gl.TEXTURE_RECTANGLE, 0, 0, 0, int32(buf.Width), int32(buf.Height),
		gl.RED, gl.FLOAT, gl.Ptr(buf.Data))
	gl.BindTexture(gl.TEXTURE_RECTANGLE, 0)
}
