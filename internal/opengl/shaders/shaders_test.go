package shaders

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowscene/core"
	"snowscene/scene"
)

func TestPreprocessInjectsDefineOnceBeforeBody(t *testing.T) {
	body := "void main() { int n = nparticles; }\n"
	src := Preprocess(Version, body, map[string]string{"nparticles": "8192"})

	assert.Equal(t, 1, strings.Count(src, "8192"))
	assert.Equal(t, 1, strings.Count(src, "#define nparticles 8192"))
	def := strings.Index(src, "#define nparticles 8192")
	assert.Less(t, def, strings.Index(src, body))
	assert.True(t, strings.HasPrefix(src, Version+"\n"))
	assert.True(t, strings.HasSuffix(src, body))
}

func TestPreprocessOrdersDefinesAndReplacesVersion(t *testing.T) {
	src := Preprocess(Version, "#version 330 core\nvoid main() {}", map[string]string{
		"b": "2",
		"a": "1",
	})
	assert.Equal(t, Version+"\n#define a 1\n#define b 2\nvoid main() {}", src)
	assert.Equal(t, 1, strings.Count(src, "#version"))
}

func TestPreprocessNoDefines(t *testing.T) {
	assert.Equal(t, Version+"\nbody", Preprocess(Version, "body", nil))
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"a.frag": {Data: []byte("void main() {}\n")},
	}
	src, err := Load(fsys, "a.frag", map[string]string{"X": "1"})
	require.NoError(t, err)
	assert.Equal(t, Version+"\n#define X 1\nvoid main() {}\n", src)

	_, err = Load(fsys, "missing.frag", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrResourceLoad))
}

func TestParticleDefines(t *testing.T) {
	d := ParticleDefines(scene.DefaultParticleCount)
	assert.Equal(t, "8192", d["nparticles"])
	assert.Equal(t, "16", d["szparticle"])
	assert.Equal(t, "1", d["FIELD_Y"])
	assert.Equal(t, "9", d["FIELD_SCALE"])
	assert.Equal(t, "15", d["FIELD_INITIAL_VZ"])
}

func TestEmbeddedSourcesUseOnlyDefinedFields(t *testing.T) {
	d := ParticleDefines(4)
	for _, name := range []string{"step.frag", "particles.vert"} {
		src, err := Load(FS, name, d)
		require.NoError(t, err, name)
		assert.NotContains(t, src[len(Version):], "#version", name)
		for _, tok := range strings.FieldsFunc(src, func(r rune) bool {
			return !(r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
		}) {
			if strings.HasPrefix(tok, "FIELD_") {
				assert.Contains(t, d, tok, "%s uses undefined %s", name, tok)
			}
		}
	}
}
