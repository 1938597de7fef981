package obfuscate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/tools/txtar"

	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/inspect"
	"github.com/gnolang/pgrename/internal/mapping"
)

// runArchive extracts a testdata archive, points the harness variables at
// it and runs the pipeline in place, checking the result against want.map.
// It returns the extraction directory.
func runArchive(t *testing.T, file string) (string, *txtar.Archive) {
	t.Helper()
	ar, err := txtar.ParseFile(file)
	require.NoError(t, err)

	dir := t.TempDir()
	for _, f := range ar.Files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o644))
	}
	t.Setenv("HOME", dir)
	t.Setenv(EnvDexFile, filepath.Join(dir, "classes.json"))
	t.Setenv(EnvPGConfig, filepath.Join(dir, "proguard.pro"))
	t.Setenv(EnvMapping, filepath.Join(dir, "want.map"))
	t.Setenv("PGRENAME_MAPPING_OUT", filepath.Join(dir, "mapping.txt"))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	res, err := New(zap.NewNop()).Run(context.Background(), cfg)
	if errors.Is(err, ErrMappingMismatch) {
		t.Fatalf("mapping mismatch:\n%s", res.MappingDiff)
	}
	require.NoError(t, err)
	return dir, ar
}

func archiveFile(ar *txtar.Archive, name string) (string, bool) {
	for _, f := range ar.Files {
		if f.Name == name {
			return string(f.Data), true
		}
	}
	return "", false
}

func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".txtar")
		t.Run(name, func(t *testing.T) {
			dir, ar := runArchive(t, file)

			want, ok := archiveFile(ar, "want.map")
			require.True(t, ok, "archive has no want.map")
			got, err := os.ReadFile(filepath.Join(dir, "mapping.txt"))
			require.NoError(t, err)
			if diff, same := mapping.Compare(want, string(got)); !same {
				t.Errorf("mapping mismatch:\n%s", diff)
			}

			// The rewritten container loads and keeps its shape.
			orig, ok := archiveFile(ar, "classes.json")
			require.True(t, ok)
			before, err := dex.Decode([]byte(orig))
			require.NoError(t, err)
			after, err := dex.Load(filepath.Join(dir, "classes.json"))
			require.NoError(t, err)
			assert.Equal(t, before.Fingerprint(dex.ModuloNames), after.Fingerprint(dex.ModuloNames))
		})
	}
}

// TestRedexFieldObfuscation reads the outputs the way an external checker
// would: the rewritten container plus the mapping, queried by original name.
func TestRedexFieldObfuscation(t *testing.T) {
	dir, _ := runArchive(t, filepath.Join("testdata", "redex.txtar"))

	g, err := dex.Load(os.Getenv(EnvDexFile))
	require.NoError(t, err)
	f, err := os.Open(filepath.Join(dir, "mapping.txt"))
	require.NoError(t, err)
	defer f.Close()
	m, err := mapping.Read(f)
	require.NoError(t, err)
	in := inspect.New(g, m)

	const p = "Lcom/facebook/redex/test/proguard/"
	alpha := in.FindClassNamed(p + "Alpha;")
	require.NotNil(t, alpha)
	for _, field := range []string{"wombat:I", "numbat:I", "omega:Ljava/lang/String;", "theta:Ljava/util/List;"} {
		assert.False(t, in.FieldFound(alpha.Fields, p+"Alpha;."+field), field)
	}

	beta := in.FindClassNamed(p + "Beta;")
	require.NotNil(t, beta)
	assert.True(t, in.FieldFound(beta.Fields, p+"Beta;.wombatBeta:I"))

	hello := in.FindClassNamed(p + "Hello;")
	require.NotNil(t, hello)
	assert.False(t, in.FieldFound(hello.Fields, p+"Hello;.hello:Ljava/lang/String;"))
	world := in.FindClassNamed(p + "World;")
	require.NotNil(t, world)
	assert.False(t, in.FieldFound(world.Fields, p+"World;.world:Ljava/lang/String;"))

	assert.False(t, in.RefsToFieldFound(".hello:Ljava/lang/String;"))
	assert.False(t, in.RefsToFieldFound(".world:Ljava/lang/String;"))
	assert.True(t, in.RefsToFieldFound(".wombatBeta:I"))

	// Reads through the renamed subclass now name the declaring classes.
	assert.True(t, in.RefsToFieldFound("/Hello;.a:Ljava/lang/String;"))
	assert.True(t, in.RefsToFieldFound("/World;.b:Ljava/lang/String;"))
	assert.False(t, in.RefsToFieldFound("/a;.a:Ljava/lang/String;"))

	require.NotNil(t, in.FindClassNamed(p+"All;"))
}

func TestHarnessMappingIsNotOverwritten(t *testing.T) {
	ar, err := txtar.ParseFile(filepath.Join("testdata", "redex.txtar"))
	require.NoError(t, err)
	dir := t.TempDir()
	for _, f := range ar.Files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o644))
	}
	prior := filepath.Join(dir, "prior.map")
	const stale = "com.facebook.redex.test.proguard.Alpha -> com.facebook.redex.test.proguard.Alpha:\n    int wombat -> zz\n"
	require.NoError(t, os.WriteFile(prior, []byte(stale), 0o644))

	t.Setenv("HOME", dir)
	t.Setenv(EnvDexFile, filepath.Join(dir, "classes.json"))
	t.Setenv(EnvPGConfig, filepath.Join(dir, "proguard.pro"))
	t.Setenv(EnvMapping, prior)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, prior, cfg.Mapping.Expect)
	assert.Empty(t, cfg.Mapping.Out)

	res, err := New(zap.NewNop()).Run(context.Background(), cfg)
	require.ErrorIs(t, err, ErrMappingMismatch)
	assert.Contains(t, res.MappingDiff, "-    int wombat -> zz")

	data, err := os.ReadFile(prior)
	require.NoError(t, err)
	assert.Equal(t, stale, string(data))
	orig, _ := archiveFile(ar, "classes.json")
	data, err = os.ReadFile(filepath.Join(dir, "classes.json"))
	require.NoError(t, err)
	assert.Equal(t, orig, string(data), "container is untouched on mismatch")
}
