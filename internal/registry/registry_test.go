package registry

import (
	"testing"

	"flotilla/internal/errors"
	"flotilla/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifest(id string, deps ...string) *types.ServiceManifest {
	return &types.ServiceManifest{
		ID:           id,
		Version:      "1.0.0",
		Dependencies: deps,
	}
}

func TestRegister(t *testing.T) {
	r := New()

	err := r.Register(manifest("postgres"))
	require.NoError(t, err)
	assert.True(t, r.Has("postgres"))

	got, err := r.Get("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", got.ID)
	assert.Equal(t, "1.0.0", got.Version)
}

func TestRegister_Validation(t *testing.T) {
	r := New()

	err := r.Register(&types.ServiceManifest{Version: "1.0.0"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrValidation))

	err = r.Register(&types.ServiceManifest{ID: "api"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrValidation))

	err = r.Register(nil)
	assert.Error(t, err)
}

func TestRegister_Overwrite(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(manifest("api", "postgres")))
	require.NoError(t, r.Register(manifest("api", "redis")))

	got, err := r.Get("api")
	require.NoError(t, err)
	assert.Equal(t, []string{"redis"}, got.Dependencies)
}

func TestRegister_StoresCopy(t *testing.T) {
	r := New()

	m := manifest("api", "postgres")
	require.NoError(t, r.Register(m))

	// Mutating the caller's manifest must not leak into the registry.
	m.Dependencies[0] = "mutated"

	got, err := r.Get("api")
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres"}, got.Dependencies)
}

func TestUnregister_Idempotent(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(manifest("api")))

	r.Unregister("api")
	assert.False(t, r.Has("api"))

	// Absent service is not an error.
	r.Unregister("api")
	r.Unregister("never-registered")
}

func TestGet_NotFound(t *testing.T) {
	r := New()

	_, err := r.Get("ghost")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrServiceNotFound))
}

func TestAll(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(manifest("a")))
	require.NoError(t, r.Register(manifest("b")))

	all := r.All()
	assert.Len(t, all, 2)
}

func TestDependents_Transitive(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(manifest("a")))
	require.NoError(t, r.Register(manifest("b", "a")))
	require.NoError(t, r.Register(manifest("c", "b")))
	require.NoError(t, r.Register(manifest("d")))

	dependents := r.Dependents("a")
	assert.ElementsMatch(t, []string{"b", "c"}, dependents)

	assert.Empty(t, r.Dependents("c"))
	assert.Empty(t, r.Dependents("d"))
}

func TestDependents_SharedDependency(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(manifest("db")))
	require.NoError(t, r.Register(manifest("api", "db")))
	require.NoError(t, r.Register(manifest("worker", "db")))

	dependents := r.Dependents("db")
	assert.ElementsMatch(t, []string{"api", "worker"}, dependents)
}
