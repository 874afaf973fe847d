package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatalking/mldb"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	factory := func(any) (*mldb.KernelSpec, error) { return &mldb.KernelSpec{Name: "noop"}, nil }

	require.NoError(t, r.Register("host", "noop", factory))

	got, ok := r.Lookup("host", "noop")
	require.True(t, ok)
	spec, err := got(nil)
	require.NoError(t, err)
	assert.Equal(t, "noop", spec.Name)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := New()
	factory := func(any) (*mldb.KernelSpec, error) { return nil, nil }
	require.NoError(t, r.Register("host", "noop", factory))

	err := r.Register("host", "noop", factory)
	var already *mldb.AlreadyRegistered
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "host", already.Backend)
	assert.Equal(t, "noop", already.Name)
}

func TestLookupUnknownBackendOrKernel(t *testing.T) {
	r := New()
	_, ok := r.Lookup("missing", "noop")
	assert.False(t, ok)

	require.NoError(t, r.Register("host", "add2", func(any) (*mldb.KernelSpec, error) { return nil, nil }))
	_, ok = r.Lookup("host", "missing")
	assert.False(t, ok)
}

func TestBackendsAndKernelsIntrospection(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("host", "add2", func(any) (*mldb.KernelSpec, error) { return nil, nil }))
	require.NoError(t, r.Register("host", "scale", func(any) (*mldb.KernelSpec, error) { return nil, nil }))
	require.NoError(t, r.Register("opencl", "add2", func(any) (*mldb.KernelSpec, error) { return nil, nil }))

	assert.ElementsMatch(t, []string{"host", "opencl"}, r.Backends())
	assert.ElementsMatch(t, []string{"add2", "scale"}, r.Kernels("host"))
	assert.Nil(t, r.Kernels("missing"))
}
