package config_test

import (
	"testing"

	"github.com/go-sylar/sylar/config"
	"github.com/stretchr/testify/require"
)

func TestLookupRegistersOnce(t *testing.T) {
	r := config.NewRegistry()
	v1, ok := config.RegistryLookupOrRegister(r, "testpkg.retries", 3, "retry count")
	require.True(t, ok)
	v2, ok := config.RegistryLookupOrRegister(r, "testpkg.retries", 99, "ignored on second call")
	require.True(t, ok)
	require.Equal(t, v1, v2)
	require.Equal(t, 3, v1.Value())
}

func TestFromTextRoundTrip(t *testing.T) {
	r := config.NewRegistry()
	v, ok := config.RegistryLookupOrRegister(r, "testpkg.timeout", float64(1.5), "")
	require.True(t, ok)
	require.NoError(t, v.FromText(v.ToText()))
	require.InDelta(t, 1.5, v.Value(), 0.0001)

	require.NoError(t, v.FromText("2.25"))
	require.InDelta(t, 2.25, v.Value(), 0.0001)
}

func TestFromTextInvalidLeavesValueUnchanged(t *testing.T) {
	r := config.NewRegistry()
	v, ok := config.RegistryLookupOrRegister(r, "testpkg.count", 10, "")
	require.True(t, ok)
	err := v.FromText("not-an-int")
	require.Error(t, err)
	require.Equal(t, 10, v.Value())
}

func TestListenerFiresOnlyOnChange(t *testing.T) {
	r := config.NewRegistry()
	v, ok := config.RegistryLookupOrRegister(r, "testpkg.flag", false, "")
	require.True(t, ok)
	var calls int
	v.AddListener(func(old, newVal bool) { calls++ })
	v.Set(false)
	require.Equal(t, 0, calls)
	v.Set(true)
	require.Equal(t, 1, calls)
	v.Set(true)
	require.Equal(t, 1, calls)
}

func TestSliceMapSetRoundTrip(t *testing.T) {
	r := config.NewRegistry()

	sv, ok := config.LookupSlice[string]("testpkg.hosts", nil, "")
	require.True(t, ok)
	_ = r
	require.NoError(t, sv.FromText("[a, b, c]"))
	require.Equal(t, []string{"a", "b", "c"}, sv.Value())

	mv, ok := config.LookupMap[int]("testpkg.weights", nil, "")
	require.True(t, ok)
	require.NoError(t, mv.FromText("{a: 1, b: 2}"))
	require.Equal(t, map[string]int{"a": 1, "b": 2}, mv.Value())

	setv, ok := config.LookupSet[string]("testpkg.tags", nil, "")
	require.True(t, ok)
	require.NoError(t, setv.FromText("[x, y]"))
	require.Contains(t, setv.Value(), "x")
	require.Contains(t, setv.Value(), "y")
}

func TestLoadFromTreeAppliesOnlyKnownNames(t *testing.T) {
	r := config.NewRegistry()
	v, ok := config.RegistryLookupOrRegister(r, "svc.port", 8080, "")
	require.True(t, ok)

	data := []byte("svc:\n  port: 9090\n  unknown: true\n")
	require.NoError(t, config.LoadYAMLInto(r, data))
	require.Equal(t, 9090, v.Value())
}

func TestInvalidNameReturnsFalseNotPanic(t *testing.T) {
	r := config.NewRegistry()
	require.NotPanics(t, func() {
		v, ok := config.RegistryLookupOrRegister(r, "Bad-Name!", 1, "")
		require.False(t, ok)
		require.Nil(t, v)
	})
}

func TestLookupExistingTypeMismatch(t *testing.T) {
	config.RegistryLookupOrRegister(config.Default(), "testpkg.existing_mismatch", 1, "")
	_, err := config.LookupExisting[string]("testpkg.existing_mismatch")
	require.ErrorIs(t, err, config.ErrTypeMismatch)
}

func TestLookupTypeMismatchReturnsFalseNotPanic(t *testing.T) {
	r := config.NewRegistry()
	_, ok := config.RegistryLookupOrRegister(r, "system.port", 8080, "")
	require.True(t, ok)

	require.NotPanics(t, func() {
		v, ok := config.RegistryLookupOrRegister(r, "system.port", float64(0), "")
		require.False(t, ok)
		require.Nil(t, v)
	})
}

func TestGetListenerRoundTrip(t *testing.T) {
	r := config.NewRegistry()
	v, ok := config.RegistryLookupOrRegister(r, "testpkg.listened", 0, "")
	require.True(t, ok)

	id := v.AddListener(func(old, newVal int) {})
	fn, found := v.GetListener(id)
	require.True(t, found)
	require.NotNil(t, fn)

	v.DelListener(id)
	_, found = v.GetListener(id)
	require.False(t, found)
}
