package tool

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listFilesSpec() Spec {
	return Spec{
		Name:        "list_files",
		Description: "List a directory",
		Parameters: Object(map[string]*Schema{
			"path":  {Type: TypeString},
			"limit": {Type: TypeInteger},
		}, "path"),
		Server:     "fs",
		Capability: CapabilityFilesystem,
	}
}

func TestRegister_Resolve_ReturnsExactSpec(t *testing.T) {
	reg := NewRegistry()
	spec := listFilesSpec()

	require.NoError(t, reg.Register(spec))

	got, err := reg.Resolve("list_files")
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}

func TestRegister_Duplicate_ReturnsDuplicateToolError(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(listFilesSpec()))

	err := reg.Register(listFilesSpec())

	var dup *DuplicateToolError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "list_files", dup.Name)
	assert.Equal(t, 1, reg.Len())
}

func TestRegisterAll_IsAllOrNothing(t *testing.T) {
	reg := NewRegistry()

	err := reg.RegisterAll([]Spec{
		listFilesSpec(),
		{Name: "git_log", Capability: CapabilityGit},
		listFilesSpec(),
	})

	var dup *DuplicateToolError
	require.ErrorAs(t, err, &dup)
	assert.Zero(t, reg.Len())

	err = reg.RegisterAll([]Spec{{Name: "git_log", Capability: CapabilityGit}, {Name: "", Capability: CapabilityGit}})
	assert.ErrorIs(t, err, ErrInvalidSpec)
	assert.Zero(t, reg.Len())
}

func TestResolve_Unknown_ReturnsUnknownToolError(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve("rm_rf")

	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "rm_rf", unknown.Name)
}

func TestRegister_AfterSeal_Fails(t *testing.T) {
	reg := NewRegistry()
	reg.Seal()

	err := reg.Register(listFilesSpec())

	assert.ErrorIs(t, err, ErrRegistrySealed)
}

func TestRegister_InvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"empty name", Spec{Capability: CapabilityShell}},
		{"missing capability", Spec{Name: "x"}},
		{"conversational capability", Spec{Name: "x", Capability: CapabilityConversational}},
		{"unknown capability", Spec{Name: "x", Capability: "network"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.spec)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestList_PreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"zeta", "alpha", "mid"}
	caps := []Capability{CapabilityShell, CapabilityFilesystem, CapabilityShell}
	for i, n := range names {
		require.NoError(t, reg.Register(Spec{Name: n, Capability: caps[i]}))
	}

	var got []string
	for _, s := range reg.List() {
		got = append(got, s.Name)
	}
	assert.Equal(t, names, got)
	assert.Equal(t, []Capability{CapabilityShell, CapabilityFilesystem}, reg.Capabilities())

	decls := reg.Declarations()
	require.Len(t, decls, 3)
	assert.Equal(t, "zeta", decls[0].Name)
}

func TestResolve_ConcurrentReaders(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(listFilesSpec()))
	reg.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Resolve("list_files")
			assert.NoError(t, err)
			_ = reg.List()
		}()
	}
	wg.Wait()
}

func TestParseArguments(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(listFilesSpec()))

	t.Run("valid", func(t *testing.T) {
		args, err := reg.ParseArguments("list_files", json.RawMessage(`{"path":"/tmp","limit":5}`))
		require.NoError(t, err)
		assert.Equal(t, "/tmp", args["path"])
		assert.Equal(t, json.Number("5"), args["limit"])
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := reg.ParseArguments("list_files", json.RawMessage(`{}`))
		var invalid *InvalidArgumentsError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "list_files", invalid.Tool)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := reg.ParseArguments("list_files", json.RawMessage(`{"path":3}`))
		assert.Error(t, err)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := reg.ParseArguments("list_files", json.RawMessage(`["a"]`))
		assert.Error(t, err)
	})

	t.Run("empty is empty object", func(t *testing.T) {
		require.NoError(t, reg.Register(Spec{Name: "system_info", Capability: CapabilityInformational}))
		args, err := reg.ParseArguments("system_info", nil)
		require.NoError(t, err)
		assert.Empty(t, args)
	})
}

func TestResolveProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve returns the registered spec", prop.ForAll(
		func(names []string, destructive bool) bool {
			reg := NewRegistry()
			registered := make(map[string]Spec)
			for _, n := range names {
				if _, dup := registered[n]; dup {
					var dupErr *DuplicateToolError
					if !errors.As(reg.Register(Spec{Name: n, Capability: CapabilityShell}), &dupErr) {
						return false
					}
					continue
				}
				spec := Spec{Name: n, Destructive: destructive, Server: "srv", Capability: CapabilityShell, Keywords: []string{n}}
				if err := reg.Register(spec); err != nil {
					return false
				}
				registered[n] = spec
			}
			for n, want := range registered {
				got, err := reg.Resolve(n)
				if err != nil || !reflect.DeepEqual(want, got) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.Bool(),
	))

	properties.Property("unregistered names never resolve", prop.ForAll(
		func(registered []string, probe string) bool {
			reg := NewRegistry()
			seen := make(map[string]bool)
			for _, n := range registered {
				if !seen[n] {
					seen[n] = true
					_ = reg.Register(Spec{Name: n, Capability: CapabilityGit})
				}
			}
			if seen[probe] {
				return true
			}
			_, err := reg.Resolve(probe)
			var unknown *UnknownToolError
			return errors.As(err, &unknown)
		},
		gen.SliceOf(gen.Identifier()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
