package router

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/sysmate/internal/classifier"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

func newRouter() *Router {
	return New(map[tool.Capability]string{
		tool.CapabilityFilesystem: "anthropic",
		tool.CapabilityGit:        "openai",
	}, "ollama")
}

func classified(c tool.Capability) classifier.Classification {
	return classifier.Classification{Capability: c, Confidence: 0.75}
}

func available(ids ...string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		req        Request
		want       Selection
		wantTried  []string
		wantFailed bool
	}{
		{
			name: "mapped provider available",
			req:  Request{Classification: classified(tool.CapabilityFilesystem), Available: available("anthropic", "ollama")},
			want: Selection{Provider: "anthropic", Reason: ReasonClassificationMatch},
		},
		{
			name: "mapped provider unavailable falls back",
			req:  Request{Classification: classified(tool.CapabilityGit), Available: available("ollama")},
			want: Selection{Provider: "ollama", Reason: ReasonFallback},
		},
		{
			name: "unmapped capability falls back",
			req:  Request{Classification: classified(tool.CapabilityConversational), Available: available("anthropic", "ollama")},
			want: Selection{Provider: "ollama", Reason: ReasonFallback},
		},
		{
			name: "override wins",
			req:  Request{Classification: classified(tool.CapabilityFilesystem), Available: available("anthropic", "openai"), Override: "openai"},
			want: Selection{Provider: "openai", Reason: ReasonExplicitOverride},
		},
		{
			name: "unavailable override is ignored",
			req:  Request{Classification: classified(tool.CapabilityFilesystem), Available: available("anthropic"), Override: "gemini"},
			want: Selection{Provider: "anthropic", Reason: ReasonClassificationMatch},
		},
		{
			name:       "nothing available",
			req:        Request{Classification: classified(tool.CapabilityGit), Available: available()},
			wantFailed: true,
			wantTried:  []string{"openai", "ollama"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newRouter().Select(tt.req)
			if tt.wantFailed {
				var noProvider *NoProviderAvailableError
				require.ErrorAs(t, err, &noProvider)
				assert.Equal(t, tt.wantTried, noProvider.Tried)
				assert.Equal(t, tt.req.Classification.Capability, noProvider.Capability)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_NoDefaultConfigured(t *testing.T) {
	r := New(map[tool.Capability]string{tool.CapabilityFilesystem: "anthropic"}, "")

	_, err := r.Select(Request{Classification: classified(tool.CapabilityFilesystem), Available: available("openai")})

	var noProvider *NoProviderAvailableError
	require.ErrorAs(t, err, &noProvider)
	assert.Equal(t, []string{"anthropic"}, noProvider.Tried)
	assert.Contains(t, err.Error(), "filesystem")
}

func TestNew_CopiesRoutes(t *testing.T) {
	routes := map[tool.Capability]string{tool.CapabilityGit: "openai"}
	r := New(routes, "ollama")

	routes[tool.CapabilityGit] = "anthropic"

	id, ok := r.Route(tool.CapabilityGit)
	assert.True(t, ok)
	assert.Equal(t, "openai", id)
	assert.Equal(t, "ollama", r.Fallback())
}

func TestSelectProperties(t *testing.T) {
	ids := []string{"anthropic", "openai", "ollama", "gemini"}
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("selection is always an available provider", prop.ForAll(
		func(mask uint8, capIdx int) bool {
			avail := map[string]bool{}
			for i, id := range ids {
				if mask&(1<<i) != 0 {
					avail[id] = true
				}
			}
			req := Request{Classification: classified(tool.Capabilities[capIdx]), Available: avail}
			sel, err := newRouter().Select(req)
			if err != nil {
				return !avail["ollama"]
			}
			return avail[sel.Provider]
		},
		gen.UInt8Range(0, 15),
		gen.IntRange(0, len(tool.Capabilities)-1),
	))

	properties.Property("select does not mutate the request", prop.ForAll(
		func(mask uint8) bool {
			avail := map[string]bool{}
			for i, id := range ids {
				avail[id] = mask&(1<<i) != 0
			}
			before := len(avail)
			_, _ = newRouter().Select(Request{Classification: classified(tool.CapabilityGit), Available: avail})
			return len(avail) == before
		},
		gen.UInt8Range(0, 15),
	))

	properties.TestingRun(t)
}
