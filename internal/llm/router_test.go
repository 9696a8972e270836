package llm_test

import (
	"context"
	"testing"

	"github.com/Rrens/ddoksori/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	configured bool
}

func (s stubProvider) Name() string              { return s.name }
func (s stubProvider) AvailableModels() []string { return []string{s.name + "-1"} }
func (s stubProvider) DefaultModel() string      { return s.name + "-1" }
func (s stubProvider) IsConfigured() bool        { return s.configured }
func (s stubProvider) Reply(context.Context, llm.Request, string) (*llm.Response, error) {
	return &llm.Response{Content: s.name}, nil
}

func TestRouter(t *testing.T) {
	r := llm.NewRouter("beta")
	r.RegisterProvider(stubProvider{name: "beta", configured: true})
	r.RegisterProvider(stubProvider{name: "alpha", configured: true})
	r.RegisterProvider(stubProvider{name: "gamma"})

	p, err := r.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "beta", p.Name())

	_, err = r.GetProvider("gamma")
	assert.ErrorContains(t, err, "not configured")

	_, err = r.GetProvider("missing")
	assert.ErrorContains(t, err, "not found")

	assert.Equal(t, []string{"alpha", "beta"}, r.ListProviders())

	infos := r.GetProvidersInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.True(t, infos[1].Default)
	assert.False(t, infos[2].Configured)
}
