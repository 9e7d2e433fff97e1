package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/fleetctl/internal/render"
	"github.com/eniac111/fleetctl/internal/types"
)

func testHost() types.Host {
	h := types.NewHost(types.MustHostID("web-1"), "10.0.0.1:22").
		AddTag(types.MustHostTag("prod")).
		SetVar("msg", "hi").
		SetVar("app", map[string]any{"port": 8080})
	return *h
}

func TestString(t *testing.T) {
	tests := []struct {
		tmpl string
		want string
	}{
		{`echo "{{ .host.id }} says {{ .host.vars.msg }}"`, `echo "web-1 says hi"`},
		{`{{ .host.user }}@{{ .host.address }}`, `root@10.0.0.1:22`},
		{`port={{ .host.vars.app.port }}`, `port=8080`},
		{`{{ range .host.tags }}[{{ . }}]{{ end }}`, `[prod]`},
		{`no placeholders & <raw>`, `no placeholders & <raw>`},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			got, err := render.String("cmd", tt.tmpl, testHost())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString_Errors(t *testing.T) {
	_, err := render.String("cmd", `echo {{ .host.id`, testHost())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrOther)

	_, err = render.String("cmd", `echo {{ .host.vars.missing }}`, testHost())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web-1")
}
