package netconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"server", ModeServer},
		{"HOST", ModeHost},
		{" client ", ModeClient},
		{"", ModeClient},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("relay")
	assert.Error(t, err)
}

func TestModeRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleAuthority}, ModeServer.Roles())
	assert.Equal(t, []Role{RoleAuthority, RoleParticipant}, ModeHost.Roles())
	assert.Equal(t, []Role{RoleParticipant}, ModeClient.Roles())

	assert.True(t, ModeHost.Has(RoleAuthority))
	assert.True(t, ModeHost.Has(RoleParticipant))
	assert.False(t, ModeServer.Has(RoleParticipant))
	assert.False(t, ModeClient.Has(RoleAuthority))
}

func TestModeStringRoundTrip(t *testing.T) {
	for _, m := range []Mode{ModeServer, ModeHost, ModeClient} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}
