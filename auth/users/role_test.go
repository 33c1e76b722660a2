package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Role
		wantErr bool
	}{
		{name: "user", in: "user", want: RoleUser},
		{name: "admin", in: "admin", want: RoleAdmin},
		{name: "capitalized", in: "Admin", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown", in: "root", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestRole_Text(t *testing.T) {
	var r Role
	require.NoError(t, r.UnmarshalText([]byte("admin")))
	assert.Equal(t, RoleAdmin, r)

	text, err := RoleUser.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "user", string(text))

	_, err = Role(7).MarshalText()
	assert.Error(t, err)
	assert.Error(t, r.UnmarshalText([]byte("superuser")))
}

func TestSession_ExpiredAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{CreatedAt: created, ExpiresAt: created.Add(time.Hour)}

	assert.False(t, s.ExpiredAt(created))
	assert.False(t, s.ExpiredAt(created.Add(time.Hour-time.Nanosecond)))
	assert.True(t, s.ExpiredAt(created.Add(time.Hour)))
	assert.True(t, s.ExpiredAt(created.Add(2*time.Hour)))
}

func TestUser_Identity(t *testing.T) {
	u := User{Name: "alice", Email: "a@x.com", PasswordHash: "secret", Role: RoleAdmin}
	id := u.Identity()
	assert.Equal(t, "alice", id.Name)
	assert.True(t, id.IsAdmin())
}
