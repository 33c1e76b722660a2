package webpath

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPromoteDemote(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "/admin/promote/6ba7b810-9dad-11d1-80b4-00c04fd430c8", Promote(id))
	assert.Equal(t, "/admin/demote/6ba7b810-9dad-11d1-80b4-00c04fd430c8", Demote(id))
	assert.True(t, strings.HasPrefix(AdminPromote, Admin))
}

func TestPath(t *testing.T) {
	p := Path()
	assert.Equal(t, Login, p["Login"])
	assert.Equal(t, Logout, p["Logout"])
	for name, path := range p {
		assert.True(t, strings.HasPrefix(path, "/"), name)
	}
}
