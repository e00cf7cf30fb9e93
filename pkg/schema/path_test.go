package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstancePaths(t *testing.T) {
	assert.Equal(t, "$.owner", PropertyPath(RootPath, "owner"))
	assert.Equal(t, "$.owner.first_name", PropertyPath(PropertyPath(RootPath, "owner"), "first_name"))
	assert.Equal(t, "$['first name']", PropertyPath(RootPath, "first name"))
	assert.Equal(t, "$['x-rate']", PropertyPath(RootPath, "x-rate"))
	assert.Equal(t, "$['9lives']", PropertyPath(RootPath, "9lives"))
	assert.Equal(t, `$['it\'s']`, PropertyPath(RootPath, "it's"))
	assert.Equal(t, "$.items[2]", ItemPath(PropertyPath(RootPath, "items"), 2))
}
