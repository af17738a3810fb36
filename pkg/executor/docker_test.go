package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerName_PrefixesComponentID(t *testing.T) {
	assert.Equal(t, "orbit-abc123", containerName("abc123"))
}
