package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
}

func TestShort(t *testing.T) {
	data := []byte(`{"default":{}}`)
	assert.Len(t, Short(data), 12)
	assert.Equal(t, Sum(data)[:12], Short(data))
}
