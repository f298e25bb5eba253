package converter_test

import (
	"testing"

	"github.com/PaddyThePaddy/crlf/pkg/converter"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigurationConstants(t *testing.T) {
	assert.Equal(t, "**/*", converter.DefaultPattern)
	assert.Equal(t, ".", converter.DefaultInputPath)
	assert.Equal(t, 0, converter.DefaultConcurrency)
	assert.False(t, converter.DefaultCacheEnabled)
	assert.False(t, converter.DefaultTuiEnabled)
	assert.Equal(t, converter.OnErrorContinue, converter.DefaultOnErrorMode)
	assert.Equal(t, converter.BinarySkip, converter.DefaultBinaryMode)
	assert.Equal(t, converter.OutputFormatText, converter.DefaultOutputFormat)
	assert.Equal(t, converter.SourceGlob, converter.DefaultSourceMode)
	assert.Equal(t, ".crlf.cache", converter.CacheFileName)
	assert.Equal(t, ".crlfignore", converter.IgnoreFileName)
}
