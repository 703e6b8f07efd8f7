package medias

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailableConverter(t *testing.T) {
	cause := errors.New(`executable "djxl" not found in $PATH`)
	converter := &UnavailableConverter{Err: cause}

	err := converter.ToJPEG("gopher.jxl", "gopher.jpg")
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `converting gopher.jxl to gopher.jpg failed: executable "djxl" not found in $PATH`, err.Error())
}
