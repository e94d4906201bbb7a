package schemas_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

func TestNewProbeError(t *testing.T) {
	t.Run("wraps kind and cause", func(t *testing.T) {
		cause := errors.New("net::ERR_NAME_NOT_RESOLVED")
		err := schemas.NewProbeError("navigate", schemas.ErrNavigation, cause)

		assert.ErrorIs(t, err, schemas.ErrNavigation)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "navigate: navigation failed: net::ERR_NAME_NOT_RESOLVED", err.Error())

		var pe *schemas.ProbeError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "navigate", pe.Op)
	})

	t.Run("kind only", func(t *testing.T) {
		err := schemas.NewProbeError("execute script", schemas.ErrUnsupported, nil)
		assert.ErrorIs(t, err, schemas.ErrUnsupported)
		assert.Equal(t, "execute script: operation not supported by backend", err.Error())
	})

	t.Run("cause already of kind is not doubled", func(t *testing.T) {
		inner := schemas.NewProbeError("launch chrome", schemas.ErrDriverLaunch, errors.New("exec failed"))
		err := schemas.NewProbeError("open chrome", schemas.ErrDriverLaunch, inner)
		assert.ErrorIs(t, err, schemas.ErrDriverLaunch)
		assert.Equal(t, "open chrome: launch chrome: no working browser/driver found: exec failed", err.Error())
	})
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "css=input[type='email']", schemas.CSS("input[type='email']").String())
	assert.Equal(t, "xpath=//button", schemas.XPath("//button").String())
	assert.Equal(t, "tag=input", schemas.Tag("input").String())
}
