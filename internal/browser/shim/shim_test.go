// internal/browser/shim/shim_test.go
package shim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/xkilldash9x/signup-cli/internal/browser/shim"
)

func TestFindAndTag(t *testing.T) {
	t.Parallel()

	t.Run("css on document", func(t *testing.T) {
		script, err := FindAndTag("", "css", "input[type='email']", "q7")
		require.NoError(t, err)
		assert.Contains(t, script, `const scope = document;`)
		assert.Contains(t, script, `querySelectorAll("input[type='email']")`)
		assert.Contains(t, script, `"q7" + '-' + i`)
		assert.Contains(t, script, `"data-signup-ref"`)
	})

	t.Run("xpath scoped to an element", func(t *testing.T) {
		script, err := FindAndTag("q1-0", "xpath", "./ancestor::form[1]", "q2")
		require.NoError(t, err)
		assert.Contains(t, script, `document.querySelector("[data-signup-ref=\"q1-0\"]")`)
		assert.Contains(t, script, `document.evaluate("./ancestor::form[1]", scope`)
	})

	t.Run("tag", func(t *testing.T) {
		script, err := FindAndTag("", "tag", "input", "q3")
		require.NoError(t, err)
		assert.Contains(t, script, `getElementsByTagName("input")`)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := FindAndTag("", "sizzle", "x", "q4")
		assert.Error(t, err)
	})
}

func TestOnRefQuotesSafely(t *testing.T) {
	t.Parallel()

	script := OnRef("q1-2", AttributeBody(`aria-label"); alert("x`))
	assert.Contains(t, script, `document.querySelector("[data-signup-ref=\"q1-2\"]")`)
	assert.Contains(t, script, `el.getAttribute("aria-label\"); alert(\"x")`)
	assert.Contains(t, script, "stale element reference")
}

func TestSetValueBodyEscapesValue(t *testing.T) {
	t.Parallel()

	body := SetValueBody(`o'brien"@example.com`)
	assert.Contains(t, body, `el.value = "o'brien\"@example.com";`)
	assert.Contains(t, body, `new Event('change'`)
}

func TestScrollSequence(t *testing.T) {
	t.Parallel()
	require.Len(t, ScrollSequence, 4)
	assert.Contains(t, ScrollSequence[2], "document.body.scrollHeight)")
}
