package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLanguage(t *testing.T) {
	dir := t.TempDir()

	Configure(dir, "DE")
	assert.Equal(t, "de", GetLanguage())

	Configure(dir, "")
	assert.Equal(t, "en", GetLanguage())
}

func TestTranslateWithoutCatalog(t *testing.T) {
	Configure(t.TempDir(), "en")
	assert.Equal(t, "Fetching Ethereum.", Translate("Fetching %s.", "Ethereum"))
	assert.Equal(t, "No alerts set.", Translate("No alerts set."))
}
