package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectorFor(t *testing.T) {
	assert.Equal(t, "Банки", SectorFor("SBER"))
	assert.Equal(t, "Нефть и газ", SectorFor("GAZP"))
	assert.Equal(t, "IT", SectorFor("YDEX"))
	assert.Equal(t, "Прочие", SectorFor("ZZZZ"))
}

func TestLogoURL_KnownDomain(t *testing.T) {
	assert.Equal(t, "https://logo.clearbit.com/sberbank.com?size=96", LogoURL("SBER"))
}

func TestLogoURL_PlaceholderIsDeterministic(t *testing.T) {
	first := LogoURL("UNKN")
	assert.Contains(t, first, "ui-avatars.com")
	assert.Contains(t, first, "UNKN")
	assert.Equal(t, first, LogoURL("UNKN"))
}
