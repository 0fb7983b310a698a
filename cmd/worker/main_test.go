package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elsoprime/erpsolutions/internal/app"
	_ "github.com/elsoprime/erpsolutions/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
