package osutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchFilter(t *testing.T) {
	p := ProcessInfo{PID: 7, Name: "Game.exe", Title: "Maple World"}
	assert.True(t, matchFilter(p, ""))
	assert.True(t, matchFilter(p, "game"))
	assert.True(t, matchFilter(p, "WORLD"))
	assert.False(t, matchFilter(p, "notepad"))
}

func TestRectSize(t *testing.T) {
	r := Rect{Left: 10, Top: 20, Right: 810, Bottom: 620}
	assert.Equal(t, 800, r.Width())
	assert.Equal(t, 600, r.Height())
}
