package process

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/events"
	"vmacro/internal/logging"
	"vmacro/internal/osutils"
)

type fakeWindows struct {
	mu      sync.Mutex
	fgPID   uint32
	fgErr   error
	procs   []osutils.ProcessInfo
	queries int
}

func (f *fakeWindows) ForegroundWindow() (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.fgErr != nil {
		return 0, f.fgErr
	}
	return 0x1000, nil
}

func (f *fakeWindows) WindowProcessID(uintptr) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fgPID, nil
}

func (f *fakeWindows) ListProcesses(string) ([]osutils.ProcessInfo, error) {
	return f.procs, nil
}

func (f *fakeWindows) ClientRect(uintptr) (osutils.Rect, error) {
	return osutils.Rect{Right: 800, Bottom: 600}, nil
}

func (f *fakeWindows) setForeground(pid uint32) {
	f.mu.Lock()
	f.fgPID = pid
	f.mu.Unlock()
}

func TestBinding_IsSelectedActive(t *testing.T) {
	win := &fakeWindows{fgPID: 100}
	b := NewBinding(win, logging.Discard())

	assert.False(t, b.IsSelectedActive(), "no selection")

	b.SetSelected(&osutils.ProcessInfo{PID: 100, Name: "game.exe"})
	assert.True(t, b.IsSelectedActive())

	win.setForeground(200)
	assert.False(t, b.IsSelectedActive())
}

func TestBinding_OneQueryPerDecision(t *testing.T) {
	win := &fakeWindows{fgPID: 100}
	b := NewBinding(win, logging.Discard())
	b.SetSelected(&osutils.ProcessInfo{PID: 100})

	b.IsSelectedActive()
	b.IsSelectedActive()
	assert.Equal(t, 2, win.queries)
}

func TestBinding_QueryFailureIsInactive(t *testing.T) {
	win := &fakeWindows{fgErr: osutils.ErrNoForegroundWindow}
	b := NewBinding(win, logging.Discard())
	b.SetSelected(&osutils.ProcessInfo{PID: 100})

	assert.Nil(t, b.Active())
	assert.False(t, b.IsSelectedActive())
}

func TestBinding_SelectByName(t *testing.T) {
	win := &fakeWindows{procs: []osutils.ProcessInfo{
		{PID: 7, Name: "notgame.exe"},
		{PID: 9, Name: "Game.exe"},
	}}
	b := NewBinding(win, logging.Discard())

	p, err := b.SelectByName("game.exe")
	require.NoError(t, err)
	assert.Equal(t, uint32(9), p.PID)
	assert.Equal(t, uint32(9), b.Selected().PID)

	_, err = b.SelectByName("missing.exe")
	assert.Error(t, err)
}

func TestBinding_ClientRect(t *testing.T) {
	win := &fakeWindows{fgPID: 5}
	b := NewBinding(win, logging.Discard())
	_, ok := b.ClientRect()
	assert.False(t, ok)

	b.SetSelected(&osutils.ProcessInfo{PID: 5})
	r, ok := b.ClientRect()
	require.True(t, ok)
	assert.Equal(t, 800, r.Width())
}

func TestMonitor_PublishesOnChangeOnly(t *testing.T) {
	win := &fakeWindows{fgPID: 1}
	b := NewBinding(win, logging.Discard())
	b.SetSelected(&osutils.ProcessInfo{PID: 1})

	bus := events.NewBus(logging.Discard())
	var got []bool
	bus.Subscribe(events.ActivityChanged, func(e events.Event) {
		got = append(got, e.Data.(ActivityChange).Active)
	})

	m := NewMonitor(b, bus, time.Hour, logging.Discard())
	m.Poll()
	m.Poll()
	win.setForeground(2)
	m.Poll()
	m.Poll()

	assert.Equal(t, []bool{true, false}, got)
	assert.False(t, m.Active())
}

func TestMonitor_StartStop(t *testing.T) {
	win := &fakeWindows{fgPID: 1}
	b := NewBinding(win, logging.Discard())
	b.SetSelected(&osutils.ProcessInfo{PID: 1})

	m := NewMonitor(b, events.Discard{}, 5*time.Millisecond, logging.Discard())
	m.Start(context.Background())
	require.Eventually(t, m.Active, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}

