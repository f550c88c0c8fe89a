package countdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/events"
	"vmacro/internal/logging"
)

const (
	vkF1 = 0x70
	vkF2 = 0x71
	vkF3 = 0x72
)

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(e events.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) count(t events.Type) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (l *eventLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []State
	for _, e := range l.events {
		if e.Type == events.TimedStateChanged {
			out = append(out, e.Data.(StateChange).To)
		}
	}
	return out
}

func newTrigger(t *testing.T, cfg TriggerConfig, d time.Duration) (*TimedTrigger, *Countdown, *eventLog) {
	t.Helper()
	cd := New(Options{Duration: d})
	t.Cleanup(cd.Close)
	if cfg.ArmKeys == nil {
		cfg.ArmKeys = []uint16{vkF1, vkF2}
	}
	if cfg.ConfirmKey == 0 {
		cfg.ConfirmKey = vkF3
	}
	log := &eventLog{}
	tt := NewTimedTrigger(cfg, cd, log, logging.Discard())
	t.Cleanup(tt.Close)
	return tt, cd, log
}

func TestTimedTrigger_SequenceStartsCountdown(t *testing.T) {
	tt, cd, log := newTrigger(t, TriggerConfig{Enabled: true}, 50*time.Millisecond)
	tt.Gate().SetActive(true)

	tt.HandleKey(vkF2, true)
	assert.Equal(t, StateArmed, tt.State())
	assert.False(t, tt.ArmedAt().IsZero())

	tt.HandleKey(vkF3, true) // press is not a confirm
	assert.Equal(t, StateArmed, tt.State())

	tt.HandleKey(vkF3, false)
	assert.Equal(t, StateCountdownRunning, tt.State())
	assert.True(t, cd.Running())

	require.Eventually(t, func() bool { return tt.State() == StateIdle }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 1, log.count(events.CountdownFinished))
	assert.Equal(t, []State{StateArmed, StateSequenceValid, StateCountdownRunning, StateIdle}, log.states())
}

func TestTimedTrigger_GateClosedAtConfirm(t *testing.T) {
	tt, cd, _ := newTrigger(t, TriggerConfig{Enabled: true}, 50*time.Millisecond)

	tt.HandleKey(vkF1, true)
	tt.HandleKey(vkF3, false)
	assert.Equal(t, StateIdle, tt.State())
	assert.False(t, cd.Running())
}

func TestTimedTrigger_DisabledFeature(t *testing.T) {
	tt, cd, _ := newTrigger(t, TriggerConfig{Enabled: false}, 50*time.Millisecond)
	tt.Gate().SetActive(true)

	tt.HandleKey(vkF1, true)
	tt.HandleKey(vkF3, false)
	assert.Equal(t, StateIdle, tt.State())
	assert.False(t, cd.Running())
}

func TestTimedTrigger_ConfirmWithoutArmIgnored(t *testing.T) {
	tt, cd, log := newTrigger(t, TriggerConfig{Enabled: true}, 50*time.Millisecond)
	tt.Gate().SetActive(true)

	tt.HandleKey(vkF3, false)
	assert.Equal(t, StateIdle, tt.State())
	assert.False(t, cd.Running())
	assert.Empty(t, log.states())
}

func TestTimedTrigger_SequenceTimeout(t *testing.T) {
	tt, cd, _ := newTrigger(t, TriggerConfig{Enabled: true, SequenceTimeout: 20 * time.Millisecond}, 50*time.Millisecond)
	tt.Gate().SetActive(true)

	tt.HandleKey(vkF1, true)
	require.Eventually(t, func() bool { return tt.State() == StateIdle }, time.Second, time.Millisecond)

	tt.HandleKey(vkF3, false)
	assert.False(t, cd.Running(), "confirm after timeout must not start")
}

func TestTimedTrigger_GateIsLevelTriggered(t *testing.T) {
	tt, cd, log := newTrigger(t, TriggerConfig{Enabled: true, ResumeOnReopen: true}, 200*time.Millisecond)
	g := tt.Gate()
	g.SetActive(true)

	tt.HandleKey(vkF1, true)
	tt.HandleKey(vkF3, false)
	require.True(t, cd.Running())

	g.SetActive(false)
	assert.False(t, cd.Running(), "closing the gate stops immediately")
	assert.Equal(t, StateIdle, tt.State())
	assert.Equal(t, 1, log.count(events.CountdownReset))

	g.SetActive(true)
	assert.True(t, cd.Running(), "reopening resumes the interrupted countdown")
	assert.Equal(t, StateCountdownRunning, tt.State())

	g.SetEnabled(false)
	assert.False(t, cd.Running())
	assert.Equal(t, 0, log.count(events.CountdownFinished))
}

func TestTimedTrigger_NoResumeWhenDisabled(t *testing.T) {
	tt, cd, _ := newTrigger(t, TriggerConfig{Enabled: true}, 200*time.Millisecond)
	g := tt.Gate()
	g.SetActive(true)

	tt.HandleKey(vkF1, true)
	tt.HandleKey(vkF3, false)
	g.SetActive(false)
	g.SetActive(true)
	assert.False(t, cd.Running())
	assert.Equal(t, StateIdle, tt.State())
}

func TestTimedTrigger_RearmRestartsCountdown(t *testing.T) {
	tt, cd, log := newTrigger(t, TriggerConfig{Enabled: true}, 100*time.Millisecond)
	tt.Gate().SetActive(true)

	tt.HandleKey(vkF1, true)
	tt.HandleKey(vkF3, false)
	time.Sleep(60 * time.Millisecond)

	tt.HandleKey(vkF1, true)
	assert.Equal(t, StateArmed, tt.State())
	assert.True(t, cd.Running(), "arming does not interrupt the running countdown")
	tt.HandleKey(vkF3, false)
	assert.Greater(t, cd.Remaining(), 60*time.Millisecond)

	require.Eventually(t, func() bool { return tt.State() == StateIdle }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 1, log.count(events.CountdownFinished))
}

func TestTimedTrigger_LateFinishAfterRestart(t *testing.T) {
	tt, cd, log := newTrigger(t, TriggerConfig{Enabled: true}, 10*time.Second)
	tt.Gate().SetActive(true)

	tt.HandleKey(vkF1, true)
	tt.HandleKey(vkF3, false)
	require.True(t, cd.Running())

	// finish of the previous run delivered after the restart
	tt.finished()
	assert.Equal(t, StateCountdownRunning, tt.State())
	assert.True(t, cd.Running())
	assert.Equal(t, 1, log.count(events.CountdownFinished))
	assert.NotContains(t, log.states(), StateIdle)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "GROUP_A_ARMED", StateArmed.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
