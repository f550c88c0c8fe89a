package executor

import (
	"context"
	"time"

	"vmacro/internal/input"
	"vmacro/internal/logic"
	"vmacro/internal/osutils"
)

// KeySender sends key transitions.
type KeySender interface {
	SendKey(k input.KeyStroke, pressed bool) error
}

// MouseSender sends mouse buttons and cursor moves.
type MouseSender interface {
	SendMouse(button logic.MouseButton, pressed bool) error
	MoveTo(x, y int) error
}

// TextTyper types literal text.
type TextTyper interface {
	TypeText(text string) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClickWaiter blocks until the user clicks button.
type ClickWaiter interface {
	WaitClick(ctx context.Context, button logic.MouseButton) error
}

// ImageMatcher checks once whether an image_search item's image is visible.
type ImageMatcher interface {
	Match(ctx context.Context, p logic.ImageSearchPayload, client osutils.Rect) (bool, error)
}

// Effectors are the collaborators a run dispatches to. Nil members make the
// corresponding item types fail with ErrNoEffector.
type Effectors struct {
	Keys    KeySender
	Mouse   MouseSender
	Text    TextTyper
	Sleeper Sleeper
	Clicks  ClickWaiter
	Images  ImageMatcher
}

// FromInjector fills the input effectors from one injector.
func FromInjector(inj input.Injector) Effectors {
	return Effectors{Keys: inj, Mouse: inj, Text: inj, Sleeper: ContextSleeper{}}
}

// ContextSleeper sleeps on a timer and wakes early on cancellation.
type ContextSleeper struct{}

func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
