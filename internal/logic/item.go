package logic

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ItemType identifies the variant of an InputEventDescriptor.
type ItemType string

const (
	TypeKey         ItemType = "key"
	TypeMouse       ItemType = "mouse_input"
	TypeDelay       ItemType = "delay"
	TypeWaitClick   ItemType = "wait_click"
	TypeImageSearch ItemType = "image_search"
	TypeWriteText   ItemType = "write_text"
	TypeLogic       ItemType = "logic"
)

// KeyAction is press or release.
type KeyAction string

const (
	KeyPress   KeyAction = "press"
	KeyRelease KeyAction = "release"
)

// MouseAction is the kind of mouse input to replay.
type MouseAction string

const (
	MousePress   MouseAction = "press"
	MouseRelease MouseAction = "release"
	MouseClick   MouseAction = "click"
	MouseMove    MouseAction = "move"
)

// MouseButton names a mouse button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

func (b MouseButton) valid() bool {
	return b == ButtonLeft || b == ButtonRight || b == ButtonMiddle
}

// Payload is the type-specific body of an item.
type Payload interface {
	Type() ItemType
	Validate() error
	Describe() string
}

// Item is one InputEventDescriptor: an order plus a typed payload.
type Item struct {
	Order   int
	Payload Payload
}

// Type returns the payload type, or "" for an empty item.
func (it Item) Type() ItemType {
	if it.Payload == nil {
		return ""
	}
	return it.Payload.Type()
}

// DisplayText is the derived human-readable summary of the item.
func (it Item) DisplayText() string {
	if it.Payload == nil {
		return ""
	}
	return it.Payload.Describe()
}

// Validate checks the payload's required fields.
func (it Item) Validate() error {
	if it.Payload == nil {
		return ErrUnknownItemType
	}
	return it.Payload.Validate()
}

// Payloads are value types, so copying the struct is a deep copy.

// KeyPayload replays a key press or release.
type KeyPayload struct {
	KeyCode    string    `json:"key_code"`
	ScanCode   uint16    `json:"scan_code"`
	VirtualKey uint16    `json:"virtual_key"`
	Location   string    `json:"location,omitempty"`
	Modifiers  Modifiers `json:"modifiers"`
	Action     KeyAction `json:"action"`
}

func (KeyPayload) Type() ItemType { return TypeKey }

func (p KeyPayload) Validate() error {
	if p.VirtualKey == 0 {
		return fmt.Errorf("virtual_key is required")
	}
	if p.Action != KeyPress && p.Action != KeyRelease {
		return fmt.Errorf("invalid key action %q", p.Action)
	}
	return nil
}

func (p KeyPayload) Describe() string {
	name := p.KeyCode
	if name == "" {
		name = KeyName(p.VirtualKey)
	}
	if p.Modifiers != 0 {
		name = p.Modifiers.String() + "+" + name
	}
	if p.Action == KeyRelease {
		return name + " release"
	}
	return name + " press"
}

// TriggerKey converts the key item into a trigger identity.
func (p KeyPayload) TriggerKey() TriggerKey {
	return TriggerKey{
		KeyCode:    p.KeyCode,
		VirtualKey: p.VirtualKey,
		ScanCode:   p.ScanCode,
		Location:   p.Location,
		Modifiers:  p.Modifiers,
	}
}

// MousePayload replays a mouse action at absolute coordinates. Ratios are
// coordinate divided by the client dimension of the target window and take
// precedence when the target window size is known.
type MousePayload struct {
	Action MouseAction `json:"action"`
	Button MouseButton `json:"button"`
	X      int         `json:"coordinates_x"`
	Y      int         `json:"coordinates_y"`
	RatioX float64     `json:"ratios_x"`
	RatioY float64     `json:"ratios_y"`
}

func (MousePayload) Type() ItemType { return TypeMouse }

func (p MousePayload) Validate() error {
	switch p.Action {
	case MousePress, MouseRelease, MouseClick, MouseMove:
	default:
		return fmt.Errorf("invalid mouse action %q", p.Action)
	}
	if p.Action != MouseMove && !p.Button.valid() {
		return fmt.Errorf("invalid mouse button %q", p.Button)
	}
	if p.RatioX < 0 || p.RatioX > 1 || p.RatioY < 0 || p.RatioY > 1 {
		return fmt.Errorf("ratios must be within [0, 1]")
	}
	return nil
}

func (p MousePayload) Describe() string {
	if p.Action == MouseMove {
		return fmt.Sprintf("mouse move (%d, %d)", p.X, p.Y)
	}
	return fmt.Sprintf("mouse %s %s (%d, %d)", p.Button, p.Action, p.X, p.Y)
}

// DelayPayload pauses replay.
type DelayPayload struct {
	Duration float64 `json:"duration"`
}

func (DelayPayload) Type() ItemType { return TypeDelay }

func (p DelayPayload) Validate() error {
	if p.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", p.Duration)
	}
	return nil
}

func (p DelayPayload) Describe() string {
	return fmt.Sprintf("delay %.2fs", p.Duration)
}

// WaitClickPayload blocks replay until the button is clicked.
type WaitClickPayload struct {
	Button MouseButton `json:"button"`
}

func (WaitClickPayload) Type() ItemType { return TypeWaitClick }

func (p WaitClickPayload) Validate() error {
	if !p.Button.valid() {
		return fmt.Errorf("invalid mouse button %q", p.Button)
	}
	return nil
}

func (p WaitClickPayload) Describe() string {
	return fmt.Sprintf("wait for %s click", p.Button)
}

// Area is a capture rectangle relative to the target window client area.
type Area struct {
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	RatioX      float64 `json:"ratio_x,omitempty"`
	RatioY      float64 `json:"ratio_y,omitempty"`
	RatioWidth  float64 `json:"ratio_width,omitempty"`
	RatioHeight float64 `json:"ratio_height,omitempty"`
}

// HasRatios reports whether the resolution-independent variant is populated.
func (a Area) HasRatios() bool {
	return a.RatioWidth > 0 && a.RatioHeight > 0
}

// Scaled resolves the area against a client size, preferring ratios.
func (a Area) Scaled(clientW, clientH int) Area {
	if !a.HasRatios() || clientW <= 0 || clientH <= 0 {
		return a
	}
	out := a
	out.X = int(a.RatioX * float64(clientW))
	out.Y = int(a.RatioY * float64(clientH))
	out.Width = int(a.RatioWidth * float64(clientW))
	out.Height = int(a.RatioHeight * float64(clientH))
	return out
}

// ImageSearchPayload gates replay until the reference image appears in area.
type ImageSearchPayload struct {
	Area      Area    `json:"area"`
	ImagePath string  `json:"image_path"`
	Threshold float64 `json:"threshold,omitempty"`
	Timeout   float64 `json:"timeout,omitempty"`
}

// DefaultMatchThreshold is used when an image_search item has no threshold.
const DefaultMatchThreshold = 0.9

func (ImageSearchPayload) Type() ItemType { return TypeImageSearch }

func (p ImageSearchPayload) Validate() error {
	if p.Area.Width <= 0 || p.Area.Height <= 0 {
		return fmt.Errorf("search area must have positive size")
	}
	if strings.TrimSpace(p.ImagePath) == "" {
		return fmt.Errorf("image_path is required")
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1]")
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func (p ImageSearchPayload) Describe() string {
	return fmt.Sprintf("image search %dx%d at (%d, %d)", p.Area.Width, p.Area.Height, p.Area.X, p.Area.Y)
}

// EffectiveThreshold returns the threshold, falling back to the default.
func (p ImageSearchPayload) EffectiveThreshold() float64 {
	if p.Threshold <= 0 {
		return DefaultMatchThreshold
	}
	return p.Threshold
}

// WriteTextPayload types a literal string.
type WriteTextPayload struct {
	Text string `json:"text"`
}

func (WriteTextPayload) Type() ItemType { return TypeWriteText }

func (p WriteTextPayload) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

func (p WriteTextPayload) Describe() string {
	t := p.Text
	if r := []rune(t); len(r) > 20 {
		t = string(r[:20]) + "..."
	}
	return fmt.Sprintf("write %q", t)
}

// LogicRefPayload references another logic, replayed inline RepeatCount times.
type LogicRefPayload struct {
	LogicID     uuid.UUID `json:"logic_id"`
	LogicName   string    `json:"logic_name,omitempty"`
	RepeatCount int       `json:"repeat_count"`
}

func (LogicRefPayload) Type() ItemType { return TypeLogic }

func (p LogicRefPayload) Validate() error {
	if p.LogicID == uuid.Nil {
		return fmt.Errorf("logic_id is required")
	}
	if p.RepeatCount < 1 {
		return ErrInvalidRepeat
	}
	return nil
}

func (p LogicRefPayload) Describe() string {
	name := p.LogicName
	if name == "" {
		name = p.LogicID.String()
	}
	if p.RepeatCount > 1 {
		return fmt.Sprintf("logic %s x%d", name, p.RepeatCount)
	}
	return "logic " + name
}
