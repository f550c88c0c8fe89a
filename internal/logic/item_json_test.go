package logic

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestItemJSON_FlatShape(t *testing.T) {
	it := Item{Order: 2, Payload: DelayPayload{Duration: 0.5}}
	data, err := json.Marshal(it)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "delay", m["type"])
	assert.Equal(t, 2.0, m["order"])
	assert.Equal(t, 0.5, m["duration"])
	assert.Equal(t, "delay 0.50s", m["display_text"])
}

func TestItemJSON_DecodeEveryType(t *testing.T) {
	ref := uuid.New()
	raw := `[
		{"type":"key","order":1,"key_code":"Space","virtual_key":32,"scan_code":57,"modifiers":0,"action":"press"},
		{"type":"mouse_input","order":2,"action":"click","button":"left","coordinates_x":10,"coordinates_y":20,"ratios_x":0.1,"ratios_y":0.2},
		{"type":"delay","order":3,"duration":1.5},
		{"type":"wait_click","order":4,"button":"right"},
		{"type":"image_search","order":5,"area":{"x":0,"y":0,"width":10,"height":10},"image_path":"hp.png"},
		{"type":"write_text","order":6,"text":"hello"},
		{"type":"logic","order":7,"logic_id":"` + ref.String() + `"}
	]`
	items, err := DecodeItems([]byte(raw))
	require.NoError(t, err)
	require.Len(t, items, 7)
	require.NoError(t, CheckOrder(items))

	assert.Equal(t, KeyPayload{KeyCode: "Space", VirtualKey: 32, ScanCode: 57, Action: KeyPress}, items[0].Payload)
	assert.Equal(t, MouseClick, items[1].Payload.(MousePayload).Action)
	assert.Equal(t, 1.5, items[2].Payload.(DelayPayload).Duration)
	assert.Equal(t, ButtonRight, items[3].Payload.(WaitClickPayload).Button)
	assert.Equal(t, DefaultMatchThreshold, items[4].Payload.(ImageSearchPayload).EffectiveThreshold())
	assert.Equal(t, "hello", items[5].Payload.(WriteTextPayload).Text)

	lr := items[6].Payload.(LogicRefPayload)
	assert.Equal(t, ref, lr.LogicID)
	assert.Equal(t, 1, lr.RepeatCount, "missing repeat_count defaults to 1")
}

func TestItemJSON_RejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"unknown type":     `[{"type":"teleport","order":1}]`,
		"zero delay":       `[{"type":"delay","order":1,"duration":0}]`,
		"missing vk":       `[{"type":"key","order":1,"action":"press"}]`,
		"bad action":       `[{"type":"key","order":1,"virtual_key":65,"action":"tap"}]`,
		"empty text":       `[{"type":"write_text","order":1,"text":""}]`,
		"bad logic id":     `[{"type":"logic","order":1,"logic_id":"nope"}]`,
		"zero search area": `[{"type":"image_search","order":1,"area":{"x":0,"y":0,"width":0,"height":5},"image_path":"a.png"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeItems([]byte(raw))
			require.Error(t, err)
			var mal *MalformedItemError
			assert.True(t, errors.As(err, &mal))
			assert.Equal(t, 0, mal.Index)
		})
	}
}

func TestItemYAML_SharesJSONValidation(t *testing.T) {
	in := []Item{
		{Order: 1, Payload: WriteTextPayload{Text: "gg"}},
		{Order: 2, Payload: KeyPayload{VirtualKey: VKReturn, Action: KeyRelease}},
	}
	data, err := yaml.Marshal(in)
	require.NoError(t, err)

	var out []Item
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	bad := []byte("- type: delay\n  order: 1\n  duration: -1\n")
	assert.Error(t, yaml.Unmarshal(bad, &out))
}
