package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/logic"
)

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "logics.json")
	s, err := Open(path)
	require.NoError(t, err)

	all, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	id := uuid.New()
	in := map[uuid.UUID]*logic.Logic{
		id: {
			ID:           id,
			Name:         "A",
			TriggerKey:   &logic.TriggerKey{KeyCode: "1", VirtualKey: '1', Modifiers: logic.ModCtrl},
			RepeatCount:  2,
			DisplayOrder: 1,
			Items: []logic.Item{
				{Order: 1, Payload: logic.KeyPayload{KeyCode: "Space", VirtualKey: logic.VKSpace, Action: logic.KeyPress}},
				{Order: 2, Payload: logic.DelayPayload{Duration: 0.5}},
			},
		},
	}
	require.NoError(t, s.SaveAll(context.Background(), in))

	out, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Contains(t, out, id)
	got := out[id]
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, 2, got.RepeatCount)
	assert.Equal(t, in[id].TriggerKey, got.TriggerKey)
	assert.Equal(t, in[id].Items, got.Items)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is renamed away")
}

func TestStore_DocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logics.json")
	s, err := Open(path)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, s.SaveAll(context.Background(), map[uuid.UUID]*logic.Logic{
		id: {ID: id, Name: "N", IsNested: true, RepeatCount: 1, DisplayOrder: 1},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	rec := doc["logics"][id.String()]
	assert.Equal(t, "N", rec["name"])
	assert.Equal(t, true, rec["is_nested"])
	assert.Equal(t, 1.0, rec["order"])
	assert.NotContains(t, rec, "trigger_key")
	assert.Equal(t, []interface{}{}, rec["items"])
}

func TestStore_SortsItemsByOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logics.json")
	id := uuid.New()
	raw := `{"logics":{"` + id.String() + `":{"name":"A","order":1,"repeat_count":0,"is_nested":true,"items":[
		{"type":"write_text","order":2,"text":"second"},
		{"type":"write_text","order":1,"text":"first"}
	]}}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	out, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	items := out[id].Items
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Payload.(logic.WriteTextPayload).Text)
	assert.Equal(t, 1, out[id].RepeatCount)
}

func TestStore_RejectsMalformedItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logics.json")
	raw := `{"logics":{"` + uuid.NewString() + `":{"name":"A","order":1,"repeat_count":1,"is_nested":true,"items":[{"type":"delay","order":1}]}}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.LoadAll(context.Background())
	assert.Error(t, err)
}
