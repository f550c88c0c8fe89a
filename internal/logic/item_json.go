package logic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Payload schemas, one per item type. Items are flat objects: the common
// fields type/order/display_text sit next to the payload fields.
var itemSchemas = map[ItemType]string{
	TypeKey: `{
		"type": "object",
		"required": ["type", "virtual_key", "action"],
		"properties": {
			"key_code": {"type": "string"},
			"scan_code": {"type": "integer", "minimum": 0},
			"virtual_key": {"type": "integer", "minimum": 1, "maximum": 255},
			"location": {"type": "string"},
			"modifiers": {"type": "integer", "minimum": 0, "maximum": 15},
			"action": {"enum": ["press", "release"]}
		}
	}`,
	TypeMouse: `{
		"type": "object",
		"required": ["type", "action"],
		"properties": {
			"action": {"enum": ["press", "release", "click", "move"]},
			"button": {"enum": ["left", "right", "middle", ""]},
			"coordinates_x": {"type": "integer"},
			"coordinates_y": {"type": "integer"},
			"ratios_x": {"type": "number", "minimum": 0, "maximum": 1},
			"ratios_y": {"type": "number", "minimum": 0, "maximum": 1}
		}
	}`,
	TypeDelay: `{
		"type": "object",
		"required": ["type", "duration"],
		"properties": {
			"duration": {"type": "number", "exclusiveMinimum": 0}
		}
	}`,
	TypeWaitClick: `{
		"type": "object",
		"required": ["type", "button"],
		"properties": {
			"button": {"enum": ["left", "right", "middle"]}
		}
	}`,
	TypeImageSearch: `{
		"type": "object",
		"required": ["type", "area", "image_path"],
		"properties": {
			"area": {
				"type": "object",
				"required": ["x", "y", "width", "height"],
				"properties": {
					"x": {"type": "integer"},
					"y": {"type": "integer"},
					"width": {"type": "integer", "minimum": 1},
					"height": {"type": "integer", "minimum": 1},
					"ratio_x": {"type": "number"},
					"ratio_y": {"type": "number"},
					"ratio_width": {"type": "number"},
					"ratio_height": {"type": "number"}
				}
			},
			"image_path": {"type": "string", "minLength": 1},
			"threshold": {"type": "number", "minimum": 0, "maximum": 1},
			"timeout": {"type": "number", "minimum": 0}
		}
	}`,
	TypeWriteText: `{
		"type": "object",
		"required": ["type", "text"],
		"properties": {
			"text": {"type": "string", "minLength": 1}
		}
	}`,
	TypeLogic: `{
		"type": "object",
		"required": ["type", "logic_id"],
		"properties": {
			"logic_id": {"type": "string", "pattern": "^[0-9a-fA-F-]{36}$"},
			"logic_name": {"type": "string"},
			"repeat_count": {"type": "integer", "minimum": 1}
		}
	}`,
}

var (
	schemasOnce sync.Once
	compiled    map[ItemType]*jsonschema.Schema
	schemaErr   error
)

func loadSchemas() (map[ItemType]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		compiled = make(map[ItemType]*jsonschema.Schema, len(itemSchemas))
		for t, src := range itemSchemas {
			url := fmt.Sprintf("mem://vmacro/items/%s.schema.json", t)
			if err := c.AddResource(url, strings.NewReader(src)); err != nil {
				schemaErr = fmt.Errorf("failed to load schema for %s: %w", t, err)
				return
			}
			s, err := c.Compile(url)
			if err != nil {
				schemaErr = fmt.Errorf("failed to compile schema for %s: %w", t, err)
				return
			}
			compiled[t] = s
		}
	})
	return compiled, schemaErr
}

type itemHeader struct {
	Type        ItemType `json:"type"`
	Order       int      `json:"order"`
	DisplayText string   `json:"display_text,omitempty"`
}

// MarshalJSON writes the flat on-disk item shape.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Payload == nil {
		return nil, ErrUnknownItemType
	}
	body, err := json.Marshal(it.Payload)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	head, _ := json.Marshal(itemHeader{Type: it.Type(), Order: it.Order, DisplayText: it.DisplayText()})
	var headFields map[string]json.RawMessage
	if err := json.Unmarshal(head, &headFields); err != nil {
		return nil, err
	}
	for k, v := range headFields {
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON validates the raw item against its type's schema before
// decoding it into the concrete payload.
func (it *Item) UnmarshalJSON(data []byte) error {
	var head itemHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	schemas, err := loadSchemas()
	if err != nil {
		return err
	}
	schema, ok := schemas[head.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItemType, head.Type)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	var p Payload
	switch head.Type {
	case TypeKey:
		var v KeyPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeMouse:
		var v MousePayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeDelay:
		var v DelayPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeWaitClick:
		var v WaitClickPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeImageSearch:
		var v ImageSearchPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeWriteText:
		var v WriteTextPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeLogic:
		var v LogicRefPayload
		err = json.Unmarshal(data, &v)
		if v.RepeatCount == 0 {
			v.RepeatCount = 1
		}
		p = v
	}
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	it.Order = head.Order
	it.Payload = p
	return nil
}

// MarshalYAML emits the same flat shape as the JSON form.
func (it Item) MarshalYAML() (interface{}, error) {
	data, err := it.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// UnmarshalYAML routes through the JSON decoder so both formats share one
// validation path.
func (it *Item) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]interface{}
	if err := node.Decode(&m); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return it.UnmarshalJSON(data)
}

// DecodeItems decodes a JSON array of items, wrapping failures with the
// index and declared type of the offending item.
func DecodeItems(data []byte) ([]Item, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(raws))
	for i, raw := range raws {
		var it Item
		if err := it.UnmarshalJSON(raw); err != nil {
			var head itemHeader
			_ = json.Unmarshal(raw, &head)
			return nil, &MalformedItemError{Index: i, Type: head.Type, Err: err}
		}
		items = append(items, it)
	}
	return items, nil
}
