package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    map[string]*jsonschema.Schema
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		names := []string{"spawn.schema.json", "subscribe.schema.json", "tick.schema.json"}
		for _, name := range names {
			b, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemaErr = err
				return
			}
			if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
				schemaErr = fmt.Errorf("schema %s: %w", name, err)
				return
			}
		}
		schemas = make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			s, err := c.Compile(name)
			if err != nil {
				schemaErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			schemas[name] = s
		}
	})
	return schemaErr
}

// Validate checks raw JSON against the named embedded schema.
func Validate(schema string, raw []byte) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	s, ok := schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

// DecodeSpawn validates and decodes a SPAWN message.
func DecodeSpawn(raw []byte) (SpawnMsg, error) {
	var m SpawnMsg
	if err := Validate("spawn.schema.json", raw); err != nil {
		return m, err
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}

// DecodeSubscribe validates and decodes a SUBSCRIBE message.
func DecodeSubscribe(raw []byte) (SubscribeMsg, error) {
	var m SubscribeMsg
	if err := Validate("subscribe.schema.json", raw); err != nil {
		return m, err
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}
