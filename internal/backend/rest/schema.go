package rest

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todo/internal/service"
)

//go:embed schema/*.json
var schemaFS embed.FS

const schemaBase = "https://todo.local/schema/"

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		schemaErr = err
		return
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schema/" + e.Name())
		if err != nil {
			schemaErr = err
			return
		}
		if err := compiler.AddResource(schemaBase+e.Name(), bytes.NewReader(data)); err != nil {
			schemaErr = fmt.Errorf("add schema %s: %w", e.Name(), err)
			return
		}
	}

	schemas = make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		s, err := compiler.Compile(schemaBase + e.Name())
		if err != nil {
			schemaErr = fmt.Errorf("compile schema %s: %w", e.Name(), err)
			return
		}
		schemas[e.Name()] = s
	}
}

// validate checks a raw response body against the named embedded schema.
func validate(name string, body []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %s", name)
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformed, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", service.ErrMalformed, schemaMessage(err))
	}
	return nil
}

// schemaMessage flattens a validation error into its leaf causes.
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	collectCauses(ve, &msgs)
	if len(msgs) == 0 {
		return ve.Message
	}
	return strings.Join(msgs, "; ")
}

func collectCauses(ve *jsonschema.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectCauses(c, msgs)
	}
}
