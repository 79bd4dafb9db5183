// Command generate-schema writes the JSON Schema of the cityfs configuration
// file, for editor completion and validation of config.yaml.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/cityfs/pkg/config"
	"github.com/spf13/pflag"
)

// durationPattern matches the strings time.ParseDuration accepts, which is
// how durations are written in config files ("30s", "1m30s").
const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

func main() {
	flags := pflag.NewFlagSet("generate-schema", pflag.ExitOnError)
	output := flags.StringP("output", "o", "config.schema.json", "Path of the schema file to write")
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() > 0 {
		*output = flags.Arg(0)
	}

	schema, err := buildSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building schema: %v\n", err)
		os.Exit(1)
	}

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling schema: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*output, schemaJSON, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", *output)
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "mapstructure",
		Mapper:                    mapDuration,
	}
}

func mapDuration(t reflect.Type) *jsonschema.Schema {
	if t != reflect.TypeOf(time.Duration(0)) {
		return nil
	}
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     durationPattern,
		Description: "Duration such as 500ms, 30s or 1m",
	}
}

// buildSchema reflects config.Config and replaces every free-form
// per-type options map with the schema of the struct its factory decodes.
func buildSchema() (*jsonschema.Schema, error) {
	r := newReflector()

	schema := r.Reflect(&config.Config{})
	schema.Title = "cityfs Configuration"
	schema.Description = "Configuration schema for the cityfs virtual filesystem"

	for _, set := range config.OptionSets() {
		options := r.Reflect(set.Options)
		options.Version = ""
		options.ID = ""

		if err := replaceProperty(schema, strings.Split(set.Key, "."), options); err != nil {
			return nil, err
		}
	}

	return schema, nil
}

func replaceProperty(schema *jsonschema.Schema, path []string, replacement *jsonschema.Schema) error {
	parent := schema
	for _, name := range path[:len(path)-1] {
		child, ok := parent.Properties.Get(name)
		if !ok {
			return fmt.Errorf("config has no %q section", name)
		}
		parent = child
	}

	leaf := path[len(path)-1]
	current, ok := parent.Properties.Get(leaf)
	if !ok {
		return fmt.Errorf("config has no %q options", strings.Join(path, "."))
	}
	replacement.Description = current.Description
	parent.Properties.Set(leaf, replacement)
	return nil
}
