// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go struct tags and the CUE schema field names aligned,
// so a renamed field cannot silently stop being read.

func cueFieldNames(t *testing.T, val cue.Value) []string {
	t.Helper()

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}
	var names []string
	for iter.Next() {
		sel := iter.Selector()
		if sel.IsDefinition() || sel.LabelType().IsHidden() {
			continue
		}
		names = append(names, strings.TrimSuffix(sel.String(), "?"))
	}
	slices.Sort(names)
	return names
}

func goTagNames(t *testing.T, typ reflect.Type) []string {
	t.Helper()

	var names []string
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			t.Errorf("%s.%s has no mapstructure tag", typ.Name(), field.Name)
			continue
		}
		if jsonName, _, _ := strings.Cut(field.Tag.Get("json"), ","); jsonName != name {
			t.Errorf("%s.%s: json tag %q differs from mapstructure tag %q", typ.Name(), field.Name, jsonName, name)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("schema does not compile: %v", schema.Err())
	}
	root := schema.LookupPath(cue.ParsePath("#Config"))

	tests := []struct {
		cuePath string
		goType  reflect.Type
	}{
		{cuePath: "", goType: reflect.TypeFor[Config]()},
		{cuePath: "naming", goType: reflect.TypeFor[NamingConfig]()},
		{cuePath: "extract", goType: reflect.TypeFor[ExtractConfig]()},
		{cuePath: "output", goType: reflect.TypeFor[OutputConfig]()},
		{cuePath: "ui", goType: reflect.TypeFor[UIConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.goType.Name(), func(t *testing.T) {
			t.Parallel()

			val := root
			if tt.cuePath != "" {
				val = root.LookupPath(cue.MakePath(cue.Str(tt.cuePath).Optional()))
			}
			if !val.Exists() {
				t.Fatalf("schema has no %q section", tt.cuePath)
			}
			cueNames := cueFieldNames(t, val)
			goNames := goTagNames(t, tt.goType)
			if !slices.Equal(cueNames, goNames) {
				t.Errorf("schema fields %v != struct tags %v", cueNames, goNames)
			}
		})
	}

	custom := schema.LookupPath(cue.ParsePath("#CustomBackend"))
	if got, want := cueFieldNames(t, custom), goTagNames(t, reflect.TypeFor[CustomBackend]()); !slices.Equal(got, want) {
		t.Errorf("#CustomBackend fields %v != struct tags %v", got, want)
	}
}
