package graph

import (
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Introspection answers are plain maps shaped like the __Schema and __Type
// types of the prelude, so they complete through the same projection as
// resolver results.

func introspectSchema(s *ast.Schema) map[string]any {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	slices.Sort(names)

	types := make([]any, 0, len(names))
	for _, name := range names {
		types = append(types, introspectType(s, s.Types[name]))
	}

	dirNames := make([]string, 0, len(s.Directives))
	for name := range s.Directives {
		dirNames = append(dirNames, name)
	}
	slices.Sort(dirNames)

	directives := make([]any, 0, len(dirNames))
	for _, name := range dirNames {
		d := s.Directives[name]
		locations := make([]any, 0, len(d.Locations))
		for _, l := range d.Locations {
			locations = append(locations, string(l))
		}
		directives = append(directives, map[string]any{
			"name":         d.Name,
			"description":  nullable(d.Description),
			"locations":    locations,
			"args":         inputValues(s, d.Arguments),
			"isRepeatable": d.IsRepeatable,
		})
	}

	out := map[string]any{
		"description":      nullable(s.Description),
		"types":            types,
		"queryType":        introspectType(s, s.Query),
		"mutationType":     nil,
		"subscriptionType": nil,
		"directives":       directives,
	}
	if s.Mutation != nil {
		out["mutationType"] = introspectType(s, s.Mutation)
	}
	return out
}

func introspectType(s *ast.Schema, def *ast.Definition) map[string]any {
	out := map[string]any{
		"kind":           string(def.Kind),
		"name":           def.Name,
		"description":    nullable(def.Description),
		"specifiedByURL": nil,
		"fields":         nil,
		"inputFields":    nil,
		"interfaces":     nil,
		"enumValues":     nil,
		"possibleTypes":  nil,
		"ofType":         nil,
	}

	switch def.Kind {
	case ast.Object, ast.Interface:
		fields := make([]any, 0, len(def.Fields))
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			reason, deprecated := deprecation(f.Directives)
			fields = append(fields, map[string]any{
				"name":              f.Name,
				"description":       nullable(f.Description),
				"args":              inputValues(s, f.Arguments),
				"type":              typeRef(s, f.Type),
				"isDeprecated":      deprecated,
				"deprecationReason": reason,
			})
		}
		out["fields"] = fields

		interfaces := make([]any, 0, len(def.Interfaces))
		for _, name := range def.Interfaces {
			interfaces = append(interfaces, namedRef(s, name))
		}
		out["interfaces"] = interfaces
	case ast.InputObject:
		args := make(ast.ArgumentDefinitionList, 0, len(def.Fields))
		for _, f := range def.Fields {
			args = append(args, &ast.ArgumentDefinition{
				Name:         f.Name,
				Description:  f.Description,
				DefaultValue: f.DefaultValue,
				Type:         f.Type,
			})
		}
		out["inputFields"] = inputValues(s, args)
	case ast.Enum:
		values := make([]any, 0, len(def.EnumValues))
		for _, v := range def.EnumValues {
			reason, deprecated := deprecation(v.Directives)
			values = append(values, map[string]any{
				"name":              v.Name,
				"description":       nullable(v.Description),
				"isDeprecated":      deprecated,
				"deprecationReason": reason,
			})
		}
		out["enumValues"] = values
	}

	if def.IsAbstractType() {
		possible := make([]any, 0, len(s.PossibleTypes[def.Name]))
		for _, p := range s.PossibleTypes[def.Name] {
			possible = append(possible, namedRef(s, p.Name))
		}
		out["possibleTypes"] = possible
	}
	return out
}

func inputValues(s *ast.Schema, args ast.ArgumentDefinitionList) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		var def any
		if a.DefaultValue != nil {
			def = a.DefaultValue.String()
		}
		out = append(out, map[string]any{
			"name":              a.Name,
			"description":       nullable(a.Description),
			"type":              typeRef(s, a.Type),
			"defaultValue":      def,
			"isDeprecated":      false,
			"deprecationReason": nil,
		})
	}
	return out
}

func typeRef(s *ast.Schema, t *ast.Type) map[string]any {
	switch {
	case t.NonNull:
		inner := *t
		inner.NonNull = false
		return map[string]any{"kind": "NON_NULL", "name": nil, "ofType": typeRef(s, &inner)}
	case t.Elem != nil:
		return map[string]any{"kind": "LIST", "name": nil, "ofType": typeRef(s, t.Elem)}
	}
	return namedRef(s, t.NamedType)
}

func namedRef(s *ast.Schema, name string) map[string]any {
	kind := ""
	if def := s.Types[name]; def != nil {
		kind = string(def.Kind)
	}
	return map[string]any{"kind": kind, "name": name, "ofType": nil}
}

func deprecation(dirs ast.DirectiveList) (any, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return nil, false
	}
	if a := d.Arguments.ForName("reason"); a != nil && a.Value != nil {
		return a.Value.Raw, true
	}
	return "No longer supported", true
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
