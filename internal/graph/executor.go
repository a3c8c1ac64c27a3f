package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"warimas-orderflow/internal/graph/model"
	"warimas-orderflow/internal/httpapi"
	"warimas-orderflow/internal/logger"
	"warimas-orderflow/internal/order"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	"go.uber.org/zap"
)

var errPanic = errors.New("resolver panicked")

// fieldFunc resolves one root field from its coerced arguments.
type fieldFunc func(ctx context.Context, args map[string]any) (any, error)

// Schema is the parsed schema bound to its root resolvers.
type Schema struct {
	schema     *ast.Schema
	directives DirectiveRoot
	query      map[string]fieldFunc
	mutation   map[string]fieldFunc
}

// Exec validates and runs one operation. Root fields run one after another
// in document order; a failed non-null root field nulls the whole data.
func (s *Schema) Exec(ctx context.Context, params graphql.RawParams) *graphql.Response {
	return s.exec(ctx, params, true)
}

func (s *Schema) exec(ctx context.Context, params graphql.RawParams, mutations bool) *graphql.Response {
	doc, errs := gqlparser.LoadQuery(s.schema, params.Query)
	if len(errs) > 0 {
		return &graphql.Response{Errors: errs}
	}

	op := doc.Operations.ForName(params.OperationName)
	if op == nil {
		return &graphql.Response{Errors: gqlerror.List{
			gqlerror.Errorf("operation %q not found", params.OperationName),
		}}
	}

	vars, err := validator.VariableValues(s.schema, op, params.Variables)
	if err != nil {
		return &graphql.Response{Errors: gqlerror.List{gqlerror.WrapIfUnwrapped(err)}}
	}

	e := &execution{schema: s, vars: vars, fragments: doc.Fragments}
	var data any
	switch op.Operation {
	case ast.Query:
		data = e.root(ctx, s.schema.Query, s.query, op.SelectionSet)
	case ast.Mutation:
		if !mutations {
			return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("mutations are only accepted over POST")}}
		}
		data = e.root(ctx, s.schema.Mutation, s.mutation, op.SelectionSet)
	default:
		return &graphql.Response{Errors: gqlerror.List{
			gqlerror.Errorf("%s operations are not supported", op.Operation),
		}}
	}

	body, err := json.Marshal(data)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to encode graphql data", zap.Error(err))
		return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("internal system error")}}
	}
	return &graphql.Response{Data: body, Errors: e.errs}
}

type execution struct {
	schema    *Schema
	vars      map[string]any
	fragments ast.FragmentDefinitionList
	errs      gqlerror.List
}

func (e *execution) root(ctx context.Context, def *ast.Definition, resolvers map[string]fieldFunc, set ast.SelectionSet) any {
	out := make(object, 0, len(set))
	for _, f := range e.collect(set, def.Name) {
		key := responseKey(f)
		path := ast.Path{ast.PathName(key)}

		var (
			val any
			err error
		)
		switch f.Name {
		case "__typename":
			out = append(out, entry{key, def.Name})
			continue
		case "__schema":
			val = introspectSchema(e.schema.schema)
		case "__type":
			name, _ := f.ArgumentMap(e.vars)["name"].(string)
			if t := e.schema.schema.Types[name]; t != nil {
				val = introspectType(e.schema.schema, t)
			}
		default:
			val, err = e.resolve(ctx, resolvers[f.Name], f)
		}

		if err != nil {
			e.fail(ctx, path, err)
			if f.Definition.Type.NonNull {
				return nil
			}
			out = append(out, entry{key, nil})
			continue
		}

		completed, err := e.complete(f, val)
		if err != nil {
			e.fail(ctx, path, err)
			return nil
		}
		out = append(out, entry{key, completed})
	}
	return out
}

func (e *execution) resolve(ctx context.Context, fn fieldFunc, f *ast.Field) (val any, err error) {
	if fn == nil {
		return nil, fmt.Errorf("no resolver for field %s", f.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	args := f.ArgumentMap(e.vars)
	next := func(ctx context.Context) (any, error) {
		return fn(ctx, args)
	}

	d := f.Definition.Directives.ForName("auth")
	if d == nil || e.schema.directives.Auth == nil {
		return next(ctx)
	}
	var role *model.Role
	if a := d.Arguments.ForName("role"); a != nil && a.Value != nil {
		r := model.Role(a.Value.Raw)
		role = &r
	}
	return e.schema.directives.Auth(ctx, nil, next, role)
}

// complete turns a resolved value into the response shape its selection
// set asks for.
func (e *execution) complete(f *ast.Field, val any) (any, error) {
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return e.project(f.SelectionSet, f.Definition.Type, tree), nil
}

func (e *execution) project(set ast.SelectionSet, typ *ast.Type, v any) any {
	if typ.Elem != nil {
		list, _ := v.([]any)
		if list == nil && !typ.NonNull {
			return nil
		}
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = e.project(set, typ.Elem, item)
		}
		return out
	}
	if v == nil || len(set) == 0 {
		return v
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(object, 0, len(set))
	for _, f := range e.collect(set, typ.NamedType) {
		key := responseKey(f)
		if f.Name == "__typename" {
			out = append(out, entry{key, typ.NamedType})
			continue
		}
		out = append(out, entry{key, e.project(f.SelectionSet, f.Definition.Type, obj[f.Name])})
	}
	return out
}

// collect flattens fragments and merges fields sharing a response key.
func (e *execution) collect(set ast.SelectionSet, typeName string) []*ast.Field {
	var out []*ast.Field
	index := make(map[string]int)

	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *ast.Field:
				if !e.included(sel.Directives) {
					continue
				}
				key := responseKey(sel)
				if i, ok := index[key]; ok {
					merged := *out[i]
					merged.SelectionSet = append(append(ast.SelectionSet{}, out[i].SelectionSet...), sel.SelectionSet...)
					out[i] = &merged
					continue
				}
				index[key] = len(out)
				out = append(out, sel)
			case *ast.InlineFragment:
				if e.included(sel.Directives) && applies(sel.TypeCondition, typeName) {
					walk(sel.SelectionSet)
				}
			case *ast.FragmentSpread:
				frag := sel.Definition
				if frag == nil {
					frag = e.fragments.ForName(sel.Name)
				}
				if frag != nil && e.included(sel.Directives) && applies(frag.TypeCondition, typeName) {
					walk(frag.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return out
}

func (e *execution) included(dirs ast.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(e.vars)["if"].(bool); skip {
			return false
		}
	}
	if d := dirs.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(e.vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

// fail records err against path. Unclassified errors are logged and
// masked.
func (e *execution) fail(ctx context.Context, path ast.Path, err error) {
	status := httpapi.StatusFor(err)
	if errors.Is(err, ErrUnauthenticated) {
		status = http.StatusUnauthorized
	}

	gqlErr := &gqlerror.Error{
		Err:     err,
		Message: err.Error(),
		Path:    path,
		Extensions: map[string]any{
			"code": strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")),
		},
	}

	var te *order.TransitionError
	if errors.As(err, &te) {
		gqlErr.Extensions["reason"] = string(te.Reason)
	}
	if status == http.StatusInternalServerError {
		logger.FromCtx(ctx).Error("unhandled resolver error", zap.String("path", path.String()), zap.Error(err))
		gqlErr.Message = "internal system error"
	}
	e.errs = append(e.errs, gqlErr)
}

func applies(condition, typeName string) bool {
	return condition == "" || condition == typeName
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// bindArgs decodes coerced arguments into dst through their JSON form.
func bindArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", httpapi.ErrBadRequest, err)
	}
	return nil
}

type entry struct {
	key   string
	value any
}

// object is a response map that keeps selection order.
type object []entry

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, en := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(en.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(en.value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
