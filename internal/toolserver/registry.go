package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
	js "github.com/santhosh-tekuri/jsonschema/v6"
)

// Handler implements one tool. args is the raw JSON arguments object
// (already schema-validated against the tool's input type); the returned
// value is marshaled to JSON and schema-validated against the tool's output
// type before being sent to the caller.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Definition is the public tools/list shape: name, description, and the
// reflected input schema an MCP-style client renders to a user or an LLM.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// Tool is one registered tool: its schemas compiled once at registration
// time and cached, never re-reflected per call, per §4.9's AMBIENT STACK
// note.
type Tool struct {
	Name        string
	Description string
	Handler     Handler

	inputSchema  map[string]any
	outputSchema map[string]any
	compiledIn   *js.Schema
	compiledOut  *js.Schema
}

// ValidateInput checks args against the tool's compiled input schema. A nil
// compiledIn (a tool added with RegisterRaw) always passes.
func (t *Tool) ValidateInput(args json.RawMessage) error {
	return validateAgainst(t.compiledIn, args)
}

// ValidateOutput checks an encoded result against the tool's compiled
// output schema.
func (t *Tool) ValidateOutput(encoded json.RawMessage) error {
	return validateAgainst(t.compiledOut, encoded)
}

func validateAgainst(schema *js.Schema, data json.RawMessage) error {
	if schema == nil {
		return nil
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding for schema validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	return nil
}

// Registry holds the tool catalogue, keyed by name, built once at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// reflector is shared across every Register call: invopop/jsonschema's
// Reflector carries no per-type state worth recreating, matching
// kadirpekel-hector's functiontool.generateSchema use of a single
// process-lifetime reflector.
var reflector = &jsonschema.Reflector{
	RequiredFromJSONSchemaTags: false,
	ExpandedStruct:             true,
	DoNotReference:             true,
	AllowAdditionalProperties:  false,
}

// schemaFor reflects a Go struct type into a JSON Schema map, once, at
// registration time.
func schemaFor(v any) (map[string]any, error) {
	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling reflected schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling reflected schema: %w", err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}

// compile compiles a schema map once via santhosh-tekuri/jsonschema/v6,
// keyed by a synthetic resource URL scoped to the tool and direction so two
// tools never collide in the compiler's resource cache.
func compile(name string, schema map[string]any) (*js.Schema, error) {
	if schema == nil {
		return nil, nil
	}
	url := "membria-core://" + name + ".json"
	c := js.NewCompiler()
	if err := c.AddResource(url, schema); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

// Register adds a tool whose input and output shapes are the type
// parameters In and Out, inferred from the handler's signature (e.g.
// CaptureDecisionInput, CaptureDecisionOutput); their schemas are reflected
// and compiled once, here, never again per call.
func Register[In any, Out any](r *Registry, name, description string, handler func(ctx context.Context, in In) (Out, error)) {
	var inZero In
	var outZero Out

	inSchema, err := schemaFor(inZero)
	if err != nil {
		panic(fmt.Sprintf("toolserver: reflecting input schema for %s: %v", name, err))
	}
	outSchema, err := schemaFor(outZero)
	if err != nil {
		panic(fmt.Sprintf("toolserver: reflecting output schema for %s: %v", name, err))
	}

	compiledIn, err := compile(name+".in", inSchema)
	if err != nil {
		panic(fmt.Sprintf("toolserver: compiling input schema for %s: %v", name, err))
	}
	compiledOut, err := compile(name+".out", outSchema)
	if err != nil {
		panic(fmt.Sprintf("toolserver: compiling output schema for %s: %v", name, err))
	}

	wrapped := func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in In
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
		}
		applyDefaults(&in)
		return handler(ctx, in)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = &Tool{
		Name: name, Description: description, Handler: wrapped,
		inputSchema: inSchema, outputSchema: outSchema,
		compiledIn: compiledIn, compiledOut: compiledOut,
	}
}

// RegisterRaw adds a tool with no input/output schema validation, used for
// ext.-prefixed federated tools whose shape is controlled by a remote
// endpoint (§4.9 "bypassing local schema validation").
func (r *Registry) RegisterRaw(name, description string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = &Tool{Name: name, Description: description, Handler: handler}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tools/list payload, in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, Definition{Name: t.Name, Description: t.Description, InputSchema: t.inputSchema})
	}
	return out
}

// Names returns every registered tool name, sorted, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyDefaults fills zero-valued fields tagged `default:"..."` on a struct
// pointer, the hand-rolled equivalent of the Pydantic defaults the original
// mcp_schemas.py models declared (confidence=0.5, limit=10, and so on);
// JSON Schema itself only documents a default, it does not apply one, so
// this runs once per call after unmarshaling.
func applyDefaults(ptr any) {
	v := reflect.ValueOf(ptr).Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("default")
		if !ok {
			continue
		}
		fv := v.Field(i)
		if !fv.IsZero() {
			continue
		}
		setDefault(fv, tag)
	}
}

func setDefault(fv reflect.Value, tag string) {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(tag)
	case reflect.Float64, reflect.Float32:
		var f float64
		fmt.Sscanf(tag, "%g", &f)
		fv.SetFloat(f)
	case reflect.Int, reflect.Int64, reflect.Int32:
		var n int64
		fmt.Sscanf(tag, "%d", &n)
		fv.SetInt(n)
	case reflect.Bool:
		fv.SetBool(tag == "true")
	}
}
