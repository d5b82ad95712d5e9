// Package definition parses and validates a game definition — the
// author-facing document that names a schema, a machine, static data, and
// an advisory action allowlist — from JSON or YAML.
//
// Grounded on the teacher's primitives.MachineConfig: same
// "Validate()-before-run, fail fast with an explicit reason" discipline,
// generalized from validating one machine to validating the whole
// definition document (schema cross-references, machine cross-references,
// and the schema/machine/actions consistency the machine config alone
// never had to check).
package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/comalice/roomforge/internal/schema"
	"github.com/comalice/roomforge/internal/statechart"
)

// Definition is a fully-parsed, not-yet-validated game definition (§3.1).
type Definition struct {
	ID      string                 `json:"id" yaml:"id"`
	Name    string                 `json:"name" yaml:"name"`
	Version string                 `json:"version" yaml:"version"`
	Schema  *schema.Schema         `json:"schema" yaml:"schema"`
	Machine *statechart.MachineDef `json:"machine" yaml:"machine"`
	Data    map[string]any         `json:"data,omitempty" yaml:"data,omitempty"`
	Actions []string               `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ParseJSON parses a definition document from JSON bytes. It does not
// validate — call Validate (or Load, which does both) once parsed.
func ParseJSON(data []byte) (*Definition, error) {
	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("definition: invalid JSON: %w", err)
	}
	return &d, nil
}

// ParseYAML parses a definition document from YAML bytes.
func ParseYAML(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("definition: invalid YAML: %w", err)
	}
	return &d, nil
}

// LoadFile reads and parses a definition from disk, choosing JSON or YAML
// by extension (.json, or .yaml/.yml). This is the "conventional local
// file next to the running process" fallback path from §4.H.
func LoadFile(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: reading %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(raw)
	case ".json", "":
		return ParseJSON(raw)
	default:
		return nil, fmt.Errorf("definition: unsupported extension %q for %s", ext, path)
	}
}

// Validate checks presence of the required top-level fields and every
// cross-reference §3.1 names: schema.root against schema.classes (via
// schema.Schema.Validate) and every transition target against
// machine.states (via statechart.MachineDef.Validate). The Actions
// allowlist, when given, is checked too, but only ever logs a mismatch —
// it is advisory (§3.1), not a load-time gate, so a non-exhaustive
// allowlist never fails a definition that would otherwise be valid.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("definition: id is required")
	}
	if d.Schema == nil {
		return fmt.Errorf("definition: schema is required")
	}
	if d.Schema.Root == "" {
		return fmt.Errorf("definition: schema.root is required")
	}
	if len(d.Schema.Classes) == 0 {
		return fmt.Errorf("definition: schema.classes must not be empty")
	}
	if err := d.Schema.Validate(); err != nil {
		return fmt.Errorf("definition: %w", err)
	}

	if d.Machine == nil {
		return fmt.Errorf("definition: machine is required")
	}
	if d.Machine.Initial == "" {
		return fmt.Errorf("definition: machine.initial is required")
	}
	if len(d.Machine.States) == 0 {
		return fmt.Errorf("definition: machine.states must not be empty")
	}
	if err := d.Machine.Validate(); err != nil {
		return fmt.Errorf("definition: %w", err)
	}

	if len(d.Actions) > 0 {
		d.warnUndeclaredActions()
	}
	return nil
}

// warnUndeclaredActions logs every action name referenced by the machine
// that is absent from the advisory Actions list. Per §3.1 the list is a
// hint for tooling/authors, not an exhaustive contract, so a mismatch is
// never fatal — the Action Runtime's own unknown-action handling (skip +
// log, internal/actions/runtime.go) is what actually governs behavior at
// dispatch time.
func (d *Definition) warnUndeclaredActions() {
	allowed := make(map[string]bool, len(d.Actions))
	for _, a := range d.Actions {
		allowed[a] = true
	}
	var missing []string
	seen := map[string]bool{}
	collect := func(name string) {
		if !allowed[name] && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	walkMachineActions(d.Machine, collect)
	if len(missing) > 0 {
		zap.L().Warn("definition: actions used by machine but not declared in the advisory allowlist",
			zap.String("definition", d.ID), zap.Strings("actions", missing))
	}
}

func walkMachineActions(m *statechart.MachineDef, visit func(name string)) {
	for _, state := range m.States {
		walkActionList(state.Entry, visit)
		walkActionList(state.Exit, visit)
		for _, transitions := range state.On {
			for _, t := range transitions {
				walkActionList(t.Actions, visit)
			}
		}
		for _, transitions := range state.After {
			for _, t := range transitions {
				walkActionList(t.Actions, visit)
			}
		}
	}
}

func walkActionList(actions []statechart.ActionDef, visit func(name string)) {
	for _, a := range actions {
		visit(a.Action)
		// Nested action lists inside when/scheduleActions params are not
		// walked: they are opaque param trees at this layer and the
		// allowlist check is advisory, not exhaustive.
	}
}

// EventNames delegates to the machine's own EventNames — the set of
// message types the Room Host must register a handler for.
func (d *Definition) EventNames() []string {
	return d.Machine.EventNames()
}
