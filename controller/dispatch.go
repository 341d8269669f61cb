package controller

import (
	"fmt"
	"sort"
	"strings"

	trashseparator "github.com/weedkat/trash-separator"
)

// Dispatcher maps a classifier category to the maneuver that drops it in the right bin
type Dispatcher struct {
	routes map[string]trashseparator.Maneuver
	folded map[string]trashseparator.Maneuver
}

// NewDispatcher validates the routing table. Categories that differ only by case must agree on the maneuver
func NewDispatcher(routes map[string]trashseparator.Maneuver) (*Dispatcher, error) {
	op := "controller.new_dispatcher"
	if len(routes) == 0 {
		return nil, newError(op, KindConfiguration, fmt.Errorf("no routes configured"))
	}

	d := &Dispatcher{
		routes: make(map[string]trashseparator.Maneuver, len(routes)),
		folded: make(map[string]trashseparator.Maneuver, len(routes)),
	}

	for category, m := range routes {
		name := strings.TrimSpace(category)
		if name == "" {
			return nil, newError(op, KindConfiguration, fmt.Errorf("empty category"))
		}
		if m == trashseparator.ManeuverUnknown {
			return nil, newError(op, KindConfiguration, fmt.Errorf("category %q has no maneuver", name))
		}

		key := strings.ToLower(name)
		if existing, ok := d.folded[key]; ok && existing != m {
			return nil, newError(op, KindConfiguration, fmt.Errorf("category %q is routed to both %s and %s", name, existing, m))
		}

		d.routes[name] = m
		d.folded[key] = m
	}

	return d, nil
}

// Resolve returns the maneuver for a category. Exact matches win over case-insensitive ones.
// An unknown category is an error, never a default bin
func (d *Dispatcher) Resolve(category string) (trashseparator.Maneuver, error) {
	name := strings.TrimSpace(category)
	if m, ok := d.routes[name]; ok {
		return m, nil
	}
	if m, ok := d.folded[strings.ToLower(name)]; ok {
		return m, nil
	}
	return trashseparator.ManeuverUnknown, newError("controller.resolve", KindUnknownCategory, fmt.Errorf("%q", category))
}

// Categories returns the configured categories in sorted order
func (d *Dispatcher) Categories() []string {
	result := make([]string, 0, len(d.routes))
	for name := range d.routes {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
