package attribute

import (
	"fmt"
	"strings"
)

// ResourceDefinition names one resource and the capability for its values.
type ResourceDefinition struct {
	name       string
	capability Capability
}

// NewResourceDefinition creates a resource definition.
func NewResourceDefinition(name string, capability Capability) ResourceDefinition {
	return ResourceDefinition{name: name, capability: capability}
}

// Name returns the resource name.
func (d ResourceDefinition) Name() string { return d.name }

// Capability returns the capability for values of this resource.
func (d ResourceDefinition) Capability() Capability { return d.capability }

// Resource is one entry of a resource list.
type Resource struct {
	def   ResourceDefinition
	value Value
}

// NewResource pairs a definition with a value.
func NewResource(def ResourceDefinition, value Value) Resource {
	return Resource{def: def, value: value}
}

// Definition returns the resource definition.
func (r Resource) Definition() ResourceDefinition { return r.def }

// Value returns the resource value.
func (r Resource) Value() Value { return r.value }

// Name returns the resource name.
func (r Resource) Name() string { return r.def.name }

// ResourceCatalog is the set of resources known to the server.
type ResourceCatalog struct {
	defs  []ResourceDefinition
	index map[string]int
}

// NewResourceCatalog creates a catalog from the given definitions.
func NewResourceCatalog(defs ...ResourceDefinition) ResourceCatalog {
	c := ResourceCatalog{
		defs:  make([]ResourceDefinition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		c.index[d.name] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c
}

// Find returns the definition of the named resource.
func (c ResourceCatalog) Find(name string) (ResourceDefinition, bool) {
	i, ok := c.index[name]
	if !ok {
		return ResourceDefinition{}, false
	}
	return c.defs[i], true
}

// Definitions returns the definitions in registration order.
func (c ResourceCatalog) Definitions() []ResourceDefinition {
	out := make([]ResourceDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// DefaultResources returns the resources a stock server understands.
func DefaultResources() ResourceCatalog {
	return NewResourceCatalog(
		NewResourceDefinition("nodes", Long),
		NewResourceDefinition("ncpus", Long),
		NewResourceDefinition("nodect", Long),
		NewResourceDefinition("mem", Size),
		NewResourceDefinition("vmem", Size),
		NewResourceDefinition("walltime", Duration),
		NewResourceDefinition("cput", Duration),
		NewResourceDefinition("arch", String),
		NewResourceDefinition("host", String),
	)
}

type resourceListCapability struct {
	catalog ResourceCatalog
}

// NewResourceList returns the capability for resource list attributes.
// Decode requires a resource sub-key known to the catalog.
func NewResourceList(catalog ResourceCatalog) Capability {
	return resourceListCapability{catalog: catalog}
}

func (c resourceListCapability) Decode(name, resource, raw string) (Value, error) {
	def, ok := c.catalog.Find(resource)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrUnknownResource, name, resource)
	}
	v, err := def.capability.Decode(name, resource, raw)
	if err != nil {
		return Value{}, err
	}
	if !v.IsSet() {
		return Unset(KindResources), nil
	}
	return NewResources(NewResource(def, v)), nil
}

// Compare orders resource lists by their encoded form. Predicates compare
// individual resources through the resource capability instead.
func (c resourceListCapability) Compare(a, b Value) int {
	if r, ok := unsetOrder(a, b); ok {
		return r
	}
	return strings.Compare(c.Encode(a), c.Encode(b))
}

func (resourceListCapability) Encode(v Value) string {
	parts := make([]string, 0, len(v.resources))
	for _, r := range v.resources {
		parts = append(parts, r.Name()+"="+r.def.capability.Encode(r.value))
	}
	return strings.Join(parts, ",")
}

func (resourceListCapability) Release(v *Value) {
	if v == nil {
		return
	}
	for i := range v.resources {
		v.resources[i].def.capability.Release(&v.resources[i].value)
	}
	release(v)
}
