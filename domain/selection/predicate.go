package selection

import (
	"fmt"

	"github.com/helixml/jobsel/domain/attribute"
)

// Criterion is one selection tuple as received from a client.
type Criterion struct {
	Name     string   `json:"name" yaml:"name"`
	Resource string   `json:"resource,omitempty" yaml:"resource,omitempty"`
	Operator Operator `json:"op" yaml:"op"`
	Value    string   `json:"value" yaml:"value"`
}

// String formats the criterion as name[.resource] op value.
func (c Criterion) String() string {
	name := c.Name
	if c.Resource != "" {
		name += "." + c.Resource
	}
	return fmt.Sprintf("%s %s %q", name, c.Operator, c.Value)
}

type evalFunc func(p *Predicate, attrs attribute.Set) bool

// Predicate is one compiled criterion. It owns its comparison value until
// the chain holding it is released.
type Predicate struct {
	index      attribute.Index
	name       string
	resource   attribute.ResourceDefinition
	decoder    attribute.Capability
	capability attribute.Capability
	operator   Operator
	value      attribute.Value
	eval       evalFunc
}

// Index returns the attribute index the predicate reads.
func (p *Predicate) Index() attribute.Index { return p.index }

// Name returns the attribute name.
func (p *Predicate) Name() string { return p.name }

// Operator returns the comparison operator.
func (p *Predicate) Operator() Operator { return p.operator }

// Value returns the decoded comparison value.
func (p *Predicate) Value() attribute.Value { return p.value }

// Matches evaluates the predicate against one attribute set.
func (p *Predicate) Matches(attrs attribute.Set) bool {
	return p.eval(p, attrs)
}

func (p *Predicate) release() {
	p.decoder.Release(&p.value)
}

func compareEvaluator(p *Predicate, attrs attribute.Set) bool {
	return p.operator.Accepts(p.capability.Compare(attrs.Get(p.index), p.value))
}

// resourceEvaluator compares the job's entry for the criterion's resource.
// A job without that resource, or with it unset, compares as less than.
func resourceEvaluator(p *Predicate, attrs attribute.Set) bool {
	r := -1
	if want, ok := p.value.Resource(p.resource.Name()); ok {
		if have, ok := attrs.Get(p.index).Resource(p.resource.Name()); ok && have.Value().IsSet() {
			r = p.capability.Compare(have.Value(), want.Value())
		}
	}
	return p.operator.Accepts(r)
}

// userListEvaluator tests whether the job owner is on the criterion's
// list. The operator is not consulted.
func userListEvaluator(p *Predicate, attrs attribute.Set) bool {
	return attribute.ACLContains(p.value, attrs.Get(attribute.JobOwner).String())
}

// Chain is an ordered list of predicates combined with AND.
type Chain struct {
	predicates []*Predicate
	released   bool
}

// Len returns the number of predicates.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.predicates)
}

// Predicates returns the predicates in criteria order.
func (c *Chain) Predicates() []*Predicate {
	if c == nil {
		return nil
	}
	out := make([]*Predicate, len(c.predicates))
	copy(out, c.predicates)
	return out
}

// Matches reports whether attrs satisfies every predicate. It stops at the
// first predicate that fails. An empty chain matches everything.
func (c *Chain) Matches(attrs attribute.Set) bool {
	if c == nil {
		return true
	}
	for _, p := range c.predicates {
		if !p.Matches(attrs) {
			return false
		}
	}
	return true
}

// Release frees every predicate value. Releasing twice is a no-op.
func (c *Chain) Release() {
	if c == nil || c.released {
		return
	}
	for _, p := range c.predicates {
		p.release()
	}
	c.released = true
}
