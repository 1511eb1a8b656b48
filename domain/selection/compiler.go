package selection

import (
	"errors"
	"strings"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/queue"
)

// QueueFinder resolves a destination name to a queue.
type QueueFinder interface {
	Find(destination string) (*queue.Queue, error)
}

// Compiler turns criteria into predicate chains.
type Compiler struct {
	catalog attribute.Catalog
	queues  QueueFinder
	state   attribute.Capability
}

// NewCompiler creates a compiler over the given attribute catalog.
func NewCompiler(catalog attribute.Catalog, queues QueueFinder) *Compiler {
	return &Compiler{catalog: catalog, queues: queues, state: stateSet{}}
}

// Compile builds a chain from criteria, in order. A criterion on the queue
// attribute restricts the selection to that queue instead of producing a
// predicate; the last one wins, and an empty or "@server" destination
// means all queues.
//
// On failure every predicate compiled so far is released and the returned
// error is a *CriterionError wrapping one of the package error kinds.
func (c *Compiler) Compile(criteria []Criterion, perm attribute.Perm) (*Chain, *queue.Queue, error) {
	chain := &Chain{predicates: make([]*Predicate, 0, len(criteria))}
	var restriction *queue.Queue

	for i, crit := range criteria {
		ordinal := i + 1

		if crit.Name == attribute.NameQueue {
			if crit.Value == "" || strings.HasPrefix(crit.Value, "@") {
				continue
			}
			q, err := c.queues.Find(crit.Value)
			if err != nil {
				chain.Release()
				return nil, nil, newCriterionError(ordinal, crit, ErrUnknownQueue, err)
			}
			restriction = q
			continue
		}

		p, err := c.compile(crit, perm)
		if err != nil {
			chain.Release()
			var ce *CriterionError
			if errors.As(err, &ce) {
				ce.ordinal = ordinal
				return nil, nil, ce
			}
			return nil, nil, newCriterionError(ordinal, crit, err, nil)
		}
		chain.predicates = append(chain.predicates, p)
	}
	return chain, restriction, nil
}

func (c *Compiler) compile(crit Criterion, perm attribute.Perm) (*Predicate, error) {
	def, ok := c.catalog.Find(crit.Name)
	if !ok {
		return nil, newCriterionError(0, crit, ErrUnknownAttribute, nil)
	}

	decoder := def.Capability()
	access := def.Access()
	equalityOnly := def.IsEqualityOnly()
	if def.Index() == attribute.State {
		decoder = c.state
		access = attribute.PermReadOnly
		equalityOnly = false
	}

	if !perm.CanRead(access) {
		return nil, newCriterionError(0, crit, ErrPermissionDenied, nil)
	}
	if !crit.Operator.Valid() || (equalityOnly && !crit.Operator.IsEquality()) {
		return nil, newCriterionError(0, crit, ErrInvalidOperator, nil)
	}

	value, err := decoder.Decode(crit.Name, crit.Resource, crit.Value)
	if err != nil {
		if errors.Is(err, attribute.ErrUnknownResource) {
			return nil, newCriterionError(0, crit, ErrUnknownResource, err)
		}
		return nil, newCriterionError(0, crit, ErrInvalidValue, err)
	}
	if !value.IsSet() {
		return nil, newCriterionError(0, crit, ErrInvalidValue, nil)
	}

	p := &Predicate{
		index:      def.Index(),
		name:       def.Name(),
		decoder:    decoder,
		capability: decoder,
		operator:   crit.Operator,
		value:      value,
		eval:       compareEvaluator,
	}

	switch def.Index() {
	case attribute.ResourceList:
		rdef, ok := c.catalog.Resources().Find(crit.Resource)
		if !ok {
			decoder.Release(&value)
			return nil, newCriterionError(0, crit, ErrUnknownResource, nil)
		}
		p.resource = rdef
		p.capability = rdef.Capability()
		p.eval = resourceEvaluator
	case attribute.UserList:
		p.eval = userListEvaluator
	}
	return p, nil
}
