package attribute

import (
	"fmt"
	"strings"
)

// Index is the position of an attribute in a job's attribute set.
type Index int

// Job attribute indices.
const (
	JobName Index = iota
	JobOwner
	State
	Queue
	Server
	CheckpointPolicy
	Priority
	Account
	UserList
	ResourceList
	CreateTime
	ModifyTime
	QueueTime
	ExecHost
	EUser
	EGroup
	Hold
	Rerunable
	ArrayID
	ExitStatus

	NumJobAttributes
)

// Job attribute names.
const (
	NameJobName      = "Job_Name"
	NameJobOwner     = "Job_Owner"
	NameState        = "job_state"
	NameQueue        = "queue"
	NameServer       = "server"
	NameCheckpoint   = "Checkpoint"
	NamePriority     = "Priority"
	NameAccount      = "Account_Name"
	NameUserList     = "User_List"
	NameResourceList = "Resource_List"
	NameCreateTime   = "ctime"
	NameModifyTime   = "mtime"
	NameQueueTime    = "qtime"
	NameExecHost     = "exec_host"
	NameEUser        = "euser"
	NameEGroup       = "egroup"
	NameHold         = "Hold_Types"
	NameRerunable    = "Rerunable"
	NameArrayID      = "job_array_id"
	NameExitStatus   = "exit_status"
)

// Definition describes one job attribute.
type Definition struct {
	name         string
	index        Index
	capability   Capability
	access       Perm
	equalityOnly bool
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// EqualityOnly restricts selection on the attribute to EQ and NE.
func EqualityOnly() DefinitionOption {
	return func(d *Definition) { d.equalityOnly = true }
}

// WithAccess sets the permission bits that grant access to the attribute.
func WithAccess(p Perm) DefinitionOption {
	return func(d *Definition) { d.access = p }
}

// NewDefinition creates an attribute definition readable by everyone
// unless WithAccess says otherwise.
func NewDefinition(name string, index Index, capability Capability, opts ...DefinitionOption) Definition {
	d := Definition{
		name:       name,
		index:      index,
		capability: capability,
		access:     PermReadAccess | PermManagerWrite | PermOperatorWrite,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Name returns the attribute name.
func (d Definition) Name() string { return d.name }

// Index returns the attribute index.
func (d Definition) Index() Index { return d.index }

// Capability returns the attribute capability.
func (d Definition) Capability() Capability { return d.capability }

// Access returns the permission bits that grant access.
func (d Definition) Access() Perm { return d.access }

// IsEqualityOnly reports whether only EQ and NE may be used on the attribute.
func (d Definition) IsEqualityOnly() bool { return d.equalityOnly }

// Catalog is the ordered table of job attribute definitions.
type Catalog struct {
	defs      []Definition
	byName    map[string]int
	resources ResourceCatalog
}

// NewCatalog creates a catalog. Definitions are addressed by index in
// later lookups, so each must carry a distinct index.
func NewCatalog(resources ResourceCatalog, defs ...Definition) Catalog {
	c := Catalog{
		defs:      make([]Definition, 0, len(defs)),
		byName:    make(map[string]int, len(defs)),
		resources: resources,
	}
	for _, d := range defs {
		c.byName[d.name] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c
}

// JobCatalog returns the catalog of attributes a job carries.
func JobCatalog() Catalog {
	resources := DefaultResources()
	return NewCatalog(resources,
		NewDefinition(NameJobName, JobName, String),
		NewDefinition(NameJobOwner, JobOwner, String, WithAccess(PermReadOnly)),
		NewDefinition(NameState, State, Char, WithAccess(PermReadOnly)),
		NewDefinition(NameQueue, Queue, String, WithAccess(PermReadOnly)),
		NewDefinition(NameServer, Server, String, WithAccess(PermReadOnly)),
		NewDefinition(NameCheckpoint, CheckpointPolicy, Checkpoint),
		NewDefinition(NamePriority, Priority, Long),
		NewDefinition(NameAccount, Account, String),
		NewDefinition(NameUserList, UserList, ACL, EqualityOnly()),
		NewDefinition(NameResourceList, ResourceList, NewResourceList(resources)),
		NewDefinition(NameCreateTime, CreateTime, Long, WithAccess(PermReadOnly)),
		NewDefinition(NameModifyTime, ModifyTime, Long, WithAccess(PermReadOnly)),
		NewDefinition(NameQueueTime, QueueTime, Long, WithAccess(PermReadOnly)),
		NewDefinition(NameExecHost, ExecHost, String, WithAccess(PermReadOnly), EqualityOnly()),
		NewDefinition(NameEUser, EUser, String, WithAccess(PermReadPrivileged)),
		NewDefinition(NameEGroup, EGroup, String, WithAccess(PermReadPrivileged)),
		NewDefinition(NameHold, Hold, String),
		NewDefinition(NameRerunable, Rerunable, Boolean),
		NewDefinition(NameArrayID, ArrayID, String, WithAccess(PermReadOnly)),
		NewDefinition(NameExitStatus, ExitStatus, Long, WithAccess(PermReadOnly)),
	)
}

// Find looks up a definition by name.
func (c Catalog) Find(name string) (Definition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// At returns the definition with the given index.
func (c Catalog) At(index Index) (Definition, bool) {
	for _, d := range c.defs {
		if d.index == index {
			return d, true
		}
	}
	return Definition{}, false
}

// Len returns the number of definitions.
func (c Catalog) Len() int { return len(c.defs) }

// Definitions returns the definitions in catalog order.
func (c Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Resources returns the resource catalog used by the resource list.
func (c Catalog) Resources() ResourceCatalog { return c.resources }

// NewSet returns an attribute set sized for the catalog.
func (c Catalog) NewSet() Set {
	size := int(NumJobAttributes)
	for _, d := range c.defs {
		if int(d.index) >= size {
			size = int(d.index) + 1
		}
	}
	return NewSet(size)
}

// DecodeInto decodes raw and stores it in set. Resource values merge into
// the existing resource list.
func (c Catalog) DecodeInto(set *Set, name, resource, raw string) error {
	d, ok := c.Find(name)
	if !ok {
		return fmt.Errorf("unknown attribute %q", name)
	}
	v, err := d.capability.Decode(name, resource, raw)
	if err != nil {
		return err
	}
	if v.Kind() == KindResources {
		current := set.Get(d.index)
		for _, r := range v.resources {
			current = current.WithResource(r)
		}
		if len(v.resources) == 0 {
			return nil
		}
		v = current
	}
	set.Put(d.index, v)
	return nil
}

// Encoded is one attribute, or one resource of a resource list, in its
// external form.
type Encoded struct {
	Name     string
	Resource string
	Value    string
}

// Key returns name or name.resource.
func (e Encoded) Key() string {
	if e.Resource == "" {
		return e.Name
	}
	return e.Name + "." + e.Resource
}

// ParseKey splits name.resource as produced by Key.
func ParseKey(key string) (name, resource string) {
	name, resource, _ = strings.Cut(key, ".")
	return name, resource
}

// EncodeSet writes out every set attribute accepted by keep, in catalog
// order. A nil keep accepts everything.
func (c Catalog) EncodeSet(set Set, keep func(Definition) bool) []Encoded {
	var out []Encoded
	for _, d := range c.defs {
		if keep != nil && !keep(d) {
			continue
		}
		out = append(out, c.Encode(set, d)...)
	}
	return out
}

// Encode writes out one attribute of set. Resource lists expand into one
// entry per resource.
func (c Catalog) Encode(set Set, d Definition) []Encoded {
	v := set.Get(d.index)
	if !v.IsSet() {
		return nil
	}
	if v.Kind() != KindResources {
		return []Encoded{{Name: d.name, Value: d.capability.Encode(v)}}
	}
	out := make([]Encoded, 0, len(v.resources))
	for _, r := range v.resources {
		if !r.value.IsSet() {
			continue
		}
		out = append(out, Encoded{
			Name:     d.name,
			Resource: r.Name(),
			Value:    r.def.capability.Encode(r.value),
		})
	}
	return out
}
