package service

import (
	"context"
	"fmt"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/selection"
)

// StatusBlock is the status snapshot of one job.
type StatusBlock struct {
	JobID      string
	Attributes []attribute.Encoded
}

// Snapshotter produces a status block for a job. It is called with the job
// locked. Returning selection.ErrPermissionDenied skips the job; any other
// error aborts the query.
type Snapshotter interface {
	Snapshot(ctx context.Context, r Requester, j *job.Job, names []string) (StatusBlock, error)
}

// AttributeSnapshotter encodes the job attributes the requester may read.
type AttributeSnapshotter struct {
	catalog    attribute.Catalog
	authorizer Authorizer
}

// NewAttributeSnapshotter creates a snapshotter. A nil authorizer skips the
// visibility check.
func NewAttributeSnapshotter(catalog attribute.Catalog, authorizer Authorizer) *AttributeSnapshotter {
	return &AttributeSnapshotter{catalog: catalog, authorizer: authorizer}
}

// Snapshot encodes the named attributes of j, or all of them when names is
// empty. Unset attributes and attributes r may not read are left out.
func (s *AttributeSnapshotter) Snapshot(ctx context.Context, r Requester, j *job.Job, names []string) (StatusBlock, error) {
	if s.authorizer != nil {
		if err := s.authorizer.Authorize(ctx, r, j); err != nil {
			return StatusBlock{}, err
		}
	}

	readable := func(d attribute.Definition) bool { return r.Perm.CanRead(d.Access()) }
	block := StatusBlock{JobID: j.ID()}

	if len(names) == 0 {
		block.Attributes = s.catalog.EncodeSet(j.Attributes(), readable)
		return block, nil
	}
	for _, name := range names {
		d, ok := s.catalog.Find(name)
		if !ok {
			return StatusBlock{}, fmt.Errorf("%w: %s", selection.ErrUnknownAttribute, name)
		}
		if !readable(d) {
			continue
		}
		block.Attributes = append(block.Attributes, s.catalog.Encode(j.Attributes(), d)...)
	}
	return block, nil
}
