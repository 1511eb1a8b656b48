package service

import (
	"context"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/selection"
)

// Requester identifies who issued a query.
type Requester struct {
	User string
	Host string
	Perm attribute.Perm
}

// Authorizer decides whether a requester may see a job. It is called with
// the job locked.
type Authorizer interface {
	Authorize(ctx context.Context, r Requester, j *job.Job) error
}

// OwnerAuthorizer lets operators and managers see every job and everyone
// else see only their own.
type OwnerAuthorizer struct{}

// Authorize returns selection.ErrPermissionDenied when r may not see j.
func (OwnerAuthorizer) Authorize(_ context.Context, r Requester, j *job.Job) error {
	if r.Perm.Privileged() {
		return nil
	}
	owner, _ := attribute.SplitOwner(j.Owner())
	if owner != "" && owner == r.User {
		return nil
	}
	return selection.ErrPermissionDenied
}
