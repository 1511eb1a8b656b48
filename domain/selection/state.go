package selection

import (
	"strings"

	"github.com/helixml/jobsel/domain/attribute"
)

// stateSet matches a job state character against a criterion listing the
// states of interest, so "QR" selects queued and running jobs. Compare
// returns 0 when the state is listed, 1 when it is not and -1 when the
// criterion is unset or empty.
type stateSet struct{}

func (stateSet) Decode(_, _, raw string) (attribute.Value, error) {
	if raw == "" {
		return attribute.Unset(attribute.KindString), nil
	}
	return attribute.NewString(raw), nil
}

func (stateSet) Compare(job, criterion attribute.Value) int {
	if !criterion.IsSet() || criterion.String() == "" {
		return -1
	}
	if job.IsSet() && strings.IndexByte(criterion.String(), job.Char()) >= 0 {
		return 0
	}
	return 1
}

func (stateSet) Encode(v attribute.Value) string { return v.String() }

func (stateSet) Release(v *attribute.Value) {
	if v != nil {
		*v = attribute.Unset(attribute.KindString)
	}
}
