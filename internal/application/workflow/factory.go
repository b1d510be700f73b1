package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	domainwf "github.com/garyjia/hospital-itsm/internal/domain/workflow"
)

// transition moves req.Status through the request lifecycle. A refused
// trigger is a StateError.
func transition(ctx context.Context, req *entity.Request, trigger domainwf.Trigger) error {
	next, err := domainwf.Next(ctx, domainwf.State(req.Status), trigger)
	if err != nil {
		return apperr.State("request %d cannot %s from status %q", req.ID, trigger, req.Status)
	}
	req.Status = next.String()
	return nil
}

// stepLabel is the audit-trail name of a step
func stepLabel(step *entity.WorkflowStep) string {
	return fmt.Sprintf("step %d (%s)", step.StepOrder, step.Name)
}
