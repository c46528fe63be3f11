package worker

import (
	"github.com/spec-kit/sales-crm/internal/service"
)

// StartActivityWorker registers the activity log handlers and returns a
// function that removes them.
func StartActivityWorker(activity *service.ActivityService) func() {
	if activity == nil {
		return func() {}
	}
	activity.RegisterHandlers()
	return activity.UnregisterHandlers
}
