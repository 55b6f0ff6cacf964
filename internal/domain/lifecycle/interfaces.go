package lifecycle

import (
	"context"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/tally"
)

// VersionStore reads and writes tally-sheet versions.
type VersionStore interface {
	FetchVersion(ctx context.Context, tallySheetID string, code tally.Code, versionID string) (*tally.Version, error)
	SaveVersion(ctx context.Context, tallySheetID string, code tally.Code, payload tally.Payload) (*tally.Version, error)
}

// Submitter marks a saved version as the sheet's submitted version.
type Submitter interface {
	SubmitSheet(ctx context.Context, tallySheetID, versionID string) (*tally.Submission, error)
}

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Navigator moves the caller to another view.
type Navigator interface {
	NavigateTo(target Target)
}

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// ActivityLogger records lifecycle events.
type ActivityLogger interface {
	Log(ctx context.Context, entry *activity.Entry) error
}

// TimeScheduler schedules with time.AfterFunc.
type TimeScheduler struct{}

func (TimeScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
