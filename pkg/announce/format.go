package announce

import (
	"fmt"

	"github.com/heraldbot/herald/pkg/types"
)

// humanTimeLayout is the start time as shown to channel members.
const humanTimeLayout = "02.01.2006 | kl. 15:04"

// formatAnnouncement renders the message body for one event. The same
// body is used for the initial send and for every in-place edit.
func formatAnnouncement(rec types.EventRecord) string {
	return fmt.Sprintf(
		"## 🔔 %s\n%s\n__**Når?**__ %s\n__**Hvor?**__ %s\n__**Påmelding:**__ %s\n",
		rec.Title,
		rec.Description,
		rec.StartAt.Format(humanTimeLayout),
		rec.Place,
		rec.Link,
	)
}
