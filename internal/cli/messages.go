package cli

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for localized text output.
const (
	msgInspectionCount = "%d inspections"
	msgNoInspections   = "No inspections recorded."
)

func init() {
	mustSet(language.English, msgInspectionCount, plural.Selectf(1, "%d",
		"=1", "%d inspection",
		"other", "%d inspections",
	))
	mustSet(language.English, msgNoInspections, catalog.String(msgNoInspections))

	mustSet(language.German, msgInspectionCount, plural.Selectf(1, "%d",
		"=1", "%d Inspektion",
		"other", "%d Inspektionen",
	))
	mustSet(language.German, msgNoInspections, catalog.String("Keine Inspektionen erfasst."))
}

func mustSet(tag language.Tag, key string, msg catalog.Message) {
	if err := message.Set(tag, key, msg); err != nil {
		panic(err)
	}
}
