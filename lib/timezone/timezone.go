package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Helsinki")
	if err != nil {
		panic(err)
	}
}

// Now forces the portal timezone, both portals render wall-clock times
// in Finnish local time without an offset.
func Now() time.Time {
	return time.Now().In(Location)
}

// Parse parses a wall-clock value rendered by a portal.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, Location)
}
