package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
}

// force timezone to be IST because the bus listing source is an
// Indian site and the onward date embedded in route urls is
// interpreted in local time, a server in another region would
// shift it by a day near midnight
func Now() time.Time {
	return time.Now().In(Location)
}
