package contact

import (
	"github.com/google/uuid"

	"github.com/sweeney/contact-sensor/internal/history"
)

// Characteristic identifies one derived metric the way Eve-compatible hosts
// know it.
type Characteristic struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
	Unit string `json:"unit,omitempty"`
}

// Eve contact sensor characteristics.
var (
	CharTimesOpened    = Characteristic{Name: "Times Opened", UUID: "E863F129-079E-48FF-8F27-9C2605A29F52"}
	CharOpenDuration   = Characteristic{Name: "Open Duration", UUID: "E863F118-079E-48FF-8F27-9C2605A29F52", Unit: "seconds"}
	CharClosedDuration = Characteristic{Name: "Closed Duration", UUID: "E863F119-079E-48FF-8F27-9C2605A29F52", Unit: "seconds"}
	CharLastActivation = Characteristic{Name: "Last Activation", UUID: "E863F11A-079E-48FF-8F27-9C2605A29F52", Unit: "seconds"}
)

// CharacteristicValue pairs a characteristic with its current value.
type CharacteristicValue struct {
	Characteristic
	Value int64 `json:"value"`
}

// Characteristics lays out a summary in host characteristic order.
func Characteristics(s history.Summary) []CharacteristicValue {
	return []CharacteristicValue{
		{CharTimesOpened, s.TimesOpened},
		{CharOpenDuration, s.OpenDuration},
		{CharClosedDuration, s.ClosedDuration},
		{CharLastActivation, s.LastActivation},
	}
}

// SerialNumber derives a stable serial for the named accessory listening on
// the given source address.
func SerialNumber(name, listen string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("contact-sensor-"+name+"-"+listen)).String()
}
