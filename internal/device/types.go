package device

import "time"

// Device is an addressable remote device.
//
// A device is identified by its stable ID and may additionally be addressed
// by its current Number and by OldNumber, the number it carried under the
// legacy numbering scheme. All three resolve to the same ID.
type Device struct {
	ID        string    `json:"id"`
	Number    string    `json:"number,omitempty"`
	OldNumber string    `json:"old_number,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Aliases returns the non-empty identifiers the device answers to, ID first.
func (d *Device) Aliases() []string {
	aliases := []string{d.ID}
	if d.Number != "" && d.Number != d.ID {
		aliases = append(aliases, d.Number)
	}
	if d.OldNumber != "" && d.OldNumber != d.ID && d.OldNumber != d.Number {
		aliases = append(aliases, d.OldNumber)
	}
	return aliases
}
