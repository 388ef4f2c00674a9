// Package record packs a switch into the fixed 5-byte persistent record.
//
// Layout (bit 7 first):
//
//	Byte 0: | id                                              |
//	Byte 1: | timer id                                        |
//	Byte 2: | OnM1 | OnM0 | OnH4 | OnH3 | OnH2 | OnH1 | OnH0 | Status |
//	Byte 3: | OffH3| OffH2| OffH1| OffH0| OnM5 | OnM4 | OnM3 | OnM2   |
//	Byte 4: | -    | OffM5| OffM4| OffM3| OffM2| OffM1| OffM0| OffH4  |
//
// The layout is protocol-locked. No IO.
package record

import "smart-switch/internal/domain"

// Size is the number of bytes of one record.
const Size = 5

const (
	HourBits   = 5
	MinuteBits = 6

	MaxHour   = 1<<HourBits - 1
	MaxMinute = 1<<MinuteBits - 1
)

const (
	byteID    = 0
	byteTimer = 1
	bytePackA = 2
	bytePackB = 3
	bytePackC = 4
)

type Record [Size]byte

// fragment maps bits [from, from+width) of a field onto a record byte at shift.
type fragment struct {
	index int
	shift uint
	from  uint
	width uint
}

type field []fragment

var (
	statusField    = field{{bytePackA, 0, 0, 1}}
	onHourField    = field{{bytePackA, 1, 0, HourBits}}
	onMinuteField  = field{{bytePackA, 6, 0, 2}, {bytePackB, 0, 2, 4}}
	offHourField   = field{{bytePackB, 4, 0, 4}, {bytePackC, 0, 4, 1}}
	offMinuteField = field{{bytePackC, 1, 0, MinuteBits}}
)

func (f field) put(r *Record, v uint8) {
	for _, fr := range f {
		mask := uint8(1<<fr.width - 1)
		bits := (v >> fr.from) & mask
		r[fr.index] = r[fr.index]&^(mask<<fr.shift) | bits<<fr.shift
	}
}

func (f field) get(r Record) uint8 {
	var v uint8
	for _, fr := range f {
		mask := uint8(1<<fr.width - 1)
		v |= ((r[fr.index] >> fr.shift) & mask) << fr.from
	}
	return v
}

// Encode packs s. Hours and minutes wider than their fields are truncated.
func Encode(s domain.Switch) Record {
	var r Record
	r[byteID] = s.ID
	r[byteTimer] = s.TimerID
	var status uint8
	if s.Status {
		status = 1
	}
	statusField.put(&r, status)
	onHourField.put(&r, s.OnHour)
	onMinuteField.put(&r, s.OnMinute)
	offHourField.put(&r, s.OffHour)
	offMinuteField.put(&r, s.OffMinute)
	return r
}

// Decode is the inverse of Encode. The unused bit is ignored.
func Decode(r Record) domain.Switch {
	return domain.Switch{
		ID:      r[byteID],
		TimerID: r[byteTimer],
		Status:  statusField.get(r) == 1,
		Schedule: domain.Schedule{
			OnHour:    onHourField.get(r),
			OnMinute:  onMinuteField.get(r),
			OffHour:   offHourField.get(r),
			OffMinute: offMinuteField.get(r),
		},
	}
}

// ID reads the id byte without decoding the rest.
func (r Record) ID() uint8 { return r[byteID] }

// Offset returns the store address of the record in slot i (0-based). Address 0 is the header.
func Offset(i int) int64 {
	return 1 + int64(Size*i)
}

// Slots returns how many records fit behind the header in a store of size bytes.
func Slots(size int64) int {
	if size < 1 {
		return 0
	}
	return int((size - 1) / Size)
}
