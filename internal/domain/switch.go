package domain

import (
	"strconv"
	"strings"
)

// NoTimer marks a switch without an attached timer program.
const NoTimer uint8 = 255

// Emission format toward line clients.
const (
	RecordTerminator = 'N'
	EmptyListing     = "-1"
)

type Schedule struct {
	OnHour    uint8
	OnMinute  uint8
	OffHour   uint8
	OffMinute uint8
}

type Switch struct {
	ID      uint8
	Status  bool
	TimerID uint8
	Schedule
}

func NewSwitch(id uint8) Switch {
	return Switch{ID: id, TimerID: NoTimer}
}

func (s Switch) HasTimer() bool {
	return s.TimerID != NoTimer
}

// Record renders the switch as id:status:timer:onH:onM:offH:offM without terminator.
func (s Switch) Record() string {
	var sb strings.Builder
	sb.Grow(24)
	sb.WriteString(strconv.Itoa(int(s.ID)))
	sb.WriteByte(':')
	if s.Status {
		sb.WriteByte('1')
	} else {
		sb.WriteByte('0')
	}
	for _, v := range []uint8{s.TimerID, s.OnHour, s.OnMinute, s.OffHour, s.OffMinute} {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(v)))
	}
	return sb.String()
}

type ChangeSource string

const (
	SourceCommand  ChangeSource = "command"
	SourceSchedule ChangeSource = "schedule"
)

type StateChange struct {
	Switch Switch
	Source ChangeSource
}
