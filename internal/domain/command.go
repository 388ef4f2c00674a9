package domain

type Action string

const (
	ActionList        Action = "list"
	ActionAdd         Action = "add"
	ActionRemove      Action = "remove"
	ActionTurnOn      Action = "turn_on"
	ActionTurnOff     Action = "turn_off"
	ActionSetTimer    Action = "set_timer"
	ActionRemoveTimer Action = "remove_timer"
	ActionUnknown     Action = "unknown"
)

// TimerListEnd terminates the id list of a set-timer command. It is never a device id.
const TimerListEnd uint8 = 0

type Command struct {
	Action   Action
	TargetID uint8
	TimerID  uint8
	Schedule Schedule
	// TargetIDs carries the set-timer id list, already cut at TimerListEnd.
	TargetIDs []uint8
	RawText   string
}
