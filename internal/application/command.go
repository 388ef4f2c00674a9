package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"smart-switch/internal/domain"
)

var ErrBadCommand = errors.New("bad command")

// ParseCommand reads one colon separated command line:
//
//	L                                        list switches
//	A:<id>                                   add switch
//	R:<id>                                   remove switch
//	S:<id>:<0|1>                             set status
//	T:<timer>:<onH>:<onM>:<offH>:<offM>:<id>[:<id>...][:0]
//	D:<timer>                                remove timer
func ParseCommand(line string) (*domain.Command, error) {
	line = strings.TrimSpace(line)
	fields := strings.Split(line, ":")
	cmd := &domain.Command{Action: domain.ActionUnknown, RawText: line}

	args, err := parseBytes(fields[1:])
	if err != nil {
		return nil, err
	}

	switch strings.ToUpper(fields[0]) {
	case "L":
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: list takes no arguments", ErrBadCommand)
		}
		cmd.Action = domain.ActionList

	case "A", "R":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: want %s:<id>", ErrBadCommand, fields[0])
		}
		cmd.Action = domain.ActionAdd
		if strings.EqualFold(fields[0], "R") {
			cmd.Action = domain.ActionRemove
		}
		cmd.TargetID = args[0]

	case "S":
		if len(args) != 2 || args[1] > 1 {
			return nil, fmt.Errorf("%w: want S:<id>:<0|1>", ErrBadCommand)
		}
		cmd.TargetID = args[0]
		cmd.Action = domain.ActionTurnOff
		if args[1] == 1 {
			cmd.Action = domain.ActionTurnOn
		}

	case "T":
		if len(args) < 6 {
			return nil, fmt.Errorf("%w: want T:<timer>:<onH>:<onM>:<offH>:<offM>:<id>...", ErrBadCommand)
		}
		sched := domain.Schedule{OnHour: args[1], OnMinute: args[2], OffHour: args[3], OffMinute: args[4]}
		if err := validateSchedule(sched); err != nil {
			return nil, err
		}
		cmd.Action = domain.ActionSetTimer
		cmd.TimerID = args[0]
		cmd.Schedule = sched
		for _, id := range args[5:] {
			if id == domain.TimerListEnd {
				break
			}
			cmd.TargetIDs = append(cmd.TargetIDs, id)
		}

	case "D":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: want D:<timer>", ErrBadCommand)
		}
		cmd.Action = domain.ActionRemoveTimer
		cmd.TimerID = args[0]

	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrBadCommand, fields[0])
	}

	return cmd, nil
}

func parseBytes(fields []string) ([]uint8, error) {
	out := make([]uint8, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q is not a byte", ErrBadCommand, f)
		}
		out = append(out, uint8(v))
	}
	return out, nil
}

func validateSchedule(s domain.Schedule) error {
	if s.OnHour > 23 || s.OffHour > 23 {
		return fmt.Errorf("%w: hours must be 0-23", ErrBadCommand)
	}
	if s.OnMinute > 59 || s.OffMinute > 59 {
		return fmt.Errorf("%w: minutes must be 0-59", ErrBadCommand)
	}
	return nil
}

// Execute runs cmd and returns the reply text.
func (s *Service) Execute(ctx context.Context, cmd *domain.Command) (string, error) {
	switch cmd.Action {
	case domain.ActionList:
		return s.Listing(), nil

	case domain.ActionAdd:
		return "OK", s.Add(cmd.TargetID)

	case domain.ActionRemove:
		return "OK", s.Remove(cmd.TargetID)

	case domain.ActionTurnOn, domain.ActionTurnOff:
		return "OK", s.SetStatus(ctx, cmd.TargetID, cmd.Action == domain.ActionTurnOn)

	case domain.ActionSetTimer:
		n, err := s.SetTimer(cmd.TargetIDs, cmd.TimerID, cmd.Schedule)
		return fmt.Sprintf("OK %d", n), err

	case domain.ActionRemoveTimer:
		n, err := s.RemoveTimer(cmd.TimerID)
		return fmt.Sprintf("OK %d", n), err

	default:
		return "", fmt.Errorf("%w: unsupported action %s", ErrBadCommand, cmd.Action)
	}
}

// HandleLine parses and executes one command line and always produces a reply.
func (s *Service) HandleLine(ctx context.Context, line string) string {
	cmd, err := ParseCommand(line)
	if err != nil {
		s.metrics.CommandHandled(domain.ActionUnknown, err)
		s.logger.Warn("rejecting command", "line", line, "error", err)
		return "ERR " + err.Error()
	}

	reply, err := s.Execute(ctx, cmd)
	s.metrics.CommandHandled(cmd.Action, err)
	if err != nil {
		s.logger.Warn("command failed", "action", cmd.Action, "error", err)
		return "ERR " + err.Error()
	}
	return reply
}
