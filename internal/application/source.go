package application

import "context"

// CommandSource feeds command lines from one transport into a LineHandler.
type CommandSource interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// LineHandler executes one command line and returns the reply.
type LineHandler interface {
	HandleLine(ctx context.Context, line string) string
}
