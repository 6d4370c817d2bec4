package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrUnknownAgent    = errors.New("unknown agent")
	ErrHandoffDenied   = errors.New("handoff target not declared")
	ErrMaxHandoffs     = errors.New("handoff budget exceeded")
	ErrMaxToolRounds   = errors.New("tool round budget exceeded")
)
