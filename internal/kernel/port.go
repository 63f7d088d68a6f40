package kernel

// Port is the platform seam. The kernel itself contains no platform
// instructions and performs no interrupt masking; a port wraps every
// public kernel call in a critical section and calls Tick and
// SwitchContext from its timer and context-switch interrupt handlers.
type Port interface {
	// InitStack synthesizes an initial context on the task's stack such
	// that restoring it resumes execution at entry(arg) in the task's
	// normal execution mode.
	InitStack(stack []byte, entry EntryFunc, arg uint32) StackPtr

	// RequestSwitch pends the context-switch interrupt. It is idempotent;
	// multiple requests before the interrupt fires coalesce into one.
	RequestSwitch()

	// LaunchFirstTask transfers control to the first task. On hardware it
	// never returns.
	LaunchFirstTask(sp StackPtr)

	// StartTicks enables the periodic tick source.
	StartTicks()
}
