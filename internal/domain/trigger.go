package domain

import "context"

type triggerKey struct{}

// Council run origins recorded in audit entries.
const (
	TriggerCLI       = "cli"
	TriggerScheduler = "scheduler"
)

// WithTrigger records who started the council runs made with ctx, such as
// TriggerScheduler or an API caller label.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger stored by WithTrigger, or "".
func TriggerFrom(ctx context.Context) string {
	t, _ := ctx.Value(triggerKey{}).(string)
	return t
}
