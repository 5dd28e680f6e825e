package constants

// Redis stream carrying settled cycles for downstream consumers.
const (
	CycleEventStream       = "rosca_cycle_events"
	CycleEventStreamMaxLen = 10000

	CycleEventSettled   = "cycle_settled"
	CycleEventCompleted = "association_completed"
)
