package metrics

type HubObserver interface {
	IncOnline()
	DecOnline()
	RecordPush()
	RecordDrop()
}

// StoreObserver records the outcome of each feedback operation.
type StoreObserver interface {
	RecordOperation(op, outcome string)
}

type Observer interface {
	HubObserver
	StoreObserver
}
