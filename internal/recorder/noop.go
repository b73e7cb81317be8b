package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSync(_ []SyncRun) error        { return nil }
func (n *NoopRecorder) RecordDelivery(_ *Delivery) error    { return nil }
func (n *NoopRecorder) LastSync(_ string) (*SyncRun, error) { return nil, nil }
func (n *NoopRecorder) Close() error                        { return nil }
