package service

// Live event types pushed to websocket clients.
const (
	EventRFQProgressChanged = "rfq.progress_changed"
	EventSalesFunnelCreated = "sales_funnel.created"
	EventGrantsReloaded     = "authz.reloaded"
)

// EventPublisher pushes live events to connected clients.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
