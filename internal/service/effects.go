package service

// Effect is one event a completed operation wants pushed over the channel.
// Services return effects instead of emitting directly, so persistence logic
// stays testable without a live connection and the transport is applied in
// one place.
type Effect struct {
	// To is the target user id; empty means broadcast to everyone.
	To      string
	Event   string
	Payload any
}

// EventChannel is the push transport the dispatcher applies effects through.
type EventChannel interface {
	EmitTo(userID, event string, payload any)
	EmitAll(event string, payload any)
}

// Dispatcher applies effects to the event channel. Delivery failures never
// surface: the durable write already succeeded, live push is best-effort.
type Dispatcher struct {
	channel EventChannel
}

func NewDispatcher(channel EventChannel) *Dispatcher {
	return &Dispatcher{channel: channel}
}

func (d *Dispatcher) Apply(effects []Effect) {
	for _, e := range effects {
		if e.To == "" {
			d.channel.EmitAll(e.Event, e.Payload)
			continue
		}
		d.channel.EmitTo(e.To, e.Event, e.Payload)
	}
}
