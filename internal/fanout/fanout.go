package fanout

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"SafeTrail/pkg/ws"
)

// Target selects which live sessions receive an event.
type Target struct {
	All      bool
	Role     string
	Identity string
}

func ToAll() Target               { return Target{All: true} }
func ToRole(role string) Target   { return Target{Role: role} }
func ToIdentity(id string) Target { return Target{Identity: id} }

// Publisher is the best-effort fanout contract. Delivery is
// fire-and-forget: offline targets miss the event, reconnects do not
// replay.
type Publisher interface {
	Publish(event string, payload interface{}, target Target)
}

// HubPublisher fans events out through the websocket hub.
type HubPublisher struct {
	Hub *ws.Hub
}

func NewHubPublisher(hub *ws.Hub) *HubPublisher {
	return &HubPublisher{Hub: hub}
}

func (p *HubPublisher) Publish(event string, payload interface{}, target Target) {
	data, err := json.Marshal(ws.Event{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		logrus.Errorf("event %s serialization failed: %v", event, err)
		return
	}

	switch {
	case target.All:
		p.Hub.SendToAll(data)
	case target.Identity != "":
		p.Hub.SendToIdentity(target.Identity, data)
	case target.Role != "":
		p.Hub.SendToRole(target.Role, data)
	}
}
