package bus

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"codexray-backend/internal/storage"
)

// SubjectAlertFired carries every alert the collector stores.
const SubjectAlertFired = "alert.fired"

type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS. The broker may come and go underneath a
// long-lived collector, so the connection retries indefinitely.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("codexray-backend"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
		p.conn.Close()
	}
}

func (p *Publisher) PublishAlert(alert storage.AlertRecord) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectAlertFired, data)
}
