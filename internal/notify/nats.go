package notify

import (
	"time"

	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/nats-io/nats.go"
)

// ConnectNATS opens a connection that keeps reconnecting in the background.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected to %s", nc.ConnectedUrl())
		}),
	)
}
