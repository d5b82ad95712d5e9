// Metrics for the room host, exposed via github.com/prometheus/client_golang
// the way wfunc/gameserver's monitor package exposes online-player and
// room-count gauges — generalized here to a per-room label on the player
// and message metrics, since roomforge runs many independent rooms per
// process. The active-room count stays one process-wide gauge.
package room

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomforge_rooms_active",
		Help: "Number of rooms currently instantiated in this process.",
	})
	playersOnline = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roomforge_players_online",
		Help: "Number of players currently joined, per room.",
	}, []string{"room"})
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomforge_messages_received_total",
		Help: "Client messages forwarded to the interpreter, per room.",
	}, []string{"room"})
)
