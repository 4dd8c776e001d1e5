package ws

import (
	"time"

	"github.com/sirupsen/logrus"
)

// HeartbeatConfig holds heartbeat tuning parameters.
type HeartbeatConfig struct {
	Interval time.Duration // how often to ping
	Timeout  time.Duration // grace period after a missed ping
}

// DefaultHeartbeatConfig returns the production heartbeat settings.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// StartHeartbeat pings every connection each Interval and removes those idle
// for longer than Interval + Timeout. It returns immediately; the goroutine
// exits on server shutdown.
func StartHeartbeat(server *Server, config HeartbeatConfig) {
	go func() {
		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-server.done:
				return
			case now := <-ticker.C:
				checkConnections(server, config, now)
			}
		}
	}()
}

func checkConnections(server *Server, config HeartbeatConfig, now time.Time) {
	deadline := config.Interval + config.Timeout

	for _, c := range server.Connections().All() {
		idle := now.Sub(c.LastActive())
		if idle > deadline {
			server.log.WithFields(logrus.Fields{
				"session": c.ID,
				"idle":    idle.Round(time.Second).String(),
			}).Info("ws: heartbeat timeout")
			server.RemoveConnection(c)
			continue
		}

		// Browsers answer protocol pings with a pong, which counts as activity.
		if err := c.WritePing(); err != nil {
			server.log.WithError(err).WithField("session", c.ID).Debug("ws: heartbeat ping failed")
			server.RemoveConnection(c)
		}
	}
}
