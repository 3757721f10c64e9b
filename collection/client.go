package collection

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// Add Prometheus metrics
var (
	wsConnectionAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumina_collection_connection_attempts_total",
		Help: "The total number of connection attempts to the collection stream websocket",
	})

	wsConnectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumina_collection_connection_errors_total",
		Help: "The total number of connection errors encountered",
	})

	wsCurrentConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumina_collection_current_connections",
		Help: "The current number of active collection stream websocket connections",
	})

	wsConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumina_collection_connection_duration_seconds",
		Help:    "Duration of collection stream websocket connections",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s, double each bucket, 10 buckets
	})

	wsPingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumina_collection_ping_latency_seconds",
		Help:    "Latency of websocket ping/pong round trips",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // Start at 1ms, double each bucket, 10 buckets
	})

	wsHostSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumina_collection_host_switches_total",
		Help: "Number of times the connection switched to a different host",
	}, []string{"from_host", "to_host"})
)

const (
	wsReadBufferSize  = 1024 * 1024 // 1MB
	wsWriteBufferSize = 1024        // 1KB
	wsReadTimeout     = 60 * time.Second
	wsWriteTimeout    = 10 * time.Second
	wsPingInterval    = 30 * time.Second
)

// StreamConfig holds configuration for the collection stream connection
type StreamConfig struct {
	// Hosts is a list of stream endpoints to try in order
	// e.g. ["wss://stream1.lumina.app", "wss://stream2.lumina.app"]
	Hosts       []string
	Collections []string
	Cursor      int64
	Compress    bool
	UserAgent   string

	// Decode pool sizing; zero values fall back to the pool defaults
	Workers   int
	QueueSize int
}

// RawMessage represents an unparsed message from the websocket
type RawMessage struct {
	MessageType int    // websocket.TextMessage or websocket.BinaryMessage
	Data        []byte // Raw message data
}

// SubscribeStream establishes a websocket connection to the collection
// document stream, failing over between hosts with exponential backoff
func SubscribeStream(ctx context.Context, config StreamConfig) (*websocket.Conn, error) {

	log.WithFields(log.Fields{
		"hosts": config.Hosts,
	}).Info("Subscribing to collection stream")

	if len(config.Hosts) == 0 {
		return nil, fmt.Errorf("no hosts provided in config")
	}

	currentHostIdx := 0

	// Configure websocket dialer
	dialer := websocket.Dialer{
		ReadBufferSize:   wsReadBufferSize,
		WriteBufferSize:  wsWriteBufferSize,
		HandshakeTimeout: 45 * time.Second,
		NetDialContext: (&net.Dialer{
			Timeout:   45 * time.Second,
			KeepAlive: 45 * time.Second,
		}).DialContext,
	}

	// Set up exponential backoff for reconnection attempts
	backoff := backoff.NewExponentialBackOff()
	backoff.InitialInterval = 100 * time.Millisecond
	backoff.MaxInterval = 30 * time.Second
	backoff.Multiplier = 1.5
	backoff.MaxElapsedTime = 0 // Never stop retrying

	var conn *websocket.Conn

	// Connection loop with retry and failover logic
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			currentHost := config.Hosts[currentHostIdx]

			// Build URL with query parameters
			u, err := url.Parse(fmt.Sprintf("%s/subscribe", currentHost))
			if err != nil {
				return nil, fmt.Errorf("failed to parse URL: %w", err)
			}

			q := u.Query()
			for _, collection := range config.Collections {
				q.Add("collections", collection)
			}
			if config.Cursor != 0 {
				q.Set("cursor", fmt.Sprintf("%d", config.Cursor))
			}
			if config.Compress {
				q.Set("compress", "true")
			}
			u.RawQuery = q.Encode()

			// Set up headers
			headers := http.Header{}
			if config.UserAgent != "" {
				headers.Set("User-Agent", config.UserAgent)
			}

			if config.Compress {
				headers.Set("Accept-Encoding", "zstd")
			}

			wsConnectionAttempts.Inc()

			var dialErr error
			conn, _, dialErr = dialer.Dial(u.String(), headers)

			if dialErr != nil {
				wsConnectionErrors.Inc()
				log.Errorf("Error connecting to collection stream host %s: %s", currentHost, dialErr)

				nextHostIdx, roundDone := advanceHost(currentHostIdx, len(config.Hosts))
				if nextHostIdx != currentHostIdx {
					wsHostSwitches.WithLabelValues(currentHost, config.Hosts[nextHostIdx]).Inc()
					log.Infof("Switching from host %s to %s", currentHost, config.Hosts[nextHostIdx])
				}
				currentHostIdx = nextHostIdx

				// Back off once per full round of hosts so a total outage
				// does not hammer every endpoint in a tight loop
				if roundDone {
					time.Sleep(backoff.NextBackOff())
				}
				continue
			}

			// Reset backoff on successful connection
			backoff.Reset()
			wsCurrentConnections.Inc()

			// Start connection duration timer
			connStart := time.Now()
			go func() {
				<-ctx.Done()
				wsConnectionDuration.Observe(time.Since(connStart).Seconds())
				wsCurrentConnections.Dec()
			}()

			// Set up connection handlers
			setupConnectionHandlers(conn)

			// Start ping routine
			go managePingPong(ctx, conn)

			return conn, nil
		}
	}
}

// advanceHost returns the next host index and whether every host has now
// been tried since the last wrap, meaning the caller should back off
// before the next attempt. The backoff itself only resets on a
// successful connection, never on a host switch.
func advanceHost(current, hosts int) (next int, roundDone bool) {
	next = (current + 1) % hosts
	return next, next <= current
}

// setupConnectionHandlers configures the websocket connection handlers
func setupConnectionHandlers(conn *websocket.Conn) {
	// Set initial deadlines
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

	// Add connection close handler
	conn.SetCloseHandler(func(code int, text string) error {
		log.Infof("WebSocket connection closed with code %d: %s", code, text)
		return nil
	})

	// Set ping handler
	conn.SetPingHandler(func(appData string) error {
		log.Debug("Received ping from server")
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	// Set pong handler
	conn.SetPongHandler(func(appData string) error {
		log.Debug("Received pong from server")
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
}

// managePingPong handles the ping/pong keepalive for the websocket connection
func managePingPong(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingStart := time.Now()
			log.Debug("Sending ping to check connection")

			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout)); err != nil {
				log.Warn("Ping failed, closing connection for restart: ", err)
				wsConnectionErrors.Inc()
				conn.Close()
				return
			}

			// Measure ping latency when we receive the pong
			conn.SetPongHandler(func(appData string) error {
				wsPingLatency.Observe(time.Since(pingStart).Seconds())
				return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
			})

			// Reset read deadline after successful ping
			if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
				log.Warn("Failed to set read deadline, closing connection: ", err)
				wsConnectionErrors.Inc()
				conn.Close()
				return
			}
		}
	}
}

// SubscribeStreamWithMessages establishes a websocket connection and
// pushes raw frames onto the worker queue. A mid-stream read failure is
// reported on errs so feed subscribers can surface it; it never unwinds
// into the consumer.
func SubscribeStreamWithMessages(ctx context.Context, config StreamConfig, workerQueue chan *RawMessage, errs chan error) error {
	log.Infof("Subscribing to collection stream with messages")
	conn, err := SubscribeStream(ctx, config)
	if err != nil {
		return err
	}

	// Start message reading goroutine
	go func() {
		defer conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
				messageType, message, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						log.Errorf("Unexpected websocket close: %v", err)
					}
					wsConnectionErrors.Inc()
					select {
					case errs <- fmt.Errorf("collection stream read failed: %w", err):
					default:
					}
					return
				}

				rawMsg := &RawMessage{
					MessageType: messageType,
					Data:        message,
				}

				workerQueue <- rawMsg
			}
		}
	}()

	return nil
}
