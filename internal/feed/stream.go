package feed

import (
	"encoding/json"
	"time"

	"github.com/GoPolymarket/riskgate/internal/pkg/logger"
	"github.com/gorilla/websocket"
)

// SignalSink receives market signal updates; implemented by the engine.
type SignalSink interface {
	UpdateMarketSignals(market string, volatility, liquidity int64) error
}

type signalMessage struct {
	Market          string `json:"market"`
	VolatilityScore int64  `json:"volatility_score"`
	LiquidityScore  int64  `json:"liquidity_score"`
}

// Stream subscribes to a market-data websocket and pushes volatility and
// liquidity scores into market risk profiles as they arrive. It reconnects
// with a fixed backoff until stopped.
type Stream struct {
	url       string
	reconnect time.Duration
	sink      SignalSink
	done      chan struct{}
}

func NewStream(url string, reconnect time.Duration, sink SignalSink) *Stream {
	if reconnect <= 0 {
		reconnect = 5 * time.Second
	}
	return &Stream{
		url:       url,
		reconnect: reconnect,
		sink:      sink,
		done:      make(chan struct{}),
	}
}

func (s *Stream) Start() {
	go s.run()
}

func (s *Stream) Stop() {
	close(s.done)
}

func (s *Stream) run() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.connectAndRead(); err != nil {
			logger.Warn("signal feed disconnected", "url", s.url, "error", err)
		}

		select {
		case <-s.done:
			return
		case <-time.After(s.reconnect):
		}
	}
}

func (s *Stream) connectAndRead() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("signal feed connected", "url", s.url)

	sub := map[string]interface{}{
		"type":    "subscribe",
		"channel": "risk_signals",
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	for {
		select {
		case <-s.done:
			return nil
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(msg)
	}
}

func (s *Stream) handleMessage(msg []byte) {
	var sig signalMessage
	if err := json.Unmarshal(msg, &sig); err != nil {
		logger.Debug("dropping malformed signal message", "error", err)
		return
	}
	if sig.Market == "" {
		return
	}
	if err := s.sink.UpdateMarketSignals(sig.Market, sig.VolatilityScore, sig.LiquidityScore); err != nil {
		logger.Warn("rejected signal update", "market", sig.Market, "error", err)
	}
}
