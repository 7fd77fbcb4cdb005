package primary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/zono819/ratio-arb/internal/adapter/gateway"
	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/infrastructure/logger"
)

// ErrNotConnected is returned when sending before Connect
var ErrNotConnected = errors.New("primary: websocket not connected")

// Ensure MarketData implements MarketDataGateway
var _ gateway.MarketDataGateway = (*MarketData)(nil)

// TokenSource supplies the session token for the websocket handshake
type TokenSource interface {
	Token(ctx context.Context) (string, error)

	// Invalidate drops a token the server rejected
	Invalidate()
}

// MarketDataConfig contains Primary websocket configuration
type MarketDataConfig struct {
	WSURL string
	Depth int
}

// MarketData implements MarketDataGateway over the Primary websocket
type MarketData struct {
	config MarketDataConfig
	tokens TokenSource
	log    *logger.Logger

	wsConn      *websocket.Conn
	wsMu        sync.RWMutex
	writeMu     sync.Mutex
	wsConnected bool
	wsDone      chan struct{}

	handlers  []func(*entity.MarketData)
	handlerMu sync.RWMutex
}

// NewMarketData creates a new market data gateway
func NewMarketData(config MarketDataConfig, tokens TokenSource, log *logger.Logger) *MarketData {
	if log == nil {
		log = logger.Default()
	}
	if config.Depth <= 0 {
		config.Depth = 1
	}
	return &MarketData{
		config: config,
		tokens: tokens,
		log:    log.WithField("component", "primary"),
	}
}

// Connect establishes the websocket connection
func (m *MarketData) Connect(ctx context.Context) error {
	token, err := m.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	m.log.Info("Connecting to %s", m.config.WSURL)

	header := http.Header{}
	header.Set(authHeader, token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, m.config.WSURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			// expired session, the next Connect logs in again
			m.tokens.Invalidate()
			return fmt.Errorf("websocket dial failed: %w: status=%d", ErrAuth, resp.StatusCode)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	m.wsMu.Lock()
	m.wsConn = conn
	m.wsConnected = true
	m.wsDone = make(chan struct{})
	done := m.wsDone
	m.wsMu.Unlock()

	// Start read loop
	go m.wsReadLoop(conn, done)

	m.log.Info("Connected to market data")
	return nil
}

// Disconnect closes the websocket connection
func (m *MarketData) Disconnect(ctx context.Context) error {
	m.wsMu.Lock()
	defer m.wsMu.Unlock()

	if m.wsConn != nil {
		m.log.Info("Disconnecting from market data")
		m.wsConnected = false
		close(m.wsDone)
		m.wsConn.Close()
		m.wsConn = nil
	}

	return nil
}

// Done is closed when the connection is lost or closed
func (m *MarketData) Done() <-chan struct{} {
	m.wsMu.RLock()
	defer m.wsMu.RUnlock()
	return m.wsDone
}

// OnMarketData registers a handler for book updates
func (m *MarketData) OnMarketData(handler func(*entity.MarketData)) {
	m.handlerMu.Lock()
	m.handlers = append(m.handlers, handler)
	m.handlerMu.Unlock()
}

// Subscribe requests bids, offers and last trade for the instruments
func (m *MarketData) Subscribe(ctx context.Context, instruments []*entity.Instrument) error {
	products := make([]instrumentID, 0, len(instruments))
	for _, in := range instruments {
		marketID := in.MarketID
		if marketID == "" {
			marketID = entity.DefaultMarketID
		}
		products = append(products, instrumentID{MarketID: marketID, Symbol: in.Symbol})
	}

	msg := subscribeMessage{
		Type:     "smd",
		Level:    1,
		Entries:  []string{"BI", "OF", "LA"},
		Products: products,
		Depth:    m.config.Depth,
	}
	if err := m.wsSend(msg); err != nil {
		return err
	}
	m.log.Info("Subscribed to %d instruments", len(products))
	return nil
}

type subscribeMessage struct {
	Type     string         `json:"type"`
	Level    int            `json:"level"`
	Entries  []string       `json:"entries"`
	Products []instrumentID `json:"products"`
	Depth    int            `json:"depth"`
}

// wsSend sends a message via WebSocket
func (m *MarketData) wsSend(msg interface{}) error {
	m.wsMu.RLock()
	conn := m.wsConn
	connected := m.wsConnected
	m.wsMu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// wsReadLoop reads messages until the connection fails or is closed
func (m *MarketData) wsReadLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// closed by Disconnect
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					m.log.Error("WebSocket read error: %v", err)
				}
				m.wsMu.Lock()
				if m.wsConn == conn {
					m.wsConnected = false
					m.wsConn = nil
					close(done)
				}
				m.wsMu.Unlock()
			}
			return
		}

		m.handleWSMessage(message)
	}
}

type level struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

type mdMessage struct {
	Type         string       `json:"type"`
	Timestamp    int64        `json:"timestamp"`
	InstrumentID instrumentID `json:"instrumentId"`
	MarketData   struct {
		BI []level `json:"BI"`
		OF []level `json:"OF"`
		LA *level  `json:"LA"`
	} `json:"marketData"`
}

// handleWSMessage processes incoming WebSocket messages
func (m *MarketData) handleWSMessage(data []byte) {
	md, err := ParseMarketData(data)
	if err != nil {
		m.log.Debug("Skipping message: %v", err)
		return
	}
	if md == nil {
		return
	}

	m.log.Debug("Md %s bid=%s offer=%s spread=%s", md.Symbol, md.TopBidPrice(), md.TopOfferPrice(), md.Spread())

	m.handlerMu.RLock()
	defer m.handlerMu.RUnlock()
	for _, h := range m.handlers {
		h(md)
	}
}

// ParseMarketData decodes an "Md" message. Other message types return nil.
func ParseMarketData(data []byte) (*entity.MarketData, error) {
	var msg mdMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.Type != "Md" {
		return nil, nil
	}
	if msg.InstrumentID.Symbol == "" {
		return nil, fmt.Errorf("market data without symbol")
	}

	md := &entity.MarketData{
		Symbol:    msg.InstrumentID.Symbol,
		Bids:      toLevels(msg.MarketData.BI),
		Offers:    toLevels(msg.MarketData.OF),
		Timestamp: time.UnixMilli(msg.Timestamp),
	}
	if la := msg.MarketData.LA; la != nil {
		md.Last = &entity.OrderBookLevel{Price: la.Price, Size: la.Size}
	}
	return md, nil
}

func toLevels(in []level) []entity.OrderBookLevel {
	out := make([]entity.OrderBookLevel, 0, len(in))
	for _, l := range in {
		out = append(out, entity.OrderBookLevel{Price: l.Price, Size: l.Size})
	}
	return out
}
