package collector

import (
	"context"
	"sync"
)

// CandleRequest is one historical-data query. Dates use "2006-01-02 15:04" in market time.
type CandleRequest struct {
	Exchange    string `json:"exchange"`
	SymbolToken string `json:"symboltoken"`
	Interval    string `json:"interval"`
	FromDate    string `json:"fromdate"`
	ToDate      string `json:"todate"`
}

// CandleResponse mirrors the broker envelope. Each data row is
// [timestamp, open, high, low, close, volume].
type CandleResponse struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      [][]interface{} `json:"data"`
}

// HistoricalSource performs one remote candle query.
type HistoricalSource interface {
	GetCandleData(ctx context.Context, req CandleRequest) (*CandleResponse, error)
}

// Session establishes or refreshes the broker session. Login must be safe to call repeatedly.
type Session interface {
	Login(ctx context.Context) error
}

// MockSource replays scripted responses for development and testing.
// Each call consumes the next entry; the last entry repeats once the script runs out.
type MockSource struct {
	mu        sync.Mutex
	Responses []MockResponse
	Requests  []CandleRequest
}

// MockResponse is one scripted outcome of GetCandleData.
type MockResponse struct {
	Resp *CandleResponse
	Err  error
}

func (m *MockSource) GetCandleData(_ context.Context, req CandleRequest) (*CandleResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.Requests)
	m.Requests = append(m.Requests, req)
	if len(m.Responses) == 0 {
		return &CandleResponse{Status: true}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	r := m.Responses[idx]
	return r.Resp, r.Err
}

// Calls returns the number of requests served.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
