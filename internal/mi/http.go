package mi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HTTPConfig configures the MI REST gateway.
type HTTPConfig struct {
	// BaseURL is the ERP host, e.g. "https://m3.example.com:21108".
	BaseURL  string
	Username string
	Password string
	// Token is sent as a bearer token when set; it wins over basic auth.
	Token   string
	Timeout time.Duration
	// DefaultMaxRecords is applied when a call does not set MaxRecords.
	DefaultMaxRecords int
}

// HTTPGateway executes transactions against the M3 MI REST endpoint
// "/m3api-rest/execute/{program}/{transaction}".
type HTTPGateway struct {
	cfg    HTTPConfig
	client *http.Client
	log    *zap.Logger
}

// NewHTTPGateway creates a gateway. A nil logger disables logging.
func NewHTTPGateway(cfg HTTPConfig, log *zap.Logger) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DefaultMaxRecords == 0 {
		cfg.DefaultMaxRecords = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("mi"),
	}
}

// restResponse is the JSON body of an MI REST reply.
type restResponse struct {
	Program     string       `json:"Program"`
	Transaction string       `json:"Transaction"`
	MIRecord    []restRecord `json:"MIRecord"`

	// NOK replies.
	Type    string `json:"@type"`
	Message string `json:"Message"`
	Code    string `json:"@code"`
	Field   string `json:"@field"`
}

type restRecord struct {
	NameValue []struct {
		Name  string `json:"Name"`
		Value string `json:"Value"`
	} `json:"NameValue"`
}

// Execute implements Gateway.
func (g *HTTPGateway) Execute(ctx context.Context, program, transaction string, req Request, opts ...Option) (*Response, error) {
	o := ApplyOptions(opts)
	u := g.buildURL(program, transaction, req, o)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, AsError(fmt.Errorf("building request: %w", err), program, transaction, req)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Correlation-ID", uuid.New().String())
	switch {
	case g.cfg.Token != "":
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	case g.cfg.Username != "":
		httpReq.SetBasicAuth(g.cfg.Username, g.cfg.Password)
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.log.Warn("transaction failed", zap.String("program", program), zap.String("transaction", transaction), zap.Error(err))
		return nil, AsError(err, program, transaction, req)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, AsError(fmt.Errorf("reading response: %w", err), program, transaction, req)
	}
	g.log.Debug("transaction",
		zap.String("program", program),
		zap.String("transaction", transaction),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var rr restResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rr); err != nil && resp.StatusCode == http.StatusOK {
			return nil, AsError(fmt.Errorf("decoding response: %w", err), program, transaction, req)
		}
	}

	if rr.Type == "ServerReturnedNOK" || rr.Code != "" || resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(rr.Message)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{
			Program:      program,
			Transaction:  transaction,
			RequestData:  req,
			ErrorCode:    strings.TrimSpace(rr.Code),
			ErrorField:   strings.TrimSpace(rr.Field),
			ErrorMessage: msg,
		}
	}

	items := make([]Record, 0, len(rr.MIRecord))
	for _, rec := range rr.MIRecord {
		row := make(Record, len(rec.NameValue))
		for _, nv := range rec.NameValue {
			row[nv.Name] = strings.TrimRight(nv.Value, " ")
		}
		items = append(items, row)
	}
	return NewResponse(program, transaction, items), nil
}

func (g *HTTPGateway) buildURL(program, transaction string, req Request, o CallOptions) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(g.cfg.BaseURL, "/"))
	b.WriteString("/m3api-rest/execute/")
	b.WriteString(url.PathEscape(program))
	b.WriteString("/")
	b.WriteString(url.PathEscape(transaction))

	maxRecs := g.cfg.DefaultMaxRecords
	if o.MaxRecordsSet {
		maxRecs = o.MaxRecords
	}
	b.WriteString(";maxrecs=")
	b.WriteString(strconv.Itoa(maxRecs))
	if len(o.ReturnColumns) > 0 {
		b.WriteString(";returncols=")
		b.WriteString(strings.Join(o.ReturnColumns, ","))
	}

	q := url.Values{}
	for k, v := range req {
		q.Set(k, v)
	}
	if enc := q.Encode(); enc != "" {
		b.WriteString("?")
		b.WriteString(enc)
	}
	return b.String()
}
