package notice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
)

type generateRequest struct {
	AgencyID     string `json:"agencyId"`
	InspectionID string `json:"inspectionId"`
	Type         string `json:"type"`
}

type generateResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	DocumentURL string `json:"documentUrl"`
}

// Client asks the external document service to render a notice. The
// returned notice is persisted through Repo when one is set.
type Client struct {
	http *resty.Client
	repo notices.Repository
	log  *zap.Logger
	now  func() time.Time
}

var _ notices.Generator = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, repo notices.Repository, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: hc, repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (c *Client) GenerateNotice(ctx context.Context, agency, inspectionID string, t notices.Type) (*notices.Notice, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown notice type %q", t)
	}
	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{AgencyID: agency, InspectionID: inspectionID, Type: string(t)}).
		SetResult(&out).
		Post("/notices")
	if err != nil {
		return nil, fmt.Errorf("notice service call: %w", err)
	}
	if resp.IsError() {
		c.log.Warn("notice service rejected request",
			zap.Int("status", resp.StatusCode()),
			zap.String("inspection_id", inspectionID),
		)
		return nil, fmt.Errorf("notice service returned %d", resp.StatusCode())
	}

	n := &notices.Notice{
		ID:           out.ID,
		AgencyID:     agency,
		InspectionID: inspectionID,
		Type:         t,
		Status:       notices.StatusPending,
		DocumentURL:  out.DocumentURL,
		CreatedAt:    c.now(),
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if out.Status == string(notices.StatusSent) {
		n.Status = notices.StatusSent
	}
	if c.repo != nil {
		if err := c.repo.Save(ctx, n); err != nil {
			return nil, fmt.Errorf("save notice: %w", err)
		}
	}
	return n, nil
}
