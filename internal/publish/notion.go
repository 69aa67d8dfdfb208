package publish

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-insights/internal/resilience"
	"github.com/sells-group/sales-insights/pkg/notion"
)

// NotionPublisher logs each upload as a page in a Notion database.
type NotionPublisher struct {
	client notion.Client
	dbID   string
	policy resilience.Policy
	now    func() time.Time
}

// NewNotionPublisher creates a NotionPublisher. Transient API failures are
// retried according to policy.
func NewNotionPublisher(client notion.Client, dbID string, policy resilience.Policy) *NotionPublisher {
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetry("notion")
	}
	return &NotionPublisher{client: client, dbID: dbID, policy: policy, now: time.Now}
}

// Name implements Publisher.
func (p *NotionPublisher) Name() string { return "notion" }

// Publish implements Publisher.
func (p *NotionPublisher) Publish(ctx context.Context, a *Artifact) error {
	u := notion.Upload{
		ID:        a.UploadID,
		Filename:  a.Filename,
		CreatedAt: p.now(),
	}
	if a.Result != nil {
		u.Imputation = string(a.Result.Imputation.Tier)
		u.Insights = a.Result.Insights
		if s := a.Result.Summary; s != nil {
			u.Rows = s.Rows
			u.Revenue = s.TotalRevenue
			u.Profit = s.TotalProfit
			u.AOV = s.AOV
		}
	}

	req := notion.UploadPage(p.dbID, u)
	err := resilience.Do(ctx, p.policy, func(ctx context.Context) error {
		_, err := p.client.CreatePage(ctx, req)
		return err
	})
	if err != nil {
		return eris.Wrapf(err, "publish: notion page for upload %s", a.UploadID)
	}
	return nil
}
