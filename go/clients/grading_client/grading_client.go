package grading_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/studyroom/go/clients"
)

// GradingClient forwards submission audit records to the grading service.
type GradingClient struct {
	*clients.BaseClient
}

func NewGradingClient(baseURL string, timeout time.Duration) *GradingClient {
	client := &GradingClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	client.SetHeader(JsonHeader, JsonContentType)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client
}

// SubmitStudy posts a raw submission record. The response body is returned uninterpreted.
func (c *GradingClient) SubmitStudy(ctx context.Context, record json.RawMessage) ([]byte, error) {
	if !json.Valid(record) {
		return nil, fmt.Errorf("submission record is not valid JSON")
	}
	body, err := c.Post(ctx, SubmitPath, bytes.NewReader(record))
	if err != nil {
		return nil, fmt.Errorf("submit study record: %w", err)
	}
	return body, nil
}
