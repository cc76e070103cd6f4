package cloudsecrets

import (
	"context"
	"fmt"

	"cloud.google.com/go/logging"

	"github.com/hectormr206/orchestra/internal/obslog"
)

// CloudLogSink mirrors session log lines to a GCP Cloud Logging log,
// implementing obslog.CloudSink.
type CloudLogSink struct {
	client *logging.Client
	logger *logging.Logger
}

// NewCloudLogSink opens a Cloud Logging client for projectID and a logger
// named logID, tagging every entry with sessionID as a label.
func NewCloudLogSink(ctx context.Context, projectID, logID, sessionID string, opts ...logging.LoggerOption) (*CloudLogSink, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cloudsecrets: new logging client: %w", err)
	}

	opts = append(opts, logging.CommonLabels(map[string]string{"session_id": sessionID}))
	return &CloudLogSink{
		client: client,
		logger: client.Logger(logID, opts...),
	}, nil
}

func (s *CloudLogSink) Info(msg string) {
	s.logger.Log(logging.Entry{Severity: logging.Info, Payload: msg})
}

func (s *CloudLogSink) Warning(msg string) {
	s.logger.Log(logging.Entry{Severity: logging.Warning, Payload: msg})
}

func (s *CloudLogSink) Error(msg string) {
	s.logger.Log(logging.Entry{Severity: logging.Error, Payload: msg})
}

// Close flushes buffered entries and closes the underlying client.
func (s *CloudLogSink) Close() error {
	return s.client.Close()
}

var _ obslog.CloudSink = (*CloudLogSink)(nil)
