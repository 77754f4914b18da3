package ingest

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/internal/httpclient"
	"github.com/opengov-gr/diavgest/logger"
)

// DefaultProbeTimeout bounds one health probe request.
const DefaultProbeTimeout = 15 * time.Second

// Probe answers whether an endpoint is serving queries, in maintenance
// mode, or unreachable. It issues one minimal wildcard query and never
// inspects more than the error signature, so a probe is cheap enough to
// run before every ingestion.
type Probe struct {
	client *httpclient.SaferClient
	logger *zap.SugaredLogger
}

func NewProbe(client *httpclient.SaferClient, log *zap.SugaredLogger) *Probe {
	if client == nil {
		client = httpclient.NewSaferClient(DefaultProbeTimeout)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Probe{client: client, logger: log}
}

// Check classifies ep. A body carrying the maintenance signature means
// Maintenance. A network or timeout failure means Unknown, which is
// absence of signal rather than proof of outage. Anything else counts
// as Healthy.
func (p *Probe) Check(ctx context.Context, ep Endpoint) HealthVerdict {
	probeURL := RequestURL(ep, FetchRequest{PageSize: 1})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		p.logger.Warnw("Probe request could not be built",
			logger.FieldEndpoint, ep.URL,
			logger.FieldError, err)
		return HealthUnknown
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debugw("Probe request failed",
			logger.FieldEndpoint, ep.URL,
			logger.FieldError, err)
		return HealthUnknown
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Debugw("Probe response unreadable",
			logger.FieldEndpoint, ep.URL,
			logger.FieldError, err)
		return HealthUnknown
	}

	if srvErr, ok := DetectServerError(body); ok && srvErr.IsMaintenance() {
		p.logger.Infow("Endpoint is in maintenance mode",
			logger.FieldEndpoint, ep.URL,
			"signature", srvErr.ExceptionName)
		return HealthMaintenance
	}

	// An error status is no healthy signal either, but without the
	// signature it is not maintenance.
	if resp.StatusCode >= http.StatusBadRequest {
		p.logger.Debugw("Probe got error status",
			logger.FieldEndpoint, ep.URL,
			logger.FieldStatus, resp.StatusCode)
		return HealthUnknown
	}

	return HealthHealthy
}
