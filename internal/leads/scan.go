package leads

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/qrpayload"
	"github.com/boothlead/backend/internal/session"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/metrics"
	"github.com/boothlead/backend/pkg/normalize"
	"github.com/boothlead/backend/pkg/queue"
)

// DefaultScannedName is used when the badge does not carry a name.
const DefaultScannedName = "Scanned Lead"

// ScanRequest is one badge scan from the capture screen.
type ScanRequest struct {
	QR       string `json:"qr"`
	AudioURI string `json:"audio_uri"`
}

// CreateLeadFromScan creates a lead from a scanned badge and returns its id.
// The company comes from the badge or the caller's scope, and the event from
// the badge or the company's active event.
func (r *Repository) CreateLeadFromScan(ctx context.Context, sess session.Context, req ScanRequest) (string, error) {
	payload, err := r.scanPayload(ctx, sess, req)
	if err != nil {
		r.metrics.Scan(scanOutcome(err))
		return "", err
	}

	raw := strings.TrimSpace(req.QR)
	audio := strings.TrimSpace(req.AudioURI)
	full := payload.Clone()
	full["qr_payload"] = raw
	noQR := payload.Clone()
	noAudio := full.Clone()
	if audio != "" {
		full["audio_uri"] = audio
		noQR["audio_uri"] = audio
	}

	res, err := r.writer.Write(ctx, store.TableLeads, []compat.Candidate{
		{Tag: "full", Payload: full},
		{Tag: "without-qr-payload", Payload: noQR},
		{Tag: "without-audio", Payload: noAudio},
		{Tag: "core", Payload: payload},
	}, func(ctx context.Context, p store.Row) (store.Row, error) {
		return r.store.Insert(ctx, store.TableLeads, p)
	})
	if err != nil {
		r.metrics.Scan(metrics.ScanFailed)
		return "", fmt.Errorf("create lead: %w", err)
	}
	id := GetLeadID(res.Row)
	if id == "" {
		r.metrics.Scan(metrics.ScanFailed)
		return "", ErrMissingID
	}
	r.metrics.Scan(metrics.ScanCreated)
	r.logger.Info("lead captured",
		zap.String("lead_id", id),
		zap.Any("company_id", payload["company_id"]),
		zap.Any("event_id", payload["event_id"]),
		zap.String("shape", res.Tag))

	r.enqueueEnrichment(ctx, sess, id, normalize.ID(payload["company_id"]))
	return id, nil
}

// scanPayload validates the scan and builds the core insert columns. Every
// validation error is returned before an insert is attempted.
func (r *Repository) scanPayload(ctx context.Context, sess session.Context, req ScanRequest) (store.Row, error) {
	raw := strings.TrimSpace(req.QR)
	if raw == "" {
		return nil, ErrEmptyQR
	}
	userID := normalize.ID(sess.UserID)
	if userID == "" {
		return nil, ErrNoUser
	}

	badge := qrpayload.Decode(raw)
	companyID := sess.Scope.CompanyID()
	if badge.CompanyID != nil {
		if !sess.Scope.IsUnscoped() && *badge.CompanyID != companyID {
			if companyID == "" {
				return nil, ErrNoCompany
			}
			return nil, ErrCompanyMismatch
		}
		companyID = *badge.CompanyID
	}
	if companyID == "" {
		return nil, ErrNoCompany
	}

	eventID := ""
	if badge.EventID != nil {
		eventID = *badge.EventID
	} else {
		event, err := r.FetchActiveEventByCompanyID(ctx, companyID)
		if err != nil {
			return nil, err
		}
		eventID = normalize.ID(event["id"])
	}
	if eventID == "" {
		return nil, ErrNoActiveEvent
	}

	payload := store.Row{
		"company_id":     companyID,
		"event_id":       eventID,
		"owner_user_id":  userID,
		"full_name":      DefaultScannedName,
		"job_title":      "",
		"priority_score": 0,
		"status":         DefaultStatus,
	}
	if badge.FullName != nil {
		payload["full_name"] = *badge.FullName
	}
	if badge.JobTitle != nil {
		payload["job_title"] = *badge.JobTitle
	}
	if badge.PriorityScore != nil {
		payload["priority_score"] = *badge.PriorityScore
	}
	return payload, nil
}

func (r *Repository) enqueueEnrichment(ctx context.Context, sess session.Context, leadID, companyID string) {
	if r.jobs == nil {
		return
	}
	err := r.jobs.EnqueueEnrichment(ctx, queue.EnrichmentPayload{
		LeadID:    leadID,
		CompanyID: companyID,
		Role:      sess.Scope.Role,
	})
	if err != nil {
		r.logger.Warn("enqueue enrichment failed", zap.String("lead_id", leadID), zap.Error(err))
	}
}

func scanOutcome(err error) string {
	if IsValidation(err) {
		return metrics.ScanRejected
	}
	return metrics.ScanFailed
}
