package audit

import (
	"context"

	"library-service/backend/internal/audit/domain"
	"library-service/backend/internal/server/middleware"
)

// Operation is an audited call: request in, result or error out.
type Operation[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Identifiable is implemented by results that expose the id of the entity they concern.
type Identifiable interface {
	AuditEntityID() (int64, bool)
}

// EntityIDs resolves the entity id of a record. FromResult is tried first on success,
// then FromRequest. Either may be nil.
type EntityIDs[Req, Resp any] struct {
	FromResult  func(resp Resp) (int64, bool)
	FromRequest func(req Req) (int64, bool)
}

// ResultID takes the entity id from an Identifiable result.
func ResultID[Req any, Resp Identifiable]() EntityIDs[Req, Resp] {
	return EntityIDs[Req, Resp]{
		FromResult: func(resp Resp) (int64, bool) { return resp.AuditEntityID() },
	}
}

// Wrap returns op decorated to record exactly one audit entry per call. The result and error
// of op are returned unchanged.
func Wrap[Req, Resp any](rec *Recorder, reg Registration, ids EntityIDs[Req, Resp], op Operation[Req, Resp]) Operation[Req, Resp] {
	return func(ctx context.Context, req Req) (Resp, error) {
		resp, err := op(ctx, req)

		entry := &domain.Record{
			Action:     reg.Action,
			EntityType: reg.EntityType,
			Username:   actor(ctx),
			Success:    err == nil,
		}
		if meta, ok := middleware.RequestMetaFromContext(ctx); ok {
			entry.UserAgent = meta.UserAgent
			entry.IPAddress = meta.ClientIP
		}
		if err != nil {
			msg := err.Error()
			entry.ErrorMessage = &msg
		}
		if id, ok := resolveEntityID(ids, req, resp, err); ok {
			entry.EntityID = &id
		}
		rec.Record(ctx, entry)
		return resp, err
	}
}

func resolveEntityID[Req, Resp any](ids EntityIDs[Req, Resp], req Req, resp Resp, err error) (int64, bool) {
	if err == nil && ids.FromResult != nil {
		if id, ok := ids.FromResult(resp); ok {
			return id, true
		}
	}
	if ids.FromRequest != nil {
		return ids.FromRequest(req)
	}
	return 0, false
}

func actor(ctx context.Context) string {
	if p, ok := middleware.PrincipalFromContext(ctx); ok && p.Username != "" {
		return p.Username
	}
	return domain.Anonymous
}
