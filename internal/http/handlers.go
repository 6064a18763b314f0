package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady checks that templates are loaded and the suggestion source answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.backend.Options(ctx); err != nil {
		checks["options"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["options"] = "ok"
	}

	if s.journal != nil {
		checks["journal"] = "enabled"
	} else {
		checks["journal"] = "disabled"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()

	w.WriteHeader(http.StatusOK)
	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_panics_total", "counter", "Handler panics recovered", traceMetrics.Panics)
	metric("submissions_total", "counter", "Submit requests that reached the append path", atomic.LoadInt64(&s.appMetrics.submissions))
	metric("submission_failures_total", "counter", "Submit requests that failed", atomic.LoadInt64(&s.appMetrics.failures))
	metric("entries_appended_total", "counter", "Rows appended to the spreadsheet", atomic.LoadInt64(&s.appMetrics.entriesAppended))
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError(core.MsgNotFound).Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, string(core.KindConfiguration))
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	opts, err := s.backend.Options(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Options list error",
			log.FieldError, err,
			log.FieldOperation, log.OpList)
	}

	data := struct {
		Today                string
		StoreOptions         []string
		PaymentMethodOptions []string
	}{
		Today:                core.Today(time.Now()),
		StoreOptions:         opts.StoreOptions,
		PaymentMethodOptions: opts.PaymentMethodOptions,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSubmit appends one batch to the spreadsheet and answers
// {message, error?} with the status of the failure category.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)

	// Configuration is reported before anything about the body.
	if p, ok := s.backend.(sheets.Preflighter); ok {
		if err := p.Preflight(ctx); err != nil {
			atomic.AddInt64(&s.appMetrics.failures, 1)
			logger.ErrorContext(ctx, "Submit failed",
				log.FieldError, err,
				log.FieldErrorType, string(core.KindOf(err)),
				log.FieldOperation, log.OpSubmit)
			FromError(err).Write(w)
			return
		}
	}

	batch, err := DecodeBatch(w, r)
	if err != nil {
		logger.WarnContext(ctx, "Malformed submit body",
			log.FieldError, err,
			log.FieldErrorType, string(core.KindInput))
		if IsBodyTooLarge(err) {
			ErrorResponse(http.StatusRequestEntityTooLarge, core.MsgInvalidRequest, err.Error()).Write(w)
			return
		}
		BadRequestError(core.MsgInvalidRequest, err.Error()).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.submissions, 1)
	n, err := s.backend.AppendEntries(ctx, batch)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.failures, 1)
		kind := core.KindOf(err)
		fields := log.NewFields().
			WithError(err).
			WithErrorType(string(kind)).
			WithOperation(log.OpSubmit)
		fields[log.FieldEntryCount] = len(batch)
		if kind == core.KindInput || kind == core.KindNotFound {
			logger.WarnContext(ctx, "Submit rejected", fields.ToSlice()...)
		} else {
			logger.ErrorContext(ctx, "Submit failed", fields.ToSlice()...)
		}
		FromError(err).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.entriesAppended, int64(n))
	logger.InfoContext(ctx, "Submit completed",
		log.FieldOperation, log.OpSubmit,
		log.FieldEntryCount, n)
	NewJSONResponse().Message(core.MsgAppended(n), "").Write(w)
}

// handleOptions returns the suggestion lists shown by the form.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	opts, err := s.backend.Options(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Options list error",
			log.FieldError, err,
			log.FieldOperation, log.OpList)
		InternalServerError(core.MsgProcessingFailed, err.Error()).Write(w)
		return
	}
	if opts.StoreOptions == nil {
		opts.StoreOptions = []string{}
	}
	if opts.PaymentMethodOptions == nil {
		opts.PaymentMethodOptions = []string{}
	}
	NewJSONResponse().Body(opts).Write(w)
}

type submissionsResponse struct {
	Submissions []storage.Submission `json:"submissions"`
}

// handleSubmissions lists recent journal records, newest first.
func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.journal == nil {
		NotFoundError(core.MsgJournalDisabled).Write(w)
		return
	}

	limit := ParseLimit(r.URL.Query())
	items, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Journal read error",
			log.FieldError, err,
			log.FieldOperation, log.OpList)
		InternalServerError(core.MsgProcessingFailed, err.Error()).Write(w)
		return
	}
	if items == nil {
		items = []storage.Submission{}
	}
	NewJSONResponse().Body(submissionsResponse{Submissions: items}).Write(w)
}
