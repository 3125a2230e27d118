package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"inkd/internal/featureflags"
	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/remote"
	"inkd/internal/validation"
)

// cleanupTimeout bounds the writes that record a failed job after the
// workspace has gone away.
const cleanupTimeout = 5 * time.Second

// ResearchRequest asks for a market-research report.
type ResearchRequest struct {
	ArtistID  string `json:"artist_id"`
	Query     string `json:"query"`
	Region    string `json:"region"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// SettingsInput replaces the assistant settings of an artist.
type SettingsInput struct {
	ArtistID    string         `json:"artist_id"`
	Enabled     bool           `json:"enabled"`
	Preferences map[string]any `json:"preferences"`
}

// AssistantState is a snapshot of the Assistant container.
type AssistantState struct {
	ArtistID string `json:"artist_id"`

	Messages        []models.AssistantMessage `json:"messages"`
	MessagesLoading bool                      `json:"messages_loading"`
	MessagesError   *FetchError               `json:"messages_error,omitempty"`

	Reports        []models.AssistantReport `json:"reports"`
	ReportsLoading bool                     `json:"reports_loading"`
	ReportsError   *FetchError              `json:"reports_error,omitempty"`

	Settings        *models.AssistantSettings `json:"settings"`
	SettingsLoading bool                      `json:"settings_loading"`
	SettingsError   *FetchError               `json:"settings_error,omitempty"`

	PendingJobs int `json:"pending_jobs"`
}

// Assistant owns the signed-in artist's assistant thread, research reports
// and settings. Replies and reports are produced in the background and are
// bound to the workspace lifetime.
type Assistant struct {
	deps   Deps
	app    *AppContext
	events *emitter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	closed   bool
	jobs     int
	artistID string
	messages collection[models.AssistantMessage]
	reports  collection[models.AssistantReport]
	settings collection[models.AssistantSettings]
}

func newAssistant(lifetime context.Context, deps Deps, app *AppContext, events *emitter) *Assistant {
	ctx, cancel := context.WithCancel(lifetime)
	return &Assistant{deps: deps, app: app, events: events, ctx: ctx, cancel: cancel}
}

// Snapshot returns a copy of the assistant state.
func (a *Assistant) Snapshot() AssistantState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := AssistantState{
		ArtistID:        a.artistID,
		Messages:        a.messages.snapshot(),
		MessagesLoading: a.messages.loading,
		MessagesError:   a.messages.err,
		Reports:         a.reports.snapshot(),
		ReportsLoading:  a.reports.loading,
		ReportsError:    a.reports.err,
		SettingsLoading: a.settings.loading,
		SettingsError:   a.settings.err,
		PendingJobs:     a.jobs,
	}
	if len(a.settings.items) > 0 {
		s := a.settings.items[0]
		st.Settings = &s
	}
	return st
}

// resolve checks that the caller may act as artistID. An empty artistID
// means the signed-in identity.
func (a *Assistant) resolve(artistID string) (string, error) {
	me := a.app.UserID()
	if me == "" {
		return "", notAuthenticated()
	}
	if artistID == "" {
		artistID = me
	}
	if artistID != me {
		return "", models.NewUnauthorizedError("The assistant is only available for your own account")
	}
	if !a.deps.Flags.Enabled(featureflags.Assistant, me) {
		return "", featureDisabled("The assistant is not enabled for this account")
	}
	return artistID, nil
}

// target switches the container to artistID. Caller holds the lock.
func (a *Assistant) target(artistID string) {
	if a.artistID == artistID {
		return
	}
	a.artistID = artistID
	a.messages.reset()
	a.reports.reset()
	a.settings.reset()
}

// FetchMessages loads the thread oldest first. Messages the artist sent are
// labelled user, everything else assistant.
func (a *Assistant) FetchMessages(ctx context.Context, artistID string) error {
	artistID, err := a.resolve(artistID)
	if err != nil {
		return err
	}
	done := observability.TrackOperation("assistant", "fetch_messages")
	a.mu.Lock()
	a.target(artistID)
	seq := a.messages.begin()
	a.mu.Unlock()

	rows, err := a.deps.Remote.Messages.ListForParticipant(ctx, artistID)
	if err != nil {
		logReadFailure(ctx, "assistant", "fetch_messages", err)
	}
	var msgs []models.AssistantMessage
	for i := range rows {
		msgs = append(msgs, rows[i].AsAssistantMessage(artistID))
	}

	a.mu.Lock()
	applied := a.artistID == artistID && a.messages.finish(seq, msgs, err)
	a.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		a.events.emit("assistant", "messages", 0, nil)
	}
	return nil
}

// SendMessage stores the artist's message, appends it and schedules a reply.
// The reply is appended locally when it arrives and is never stored.
func (a *Assistant) SendMessage(ctx context.Context, content, artistID string) (*models.AssistantMessage, error) {
	artistID, err := a.resolve(artistID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateMessage(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	done := observability.TrackOperation("assistant", "send_message")
	content = strings.TrimSpace(content)

	a.mu.Lock()
	a.target(artistID)
	version := a.messages.version
	a.mu.Unlock()

	row := &models.Message{
		SenderID:   artistID,
		ReceiverID: models.AssistantReceiverID,
		Message:    content,
		Timestamp:  a.deps.now().UTC(),
	}
	if err := a.deps.Remote.Messages.Create(ctx, row); err != nil {
		done("error")
		return nil, remote.Classify(err)
	}
	msg := row.AsAssistantMessage(artistID)

	a.mu.Lock()
	applied := a.artistID == artistID && a.messages.append(version, msg)
	a.mu.Unlock()
	done(outcome(applied, nil))

	a.logEvent(ctx, artistID, models.EventMessageSent, map[string]any{"message_id": row.ID}, "recorded")
	a.events.emit("assistant", "message_sent", 0, msg)

	if a.deps.Responder != nil && a.repliesEnabled(ctx, artistID) {
		a.spawn("assistant_reply", artistID, func(ctx context.Context) error { return a.reply(ctx, artistID, content) })
	}
	return &msg, nil
}

func (a *Assistant) repliesEnabled(ctx context.Context, artistID string) bool {
	settings, err := a.deps.Remote.Assistant.GetSettings(ctx, artistID)
	if err != nil {
		observability.Log().WarnContext(ctx, "could not read assistant settings, replying anyway",
			slog.String("artist_id", artistID), slog.String("error", err.Error()))
		return true
	}
	return settings.Enabled
}

func (a *Assistant) reply(ctx context.Context, artistID, content string) error {
	msg, err := a.deps.Responder.Reply(ctx, artistID, content)
	if err != nil {
		observability.AssistantJobs.WithLabelValues("reply", jobOutcome(err)).Inc()
		return err
	}

	a.mu.Lock()
	if a.artistID == artistID {
		a.messages.items = append(a.messages.items, msg)
	}
	a.mu.Unlock()

	observability.AssistantJobs.WithLabelValues("reply", "ok").Inc()
	a.logEvent(ctx, artistID, models.EventReplyGenerated, map[string]any{"message_id": msg.ID}, "recorded")
	a.events.emit("assistant", "reply", 0, msg)
	return nil
}

// FetchReports loads the artist's reports, newest first.
func (a *Assistant) FetchReports(ctx context.Context, artistID string) error {
	artistID, err := a.resolve(artistID)
	if err != nil {
		return err
	}
	a.fetchReports(ctx, artistID)
	return nil
}

func (a *Assistant) fetchReports(ctx context.Context, artistID string) {
	done := observability.TrackOperation("assistant", "fetch_reports")
	a.mu.Lock()
	a.target(artistID)
	seq := a.reports.begin()
	a.mu.Unlock()

	reports, err := a.deps.Remote.Assistant.ListReports(ctx, artistID)
	if err != nil {
		logReadFailure(ctx, "assistant", "fetch_reports", err)
	}

	a.mu.Lock()
	applied := a.artistID == artistID && a.reports.finish(seq, reports, err)
	a.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		a.events.emit("assistant", "reports", 0, nil)
	}
}

// RequestMarketResearch files a pending report and starts the research job.
// The job moves the row to processing, then completed, or failed when it
// cannot finish, and refetches the report list.
func (a *Assistant) RequestMarketResearch(ctx context.Context, req ResearchRequest) (*models.AssistantReport, error) {
	artistID, err := a.resolve(req.ArtistID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateResearchQuery(req.Query); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	done := observability.TrackOperation("assistant", "request_research")

	a.mu.Lock()
	a.target(artistID)
	version := a.reports.version
	a.mu.Unlock()

	report := &models.AssistantReport{
		ArtistID:  artistID,
		Query:     strings.TrimSpace(req.Query),
		Region:    models.StringPtr(strings.TrimSpace(req.Region)),
		TimeStart: models.StringPtr(strings.TrimSpace(req.TimeStart)),
		TimeEnd:   models.StringPtr(strings.TrimSpace(req.TimeEnd)),
		Status:    models.ReportStatusPending,
	}
	if err := a.deps.Remote.Assistant.CreateReport(ctx, report); err != nil {
		done("error")
		return nil, remote.Classify(err)
	}

	a.mu.Lock()
	applied := a.artistID == artistID && a.reports.prepend(version, *report)
	a.mu.Unlock()
	done(outcome(applied, nil))

	a.logEvent(ctx, artistID, models.EventResearchRequested,
		map[string]any{"report_id": report.ID, "query": report.Query}, "recorded")
	a.events.emit("assistant", "report_requested", 0, report)

	if a.deps.Researcher != nil {
		job := *report
		a.spawn("market_research", artistID, func(ctx context.Context) error { return a.research(ctx, job) })
	}
	return report, nil
}

func (a *Assistant) research(ctx context.Context, report models.AssistantReport) error {
	repo := a.deps.Remote.Assistant
	err := repo.SetReportStatus(ctx, report.ID, models.ReportStatusProcessing)
	if err == nil {
		report.Status = models.ReportStatusProcessing
		a.events.emit("assistant", "report_processing", 0, report.ID)

		var findings models.ReportFindings
		findings, err = a.deps.Researcher.Research(ctx, report)
		if err == nil {
			err = repo.CompleteReport(ctx, report.ID, findings)
		}
	}

	if err != nil {
		// The workspace may be closing; record the failure regardless.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if ferr := repo.SetReportStatus(cctx, report.ID, models.ReportStatusFailed); ferr != nil {
			observability.Log().ErrorContext(cctx, "failed to mark report failed",
				slog.String("report_id", report.ID), slog.String("error", ferr.Error()))
		}
		a.logEvent(cctx, report.ArtistID, models.EventResearchFailed,
			map[string]any{"report_id": report.ID, "error": err.Error()}, "failed")
		observability.AssistantJobs.WithLabelValues("research", jobOutcome(err)).Inc()
	} else {
		a.logEvent(ctx, report.ArtistID, models.EventResearchCompleted,
			map[string]any{"report_id": report.ID}, "recorded")
		observability.AssistantJobs.WithLabelValues("research", "ok").Inc()
	}

	if ctx.Err() == nil {
		a.fetchReports(ctx, report.ArtistID)
	}
	a.events.emit("assistant", "report_finished", 0, report.ID)
	return err
}

// FetchSettings loads the artist's settings, or the defaults when none are saved.
func (a *Assistant) FetchSettings(ctx context.Context, artistID string) error {
	artistID, err := a.resolve(artistID)
	if err != nil {
		return err
	}
	done := observability.TrackOperation("assistant", "fetch_settings")
	a.mu.Lock()
	a.target(artistID)
	seq := a.settings.begin()
	a.mu.Unlock()

	settings, err := a.deps.Remote.Assistant.GetSettings(ctx, artistID)
	if err != nil {
		logReadFailure(ctx, "assistant", "fetch_settings", err)
	}
	var items []models.AssistantSettings
	if settings != nil {
		items = []models.AssistantSettings{*settings}
	}

	a.mu.Lock()
	applied := a.artistID == artistID && a.settings.finish(seq, items, err)
	a.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		a.events.emit("assistant", "settings", 0, nil)
	}
	return nil
}

// UpdateSettings upserts the artist's settings row.
func (a *Assistant) UpdateSettings(ctx context.Context, in SettingsInput) (*models.AssistantSettings, error) {
	artistID, err := a.resolve(in.ArtistID)
	if err != nil {
		return nil, err
	}
	done := observability.TrackOperation("assistant", "update_settings")

	settings := &models.AssistantSettings{ArtistID: artistID, Enabled: in.Enabled, Preferences: in.Preferences}
	if err := a.deps.Remote.Assistant.UpsertSettings(ctx, settings); err != nil {
		done("error")
		return nil, remote.Classify(err)
	}

	a.mu.Lock()
	a.target(artistID)
	a.settings.items = []models.AssistantSettings{*settings}
	a.settings.err = nil
	a.settings.version++
	a.mu.Unlock()

	done("ok")
	a.events.emit("assistant", "settings", 0, settings)
	return settings, nil
}

// Events returns the artist's recent assistant activity, newest first.
func (a *Assistant) Events(ctx context.Context, artistID string, limit int) ([]models.AssistantEvent, error) {
	artistID, err := a.resolve(artistID)
	if err != nil {
		return nil, err
	}
	events, err := a.deps.Remote.Assistant.ListEvents(ctx, artistID, limit)
	if err != nil {
		return nil, remote.Classify(err)
	}
	return events, nil
}

func (a *Assistant) logEvent(ctx context.Context, artistID string, typ models.AssistantEventType, payload map[string]any, status string) {
	err := a.deps.Remote.Assistant.LogEvent(ctx, &models.AssistantEvent{
		ArtistID: artistID,
		Type:     typ,
		Payload:  payload,
		Status:   status,
	})
	if err != nil {
		observability.Log().WarnContext(ctx, "failed to log assistant event",
			slog.String("artist_id", artistID), slog.String("type", string(typ)), slog.String("error", err.Error()))
	}
}

// spawn runs fn in the background until the container closes.
func (a *Assistant) spawn(operation, artistID string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.jobs++
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer func() {
			a.mu.Lock()
			a.jobs--
			a.mu.Unlock()
			a.wg.Done()
		}()
		observability.LogAsyncOperationStart(a.ctx, operation, slog.String("artist_id", artistID))
		start := time.Now()
		err := fn(a.ctx)
		elapsed := slog.Duration("elapsed", time.Since(start))
		switch {
		case err == nil:
			observability.LogAsyncOperationEnd(a.ctx, operation, slog.String("artist_id", artistID), elapsed)
		case errors.Is(err, context.Canceled):
			observability.LogAsyncOperationEnd(a.ctx, operation, slog.String("artist_id", artistID), elapsed, slog.Bool("canceled", true))
		default:
			observability.LogAsyncOperationError(a.ctx, operation, err, slog.String("artist_id", artistID), elapsed)
		}
	}()
}

// Wait blocks until every background job has finished.
func (a *Assistant) Wait() {
	a.wg.Wait()
}

// Close cancels background jobs and waits for them.
func (a *Assistant) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cancel()
	a.wg.Wait()
}

func jobOutcome(err error) string {
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "error"
}
